package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/noah-isme/planner-sync-api/internal/models"
)

// CalendarRedisRepository stores each calendar as a JSON string under
// <prefix>:calendar:<id> and tracks ids in the <prefix>:calendars set.
type CalendarRedisRepository struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

// NewCalendarRedisRepository constructs the repository.
func NewCalendarRedisRepository(client *redis.Client, prefix string, logger *zap.Logger) *CalendarRedisRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	if prefix == "" {
		prefix = "planner"
	}
	return &CalendarRedisRepository{client: client, prefix: prefix, logger: logger}
}

func (r *CalendarRedisRepository) indexKey() string {
	return r.prefix + ":calendars"
}

func (r *CalendarRedisRepository) recordKey(id string) string {
	return r.prefix + ":calendar:" + id
}

// LoadAll fetches every indexed calendar. Index entries without a
// document and undecodable documents are skipped.
func (r *CalendarRedisRepository) LoadAll(ctx context.Context) ([]models.CalendarRecord, error) {
	ids, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers %s: %w", r.indexKey(), err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.recordKey(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget calendars: %w", err)
	}

	records := make([]models.CalendarRecord, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			r.logger.Warn("calendar indexed without document", zap.String("calendar_id", ids[i]))
			continue
		}
		var rec models.CalendarRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			r.logger.Warn("skipping corrupt calendar document", zap.String("calendar_id", ids[i]), zap.Error(err))
			continue
		}
		rec.ID = ids[i]
		records = append(records, rec)
	}
	return records, nil
}

// Put writes the document and indexes it in one transaction.
func (r *CalendarRedisRepository) Put(ctx context.Context, record models.CalendarRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal calendar %s: %w", record.ID, err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.recordKey(record.ID), payload, 0)
		pipe.SAdd(ctx, r.indexKey(), record.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put calendar %s: %w", record.ID, err)
	}
	return nil
}

// Delete removes the document and its index entry.
func (r *CalendarRedisRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.recordKey(id))
		pipe.SRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete calendar %s: %w", id, err)
	}
	return nil
}

// Ping verifies the server is reachable.
func (r *CalendarRedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
