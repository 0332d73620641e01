package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/planner-sync-api/internal/models"
	"github.com/noah-isme/planner-sync-api/pkg/storage"
)

const calendarFileExt = ".json"

// CalendarFileRepository keeps one JSON document per calendar in a
// directory, named <id>.json.
type CalendarFileRepository struct {
	store  *storage.LocalStorage
	logger *zap.Logger
}

// NewCalendarFileRepository constructs the repository.
func NewCalendarFileRepository(store *storage.LocalStorage, logger *zap.Logger) *CalendarFileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarFileRepository{store: store, logger: logger}
}

// LoadAll reads every calendar document. Unreadable or corrupt files are
// logged and skipped so one bad file cannot block startup.
func (r *CalendarFileRepository) LoadAll(ctx context.Context) ([]models.CalendarRecord, error) {
	names, err := r.store.List(calendarFileExt)
	if err != nil {
		return nil, fmt.Errorf("list calendar files: %w", err)
	}

	records := make([]models.CalendarRecord, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id := strings.TrimSuffix(name, calendarFileExt)
		data, err := r.store.Read(name)
		if err != nil {
			r.logger.Warn("skipping unreadable calendar file", zap.String("file", name), zap.Error(err))
			continue
		}
		var rec models.CalendarRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			r.logger.Warn("skipping corrupt calendar file", zap.String("file", name), zap.Error(err))
			continue
		}
		rec.ID = id
		records = append(records, rec)
	}
	return records, nil
}

// Put atomically replaces the calendar's document.
func (r *CalendarFileRepository) Put(ctx context.Context, record models.CalendarRecord) error {
	payload, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal calendar %s: %w", record.ID, err)
	}
	if err := r.store.WriteAtomic(record.ID+calendarFileExt, payload); err != nil {
		return fmt.Errorf("write calendar %s: %w", record.ID, err)
	}
	return nil
}

// Delete removes the calendar's document. Missing files are not an error.
func (r *CalendarFileRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(id + calendarFileExt); err != nil {
		return fmt.Errorf("delete calendar %s: %w", id, err)
	}
	return nil
}

// SweepTempFiles removes write leftovers older than the given age.
func (r *CalendarFileRepository) SweepTempFiles(maxAge time.Duration) ([]string, error) {
	return r.store.CleanupTempFiles(maxAge)
}

// Ping verifies the data directory is listable.
func (r *CalendarFileRepository) Ping(ctx context.Context) error {
	_, err := r.store.List(calendarFileExt)
	return err
}
