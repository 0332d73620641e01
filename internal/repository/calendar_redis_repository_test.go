package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCalendarRedisRepositoryKeys(t *testing.T) {
	repo := NewCalendarRedisRepository(nil, "", zap.NewNop())
	assert.Equal(t, "planner:calendars", repo.indexKey())
	assert.Equal(t, "planner:calendar:abc", repo.recordKey("abc"))

	repo = NewCalendarRedisRepository(nil, "team-a", nil)
	assert.Equal(t, "team-a:calendar:abc", repo.recordKey("abc"))
}

func TestCalendarRedisRepositoryUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()
	repo := NewCalendarRedisRepository(client, "test", zap.NewNop())
	ctx := context.Background()

	_, err := repo.LoadAll(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test:calendars")

	err = repo.Put(ctx, sampleRecord("cal-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cal-1")

	assert.Error(t, repo.Delete(ctx, "cal-1"))
	assert.Error(t, repo.Ping(ctx))
}
