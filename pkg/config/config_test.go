package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, StorageDriverFile, cfg.Storage.Driver)
	assert.Equal(t, time.Hour, cfg.Storage.TempFileTTL)
	assert.Equal(t, "planner", cfg.Redis.KeyPrefix)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "planner.local", cfg.Export.UIDDomain)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", " Postgres ")
	t.Setenv("ALLOWED_ORIGINS", "http://a.lan, http://b.lan ,")
	t.Setenv("TEMP_FILE_TTL", "15m")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, []string{"http://a.lan", "http://b.lan"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 15*time.Minute, cfg.Storage.TempFileTTL)
	assert.Equal(t, 9090, cfg.Port)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
