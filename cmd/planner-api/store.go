package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/noah-isme/planner-sync-api/internal/models"
	"github.com/noah-isme/planner-sync-api/internal/repository"
	"github.com/noah-isme/planner-sync-api/internal/service"
	"github.com/noah-isme/planner-sync-api/pkg/config"
	"github.com/noah-isme/planner-sync-api/pkg/database"
	"github.com/noah-isme/planner-sync-api/pkg/redisclient"
	"github.com/noah-isme/planner-sync-api/pkg/storage"
)

type calendarRepository interface {
	LoadAll(ctx context.Context) ([]models.CalendarRecord, error)
	Put(ctx context.Context, record models.CalendarRecord) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// store is the durable backend selected by STORAGE_DRIVER plus whatever
// must be released on shutdown.
type store struct {
	calendarRepository
	files   *repository.CalendarFileRepository
	closers []func() error
}

func (s *store) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func openStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (*store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverFile, "":
		local, err := storage.NewLocalStorage(cfg.Storage.DataDir)
		if err != nil {
			return nil, err
		}
		files := repository.NewCalendarFileRepository(local, logr)
		logr.Info("using file storage", zap.String("dir", cfg.Storage.DataDir))
		return &store{calendarRepository: files, files: files}, nil

	case config.StorageDriverPostgres:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			return nil, err
		}
		repo := repository.NewCalendarPostgresRepository(db, logr)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		logr.Info("using postgres storage", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Name))
		return &store{calendarRepository: repo, closers: []func() error{db.Close}}, nil

	case config.StorageDriverRedis:
		client, err := redisclient.New(cfg.Redis)
		if err != nil {
			return nil, err
		}
		repo := repository.NewCalendarRedisRepository(client, cfg.Redis.KeyPrefix, logr)
		logr.Info("using redis storage", zap.String("host", cfg.Redis.Host), zap.String("prefix", cfg.Redis.KeyPrefix))
		return &store{calendarRepository: repo, closers: []func() error{client.Close}}, nil

	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.Storage.Driver)
	}
}

func newCalendarService(st *store, metrics *service.MetricsService, logr *zap.Logger) *service.CalendarService {
	return service.NewCalendarService(st, validator.New(), logr.Named("calendars"), service.WithCalendarMetrics(metrics))
}

// importLegacy migrates the single-calendar file of older deployments. It
// is a no-op when the file is absent or calendars already exist.
func importLegacy(ctx context.Context, calendars *service.CalendarService, path string, logr *zap.Logger) (bool, error) {
	data, found, err := repository.ReadLegacyState(path)
	if err != nil {
		return false, err
	}
	if !found {
		return false, nil
	}
	created, imported, err := calendars.ImportLegacy(ctx, data)
	if err != nil {
		return false, err
	}
	if imported {
		logr.Info("imported legacy state file", zap.String("file", path), zap.String("calendar_id", created.ID))
	}
	return imported, nil
}

// startTempSweeper periodically deletes temp files left by interrupted
// writes. Only the file driver produces them.
func startTempSweeper(st *store, cfg config.StorageConfig, logr *zap.Logger) (*cron.Cron, error) {
	if st.files == nil || cfg.TempSweepCron == "" {
		return nil, nil
	}
	ttl := cfg.TempFileTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	c := cron.New()
	_, err := c.AddFunc(cfg.TempSweepCron, func() {
		removed, err := st.files.SweepTempFiles(ttl)
		if err != nil {
			logr.Warn("temp file sweep failed", zap.Error(err))
			return
		}
		if len(removed) > 0 {
			logr.Info("removed stale temp files", zap.Strings("files", removed))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule temp sweep %q: %w", cfg.TempSweepCron, err)
	}
	c.Start()
	return c, nil
}
