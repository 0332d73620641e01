package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/planner-sync-api/api/swagger"
	"github.com/noah-isme/planner-sync-api/internal/handler"
	internalmiddleware "github.com/noah-isme/planner-sync-api/internal/middleware"
	"github.com/noah-isme/planner-sync-api/internal/service"
	"github.com/noah-isme/planner-sync-api/pkg/config"
	"github.com/noah-isme/planner-sync-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/planner-sync-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/planner-sync-api/pkg/middleware/requestid"
)

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logr, err := bootstrap()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	st, err := openStore(ctx, cfg, logr)
	if err != nil {
		logr.Error("failed to open storage", zap.Error(err))
		return err
	}
	defer st.Close()

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}

	calendars := newCalendarService(st, metrics, logr)
	if err := calendars.Load(ctx); err != nil {
		logr.Error("failed to load calendars", zap.Error(err))
		return err
	}
	if _, err := importLegacy(ctx, calendars, cfg.Storage.LegacyStateFile, logr); err != nil {
		logr.Error("legacy import failed", zap.Error(err))
		return err
	}

	sweeper, err := startTempSweeper(st, cfg.Storage, logr)
	if err != nil {
		return err
	}
	if sweeper != nil {
		defer func() { <-sweeper.Stop().Done() }()
	}

	exports := service.NewExportService(calendars, service.ExportConfig{Timezone: cfg.Export.Timezone, UIDDomain: cfg.Export.UIDDomain}, logr.Named("export"))
	router := newRouter(cfg, logr, metrics, st, handler.NewCalendarHandler(calendars, exports))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "storage", cfg.Storage.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logr.Error("server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logr.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
		return err
	}
	return nil
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, st handler.Pinger, calendars *handler.CalendarHandler) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins, handler.RevisionHeader))
	r.Use(internalmiddleware.Metrics(metrics))

	probes := handler.NewMetricsHandler(metrics, st)
	r.GET("/health", probes.Health)
	r.GET("/ready", probes.Ready)
	if metrics != nil {
		r.GET("/metrics", probes.Prometheus)
	}
	if cfg.Docs.Enabled {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	calendars.Register(r.Group(cfg.APIPrefix))
	return r
}
