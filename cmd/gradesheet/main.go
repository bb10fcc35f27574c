package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/gradesheet/api/swagger"
	"github.com/noah-isme/gradesheet/internal/handler"
	internalmiddleware "github.com/noah-isme/gradesheet/internal/middleware"
	"github.com/noah-isme/gradesheet/internal/models"
	"github.com/noah-isme/gradesheet/internal/repository"
	"github.com/noah-isme/gradesheet/internal/service"
	"github.com/noah-isme/gradesheet/pkg/cache"
	"github.com/noah-isme/gradesheet/pkg/config"
	"github.com/noah-isme/gradesheet/pkg/jobs"
	"github.com/noah-isme/gradesheet/pkg/logger"
	corsmiddleware "github.com/noah-isme/gradesheet/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gradesheet/pkg/middleware/requestid"
)

// @title Gradesheet API
// @version 1.0.0
// @description Discipline rows and grade statistics for the grade sheet page
// @BasePath /api/v1
// @schemes http

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	repo, closeRepo, err := newSheetRepository(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("sheet store unavailable", "store", cfg.Sheets.Store, "error", err)
	}
	defer closeRepo()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	sheetSvc := service.NewSheetService(repo, service.SheetServiceConfig{
		Catalog:     models.NewSubjectCatalog(cfg.Sheets.Subjects, cfg.Sheets.DefaultSubject),
		Transition:  cfg.Sheets.TransitionDuration,
		SettleDelay: cfg.Sheets.SettleDelay,
	}, validator.New(), metricsSvc, logr)
	sweeper := jobs.NewPeriodic("sheet-sweep", sheetSvc.Sweep, jobs.PeriodicConfig{
		Interval: cfg.Sheets.SweepInterval,
		Logger:   logr,
	})
	sweeper.Start(ctx)
	defer sweeper.Stop()

	exportSvc := service.NewExportService(sheetSvc, cfg.Export.Title, metricsSvc, logr, nil, nil, nil)

	sheetHandler := handler.NewSheetHandler(sheetSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, func(ctx context.Context) error {
		_, err := repo.Count(ctx)
		return err
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(internalmiddleware.Metrics(metricsSvc, "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	sheetHandler.Register(r.Group(cfg.APIPrefix))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Sheets.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Errorw("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Warnw("server shutdown", "error", err)
	}
	logr.Info("server stopped")
}

func newSheetRepository(ctx context.Context, cfg *config.Config, logr *zap.Logger) (service.SheetRepository, func(), error) {
	if cfg.Sheets.Store != config.StoreRedis {
		return repository.NewMemorySheetRepository(cfg.Sheets.TTL), func() {}, nil
	}
	client, err := cache.NewRedis(ctx, cfg.Redis, logr)
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewRedisSheetRepository(client, cfg.Sheets.TTL, logr)
	return repo, func() { _ = repo.Close() }, nil
}
