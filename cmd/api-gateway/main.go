package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/curriculum-qa-api/api/swagger"
	"github.com/noah-isme/curriculum-qa-api/internal/handler"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	"github.com/noah-isme/curriculum-qa-api/internal/repository"
	"github.com/noah-isme/curriculum-qa-api/internal/service"
	"github.com/noah-isme/curriculum-qa-api/pkg/cache"
	"github.com/noah-isme/curriculum-qa-api/pkg/config"
	"github.com/noah-isme/curriculum-qa-api/pkg/database"
	"github.com/noah-isme/curriculum-qa-api/pkg/jobs"
	"github.com/noah-isme/curriculum-qa-api/pkg/logger"
	"github.com/noah-isme/curriculum-qa-api/pkg/storage"
)

// @title Curriculum QA API
// @version 1.0.0
// @description Validation, remediation and dry-run preview for generated curriculum content
// @BasePath /api/v1
// @schemes http

func main() {
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handler.ReadinessCheck{}

	var db *sqlx.DB
	if cfg.Database.Enabled {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Fatal("failed to connect postgres", zap.Error(err))
		}
		defer db.Close()
		if err := database.Migrate(ctx, db); err != nil {
			logr.Fatal("failed to migrate schema", zap.Error(err))
		}
		checks["postgres"] = db.PingContext
	}

	var redisClient *redis.Client
	if cfg.Sessions.Store == config.SessionStoreRedis || cfg.Validation.ReportCacheEnabled {
		redisClient, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	if redisClient != nil {
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}
	var reportCache *service.ReportCache
	if cacheRepo != nil && cfg.Validation.ReportCacheEnabled {
		reportCache = service.NewReportCache(cacheRepo, metrics, cfg.Validation.ReportCacheTTL, cfg.Sessions.KeyPrefix, logr)
	}

	validationSvc := service.NewValidationService(nil, reportCache, metrics, validate, logr, service.ValidationServiceConfig{
		DefaultValidators:    cfg.Validation.DefaultValidators,
		ReadabilityThreshold: cfg.Validation.ReadabilityThreshold,
		Parallel:             cfg.Validation.Parallel,
	})

	overrides, err := service.LoadPresetOverrides(cfg.Validation.PresetsFile)
	if err != nil {
		logr.Fatal("failed to load preset overrides", zap.Error(err))
	}
	autoApplicable := fixTypes(cfg.Remediation.AutoApplicable)
	smartConfigSvc := service.NewSmartConfigService(adaptiveStore(cfg, db, metrics), validate, logr, service.SmartConfigServiceConfig{
		DefaultValidators: validationSvc.DefaultConfig().EnabledValidators,
		AutoApplicable:    autoApplicable,
		MaxSuggestions:    cfg.Remediation.MaxSuggestions,
		Overrides:         overrides,
	})

	remediationStore, dryRunStore := sessionStores(cfg, cacheRepo)
	remediationSvc := service.NewRemediationService(remediationStore, validationSvc, smartConfigSvc, metrics, validate, logr, service.RemediationServiceConfig{
		MaxSuggestions:            cfg.Remediation.MaxSuggestions,
		AutoApplicable:            autoApplicable,
		RequireStructuralApproval: cfg.Remediation.RequireStructuralApproval,
		SessionTTL:                cfg.Remediation.SessionTTL,
		CleanupInterval:           cfg.Remediation.CleanupInterval,
	})
	remediationSvc.StartCleanup(ctx)
	dryRunSvc := service.NewDryRunService(dryRunStore, remediationSvc, validationSvc, metrics, validate, logr, service.DryRunServiceConfig{
		CacheDuration:     cfg.DryRun.CacheDuration,
		MaxCachedSessions: cfg.DryRun.MaxCachedSessions,
		CleanupInterval:   cfg.DryRun.CleanupInterval,
	})
	dryRunSvc.StartCleanup(ctx)
	feedbackSvc := service.NewFeedbackService(validationSvc, validate, logr)
	authSvc := service.NewAuthService(logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	deps := routerDeps{
		validation:  handler.NewValidationHandler(validationSvc, smartConfigSvc, feedbackSvc),
		smartConfig: handler.NewSmartConfigHandler(smartConfigSvc),
		remediation: handler.NewRemediationHandler(remediationSvc),
		dryRun:      handler.NewDryRunHandler(dryRunSvc),
		metrics:     handler.NewMetricsHandler(metrics, checks),
		metricsSvc:  metrics,
		auth:        authSvc,
	}

	if cfg.Reports.Enabled {
		reportQueue, reportSvc, err := buildReports(ctx, cfg, db, validationSvc, smartConfigSvc, metrics, validate, logr)
		if err != nil {
			logr.Fatal("failed to init reports", zap.Error(err))
		}
		defer reportQueue.Stop()
		deps.reports = handler.NewReportHandler(reportSvc, logr)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "session_store", cfg.Sessions.Store)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}

func adaptiveStore(cfg *config.Config, db *sqlx.DB, metrics *service.MetricsService) service.AdaptiveSettingsStore {
	if cfg.Adaptive.PersistenceEnabled && db != nil {
		return repository.NewAdaptiveSettingsRepository(db).WithObserver(metrics)
	}
	return service.NewMemoryAdaptiveSettingsStore()
}

func sessionStores(cfg *config.Config, cacheRepo *repository.CacheRepository) (service.RemediationSessionStore, service.DryRunStore) {
	if cfg.Sessions.Store == config.SessionStoreRedis && cacheRepo != nil {
		return service.NewRedisSessionStore[models.RemediationSession](cacheRepo, cfg.Sessions.KeyPrefix, "remediation"),
			service.NewRedisSessionStore[models.DryRunSession](cacheRepo, cfg.Sessions.KeyPrefix, "dryrun")
	}
	return service.NewMemorySessionStore[models.RemediationSession](), service.NewMemorySessionStore[models.DryRunSession]()
}

func buildReports(ctx context.Context, cfg *config.Config, db *sqlx.DB, validationSvc *service.ValidationService, resolver *service.SmartConfigService, metrics *service.MetricsService, validate *validator.Validate, logr *zap.Logger) (*jobs.Queue, *service.ReportService, error) {
	files, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		return nil, nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	exporter := service.NewExportService(validationSvc, resolver, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Reports.SignedURLTTL,
	}, logr, nil, nil)

	var store service.ReportJobStore
	if db != nil {
		store = repository.NewReportJobRepository(db).WithObserver(metrics)
	} else {
		store = service.NewMemoryReportJobStore()
	}

	worker := service.NewReportWorker(store, exporter, metrics, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})
	queue.Start(ctx)

	reportSvc := service.NewReportService(store, queue, exporter, validate, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)
	return queue, reportSvc, nil
}

func fixTypes(names []string) []models.RemediationFixType {
	out := make([]models.RemediationFixType, 0, len(names))
	for _, name := range names {
		out = append(out, models.RemediationFixType(name))
	}
	return out
}
