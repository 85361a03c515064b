package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/curriculum-qa-api/internal/handler"
	"github.com/noah-isme/curriculum-qa-api/internal/middleware"
	"github.com/noah-isme/curriculum-qa-api/internal/models"
	"github.com/noah-isme/curriculum-qa-api/internal/service"
	"github.com/noah-isme/curriculum-qa-api/pkg/config"
	"github.com/noah-isme/curriculum-qa-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/curriculum-qa-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/curriculum-qa-api/pkg/middleware/requestid"
)

type routerDeps struct {
	validation  *handler.ValidationHandler
	smartConfig *handler.SmartConfigHandler
	remediation *handler.RemediationHandler
	dryRun      *handler.DryRunHandler
	reports     *handler.ReportHandler
	metrics     *handler.MetricsHandler
	metricsSvc  *service.MetricsService
	auth        *service.AuthService
}

func newRouter(cfg *config.Config, logr *zap.Logger, deps routerDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(deps.metricsSvc))

	r.GET("/health", deps.metrics.Health)
	r.GET("/ready", deps.metrics.Ready)
	r.GET("/metrics", deps.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if deps.reports != nil {
		// Signed tokens authorize downloads, so browsers can follow the link without a bearer header.
		api.GET("/reports/download", deps.reports.Download)
	}

	secured := api.Group("")
	secured.Use(middleware.Authenticate(deps.auth, cfg.JWT.Required), middleware.WithResponseMeta())

	secured.POST("/validations", deps.validation.Validate)
	secured.GET("/validators", deps.validation.Validators)
	secured.POST("/feedback", deps.validation.Feedback)

	smart := secured.Group("/smart-config")
	smart.POST("/resolve", deps.smartConfig.Resolve)
	smart.GET("/presets/:level", deps.smartConfig.Preset)
	smart.GET("/settings", deps.smartConfig.Settings)
	smart.POST("/decisions", deps.smartConfig.RecordDecision)

	sessions := secured.Group("/remediation/sessions")
	sessions.POST("", deps.remediation.Create)
	sessions.GET("", deps.remediation.List)
	sessions.GET("/:id", deps.remediation.Get)
	sessions.POST("/:id/apply", deps.remediation.Apply)
	sessions.POST("/:id/auto-apply", deps.remediation.AutoApply)
	sessions.POST("/:id/decisions", deps.remediation.Decide)
	sessions.POST("/:id/cancel", deps.remediation.Cancel)

	dryRuns := secured.Group("/dry-runs")
	dryRuns.POST("", deps.dryRun.Create)
	dryRuns.GET("", deps.dryRun.List)
	dryRuns.POST("/cleanup", middleware.RequireRoles(models.RoleAdmin), deps.dryRun.Cleanup)
	dryRuns.GET("/:id", deps.dryRun.Get)
	dryRuns.POST("/:id/apply", deps.dryRun.Apply)
	dryRuns.DELETE("/:id", deps.dryRun.Cancel)

	if deps.reports != nil {
		secured.POST("/reports", deps.reports.Generate)
		secured.GET("/reports/:id", deps.reports.Status)
	}

	secured.GET("/metrics/summary", middleware.RequireRoles(models.RoleAdmin, models.RoleReviewer), deps.metrics.Summary)

	return r
}
