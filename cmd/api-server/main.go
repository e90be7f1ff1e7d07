package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/catalyst-eval/catalyst-scheduler-api/api/swagger"
	"github.com/catalyst-eval/catalyst-scheduler-api/internal/handler"
	"github.com/catalyst-eval/catalyst-scheduler-api/internal/middleware"
	"github.com/catalyst-eval/catalyst-scheduler-api/internal/models"
	"github.com/catalyst-eval/catalyst-scheduler-api/internal/repository"
	"github.com/catalyst-eval/catalyst-scheduler-api/internal/service"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/cache"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/config"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/database"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/jobs"
	"github.com/catalyst-eval/catalyst-scheduler-api/pkg/logger"
	corsmiddleware "github.com/catalyst-eval/catalyst-scheduler-api/pkg/middleware/cors"
	reqidmiddleware "github.com/catalyst-eval/catalyst-scheduler-api/pkg/middleware/requestid"
)

// @title Catalyst Scheduler API
// @version 1.0.0
// @description Office assignment and daily scheduling for a physical therapy practice
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()

	loc, err := time.LoadLocation(cfg.Scheduler.TimeZone)
	if err != nil {
		logr.Sugar().Warnw("invalid scheduler time zone, using UTC", "zone", cfg.Scheduler.TimeZone)
		loc = time.UTC
	}

	// Repositories.
	officeRepo := repository.NewOfficeRepository(db)
	clinicianRepo := repository.NewClinicianRepository(db)
	ruleRepo := repository.NewAssignmentRuleRepository(db)
	preferenceRepo := repository.NewClientPreferenceRepository(db)
	appointmentRepo := repository.NewAppointmentRepository(db, loc)
	auditRepo := repository.NewAuditRepository(db)
	userRepo := repository.NewUserRepository(db)

	metricsSvc := service.NewMetricsService()

	var cacheRepo *repository.CacheRepository
	if cfg.Catalog.CacheEnabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		} else {
			cacheRepo = repository.NewCacheRepository(redisClient, logr)
			defer cacheRepo.Close() //nolint:errcheck
		}
	}
	var cacheSvc *service.CacheService
	if cacheRepo != nil {
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Catalog.CacheTTL, logr, true)
	}

	// Services.
	auditSvc := service.NewAuditService(auditRepo, logr)
	catalogSvc := service.NewCatalogService(officeRepo, clinicianRepo, ruleRepo, preferenceRepo, cacheSvc, logr)
	resolver := service.NewConflictResolver(logr)
	engine := service.NewOfficeAssignmentService(resolver, cfg.Scheduler.DefaultOfficeID, validate, logr)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, catalogSvc, engine, auditRepo, metricsSvc, validate, logr, cfg.Scheduler.TimeZone)
	summarySvc := service.NewDailySummaryService(service.DailySummaryConfig{
		SlotsPerOfficeDay:   cfg.Scheduler.SlotsPerOfficeDay,
		HighUtilization:     cfg.Scheduler.HighUtilization,
		CriticalUtilization: cfg.Scheduler.CriticalUtilization,
		TimeZone:            cfg.Scheduler.TimeZone,
	}, logr)
	notificationSvc := service.NewNotificationService(nil, cfg.Notifications.Recipients, cfg.Notifications.Enabled, logr)
	reportSvc := service.NewDailyReportService(
		appointmentRepo, preferenceRepo, catalogSvc, summarySvc, notificationSvc,
		cacheSvc, metricsSvc, logr,
		jobs.QueueConfig{
			Workers:    cfg.Reports.WorkerConcurrency,
			MaxRetries: cfg.Reports.WorkerRetries,
		},
	)
	userSvc := service.NewUserService(userRepo, auditSvc, validate, logr)
	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "catalyst-scheduler",
		Audience:           []string{"catalyst-scheduler-api"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Reports.Enabled {
		reportSvc.Start(ctx)
		defer reportSvc.Stop()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	appointmentHandler := handler.NewAppointmentHandler(appointmentSvc)
	catalogHandler := handler.NewCatalogHandler(catalogSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	webhookHandler := handler.NewWebhookHandler(appointmentSvc, auditSvc, cfg.Webhooks.Secret, logr)
	userHandler := handler.NewUserHandler(userSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	auditHandler := handler.NewAuditHandler(auditSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
	auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)

	if cfg.Webhooks.Enabled {
		api.POST("/webhooks/bookings", webhookHandler.Receive)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authSvc))

	protected.POST("/appointments", middleware.RequireRoles(models.RoleAdmin, models.RoleScheduler), appointmentHandler.Schedule)
	protected.GET("/appointments", appointmentHandler.List)
	protected.GET("/appointments/:id", appointmentHandler.Get)
	protected.POST("/appointments/:id/reschedule", middleware.RequireRoles(models.RoleAdmin, models.RoleScheduler), appointmentHandler.Reschedule)
	protected.POST("/appointments/:id/cancel", middleware.RequireRoles(models.RoleAdmin, models.RoleScheduler), appointmentHandler.Cancel)
	protected.POST("/appointments/:id/complete", appointmentHandler.Complete)

	protected.GET("/catalog", catalogHandler.Snapshot)
	protected.GET("/offices/:id", catalogHandler.GetOffice)
	protected.POST("/offices", middleware.RequireRoles(models.RoleAdmin), catalogHandler.CreateOffice)
	protected.PUT("/offices/:id", middleware.RequireRoles(models.RoleAdmin), catalogHandler.UpdateOffice)
	protected.PUT("/offices/:id/in-service", middleware.RequireRoles(models.RoleAdmin), catalogHandler.SetOfficeInService)
	protected.POST("/clinicians", middleware.RequireRoles(models.RoleAdmin), catalogHandler.CreateClinician)
	protected.PUT("/clinicians/:id", middleware.RequireRoles(models.RoleAdmin), catalogHandler.UpdateClinician)
	protected.POST("/rules", middleware.RequireRoles(models.RoleAdmin), catalogHandler.CreateRule)
	protected.PUT("/rules/:id", middleware.RequireRoles(models.RoleAdmin), catalogHandler.UpdateRule)
	protected.DELETE("/rules/:id", middleware.RequireRoles(models.RoleAdmin), catalogHandler.DeactivateRule)
	protected.GET("/clients/:clientId/preferences", catalogHandler.GetClientPreference)
	protected.PUT("/clients/:clientId/preferences", middleware.RequireRoles(models.RoleAdmin, models.RoleScheduler), catalogHandler.SaveClientPreference)

	protected.GET("/audit", middleware.RequireRoles(models.RoleAdmin), auditHandler.History)

	users := protected.Group("/users")
	users.Use(middleware.RequireRoles(models.RoleAdmin))
	users.GET("", userHandler.List)
	users.POST("", userHandler.Create)
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	protected.GET("/reports/daily", reportHandler.Daily)
	protected.GET("/reports/daily/export/csv", reportHandler.ExportCSV)
	protected.GET("/reports/daily/export/pdf", reportHandler.ExportPDF)
	protected.POST("/reports/daily/dispatch",
		middleware.RequireRoles(models.RoleAdmin, models.RoleScheduler),
		middleware.Audit(auditSvc, models.AuditDailyAssignmentsUpdated, "daily_report"),
		reportHandler.Dispatch)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
