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
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/careops/facilitydesk/api/swagger"
	"github.com/careops/facilitydesk/internal/handler"
	"github.com/careops/facilitydesk/internal/middleware"
	"github.com/careops/facilitydesk/internal/repository"
	"github.com/careops/facilitydesk/internal/service"
	"github.com/careops/facilitydesk/pkg/cache"
	"github.com/careops/facilitydesk/pkg/config"
	"github.com/careops/facilitydesk/pkg/database"
	"github.com/careops/facilitydesk/pkg/jobs"
	"github.com/careops/facilitydesk/pkg/logger"
	corsmiddleware "github.com/careops/facilitydesk/pkg/middleware/cors"
	reqidmiddleware "github.com/careops/facilitydesk/pkg/middleware/requestid"
	"github.com/careops/facilitydesk/pkg/storage"
)

// @title FacilityDesk API
// @version 1.0.0
// @description Hospital facilities service desk: requests, schedules, leaderboard and reports
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

	metricsSvc := service.NewMetricsService()

	// A missing Redis never blocks startup. Cached endpoints fall back to
	// reading straight from the database.
	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		cacheSvc = service.NewCacheService(nil, metricsSvc, 0, logr, false)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Dashboard.CacheTTL, logr, true)
	}

	// Repositories.
	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	locationRepo := repository.NewLocationRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	linkRepo := repository.NewLinkRepository(db)
	reportRepo := repository.NewReportRepository(db)

	validate := validator.New()

	// Services.
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "facilitydesk",
	})
	userSvc := service.NewUserService(userRepo, validate, logr)
	catalogSvc := service.NewCatalogService(catalogRepo, userRepo, validate, logr)
	locationSvc := service.NewLocationService(locationRepo, validate, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, validate, logr)

	requestSvc := service.NewRequestService(service.RequestServiceParams{
		Requests:   requestRepo,
		Activities: activityRepo,
		Catalog:    catalogRepo,
		Cache:      cacheSvc,
		Validator:  validate,
		Logger:     logr,
	})
	tatSvc := service.NewTATService(requestRepo, activityRepo, catalogRepo, logr)
	scheduleSvc := service.NewScheduleService(requestRepo, logr)
	leaderboardSvc := service.NewLeaderboardService(requestRepo, cacheSvc, logr, service.LeaderboardServiceConfig{
		CacheTTL: cfg.Leaderboard.CacheTTL,
	})
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Requests:   requestRepo,
		Activities: activityRepo,
		Staff:      userRepo,
		Cache:      cacheSvc,
		Logger:     logr,
		Config: service.DashboardServiceConfig{
			CacheTTL:           cfg.Dashboard.CacheTTL,
			RecentActivityRows: cfg.Dashboard.RecentActivityRows,
		},
	})
	linkSvc := service.NewLinkService(linkRepo, requestSvc, activityRepo, validate, logr, service.LinkServiceConfig{
		BaseURL:    cfg.Links.BaseURL,
		DefaultTTL: cfg.Links.TTL,
	})

	// Handlers.
	authH := handler.NewAuthHandler(authSvc)
	userH := handler.NewUserHandler(userSvc)
	requestH := handler.NewRequestHandler(requestSvc, tatSvc)
	scheduleH := handler.NewScheduleHandler(scheduleSvc)
	leaderboardH := handler.NewLeaderboardHandler(leaderboardSvc)
	dashboardH := handler.NewDashboardHandler(dashboardSvc, metricsSvc)
	linkH := handler.NewLinkHandler(linkSvc)
	catalogH := handler.NewCatalogHandler(catalogSvc)
	locationH := handler.NewLocationHandler(locationSvc)
	departmentH := handler.NewDepartmentHandler(departmentSvc)
	metricsH := handler.NewMetricsHandler(metricsSvc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var reportH *handler.ReportHandler
	var reportQueue *jobs.Queue
	if cfg.Reports.Enabled {
		reportH, reportQueue, err = buildReporting(ctx, cfg, requestRepo, reportRepo, leaderboardSvc, tatSvc, logr)
		if err != nil {
			logr.Sugar().Fatalw("failed to init reporting", "error", err)
		}
		defer reportQueue.Stop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.WithResponseMeta())

	registerRoutes(r, cfg, db, routeHandlers{
		auth:        authH,
		users:       userH,
		requests:    requestH,
		schedule:    scheduleH,
		leaderboard: leaderboardH,
		dashboard:   dashboardH,
		links:       linkH,
		catalog:     catalogH,
		locations:   locationH,
		departments: departmentH,
		reports:     reportH,
		metrics:     metricsH,
	}, authSvc, userRepo)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

// buildReporting wires the async export pipeline: local file storage, signed
// download URLs, the worker queue and recovery of jobs interrupted by a
// previous shutdown.
func buildReporting(
	ctx context.Context,
	cfg *config.Config,
	requestRepo *repository.RequestRepository,
	reportRepo *repository.ReportRepository,
	leaderboardSvc *service.LeaderboardService,
	tatSvc *service.TATService,
	logr *zap.Logger,
) (*handler.ReportHandler, *jobs.Queue, error) {
	store, err := storage.NewReportArchive(cfg.Reports.StorageDir)
	if err != nil {
		return nil, nil, fmt.Errorf("init export storage: %w", err)
	}
	signer := storage.NewDownloadSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	exportSvc := service.NewExportService(service.ExportServiceParams{
		Requests:    requestRepo,
		Leaderboard: leaderboardSvc,
		TAT:         tatSvc,
		Storage:     store,
		Signer:      signer,
		Logger:      logr,
		Config: service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Reports.SignedURLTTL,
		},
	})

	worker := service.NewReportWorker(reportRepo, exportSvc, cfg.Reports.WorkerRetries, logr)
	queue := jobs.NewQueue("reports", worker.Handle, jobs.QueueConfig{
		Workers:    cfg.Reports.WorkerConcurrency,
		MaxRetries: cfg.Reports.WorkerRetries,
		Logger:     logr,
	})

	reportSvc := service.NewReportService(reportRepo, queue, exportSvc, logr, service.ReportServiceConfig{
		ResultTTL:       cfg.Reports.SignedURLTTL,
		CleanupInterval: cfg.Reports.CleanupInterval,
		MaxRetries:      cfg.Reports.WorkerRetries,
	})

	queue.Start(ctx)
	reportSvc.RecoverPendingJobs(ctx)
	reportSvc.StartCleanup(ctx)

	return handler.NewReportHandler(reportSvc), queue, nil
}

type routeHandlers struct {
	auth        *handler.AuthHandler
	users       *handler.UserHandler
	requests    *handler.RequestHandler
	schedule    *handler.ScheduleHandler
	leaderboard *handler.LeaderboardHandler
	dashboard   *handler.DashboardHandler
	links       *handler.LinkHandler
	catalog     *handler.CatalogHandler
	locations   *handler.LocationHandler
	departments *handler.DepartmentHandler
	reports     *handler.ReportHandler
	metrics     *handler.MetricsHandler
}

func registerRoutes(
	r *gin.Engine,
	cfg *config.Config,
	db *sqlx.DB,
	h routeHandlers,
	authSvc *service.AuthService,
	userRepo *repository.UserRepository,
) {
	r.GET("/health", h.metrics.Health)
	r.GET("/metrics", h.metrics.Prometheus)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Public endpoints. Link submission and signed export downloads carry
	// their own tokens instead of a session.
	api.POST("/auth/login", h.auth.Login)
	api.POST("/auth/refresh", h.auth.Refresh)
	api.GET("/submit/:token", h.links.Resolve)
	api.POST("/submit/:token", h.links.Submit)
	if h.reports != nil {
		api.GET("/export/:token", h.reports.Download)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	authed.POST("/auth/logout", h.auth.Logout)
	authed.GET("/auth/me", h.auth.Me)
	authed.POST("/auth/change-password", h.auth.ChangePassword)

	requests := authed.Group("/requests")
	{
		requests.POST("", h.requests.Create)
		requests.GET("", h.requests.List)
		requests.GET("/mine", h.requests.Mine)
		requests.GET("/:id", h.requests.Get)
		requests.PATCH("/:id", h.requests.Update)
		requests.GET("/:id/history", h.requests.History)
		requests.GET("/:id/tat", h.requests.TAT)

		staffOnly := requests.Group("")
		staffOnly.Use(middleware.RBAC("ADMIN", "STAFF", "HOD"))
		staffOnly.PATCH("/:id/status", h.requests.ChangeStatus)
		staffOnly.PATCH("/:id/assign", h.requests.Assign)

		requests.DELETE("/:id", middleware.RBAC("ADMIN"), h.requests.Delete)
	}

	authed.GET("/schedule/day", h.schedule.Day)
	authed.GET("/schedule/calendar", h.schedule.Calendar)
	authed.GET("/leaderboard", h.leaderboard.Monthly)
	authed.GET("/leaderboard/download", h.leaderboard.Download)

	authed.GET("/dashboard/stats", h.dashboard.Stats)
	authed.GET("/dashboard/metrics", h.dashboard.RequestMetrics)
	authed.GET("/dashboard/system", middleware.RBAC("ADMIN"), h.dashboard.System)

	links := authed.Group("/links")
	links.Use(middleware.RBAC("ADMIN", "STAFF", "HOD"))
	{
		links.POST("", h.links.Generate)
		links.GET("", h.links.List)
	}

	if h.reports != nil {
		reports := authed.Group("/reports")
		{
			reports.POST("/generate", h.reports.Generate)
			reports.GET("", h.reports.ListMine)
			reports.GET("/:id", h.reports.Status)
		}
	}

	// Reference data is readable by anyone signed in. Mutations are
	// restricted to administrators below.
	authed.GET("/blocks", h.locations.ListBlocks)
	authed.GET("/locations", h.locations.List)
	authed.GET("/locations/:id", h.locations.Get)
	authed.GET("/departments", h.departments.List)
	authed.GET("/departments/:id", h.departments.Get)
	authed.GET("/services", h.catalog.List)
	authed.GET("/services/:id", h.catalog.Get)

	admin := authed.Group("")
	admin.Use(middleware.RBAC("ADMIN"))
	{
		admin.GET("/users", h.users.List)
		admin.GET("/users/:id", h.users.Get)
		admin.POST("/users", middleware.Audit(userRepo, "create", "user"), h.users.Create)
		admin.PATCH("/users/:id", middleware.Audit(userRepo, "update", "user"), h.users.Update)
		admin.DELETE("/users/:id", middleware.Audit(userRepo, "delete", "user"), h.users.Delete)

		admin.POST("/blocks", h.locations.CreateBlock)
		admin.POST("/locations", h.locations.Create)
		admin.PATCH("/locations/:id", h.locations.Update)
		admin.DELETE("/locations/:id", h.locations.Delete)

		admin.POST("/departments", h.departments.Create)
		admin.PATCH("/departments/:id", h.departments.Update)
		admin.DELETE("/departments/:id", h.departments.Delete)

		admin.POST("/services", h.catalog.Create)
		admin.PATCH("/services/:id", h.catalog.Update)
		admin.DELETE("/services/:id", h.catalog.Delete)
	}
}
