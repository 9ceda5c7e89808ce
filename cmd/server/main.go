package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/bizpulse/backend/internal/application/erpconn"
	"github.com/bizpulse/backend/internal/application/kpiquery"
	"github.com/bizpulse/backend/internal/infrastructure/auth"
	"github.com/bizpulse/backend/internal/infrastructure/cache"
	"github.com/bizpulse/backend/internal/infrastructure/config"
	erpinfra "github.com/bizpulse/backend/internal/infrastructure/erp"
	"github.com/bizpulse/backend/internal/infrastructure/logger"
	"github.com/bizpulse/backend/internal/infrastructure/persistence"
	"github.com/bizpulse/backend/internal/infrastructure/scheduler"
	"github.com/bizpulse/backend/internal/infrastructure/telemetry"
	"github.com/bizpulse/backend/internal/infrastructure/vault"
	"github.com/bizpulse/backend/internal/interfaces/http/handler"
	"github.com/bizpulse/backend/internal/interfaces/http/middleware"
	"github.com/bizpulse/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting BizPulse Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize OpenTelemetry tracing and metrics
	ctx := context.Background()
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Database tracing and metrics plugins (attach before any queries run)
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
			DBSystem:        "postgresql",
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Error("Failed to register database tracing", zap.Error(err))
		}

		dbMetricsCfg := telemetry.DefaultDBMetricsConfig()
		dbMetricsCfg.SlowQueryThreshold = cfg.Telemetry.DBSlowQueryThresh
		dbMetrics, err := telemetry.NewDBMetrics(meterProvider.Meter("db"), dbMetricsCfg, log)
		if err != nil {
			log.Error("Failed to initialize database metrics", zap.Error(err))
		} else {
			if sqlDB, err := db.DB.DB(); err == nil {
				dbMetrics.SetSQLDB(sqlDB)
				dbMetrics.StartPoolStatsCollection(ctx)
				defer dbMetrics.Stop()
			}
			if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
				log.Error("Failed to register database metrics plugin", zap.Error(err))
			}
		}
	}

	// Continuous profiling (Pyroscope)
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:             cfg.Profiling.Enabled,
		ServerAddress:       cfg.Profiling.ServerAddress,
		ApplicationName:     cfg.Profiling.AppName,
		ProfileCPU:          true,
		ProfileAllocObjects: true,
		ProfileAllocSpace:   true,
		ProfileInuseObjects: true,
		ProfileInuseSpace:   true,
		ProfileGoroutines:   true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()

	// Credential vault. A service that cannot decrypt stored credentials
	// must not come up at all.
	keyMaterial, err := cfg.Vault.KeyMaterial()
	if err != nil {
		log.Fatal("Invalid vault key", zap.Error(err))
	}
	credVault, err := vault.New(keyMaterial)
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	// Provider adapters
	registry := erpinfra.NewRegistry(
		erpinfra.NewOdooAdapter(cfg.ERP.CallTimeout),
		erpinfra.NewSalesforceAdapter(cfg.ERP.CallTimeout),
	)
	log.Info("Provider adapters registered", zap.Any("providers", registry.ListProviders()))

	// Initialize repositories
	connectionRepo := persistence.NewGormConnectionRepository(db.DB)
	syncHistoryRepo := persistence.NewGormSyncHistoryRepository(db.DB)

	// Distributed sync lock (optional; in-process locking still applies without it)
	var distLock erpconn.DistributedLock
	if cfg.Redis.Enabled {
		redisLock, err := cache.NewRedisSyncLock(cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer func() {
			if err := redisLock.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
		distLock = redisLock
		log.Info("Distributed sync lock enabled",
			zap.String("host", cfg.Redis.Host),
			zap.Int("port", cfg.Redis.Port),
		)
	}

	// Initialize application services
	lifecycleService := erpconn.NewLifecycleService(
		connectionRepo, syncHistoryRepo, registry, credVault, cfg.ERP.CallTimeout, log,
	)
	syncOrchestrator := erpconn.NewSyncOrchestrator(
		connectionRepo, syncHistoryRepo, registry, credVault, distLock, cfg.ERP.CallTimeout, log,
	)
	kpiService := kpiquery.NewQueryService(connectionRepo, registry, credVault, cfg.ERP.CallTimeout, log)

	jwtService := auth.NewJWTService(cfg.JWT)

	// Connection fleet gauges (connection counts, mapping health, staleness)
	if cfg.Telemetry.Enabled {
		syncMetrics, err := telemetry.NewSyncMetrics(telemetry.SyncMetricsConfig{
			Meter:              meterProvider.Meter("erp.sync"),
			Logger:             log,
			ConnectionProvider: telemetry.NewGormConnectionMetricsProvider(db.DB),
		})
		if err != nil {
			log.Error("Failed to initialize sync metrics", zap.Error(err))
		} else {
			syncMetrics.StartPeriodicCollection(ctx, 5*time.Minute)
			defer syncMetrics.Stop()
		}
	}

	// Scheduled syncs (if enabled)
	if cfg.Scheduler.Enabled {
		schedulerConfig := scheduler.DefaultSyncSchedulerConfig()
		schedulerConfig.ScanInterval = cfg.Scheduler.Interval
		schedulerConfig.SyncInterval = cfg.Scheduler.SyncInterval
		schedulerConfig.JobTimeout = cfg.Scheduler.RunTimeout

		syncScheduler, err := scheduler.NewSyncScheduler(
			schedulerConfig, connectionRepo, scheduler.NewOrchestratorExecutor(syncOrchestrator), log,
		)
		if err != nil {
			log.Fatal("Invalid scheduler configuration", zap.Error(err))
		}
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			if err := syncScheduler.Stop(context.Background()); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()
		log.Info("Sync scheduler started",
			zap.Duration("scan_interval", schedulerConfig.ScanInterval),
			zap.Duration("sync_interval", schedulerConfig.SyncInterval),
		)
	}

	// Initialize HTTP handlers
	connectionHandler := handler.NewERPConnectionHandler(lifecycleService)
	syncHandler := handler.NewSyncHandler(syncOrchestrator)
	kpiHandler := handler.NewKPIHandler(kpiService)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	// Initialize router with custom middleware
	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. Tracing/Metrics/Profiling - Observability (if enabled)
	// 7. BodyLimit - Limit request body size
	// 8. RateLimit - Apply rate limiting (if enabled)
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	corsConfig := middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			ServiceName:   cfg.Telemetry.ServiceName,
			Enabled:       true,
		}))
	}
	if cfg.Profiling.Enabled {
		engine.Use(middleware.Profiling())
	}

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Health check endpoint (outside API versioning)
	engine.GET("/health", healthHandler(db, log))

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	// Apply JWT authentication middleware to API routes
	jwtConfig := middleware.JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths: []string{
			"/api/v1/ping",
			"/api/v1/system/ping",
			"/api/v1/system/info",
		},
		Logger: log,
	}
	r.Use(middleware.JWTAuthMiddlewareWithConfig(jwtConfig))

	// ERP domain (connections, syncs, KPIs)
	erpRoutes := router.NewDomainGroup("erp", "/erp")
	erpRoutes.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "erp service ready"})
	})

	// Connection lifecycle routes
	erpRoutes.POST("/connections", connectionHandler.Create)
	erpRoutes.GET("/connections", connectionHandler.List)
	erpRoutes.GET("/connections/:id", connectionHandler.Get)
	erpRoutes.DELETE("/connections/:id", connectionHandler.Delete)
	erpRoutes.POST("/connections/:id/test", connectionHandler.Test)
	erpRoutes.POST("/connections/:id/reconnect", connectionHandler.Reconnect)
	erpRoutes.POST("/connections/:id/disconnect", connectionHandler.Disconnect)
	erpRoutes.GET("/connections/:id/history", connectionHandler.History)
	erpRoutes.POST("/connections/:id/mappings/validate", connectionHandler.ValidateMappings)

	// Sync routes
	erpRoutes.POST("/connections/:id/sync", syncHandler.Sync)

	// KPI routes
	erpRoutes.GET("/kpis", kpiHandler.Catalog)
	erpRoutes.GET("/connections/:id/kpis/:code", kpiHandler.Compute)

	r.Register(erpRoutes)

	// Register system routes
	systemHandler := handler.NewSystemHandler()
	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)
	r.Register(systemRoutes)

	// Setup routes
	r.Setup()

	// Also keep a simple ping at root API level for basic health checks
	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
