package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	projectionapp "github.com/agrodash/backend/internal/application/projection"
	"github.com/agrodash/backend/internal/domain/projection"
	"github.com/agrodash/backend/internal/domain/shared/valueobject"
	"github.com/agrodash/backend/internal/infrastructure/cache"
	"github.com/agrodash/backend/internal/infrastructure/config"
	"github.com/agrodash/backend/internal/infrastructure/logger"
	"github.com/agrodash/backend/internal/infrastructure/persistence"
	"github.com/agrodash/backend/internal/infrastructure/scheduler"
	"github.com/agrodash/backend/internal/infrastructure/storage"
	"github.com/agrodash/backend/internal/infrastructure/telemetry"
	"github.com/agrodash/backend/internal/interfaces/http/handler"
	"github.com/agrodash/backend/internal/interfaces/http/middleware"
	"github.com/agrodash/backend/internal/interfaces/http/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting projection service",
		zap.String("env", cfg.App.Env),
		zap.String("version", cfg.App.Version),
		zap.String("port", cfg.HTTP.Port),
		zap.String("normalization_currency", cfg.Projection.NormalizationCurrency),
	)
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	otelProviders, err := telemetry.Setup(ctx, telemetry.Options{
		Tracing:        cfg.Telemetry.Enabled,
		Metrics:        cfg.Telemetry.MetricsEnabled,
		Logs:           cfg.Telemetry.LogsEnabled,
		SpanProfiles:   cfg.Telemetry.ProfilingEnabled,
		Endpoint:       cfg.Telemetry.CollectorEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		SamplingRatio:  cfg.Telemetry.SamplingRatio,
		ExportInterval: cfg.Telemetry.MetricsInterval,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.App.Version,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	exportLevel, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		exportLevel = zapcore.InfoLevel
	}
	log = otelProviders.Bridge(log, cfg.Telemetry.ServiceName, exportLevel)

	profiler, err := telemetry.StartProfiler(telemetry.ProfilerOptions{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}

	db, err := persistence.NewDatabase(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    otelProviders.TracingEnabled() && cfg.Telemetry.DBTraceEnabled,
		DBName:     cfg.Database.DBName,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	// postgres schemas are owned by cmd/migrate
	if cfg.Database.Driver == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	reportCache, err := cache.NewReportCacheFactory(cfg.Projection.CacheBackend, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).Create(ctx)
	if err != nil {
		log.Fatal("Failed to create projection cache", zap.Error(err))
	}
	defer func() {
		_ = reportCache.Close()
	}()

	normalizer, err := newNormalizer(cfg.Projection)
	if err != nil {
		log.Fatal("Invalid currency configuration", zap.Error(err))
	}

	opts := []projectionapp.Option{projectionapp.WithCache(reportCache)}
	if cfg.Archive.Enabled {
		archive, err := storage.NewS3ReportArchive(ctx, cfg.Archive, log)
		if err != nil {
			log.Fatal("Failed to create report archive", zap.Error(err))
		}
		opts = append(opts, projectionapp.WithArchive(archive))
		log.Info("Report archive enabled", zap.String("bucket", cfg.Archive.Bucket))
	}
	if otelProviders.MetricsEnabled() {
		metrics, err := telemetry.NewProjectionMetrics(otelProviders.Meter("agrodash/projection"))
		if err != nil {
			log.Fatal("Failed to create projection metrics", zap.Error(err))
		}
		opts = append(opts, projectionapp.WithMetrics(metrics))
	}

	repos := persistence.NewRegistries(db.DB)
	service := projectionapp.NewService(projectionapp.Registries{
		Harvests:  repos.Harvests,
		Debts:     repos.Debts,
		LineItems: repos.LineItems,
		Scenarios: repos.Scenarios,
		Assets:    repos.Assets,
		Versions:  repos.Versions,
	}, normalizer, projectionapp.Config{
		FetchTimeout:   cfg.Projection.FetchTimeout,
		CacheTTL:       cfg.Projection.CacheTTL,
		TopCreditors:   cfg.Projection.TopCreditors,
		OpeningBalance: cfg.Projection.OpeningBalance,
		MinimumCash:    cfg.Projection.MinimumCash,
	}, log, opts...)

	var warmer *scheduler.CacheWarmer
	if cfg.Projection.WarmInterval > 0 {
		warmer, err = newCacheWarmer(cfg.Projection, repos.Harvests, service, log)
		if err != nil {
			log.Fatal("Invalid cache warm-up settings", zap.Error(err))
		}
		if err := warmer.Start(ctx); err != nil {
			log.Fatal("Failed to start cache warmer", zap.Error(err))
		}
	}

	middleware.SetupValidator()

	checks := map[string]handler.Pinger{"database": db}
	if p, ok := reportCache.(handler.Pinger); ok {
		checks["cache"] = p
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
	}

	engineCfg := router.EngineConfig{
		Logger:         log,
		Tracing:        middleware.TracingConfig{Enabled: cfg.Telemetry.Enabled, ServiceName: cfg.Telemetry.ServiceName},
		CORS:           cors,
		RateLimiter:    limiter,
		RequestTimeout: cfg.HTTP.WriteTimeout,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		APIDocs:        cfg.HTTP.SwaggerEnabled,
	}
	if otelProviders.MetricsEnabled() {
		engineCfg.Meter = otelProviders.Meter("agrodash/http")
	}
	if cfg.Telemetry.PrometheusEnabled {
		engineCfg.Scrape = telemetry.NewRuntimeRegistry(cfg.Telemetry.ServiceName, cfg.App.Version)
	}
	engine, err := router.NewEngine(engineCfg, handler.NewSystemHandler(cfg.App.Version, checks))
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}
	router.NewRouter(engine).
		Register(router.ProjectionRoutes(handler.NewProjectionHandler(service))).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.HTTP.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if warmer != nil {
		if err := warmer.Stop(shutdownCtx); err != nil {
			log.Warn("Cache warmer shutdown failed", zap.Error(err))
		}
	}
	_ = otelProviders.Shutdown(shutdownCtx)
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newNormalizer builds the currency normalizer from the projection settings
func newNormalizer(cfg config.ProjectionConfig) (*projection.CurrencyNormalizer, error) {
	rates := make(map[valueobject.Currency]decimal.Decimal, len(cfg.ReferenceRates))
	for code, rate := range cfg.ReferenceRates {
		rates[valueobject.Currency(code)] = rate
	}
	aliases := make(map[string]valueobject.Currency, len(cfg.CurrencyAliases))
	for raw, code := range cfg.CurrencyAliases {
		aliases[raw] = valueobject.Currency(code)
	}
	return projection.NewCurrencyNormalizer(valueobject.Currency(cfg.NormalizationCurrency), rates, aliases)
}

// newCacheWarmer recomputes baseline reports in the background so that the
// cache stays hot between data edits.
func newCacheWarmer(
	cfg config.ProjectionConfig,
	lister scheduler.OrganizationLister,
	service *projectionapp.Service,
	log *zap.Logger,
) (*scheduler.CacheWarmer, error) {
	poolCfg := scheduler.DefaultPoolConfig()
	poolCfg.Workers = cfg.WarmWorkers
	poolCfg.JobTimeout = 2 * cfg.FetchTimeout

	pool, err := scheduler.NewPool(poolCfg, scheduler.RunnerFunc(func(ctx context.Context, job scheduler.WarmJob) error {
		_, err := service.Run(ctx, projectionapp.RunRequest{
			OrganizationID: job.OrganizationID,
			ScenarioID:     job.ScenarioID,
		})
		return err
	}), log)
	if err != nil {
		return nil, err
	}
	return scheduler.NewCacheWarmer(cfg.WarmInterval, lister, pool, log), nil
}
