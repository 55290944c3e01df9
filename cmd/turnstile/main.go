package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/platinummonkey/turnstile/pkg/api"
	"github.com/platinummonkey/turnstile/pkg/audit"
	"github.com/platinummonkey/turnstile/pkg/config"
	"github.com/platinummonkey/turnstile/pkg/csrf"
	"github.com/platinummonkey/turnstile/pkg/httputil"
	"github.com/platinummonkey/turnstile/pkg/identity"
	"github.com/platinummonkey/turnstile/pkg/middleware"
	"github.com/platinummonkey/turnstile/pkg/observability"
	"github.com/platinummonkey/turnstile/pkg/ratelimit"
	"github.com/platinummonkey/turnstile/pkg/rbac"
)

func main() {
	startupLog := logrus.New()
	startupLog.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		startupLog.WithError(err).Fatal("Failed to load configuration")
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	ctx := context.Background()

	// Tracing (optional)
	tracerProvider, err := observability.InitTracing(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		startupLog.WithError(err).Fatal("Failed to initialize tracing")
	}

	// Database: CSRF token store + role store
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		startupLog.WithError(err).Fatal("Failed to open database")
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)

	if err := csrf.RunMigrations(ctx, db); err != nil {
		startupLog.WithError(err).Fatal("Failed to run migrations")
	}
	startupLog.Info("Database migrations complete")

	// Redis: distributed rate limiting (optional, falls back to in-process)
	var redisClient *redis.Client
	var limiter ratelimit.Limiter
	profiles := cfg.Profiles()
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			startupLog.WithError(err).Fatal("Failed to parse Redis URL")
		}
		if cfg.Redis.Password != "" {
			opts.Password = cfg.Redis.Password
		}
		opts.DB = cfg.Redis.DB
		redisClient = redis.NewClient(opts)
		limiter = ratelimit.NewDistributedLimiter(redisClient, profiles)
		startupLog.Info("Using Redis-backed rate limiting")
	} else {
		memLimiter := ratelimit.NewFixedWindowLimiter(profiles)
		memLimiter.StartCleanup(ctx, 5*time.Minute)
		limiter = memLimiter
		startupLog.Warn("No Redis URL configured, rate limit counters are per-instance")
	}

	// Identity provider
	var provider identity.Provider
	switch cfg.Identity.Provider {
	case "oidc":
		provider, err = identity.NewOIDCProvider(ctx, identity.OIDCConfig{
			IssuerURL:  cfg.Identity.Issuer,
			CookieName: cfg.Identity.CookieName,
		})
		if err != nil {
			startupLog.WithError(err).Fatal("Failed to initialize OIDC provider")
		}
	default:
		provider = identity.NewHTTPProvider(cfg.Identity.BaseURL, cfg.Identity.CookieName)
	}

	// Metrics
	var metrics *observability.Metrics
	registry := prometheus.NewRegistry()
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(registry)
	}

	// Stores, manager, pipeline
	tokenStore := csrf.NewPostgresStore(db)
	tokenManager := csrf.NewManager(tokenStore)

	roleChecker, err := rbac.NewChecker(rbac.NewPostgresStore(db))
	if err != nil {
		startupLog.WithError(err).Fatal("Failed to initialize role checker")
	}

	pipeline := middleware.NewPipeline(
		middleware.NewAuth(provider, metrics),
		middleware.NewRateLimit(limiter, metrics),
		middleware.NewCSRFProtect(tokenManager, metrics, cfg.IsProduction()),
	)

	server := api.NewServer(pipeline, tokenManager, roleChecker, metrics)

	auditLogger, err := audit.NewDBLogger(db)
	if err != nil {
		startupLog.WithError(err).Fatal("Failed to initialize audit logger")
	}

	// Optional background sweep of expired tokens
	var reaper *csrf.Reaper
	if cfg.CSRF.ReaperSchedule != "" {
		reaper = csrf.NewReaper(tokenStore, logger)
		if err := reaper.Start(cfg.CSRF.ReaperSchedule); err != nil {
			startupLog.WithError(err).Fatal("Failed to start CSRF token reaper")
		}
	}

	// Outer surface: request IDs, logging, recovery, audit trail, body size cap
	handler := httputil.Chain(
		httputil.RequestIDMiddleware,
		logger.Middleware,
		httputil.RecoveryMiddleware(logger),
		httputil.LoggingMiddleware(logger),
		audit.NewRecorder(auditLogger).Handler,
		httputil.MaxBytesMiddleware(cfg.Server.MaxBodyBytes),
	)(server)

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for probes and scrapers
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		healthMux.Handle("/metrics", observability.Handler(registry))
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	shutdown := observability.NewShutdownManager(logger, cfg.Server.ShutdownTimeout, apiServer, healthServer)
	shutdown.RegisterShutdownFunc("database", func(ctx context.Context) error {
		return db.Close()
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc("redis", func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	if reaper != nil {
		shutdown.RegisterShutdownFunc("csrf-reaper", func(ctx context.Context) error {
			reaper.Stop()
			return nil
		})
	}
	if tracerProvider != nil {
		shutdown.RegisterShutdownFunc("tracing", func(ctx context.Context) error {
			return observability.ShutdownTracing(ctx, tracerProvider, logger)
		})
	}

	var group errgroup.Group
	group.Go(func() error {
		startupLog.WithField("addr", apiServer.Addr).Info("Starting API server")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		startupLog.WithField("addr", healthServer.Addr).Info("Starting health server")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		return shutdown.WaitForShutdown()
	})

	if err := group.Wait(); err != nil {
		startupLog.WithError(err).Fatal("Server exited with error")
	}
}
