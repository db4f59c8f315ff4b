// AngelaMos | 2026
// serve.go

package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/carterperez-dev/templates/collab-backend/internal/admin"
	"github.com/carterperez-dev/templates/collab-backend/internal/auth"
	"github.com/carterperez-dev/templates/collab-backend/internal/core"
	"github.com/carterperez-dev/templates/collab-backend/internal/counter"
	"github.com/carterperez-dev/templates/collab-backend/internal/entitlement"
	"github.com/carterperez-dev/templates/collab-backend/internal/follow"
	"github.com/carterperez-dev/templates/collab-backend/internal/health"
	"github.com/carterperez-dev/templates/collab-backend/internal/middleware"
	"github.com/carterperez-dev/templates/collab-backend/internal/notification"
	"github.com/carterperez-dev/templates/collab-backend/internal/quota"
	"github.com/carterperez-dev/templates/collab-backend/internal/server"
	"github.com/carterperez-dev/templates/collab-backend/internal/user"
	"github.com/carterperez-dev/templates/collab-backend/internal/webhook"
)

const (
	drainDelay = 5 * time.Second
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default)",
		RunE:  runServe,
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(
		cmd.Context(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	if _, err := core.Migrate(ctx, db.DB, logger); err != nil {
		return err
	}

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized", "algorithm", "ES256")

	ledger := entitlement.NewService(
		entitlement.NewRepository(db.DB),
		entitlement.CeilingsFromConfig(cfg.Quota),
		entitlement.WithLogger(logger),
	)
	entitlementHandler := entitlement.NewHandler(ledger)

	enforcer := quota.NewEnforcer(ledger)
	quotaHandler := quota.NewHandler(enforcer)

	followSvc := follow.NewService(
		counter.New(counter.NewPostgresStore(db.DB)),
		follow.NewRepository(db.DB),
		logger,
	)
	followHandler := follow.NewHandler(followSvc)

	userSvc := user.NewService(db.DB, user.NewRepository(db.DB), ledger, followSvc)
	userHandler := user.NewHandler(userSvc)

	authSvc := auth.NewService(jwtManager, userSvc, logger)
	authHandler := auth.NewHandler(authSvc)

	processor := webhook.NewProcessor(
		webhook.NewPostgresJournal(db.DB, ledger),
		webhook.NewRedisLocker(redis),
		cfg.Billing.LockTTL,
		logger,
	)
	webhookHandler := webhook.NewHandler(
		processor,
		webhook.NewInvoiceClient(cfg.Billing.Invoice),
		webhook.NewOrderClient(cfg.Billing.Order),
		cfg.Billing,
		logger,
	)

	hub := notification.NewRedisHub(redis.Client, cfg.Notification.RedisPrefix)
	notificationSvc := notification.NewService(
		notification.NewRepository(db.DB),
		hub,
		logger,
	)
	notificationHandler := notification.NewHandler(
		notificationSvc,
		cfg.Notification,
		cfg.CORS.AllowedOrigins,
		logger,
	)
	listener := notification.NewListener(
		cfg.Database.URL,
		cfg.Notification.ListenBackoff,
		hub,
		logger,
	)
	listenerDone := make(chan struct{})
	go func() {
		defer close(listenerDone)
		if err := listener.Run(ctx); err != nil {
			logger.Error("notification listener stopped", "error", err)
		}
	}()

	healthHandler := health.NewHandler(
		health.Dependency{Name: "database", Checker: db},
		health.Dependency{Name: "redis", Checker: redis},
		health.Dependency{Name: "notification_listener", Checker: listener},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		DBPing:     db.Ping,
		RedisPing:  redis.Ping,
		Domain:     admin.NewRepository(db.DB),
		Webhooks:   webhookHandler.Recent,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	rl := cfg.RateLimit
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit:      middleware.Per(rl.Requests, rl.Burst, rl.Window),
			FailOpen:   true,
			BypassFunc: middleware.SkipPaths("/healthz", "/livez", "/readyz", "/metrics"),
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Handle("/metrics", promhttp.Handler())
	router.Get("/.well-known/jwks.json", jwtManager.JWKSHandler)

	authenticator := middleware.Authenticator(authSvc)
	adminOnly := middleware.RequireAdmin
	usageRecorders := middleware.RequireRole(middleware.RoleService, middleware.RoleAdmin)

	credentialLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Name:     "credentials",
		Limit:    middleware.Per(rl.AuthRequests, max(rl.AuthRequests/2, 1), rl.Window),
		KeyFunc:  middleware.KeyByIP,
		FailOpen: true,
	}).Handler
	checkoutLimiter := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Name:     "checkout",
		Limit:    middleware.Per(rl.CheckoutRequests, max(rl.CheckoutRequests/4, 1), rl.Window),
		KeyFunc:  middleware.KeyByUser,
		FailOpen: true,
	}).Handler
	tiers := middleware.TierLimits(
		middleware.Per(rl.Requests, rl.Burst, rl.Window),
		rl.PremiumMultiplier,
	)
	tiered := middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
		Name:     "tiered",
		Tiers:    tiers,
		FailOpen: true,
	}).Handler
	meteredAuth := func(next http.Handler) http.Handler {
		return authenticator(tiered(next))
	}

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authenticator, credentialLimiter)
		webhookHandler.RegisterRoutes(r, authenticator, checkoutLimiter)
		entitlementHandler.RegisterRoutes(r, meteredAuth)
		quotaHandler.RegisterRoutes(r, meteredAuth, usageRecorders)
		notificationHandler.RegisterRoutes(r, authenticator)

		r.Route("/users", func(r chi.Router) {
			userHandler.RegisterRoutes(r, authenticator)
			followHandler.RegisterRoutes(r, authenticator)
		})

		userHandler.RegisterAdminRoutes(r, authenticator, adminOnly)
		adminHandler.RegisterRoutes(r, authenticator, adminOnly)
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	select {
	case <-listenerDone:
	case <-shutdownCtx.Done():
		logger.Warn("notification listener did not stop in time")
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}
