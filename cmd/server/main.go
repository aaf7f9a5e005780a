package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/dukerupert/haat/internal"
	"github.com/dukerupert/haat/internal/auth"
	"github.com/dukerupert/haat/internal/billing"
	"github.com/dukerupert/haat/internal/domain"
	"github.com/dukerupert/haat/internal/email"
	"github.com/dukerupert/haat/internal/events"
	"github.com/dukerupert/haat/internal/handler/api"
	"github.com/dukerupert/haat/internal/handler/webhook"
	"github.com/dukerupert/haat/internal/middleware"
	"github.com/dukerupert/haat/internal/postgres"
	"github.com/dukerupert/haat/internal/repository"
	"github.com/dukerupert/haat/internal/router"
	"github.com/dukerupert/haat/internal/routes"
	"github.com/dukerupert/haat/internal/service"
	"github.com/dukerupert/haat/internal/telemetry"
	"github.com/dukerupert/haat/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize Sentry error tracking
	sentryCleanup, err := telemetry.InitSentry(telemetry.SentryOptions{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer sentryCleanup()

	// Initialize pgx connection pool for application
	logger.Info("Connecting to database...")
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	logger.Info("Database connection established")

	// database/sql view of the same pool for goose and the webhook log
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()

	logger.Info("Running database migrations...")
	if err := internal.RunMigrations(ctx, sqlDB, logger); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	store := repository.NewStore(pool)
	businessMetrics := telemetry.InitBusinessMetrics("haat")

	// Payment gateway
	provider, err := newPaymentProvider(cfg)
	if err != nil {
		return fmt.Errorf("payment provider initialization failed: %w", err)
	}
	logger.Info("Payment provider configured", "provider", provider.Name())

	// Order events
	var publisher domain.EventPublisher = events.NoopPublisher{}
	if cfg.NATS.URL != "" {
		nc, err := events.Connect(cfg.NATS.URL, logger)
		if err != nil {
			return err
		}
		defer nc.Drain()
		publisher = events.NewNATSPublisher(nc, cfg.NATS.SubjectPrefix, logger)
		logger.Info("Publishing order events to NATS", "url", cfg.NATS.URL)
	}

	// Email
	var emailSender email.Sender = email.NewLogSender(logger)
	if cfg.Email.Enabled {
		emailSender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     int(cfg.Email.Port),
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		}, logger)
	}
	emailService, err := email.NewService(emailSender, cfg.Email.From, cfg.Email.FromName)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}

	// Authentication
	users := postgres.NewUserService(store)
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, users)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	verifiers := auth.Chain{}
	if cfg.Auth.FirebaseProjectID != "" {
		firebase, err := auth.NewFirebaseVerifier(cfg.Auth.FirebaseProjectID, users)
		if err != nil {
			return fmt.Errorf("failed to initialize firebase verifier: %w", err)
		}
		verifiers = append(verifiers, firebase)
	}
	verifiers = append(verifiers, tokens)

	var sms auth.SMSSender = auth.NewLogSender(logger)
	if cfg.SMS.Fast2SMSAPIKey != "" {
		sms, err = auth.NewFast2SMSSender(cfg.SMS.Fast2SMSAPIKey, "")
		if err != nil {
			return fmt.Errorf("failed to initialize sms sender: %w", err)
		}
	} else if cfg.Env == "prod" {
		return errors.New("FAST2SMS_API_KEY must be set in production environment")
	}

	// Services
	orderService := service.NewOrderService(store, provider, publisher, businessMetrics, logger)
	cartService := service.NewCartService(store, businessMetrics, logger)
	wishlistService := service.NewWishlistService(store, businessMetrics, logger)
	authService := service.NewAuthService(users, sms, tokens, verifiers,
		service.AuthConfig{EchoOTP: cfg.Env != "prod"}, businessMetrics, logger)
	catalog := postgres.NewProductService(store)

	// Background worker: emails and payment reconciliation
	bgWorker := worker.NewWorker(store, emailService, orderService, businessMetrics, worker.Config{
		ReconcileInterval:    cfg.Reconcile.Interval,
		ReconcileOlderThan:   cfg.Reconcile.OlderThan,
		ReconcileExpireAfter: cfg.Reconcile.ExpireAfter,
	}, logger)
	workerDone := make(chan error, 1)
	go func() {
		defer telemetry.RecoverWithSentry()
		workerDone <- bgWorker.Start(ctx)
	}()

	// Rate limiting: Redis when configured so limits hold across replicas
	generalLimiter, strictLimiter, closeLimiters, err := newLimiters(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiters()

	metrics := middleware.NewMetrics("haat", nil)

	r := router.New(
		router.Recovery(logger),
		telemetry.SentryMiddleware(),
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		metrics.Middleware,
		middleware.SecurityHeaders(cfg.Env == "prod"),
		middleware.Timeout(middleware.DefaultTimeout),
		router.Logger(logger),
	)

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		Verifier:        verifiers,
		GeneralLimiter:  generalLimiter,
		StrictLimiter:   strictLimiter,
		HealthHandler:   api.NewHealthHandler(pool),
		AuthHandler:     api.NewAuthHandler(authService),
		ProductHandler:  api.NewProductHandler(catalog),
		CartHandler:     api.NewCartHandler(cartService),
		WishlistHandler: api.NewWishlistHandler(wishlistService),
		OrderHandler:    api.NewOrderHandler(orderService),
		MetricsHandler:  metrics.Handler(),
	})

	webhookHandler := webhook.NewPaymentHandler(provider, orderService,
		postgres.NewWebhookEventStore(sqlDB), businessMetrics, logger)
	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{
		Handlers: map[string]http.HandlerFunc{provider.Name(): webhookHandler.HandleWebhook},
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router.CORS(cfg.CORSOrigins)(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := <-workerDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", "error", err)
	}
	return nil
}

// newPaymentProvider builds the gateway selected by PAYMENT_PROVIDER.
func newPaymentProvider(cfg *internal.Config) (billing.Provider, error) {
	switch cfg.Payment.Provider {
	case "stripe":
		return billing.NewStripeProvider(billing.StripeConfig{
			APIKey:         cfg.Payment.Stripe.SecretKey,
			PublishableKey: cfg.Payment.Stripe.PublishableKey,
			WebhookSecret:  cfg.Payment.Stripe.WebhookSecret,
		})
	default:
		return billing.NewRazorpayProvider(billing.RazorpayConfig{
			KeyID:         cfg.Payment.Razorpay.KeyID,
			KeySecret:     cfg.Payment.Razorpay.KeySecret,
			WebhookSecret: cfg.Payment.Razorpay.WebhookSecret,
			BaseURL:       cfg.Payment.Razorpay.BaseURL,
			Transport:     &telemetry.HTTPTransport{Transport: http.DefaultTransport},
		})
	}
}

// newLimiters returns the general and OTP limiters and a cleanup function.
func newLimiters(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (middleware.Limiter, middleware.Limiter, func(), error) {
	if cfg.RateLimit.RedisURL == "" {
		general := middleware.NewMemoryLimiter(middleware.DefaultRateLimiterConfig())
		strict := middleware.NewMemoryLimiter(middleware.StrictRateLimiterConfig())
		return general, strict, func() {
			general.Stop()
			strict.Stop()
		}, nil
	}

	opts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	logger.Info("Rate limits stored in Redis", "addr", opts.Addr)

	return middleware.NewRedisLimiter(client, middleware.DefaultRateLimiterConfig()),
		middleware.NewRedisLimiter(client, middleware.StrictRateLimiterConfig()),
		func() { client.Close() },
		nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
