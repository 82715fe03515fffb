// Package app wires configuration, storage, providers and services into a
// runnable server. Both cmd/server and the papertrail CLI build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"github.com/sourcegraph/conc"

	"github.com/dukerupert/papertrail/internal"
	"github.com/dukerupert/papertrail/internal/auth"
	"github.com/dukerupert/papertrail/internal/billing"
	"github.com/dukerupert/papertrail/internal/cache"
	"github.com/dukerupert/papertrail/internal/domain"
	"github.com/dukerupert/papertrail/internal/email"
	"github.com/dukerupert/papertrail/internal/handler/api"
	"github.com/dukerupert/papertrail/internal/handler/webhook"
	"github.com/dukerupert/papertrail/internal/middleware"
	"github.com/dukerupert/papertrail/internal/pdf"
	"github.com/dukerupert/papertrail/internal/postgres"
	"github.com/dukerupert/papertrail/internal/router"
	"github.com/dukerupert/papertrail/internal/routes"
	"github.com/dukerupert/papertrail/internal/service"
	"github.com/dukerupert/papertrail/internal/storage"
	"github.com/dukerupert/papertrail/internal/telemetry"
	"github.com/dukerupert/papertrail/internal/worker"
)

const shutdownTimeout = 15 * time.Second

// App holds the wired dependencies of one process.
type App struct {
	Config *internal.Config
	Logger *slog.Logger
	Pool   *pgxpool.Pool

	Users    *postgres.UserRepository
	Invoices *postgres.InvoiceRepository
	Bulk     domain.BulkUploadService

	Handler http.Handler
	Sweeper *worker.OverdueSweeper

	closers []func()
}

// Money serializes as JSON numbers.
func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// Connect opens the connection pool and verifies it.
func Connect(ctx context.Context, cfg *internal.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return pool, nil
}

// Migrate applies pending migrations through the pool.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	applied, err := internal.RunMigrations(ctx, db, logger)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		logger.Info("database schema is up to date")
	}
	return nil
}

// New connects to every backing service and builds the HTTP handler.
// Razorpay, email and Redis are optional; missing configuration disables
// payment links, invoice email and the shared stats cache respectively.
func New(ctx context.Context, cfg *internal.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("sentry initialization failed: %w", err)
	}
	a.closers = append(a.closers, flushSentry)

	telemetry.InitBusinessMetrics("papertrail")

	logger.Info("Connecting to database...")
	a.Pool, err = Connect(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.Pool.Close)
	logger.Info("Database connection established")

	files, err := storage.New(ctx, storage.Config{
		Provider:      cfg.Storage.Provider,
		LocalPath:     cfg.Storage.LocalPath,
		LocalURL:      cfg.Storage.LocalURL,
		R2AccountID:   cfg.Storage.R2AccountID,
		R2AccessKeyID: cfg.Storage.R2AccessKeyID,
		R2SecretKey:   cfg.Storage.R2SecretKey,
		R2BucketName:  cfg.Storage.R2BucketName,
		R2PublicURL:   cfg.Storage.R2PublicURL,
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("storage initialization failed: %w", err)
	}

	provider, err := newPaymentProvider(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	stats := cache.NewStatsCache(a.newCache(ctx), cfg.Redis.StatsTTL)

	// Repositories
	a.Users = postgres.NewUserRepository(a.Pool)
	a.Invoices = postgres.NewInvoiceRepository(a.Pool)
	clientRepo := postgres.NewClientRepository(a.Pool)
	dashboardRepo := postgres.NewDashboardRepository(a.Pool)

	// Services
	dashboard := service.NewDashboardService(dashboardRepo, clientRepo, stats, logger)
	clients := service.NewClientService(clientRepo, a.Invoices, logger)
	accounts := service.NewAccountService(a.Users, files, logger)
	links := service.NewPaymentLinker(provider, cfg.FrontendURL, time.Duration(cfg.Razorpay.TimeoutSeconds)*time.Second, logger)

	invoices := service.NewInvoiceService(service.InvoiceDeps{
		Invoices: a.Invoices,
		Clients:  clientRepo,
		Users:    a.Users,
		Links:    links,
		Renderer: pdf.NewRenderer(),
		Mailer:   mailer,
		Stats:    dashboard,
		Logger:   logger,
	})

	a.Bulk = service.NewBulkUploadService(service.BulkDeps{
		Invoices:        a.Invoices,
		Clients:         clients,
		Links:           links,
		Stats:           dashboard,
		Logger:          logger,
		LinkConcurrency: cfg.Bulk.LinkConcurrency,
	})

	payments := service.NewPaymentService(provider, cfg.Razorpay.WebhookSecret, a.Invoices, dashboard, logger)

	tokens := auth.NewTokenManager(auth.JWTConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL,
	})

	// HTTP
	metrics := middleware.NewMetrics("papertrail")

	securityConfig := middleware.DefaultSecurityHeadersConfig()
	if cfg.Env == "dev" {
		securityConfig.HSTSMaxAge = 0
	}

	r := router.New(
		middleware.RequestID,
		telemetry.SentryMiddleware(),
		middleware.Recover,
		middleware.WithRequestLogger(logger),
		router.AccessLog(logger),
		metrics.Middleware,
		middleware.CORS(cfg.FrontendURL),
		middleware.SecurityHeaders(securityConfig),
		middleware.MaxBodySize(cfg.Bulk.MaxUploadBytes),
		middleware.RateLimit(middleware.DefaultRateLimiterConfig()),
	)

	if cfg.Storage.Provider == "" || cfg.Storage.Provider == "local" {
		r.Static(cfg.Storage.LocalURL, cfg.Storage.LocalPath)
	}

	routes.RegisterAPIRoutes(r, routes.APIDeps{
		Logger:           logger,
		Tokens:           tokens,
		AuthHandler:      api.NewAuthHandler(accounts, tokens),
		Health:           api.Health(a.Pool),
		ClientHandler:    api.NewClientHandler(clients),
		InvoiceHandler:   api.NewInvoiceHandler(invoices, a.Bulk, cfg.Bulk.MaxUploadBytes),
		DashboardHandler: api.NewDashboardHandler(dashboard),
		SettingsHandler:  api.NewSettingsHandler(accounts),
		Metrics:          metrics.Handler(),
	})
	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{
		RazorpayHandler: webhook.NewRazorpayHandler(payments),
	})

	a.Handler = r
	a.Sweeper = worker.NewOverdueSweeper(a.Invoices, worker.Config{
		Interval: cfg.Worker.OverdueSweepInterval,
	}, logger)

	return a, nil
}

func newPaymentProvider(cfg *internal.Config, logger *slog.Logger) (billing.Provider, error) {
	if !cfg.Razorpay.Enabled() {
		logger.Warn("Razorpay not configured, payment links disabled")
		return nil, nil
	}

	provider, err := billing.NewRazorpayProvider(billing.RazorpayConfig{
		KeyID:          cfg.Razorpay.KeyID,
		KeySecret:      cfg.Razorpay.KeySecret,
		WebhookSecret:  cfg.Razorpay.WebhookSecret,
		MaxRetries:     cfg.Razorpay.MaxRetries,
		TimeoutSeconds: cfg.Razorpay.TimeoutSeconds,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Razorpay provider: %w", err)
	}
	logger.Info("Razorpay billing provider initialized")
	return provider, nil
}

func newMailer(cfg *internal.Config, logger *slog.Logger) (service.InvoiceMailer, error) {
	if !cfg.Email.Enabled() {
		logger.Warn("Email not configured, invoice sending disabled")
		return nil, nil
	}

	var sender email.Sender
	if cfg.Email.PostmarkToken != "" {
		sender = email.NewPostmarkSender(cfg.Email.PostmarkToken, cfg.Email.From,
			email.WithPostmarkTransport(&telemetry.HTTPTransport{Transport: http.DefaultTransport}))
		logger.Info("Email sender initialized", "provider", "postmark")
	} else {
		sender = email.NewSMTPSender(email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     int(cfg.Email.Port),
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		}, logger)
		logger.Info("Email sender initialized", "provider", "smtp", "host", cfg.Email.Host)
	}

	svc, err := email.NewService(sender, cfg.Email.From, cfg.Email.FromName)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize email service: %w", err)
	}
	return svc, nil
}

// newCache prefers Redis and falls back to process memory when Redis is
// unset or unreachable.
func (a *App) newCache(ctx context.Context) cache.Cache {
	if a.Config.Redis.Addr == "" {
		return cache.NewMemoryCache()
	}

	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	}, a.Logger)
	if err != nil {
		a.Logger.Warn("redis unavailable, using in-memory stats cache", "error", err)
		return cache.NewMemoryCache()
	}
	a.closers = append(a.closers, func() { _ = rc.Close() })
	return rc
}

// Serve runs the HTTP server and the overdue sweeper until ctx is
// cancelled, then shuts both down.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.Config.Port),
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serveErr := make(chan error, 1)
	var wg conc.WaitGroup

	wg.Go(func() {
		_ = a.Sweeper.Start(ctx)
	})
	wg.Go(func() {
		a.Logger.Info("Starting server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
	})

	<-ctx.Done()
	a.Logger.Info("Shutting down server")

	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	shutdownErr := srv.Shutdown(shutdownCtx)
	wg.Wait()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	default:
	}
	if shutdownErr != nil {
		return fmt.Errorf("server shutdown: %w", shutdownErr)
	}
	return nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
