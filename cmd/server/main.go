package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/database"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/logging"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/routes"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/scheduler"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/services"
	"github.com/ahmetcoskunkizilkaya/kinosub-backend/internal/store"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	cfg := config.Load()

	// Structured logging (JSON to stdout)
	stdout := logging.Setup(cfg.AppEnv)

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdout, pgLogHandler)))

	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cfg.LogRetentionDays, cleanupDone)

	// Sentry error tracking
	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.AppEnv,
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Services
	st := store.NewGormStore(database.DB)
	clock := services.Clock(time.Now)
	authz := services.NewRoleAuthorizer(cfg.AdminUserIDs)
	notifier := services.StoreNotifier{}
	policy := services.ParseActivationPolicy(cfg.ActivationPolicy)

	authService := services.NewAuthService(st, cfg.JWTSecret, cfg.JWTAccessExpiry, clock)
	ledger := services.NewLedgerService(st)
	lifecycle := services.NewLifecycleService(st, authz, notifier, clock, policy)
	payments := services.NewPaymentService(st, ledger, lifecycle, services.MockSettler{}, authz, notifier, clock, cfg.Currency)
	renewals := services.NewRenewalService(st, ledger, notifier, clock, cfg.Currency)
	plans := services.NewPlanService(st, authz)
	notifications := services.NewNotificationService(st)
	slog.Info("services ready", "activation_policy", string(policy), "currency", cfg.Currency)

	// Renewal sweep
	sweeps, err := scheduler.New(cfg.SweepSchedule, renewals)
	if err != nil {
		slog.Error("scheduler setup failed", "error", err)
		os.Exit(1)
	}
	sweeps.Start()

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestContext())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	routes.Setup(app, cfg, authService, authz, routes.Handlers{
		Auth:          handlers.NewAuthHandler(authService),
		Health:        handlers.NewHealthHandler(database.Ping),
		Wallet:        handlers.NewWalletHandler(ledger, cfg.Currency),
		Plans:         handlers.NewPlanHandler(plans),
		Subscriptions: handlers.NewSubscriptionHandler(lifecycle, payments),
		Payments:      handlers.NewPaymentHandler(payments),
		Notifications: handlers.NewNotificationHandler(notifications),
		Renewals:      handlers.NewRenewalHandler(renewals),
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	sweeps.Stop()
	close(cleanupDone)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
