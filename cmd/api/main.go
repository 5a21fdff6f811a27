// Package main is the entrypoint for the BudgetBook API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/budgetbook/budgetbook/internal/cache"
	"github.com/budgetbook/budgetbook/internal/config"
	"github.com/budgetbook/budgetbook/internal/handler"
	"github.com/budgetbook/budgetbook/internal/handler/dto"
	"github.com/budgetbook/budgetbook/internal/metrics"
	"github.com/budgetbook/budgetbook/internal/middleware"
	"github.com/budgetbook/budgetbook/internal/repository"
	"github.com/budgetbook/budgetbook/internal/server"
	"github.com/budgetbook/budgetbook/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := initLogger(cfg)

	if cfg.RunMigrations {
		if err := repository.Migrate(cfg.DatabaseURL); err != nil {
			logger.Error("failed to migrate database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			)
			return err
		}
		logger.Info("database schema up to date")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		return err
	}
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		repo.Close()
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		return err
	}
	cacheClient = cacheClient.WithReportTTL(cfg.ReportCacheTTL)
	logger.Info("connected to Redis")

	recorder := metrics.NewInMemory()
	expenseService := service.NewExpenseService(repo, cacheClient, recorder, logger)

	if cfg.SeedDemoData {
		seeded, err := expenseService.SeedDemoExpenses(ctx)
		if err != nil {
			logger.Error("failed to seed demo expenses", "error", err)
		} else {
			logger.Info("demo seed checked", "seeded", seeded)
		}
	}

	validator, err := dto.NewValidator()
	if err != nil {
		repo.Close()
		cacheClient.Close()
		return err
	}

	r := setupRouter(routes{
		index:    handler.New(),
		health:   handler.NewHealthHandler(repo, cacheClient),
		metrics:  handler.NewMetricsHandler(recorder),
		expenses: handler.NewExpenseHandler(service.NewSessionExpenses(expenseService), validator, logger),
		admin:    handler.NewAdminHandler(expenseService, logger),
	}, repo, cacheClient, cacheClient, cfg, logger)

	srv := server.New(r, server.Options{
		Port:            cfg.AppPort,
		ReadTimeout:     cfg.ReadTimeout,
		WriteTimeout:    cfg.WriteTimeout,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, logger)

	srv.OnShutdown("postgres", func(context.Context) error {
		repo.Close()
		return nil
	})
	srv.OnShutdown("redis", func(context.Context) error {
		return cacheClient.Close()
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
	)

	return srv.Run(ctx)
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h).With("service", "budgetbook")
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type routes struct {
	index    *handler.Handler
	health   *handler.HealthHandler
	metrics  *handler.MetricsHandler
	expenses *handler.ExpenseHandler
	admin    *handler.AdminHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h routes,
	keys middleware.KeyStore,
	authCache middleware.AuthCache,
	limiter middleware.RateLimiter,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.SecurityHeaders(cfg.IsDevelopment()))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	r.Get("/", h.index.Index)
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Get("/metrics", h.metrics.Metrics)

	authCfg := middleware.AuthConfig{
		Logger:      logger,
		Keys:        keys,
		Cache:       authCache,
		MinDuration: cfg.AuthMinDuration,
	}

	rateLimitCfg := middleware.RateLimitConfig{
		Logger:        logger,
		Limiter:       limiter,
		Enabled:       cfg.RateLimitEnabled,
		RatePerMinute: cfg.RateLimitPerMinute,
		Burst:         cfg.RateLimitBurst,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(authCfg))
		r.Use(middleware.RateLimitUser(rateLimitCfg))

		r.Route("/expenses", func(r chi.Router) {
			r.With(middleware.RequireRead()).Get("/", h.expenses.List)
			r.With(middleware.RequireRead()).Get("/{id}", h.expenses.Get)
			r.With(middleware.RequireWrite()).Post("/", h.expenses.Create)
			r.With(middleware.RequireWrite()).Put("/{id}", h.expenses.Update)
			r.With(middleware.RequireWrite()).Delete("/{id}", h.expenses.Delete)
		})

		r.With(middleware.RequireRead()).Get("/reports/{year}/{month}", h.expenses.Report)

		r.With(middleware.RequireAdmin()).Post("/admin/demo-seed", h.admin.SeedDemo)
	})

	r.NotFound(h.index.NotFound)
	r.MethodNotAllowed(h.index.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
