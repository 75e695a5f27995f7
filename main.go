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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	database "github.com/quantboard/signal-admin/app/db"
	appLogger "github.com/quantboard/signal-admin/app/logger"
	"github.com/quantboard/signal-admin/app/observability/metrics"
	"github.com/quantboard/signal-admin/app/tracer"
	"github.com/quantboard/signal-admin/config"
	_ "github.com/quantboard/signal-admin/docs"
	"github.com/quantboard/signal-admin/internal/api/auth"
	"github.com/quantboard/signal-admin/internal/api/signals"
	api "github.com/quantboard/signal-admin/internal/router"
)

// @title signal-admin API
// @version 1.0
// @description Session-authenticated admin backend for trading signals
// @host localhost:8080
// @BasePath /api
func main() {
	// Use standard log until slog is configured, in case godotenv fails
	err := godotenv.Load()
	if err != nil {
		log.Println("Warning: .env file not found or error loading:", err)
	}

	cfg, err := config.InitConfig()
	if err != nil {
		log.Fatalf("FATAL: Error initializing config: %v", err)
	}

	logger := setupLogger(cfg.Mode)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Observability ---
	metricsSrv, err := tracer.InitTracingAndMetrics(cfg.Handlers.Prometheus.Port)
	if err != nil {
		logger.Error("Failed to initialize tracing and metrics", slog.Any("error", err))
		os.Exit(1)
	}
	metrics.InitAppMetrics()

	// --- Primary (auth) database ---
	dbConfig, err := database.NewDatabaseConfig(&cfg.Repositories.Postgres, logger)
	if err != nil {
		logger.Error("Failed to generate database config", slog.Any("error", err))
		os.Exit(1)
	}

	// Run migrations *before* initializing the main pool
	err = database.RunMigrations(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to run database migrations", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if !database.WaitForDB(ctx, pool, logger) {
		logger.Error("Database not ready after waiting, exiting.")
		os.Exit(1)
	}

	// --- External signals database (read only, no migrations) ---
	signalsDBConfig, err := database.NewDatabaseConfig(&cfg.Repositories.SignalsPostgres, logger)
	if err != nil {
		logger.Error("Failed to generate signals database config", slog.Any("error", err))
		os.Exit(1)
	}
	signalsPool, err := database.Init(signalsDBConfig.ConnectionURL, logger)
	if err != nil {
		logger.Error("Failed to initialize signals database pool", slog.Any("error", err))
		os.Exit(1)
	}
	defer signalsPool.Close()

	// --- Session store ---
	sessionStore, err := setupSessionStore(ctx, &cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize session store", slog.Any("error", err))
		os.Exit(1)
	}

	// --- Dependency injection ---
	hasher := auth.NewHasher()
	authRepo := auth.NewPostgresAuthRepo(pool, hasher, logger)
	authService := auth.NewAuthService(authRepo, sessionStore, hasher, logger)
	authHandler := auth.NewAuthHandler(authService, cfg.Session, logger)

	signalRepo := signals.NewPostgresSignalRepo(signalsPool, logger)
	signalHandler := signals.NewSignalHandler(signalRepo, logger)

	routerConfig := &api.Config{
		AuthHandler:            authHandler,
		SignalHandler:          signalHandler,
		AuthenticateMiddleware: auth.Authenticate(authService, cfg.Session.CookieName, logger),
	}
	mainRouter := api.SetupRouter(routerConfig)

	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(appLogger.StructuredLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.StripSlashes)
	// Login and registration pay a full bcrypt hash, so the timeout must
	// stay well above the hashing cost.
	router.Use(middleware.Timeout(cfg.Server.Timeout))
	router.Use(middleware.Compress(5, "application/json"))
	router.Mount("/", mainRouter)

	serverAddress := fmt.Sprintf(":%s", cfg.Server.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddress,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	// --- Start servers ---
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", serverAddress))
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting metrics server", slog.String("address", metricsSrv.Addr))
		err := metricsSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()

		logger.Info("Shutdown signal received, starting graceful shutdown...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server graceful shutdown failed", slog.Any("error", err))
		}
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Metrics server graceful shutdown failed", slog.Any("error", err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("Application shut down complete.")
}

// setupSessionStore picks the session backend from config. Sessions in the
// memory backend do not survive restarts.
func setupSessionStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.SessionStore, error) {
	ttl := cfg.Session.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	switch cfg.Session.Backend {
	case "", "memory":
		logger.Info("Using in-memory session store", slog.Duration("ttl", ttl))
		return auth.NewMemorySessionStore(ttl), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Repositories.Redis.Host, cfg.Repositories.Redis.Port),
			Password: cfg.Repositories.Redis.Password,
			DB:       cfg.Repositories.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping failed: %w", err)
		}
		logger.Info("Using redis session store", slog.Duration("ttl", ttl))
		return auth.NewRedisSessionStore(client, ttl), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// setupLogger configures and returns the application logger.
func setupLogger(mode string) *slog.Logger {
	var logger *slog.Logger

	if mode == "development" || mode == "" {
		// Colored logs for development
		tintOpts := &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.Kitchen,
			AddSource:  true,
		}
		logger = slog.New(tint.NewHandler(os.Stdout, tintOpts))
	} else {
		// JSON logs for production
		jsonOpts := &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}
		logger = slog.New(slog.NewJSONHandler(os.Stdout, jsonOpts))
	}
	return logger
}
