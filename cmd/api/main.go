package main

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/agendohealth/agenda-api/internal/actions"
	"github.com/agendohealth/agenda-api/internal/api/router"
	appconfig "github.com/agendohealth/agenda-api/internal/config"
	"github.com/agendohealth/agenda-api/internal/doctor"
	"github.com/agendohealth/agenda-api/internal/http/handlers"
	"github.com/agendohealth/agenda-api/internal/observability/metrics"
	"github.com/agendohealth/agenda-api/internal/override"
	"github.com/agendohealth/agenda-api/internal/schedule"
	"github.com/agendohealth/agenda-api/pkg/logging"
)

func main() {
	// Load configuration
	cfg := appconfig.Load()
	if cfg.Env == "development" {
		_ = godotenv.Load()
		cfg = appconfig.Load()
	}

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting agenda API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"operating_tz", cfg.OperatingTimezone,
	)

	loc := cfg.Location()
	ctx := context.Background()

	// Database
	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres not reachable", "error", err)
		os.Exit(1)
	}

	// Redis view cache
	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOptions)
	var viewCache *override.ViewCache
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// The API degrades to store reads when redis is down.
		logger.Warn("redis not available, calendar views uncached", "error", err)
		redisClient = nil
	} else {
		viewCache = override.NewViewCache(redisClient, cfg.ViewCacheTTL)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	scheduleMetrics := metrics.NewScheduleMetrics(registry)

	// Domain wiring
	doctors := doctor.NewPostgresRepository(pool)
	store := override.NewStore(pool)
	engine := schedule.NewEngine(loc, cfg.SlotStepMinutes)
	sessions := schedule.NewSessionManager(engine, schedule.NewStoreFetcher(store), cfg.SlotRefreshDelay, logger)
	defer sessions.Close()

	var invalidator actions.Invalidator
	if viewCache != nil {
		invalidator = viewCache
	}
	acts := actions.New(actions.Config{
		Store:       store,
		Doctors:     doctors,
		Cache:       invalidator,
		Metrics:     scheduleMetrics,
		Location:    loc,
		StepMinutes: cfg.SlotStepMinutes,
		Logger:      logger,
	})

	scheduleHandler := handlers.NewScheduleHandler(handlers.ScheduleConfig{
		Doctors:  doctors,
		Store:    store,
		Cache:    viewCache,
		Sessions: sessions,
		Actions:  acts,
		Metrics:  scheduleMetrics,
		Location: loc,
		Logger:   logger,
	})
	healthHandler := handlers.NewHealthHandler(pool, redisClient, logger)

	// Setup router
	r := router.New(&router.Config{
		Logger:                logger,
		Schedule:              scheduleHandler,
		Health:                healthHandler,
		SessionJWTSecret:      cfg.AdminJWTSecret,
		MetricsHandler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:    cfg.CORSAllowedOrigins,
		MutationRatePerSecond: cfg.MutationRatePerSecond,
		MutationBurst:         cfg.MutationBurst,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
