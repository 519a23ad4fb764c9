package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/irfndi/celebrum-signals/internal/api"
	"github.com/irfndi/celebrum-signals/internal/api/handlers"
	"github.com/irfndi/celebrum-signals/internal/cache"
	"github.com/irfndi/celebrum-signals/internal/config"
	"github.com/irfndi/celebrum-signals/internal/database"
	"github.com/irfndi/celebrum-signals/internal/logging"
	"github.com/irfndi/celebrum-signals/internal/metrics"
	"github.com/irfndi/celebrum-signals/internal/services"
	"github.com/irfndi/celebrum-signals/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Initialize telemetry first so the pool and router pick up the provider
	shutdownTelemetry, err := telemetry.Init(ctx, cfg.Telemetry, cfg.Environment, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.WithError(err).Error("Failed to shutdown telemetry")
		}
	}()

	db, err := database.NewPostgresConnection(ctx, cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	candles := database.NewCandleRepository(database.NewTracedPool(db.Pool, logger))
	if err := candles.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("failed to prepare candle schema: %w", err)
	}

	var redisClient *database.RedisClient
	var cacheClient *redis.Client
	if cfg.Cache.Enabled {
		redisClient, err = database.NewRedisConnection(ctx, cfg.Redis, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer redisClient.Close()
		cacheClient = redisClient.Client
	}
	signalCache := cache.NewRedisSignalCache(cacheClient, cfg.Cache.GetTTL(), logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	engineMetrics := metrics.NewEngineMetrics(registry)

	notifier := services.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
	signalService := services.NewSignalService(
		candles,
		signalCache,
		notifier,
		engineMetrics,
		services.NewSignalServiceConfig(cfg),
		logger,
	)

	router := api.NewRouter(telemetry.ServiceName, logger)
	deps := api.Dependencies{
		Analyzer: signalService,
		SignalConfig: handlers.SignalHandlerConfig{
			Timeframe:       cfg.Timeframe,
			Symbols:         cfg.Symbols,
			HoldPeriod:      cfg.Labeling.HoldPeriod,
			ProfitThreshold: cfg.Labeling.ProfitThreshold,
		},
		Database: db,
		Gatherer: registry,
		Version:  telemetry.ServiceVersion,
		Logger:   logger,
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}
	api.SetupRoutes(router, deps)

	// Create HTTP server with security timeouts
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.LogStartup(logger, telemetry.ServiceName, telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}
	logging.LogShutdown(logger, telemetry.ServiceName, "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	signalCache.LogStats()
	logger.Info("Server exited gracefully")
	return nil
}
