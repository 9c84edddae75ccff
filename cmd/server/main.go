// Package main provides the API server entry point for the profitability engine.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rig-profit/internal/adapter"
	"github.com/rig-profit/internal/api"
	"github.com/rig-profit/internal/config"
	"github.com/rig-profit/internal/logging"
	"github.com/rig-profit/internal/pricing"
	"github.com/rig-profit/internal/service"
	"github.com/rig-profit/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)

	logger := logging.GetGlobalLogger()
	logger.WithFields(map[string]interface{}{
		"level":  cfg.Logging.Level,
		"format": cfg.Logging.Format,
	}).Info("Structured logging initialized")

	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

	// ClickHouse and Redis are optional collaborators. Without ClickHouse the
	// history sink is disabled; without Redis the FX fetch skips the cache.
	var historySink service.HistorySink
	clickhouse, err := storage.NewClickHouseDB(&cfg.Database.ClickHouse)
	if err != nil {
		logger.WithError(err).Warn("ClickHouse unavailable, history sink disabled")
	} else {
		defer clickhouse.Close()
		historySink = storage.NewHistoryRepository(clickhouse)
	}

	var fxCache service.FxCache
	redis, err := storage.NewRedisCache(&cfg.Database.Redis)
	if err != nil {
		logger.WithError(err).Warn("Redis unavailable, fx cache disabled")
	} else {
		defer redis.Close()
		fxCache = storage.NewFxRateCache(redis, cfg.Upstream.FxCacheTTL)
	}

	logger.Info("Database connections established")

	deviceRepo := storage.NewDeviceRepository(postgres.Pool())
	settingsRepo := storage.NewSettingsRepository(postgres.Pool())
	snapshotRepo := storage.NewSnapshotRepository(postgres.Pool())

	payoutFeed := adapter.NewPayoutRateClient(
		cfg.Upstream.PayoutFeedURL,
		cfg.Upstream.RequestTimeout,
		cfg.Upstream.RequestsPerSecond,
	)
	fxSource := adapter.NewFxRatesClient(cfg.Upstream.FxRatesURL, cfg.Upstream.RequestTimeout)
	priceResolver := pricing.NewResolver(
		[]pricing.Provider{
			adapter.NewCoinGeckoClient(cfg.Upstream.CoinGeckoURL, cfg.Upstream.RequestTimeout, cfg.Upstream.RequestsPerSecond),
			adapter.NewCoinbaseClient(cfg.Upstream.CoinbaseURL, cfg.Upstream.RequestTimeout, cfg.Upstream.RequestsPerSecond),
		},
		settingsRepo,
		logger,
	)

	orchestrator := service.NewSnapshotOrchestrator(
		deviceRepo,
		snapshotRepo,
		historySink,
		payoutFeed,
		priceResolver,
		fxSource,
		fxCache,
		cfg.Engine,
		cfg.BestCoin,
		logger,
	)

	serverConfig := &api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    120 * time.Second, // a snapshot run completes within the response
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	server := api.NewServer(serverConfig, orchestrator, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.WithError(err).Fatal("Server failed to start")
		}
	}()

	logger.WithFields(map[string]interface{}{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Server started successfully")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), serverConfig.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
