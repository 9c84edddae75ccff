// Package main provides the snapshot worker entry point. By default it runs
// one profitability batch and exits, for cron-style scheduling without going
// through the HTTP trigger; with -schedule it stays resident and runs a batch
// daily at midnight UTC.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rig-profit/internal/adapter"
	"github.com/rig-profit/internal/config"
	"github.com/rig-profit/internal/logging"
	"github.com/rig-profit/internal/pricing"
	"github.com/rig-profit/internal/service"
	"github.com/rig-profit/internal/storage"
)

func main() {
	schedule := flag.Bool("schedule", false, "Run daily at midnight UTC instead of once")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel := logging.ParseLogLevel(cfg.Logging.Level)
	logFormat := logging.ParseLogFormat(cfg.Logging.Format)
	logging.InitGlobalLogger(logLevel, logFormat)
	logger := logging.GetGlobalLogger()

	logger.Info("Connecting to databases...")

	postgres, err := storage.NewPostgresDB(&cfg.Database.Postgres)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to Postgres")
	}
	defer postgres.Close()

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

	// The local entry point is trusted; present the configured credential so
	// the run passes the same authorization gate as the HTTP trigger.
	auth := service.TriggerAuth{
		HeaderSecret: cfg.Engine.TriggerSecret,
		UserAgent:    cfg.Engine.SchedulerUserAgent,
	}

	if !*schedule {
		if !runOnce(orchestrator, auth, logger) {
			os.Exit(1)
		}
		return
	}

	runDaily(orchestrator, auth, logger)
}

func runOnce(orchestrator *service.SnapshotOrchestrator, auth service.TriggerAuth, logger *logging.Logger) bool {
	summary, err := orchestrator.Run(context.Background(), auth)
	if err != nil {
		logger.WithError(err).Error("Snapshot run failed")
		return false
	}

	logger.WithFields(map[string]interface{}{
		"run_id":            summary.RunID,
		"devices_total":     summary.DevicesTotal,
		"snapshots_written": summary.SnapshotsWritten,
		"skipped":           summary.Skipped,
		"duration_ms":       summary.DurationMs,
	}).Info("Snapshot run finished")
	return true
}

// runDaily runs one batch at each midnight UTC until interrupted.
func runDaily(orchestrator *service.SnapshotOrchestrator, auth service.TriggerAuth, logger *logging.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	now := time.Now().UTC()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	logger.WithField("next_run", nextMidnight).Info("Snapshot scheduler started")

	timer := time.NewTimer(time.Until(nextMidnight))
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			runOnce(orchestrator, auth, logger)
			timer.Reset(24 * time.Hour)
		case <-quit:
			logger.Info("Snapshot scheduler stopped")
			return
		}
	}
}
