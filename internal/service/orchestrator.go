package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rig-profit/internal/algo"
	"github.com/rig-profit/internal/config"
	apperrors "github.com/rig-profit/internal/errors"
	"github.com/rig-profit/internal/logging"
	"github.com/rig-profit/internal/models"
	"github.com/rig-profit/internal/pricing"
	"github.com/rig-profit/internal/types"
	"github.com/rig-profit/internal/units"
)

// DeviceStore provides read-only catalog access
type DeviceStore interface {
	FindDevices(ctx context.Context) ([]*models.Device, error)
	FindListings(ctx context.Context, deviceID string) ([]*models.VendorListing, error)
	FindCoinsByAlgorithm(ctx context.Context, algorithmKey string) ([]*models.Coin, error)
}

// SnapshotStore persists finalized snapshot batches
type SnapshotStore interface {
	WriteSnapshots(ctx context.Context, snapshots []*models.ProfitabilitySnapshot) error
}

// HistorySink receives a copy of each finalized batch for chart queries.
// Failures here are logged, never fatal.
type HistorySink interface {
	InsertBatch(ctx context.Context, snapshots []*models.ProfitabilitySnapshot) error
}

// PayoutFeed fetches the provider's payout rate table
type PayoutFeed interface {
	FetchAll(ctx context.Context) (types.PayoutRateTable, time.Time, error)
}

// PriceResolver resolves the reference price with fallback
type PriceResolver interface {
	Resolve(ctx context.Context) (*pricing.Result, error)
}

// FxSource fetches the latest FX rate table
type FxSource interface {
	LatestRates(ctx context.Context) (types.FxRateSet, error)
}

// FxCache is an optional read-through cache in front of FxSource
type FxCache interface {
	Get(ctx context.Context) (types.FxRateSet, bool, error)
	Set(ctx context.Context, rates types.FxRateSet) error
}

// TriggerAuth carries the credentials presented by a trigger request. The
// orchestrator validates them itself so a run rejected at the door provably
// had no side effects.
type TriggerAuth struct {
	HeaderSecret string
	BearerToken  string
	QueryToken   string
	UserAgent    string
}

// RunSummary is the operator-visible result of one orchestration run.
type RunSummary struct {
	RunID                string                   `json:"runId"`
	State                types.RunState           `json:"state"`
	ComputedAt           time.Time                `json:"computedAt"`
	DurationMs           int64                    `json:"durationMs"`
	DevicesTotal         int                      `json:"devicesTotal"`
	SnapshotsWritten     int                      `json:"snapshotsWritten"`
	Skipped              int                      `json:"skipped"`
	SkippedByReason      map[types.SkipReason]int `json:"skippedByReason,omitempty"`
	ReferencePriceUsd    float64                  `json:"referencePriceUsd"`
	ReferencePriceSource types.PriceSource        `json:"referencePriceSource"`
}

// sharedInputs holds the run-global upstream data fetched once and read by
// every per-device computation.
type sharedInputs struct {
	rates         types.PayoutRateTable
	rateFetchedAt time.Time
	price         models.ReferencePrice
	priceSource   types.PriceSource
	fxRates       types.FxRateSet
}

// SnapshotOrchestrator drives one profitability run end to end: authorize,
// fetch shared inputs, compute per device, persist the batch.
type SnapshotOrchestrator struct {
	deviceStore   DeviceStore
	snapshotStore SnapshotStore
	historySink   HistorySink
	payoutFeed    PayoutFeed
	priceResolver PriceResolver
	fxSource      FxSource
	fxCache       FxCache

	costModel     *CostModel
	revenueCalc   *RevenueCalculator
	offerResolver *OfferPriceResolver
	coinSelector  *BestCoinSelector

	engineCfg config.EngineConfig
	logger    *logging.Logger
}

// NewSnapshotOrchestrator wires the orchestrator. historySink and fxCache
// may be nil when those collaborators are not deployed.
func NewSnapshotOrchestrator(
	deviceStore DeviceStore,
	snapshotStore SnapshotStore,
	historySink HistorySink,
	payoutFeed PayoutFeed,
	priceResolver PriceResolver,
	fxSource FxSource,
	fxCache FxCache,
	engineCfg config.EngineConfig,
	bestCoinCfg config.BestCoinConfig,
	logger *logging.Logger,
) *SnapshotOrchestrator {
	return &SnapshotOrchestrator{
		deviceStore:   deviceStore,
		snapshotStore: snapshotStore,
		historySink:   historySink,
		payoutFeed:    payoutFeed,
		priceResolver: priceResolver,
		fxSource:      fxSource,
		fxCache:       fxCache,
		costModel:     NewCostModel(engineCfg.ElectricityUsdPerKwh),
		revenueCalc:   NewRevenueCalculator(engineCfg.ProviderHashrateUnitHs),
		offerResolver: NewOfferPriceResolver(logger),
		coinSelector:  NewBestCoinSelector(bestCoinCfg),
		engineCfg:     engineCfg,
		logger:        logger,
	}
}

// Run executes one snapshot run. The returned summary is always non-nil; on
// error its State is RunStateFailed and no snapshots have been written.
func (o *SnapshotOrchestrator) Run(ctx context.Context, auth TriggerAuth) (*RunSummary, error) {
	started := time.Now()
	summary := &RunSummary{
		RunID: uuid.New().String(),
		State: types.RunStateIdle,
	}
	logger := o.logger.WithField("run_id", summary.RunID)

	summary.State = types.RunStateAuthorizing
	if err := o.authorize(auth); err != nil {
		summary.State = types.RunStateFailed
		logger.WithError(err).Warn("snapshot trigger rejected")
		return summary, err
	}

	summary.State = types.RunStateFetchingSharedInputs
	shared, err := o.fetchSharedInputs(ctx, logger)
	if err != nil {
		summary.State = types.RunStateFailed
		summary.DurationMs = time.Since(started).Milliseconds()
		logger.WithError(err).Error("shared input fetch failed, aborting run")
		return summary, err
	}
	summary.ReferencePriceUsd = shared.price.UsdValue
	summary.ReferencePriceSource = shared.priceSource

	devices, err := o.deviceStore.FindDevices(ctx)
	if err != nil {
		summary.State = types.RunStateFailed
		summary.DurationMs = time.Since(started).Milliseconds()
		return summary, apperrors.NewSharedInputError("device catalog", err)
	}
	summary.DevicesTotal = len(devices)

	computedAt := time.Now().UTC()
	summary.ComputedAt = computedAt

	summary.State = types.RunStatePerDeviceLoop
	snapshots, skipped := o.runDeviceLoop(ctx, logger, devices, shared, computedAt)
	summary.SkippedByReason = skipped
	for _, count := range skipped {
		summary.Skipped += count
	}

	summary.State = types.RunStateFinalizing
	if len(snapshots) > 0 {
		if err := o.snapshotStore.WriteSnapshots(ctx, snapshots); err != nil {
			summary.State = types.RunStateFailed
			summary.DurationMs = time.Since(started).Milliseconds()
			return summary, apperrors.NewPersistenceError("write snapshots", err)
		}
		o.mirrorToHistory(ctx, logger, snapshots)
	}
	summary.SnapshotsWritten = len(snapshots)

	summary.State = types.RunStateCompleted
	summary.DurationMs = time.Since(started).Milliseconds()
	logger.WithFields(map[string]interface{}{
		"devices_total":     summary.DevicesTotal,
		"snapshots_written": summary.SnapshotsWritten,
		"skipped":           summary.Skipped,
		"duration_ms":       summary.DurationMs,
		"price_usd":         summary.ReferencePriceUsd,
		"price_source":      summary.ReferencePriceSource,
	}).Info("snapshot run completed")

	return summary, nil
}

// authorize accepts any one of the configured secret carriers. When no
// secret is configured the scheduler user-agent substring is trusted
// instead.
func (o *SnapshotOrchestrator) authorize(auth TriggerAuth) error {
	secret := o.engineCfg.TriggerSecret
	if secret == "" {
		if o.engineCfg.SchedulerUserAgent != "" &&
			strings.Contains(auth.UserAgent, o.engineCfg.SchedulerUserAgent) {
			return nil
		}
		return apperrors.NewUnauthorizedError("no trigger secret configured and user agent not recognized")
	}

	if auth.HeaderSecret == secret || auth.BearerToken == secret || auth.QueryToken == secret {
		return nil
	}
	return apperrors.NewUnauthorizedError("trigger secret mismatch")
}

// fetchSharedInputs obtains the payout table, reference price, and FX rates.
// The three fetches are independent and issued concurrently; any failure
// aborts the run before per-device work begins.
func (o *SnapshotOrchestrator) fetchSharedInputs(ctx context.Context, logger *logging.Logger) (*sharedInputs, error) {
	shared := &sharedInputs{}

	var wg sync.WaitGroup
	var payoutErr, priceErr, fxErr error

	wg.Add(3)

	go func() {
		defer wg.Done()
		shared.rates, shared.rateFetchedAt, payoutErr = o.payoutFeed.FetchAll(ctx)
	}()

	go func() {
		defer wg.Done()
		result, err := o.priceResolver.Resolve(ctx)
		if err != nil {
			priceErr = err
			return
		}
		shared.price = result.Price
		shared.priceSource = result.Source
	}()

	go func() {
		defer wg.Done()
		shared.fxRates, fxErr = o.fetchFxRates(ctx, logger)
	}()

	wg.Wait()

	if payoutErr != nil {
		return nil, apperrors.NewSharedInputError("payout rate feed", payoutErr)
	}
	if priceErr != nil {
		return nil, apperrors.NewSharedInputError("reference price", priceErr)
	}
	if fxErr != nil {
		return nil, apperrors.NewSharedInputError("fx rates", fxErr)
	}

	return shared, nil
}

// fetchFxRates reads through the cache when one is configured. A cache write
// failure is logged and ignored; the fetched rates are still good.
func (o *SnapshotOrchestrator) fetchFxRates(ctx context.Context, logger *logging.Logger) (types.FxRateSet, error) {
	if o.fxCache != nil {
		rates, found, err := o.fxCache.Get(ctx)
		if err != nil {
			logger.WithError(err).Warn("fx cache read failed, fetching upstream")
		} else if found {
			return rates, nil
		}
	}

	rates, err := o.fxSource.LatestRates(ctx)
	if err != nil {
		return nil, err
	}

	if o.fxCache != nil {
		if err := o.fxCache.Set(ctx, rates); err != nil {
			logger.WithError(err).Warn("fx cache write failed")
		}
	}
	return rates, nil
}

// runDeviceLoop computes snapshot candidates across a bounded worker pool.
// Per-device failures are counted, never propagated; the loop always
// completes so one bad device cannot sink the batch.
func (o *SnapshotOrchestrator) runDeviceLoop(
	ctx context.Context,
	logger *logging.Logger,
	devices []*models.Device,
	shared *sharedInputs,
	computedAt time.Time,
) ([]*models.ProfitabilitySnapshot, map[types.SkipReason]int) {
	workers := o.engineCfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(devices) {
		workers = len(devices)
	}

	jobs := make(chan *models.Device)

	var mu sync.Mutex
	snapshots := make([]*models.ProfitabilitySnapshot, 0, len(devices))
	skipped := make(map[types.SkipReason]int)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for device := range jobs {
				snapshot, err := o.buildSnapshot(ctx, device, shared, computedAt)
				mu.Lock()
				if err != nil {
					reason := apperrors.SkipReasonOf(err)
					skipped[reason]++
					mu.Unlock()
					logger.WithFields(map[string]interface{}{
						"device_id": device.ID,
						"reason":    reason,
					}).WithError(err).Debug("device skipped")
					continue
				}
				snapshots = append(snapshots, snapshot)
				mu.Unlock()
			}
		}()
	}

	for _, device := range devices {
		jobs <- device
	}
	close(jobs)
	wg.Wait()

	return snapshots, skipped
}

// buildSnapshot runs the full computation pipeline for one device. Every
// error is a DeviceSkippedError so the caller can attribute it to a skip
// reason.
func (o *SnapshotOrchestrator) buildSnapshot(
	ctx context.Context,
	device *models.Device,
	shared *sharedInputs,
	computedAt time.Time,
) (*models.ProfitabilitySnapshot, error) {
	baseRate, ok := units.ToBaseRate(device.Hashrate, device.HashrateUnit)
	if !ok {
		return nil, apperrors.NewDeviceSkippedError(device.ID, types.SkipUnparsableHashrate,
			fmt.Errorf("unparsable hashrate %q %q", device.Hashrate, device.HashrateUnit))
	}

	providerKey := algo.MapToProviderKey(device.Algorithm.Key)
	rate, ok := shared.rates.Rate(providerKey)
	if !ok {
		return nil, apperrors.NewDeviceSkippedError(device.ID, types.SkipNoPayoutRate,
			fmt.Errorf("no payout rate for provider key %q", providerKey))
	}

	revenue := o.revenueCalc.DailyRevenueUsd(baseRate.Value, rate, shared.price.UsdValue)
	electricity := o.costModel.DailyElectricityUsd(device.PowerWatts)
	profit := o.revenueCalc.DailyProfitUsd(revenue, electricity)

	listings, err := o.deviceStore.FindListings(ctx, device.ID)
	if err != nil {
		return nil, apperrors.NewDeviceSkippedError(device.ID, types.SkipComputeError,
			fmt.Errorf("failed to load listings: %w", err))
	}
	offer := o.offerResolver.Resolve(listings, shared.fxRates)
	roiDays := EstimateRoiDays(offer.LowestUsd, profit)

	coins, err := o.deviceStore.FindCoinsByAlgorithm(ctx, device.Algorithm.Key)
	if err != nil {
		return nil, apperrors.NewDeviceSkippedError(device.ID, types.SkipComputeError,
			fmt.Errorf("failed to load coins: %w", err))
	}
	choice := o.coinSelector.Select(coins, shared.priceSource, shared.rateFetchedAt, computedAt)

	snapshot := &models.ProfitabilitySnapshot{
		ID:                   uuid.New().String(),
		DeviceID:             device.ID,
		ComputedAt:           computedAt,
		ElectricityUsdPerKwh: o.costModel.UsdPerKwh(),
		RevenueUsdPerDay:     revenue,
		ElectricityUsdPerDay: electricity,
		ProfitUsdPerDay:      profit,
		LowestPriceUsd:       offer.LowestUsd,
		RoiDays:              roiDays,
		Breakdown: models.SnapshotBreakdown{
			SchemaVersion:        models.BreakdownSchemaVersion,
			HashrateBaseHs:       baseRate.Value,
			CatalogAlgorithm:     device.Algorithm.Key,
			ProviderAlgorithm:    providerKey,
			PayoutRate:           rate,
			PayoutRateFetchedAt:  shared.rateFetchedAt,
			ReferencePriceUsd:    shared.price.UsdValue,
			ReferencePriceSource: shared.priceSource,
			ListingsConsidered:   offer.Considered,
			ListingsConverted:    offer.Converted,
		},
	}

	if efficiency, ok := o.deviceEfficiency(device, baseRate.Value); ok {
		snapshot.Breakdown.EfficiencyJoulesPerTH = &efficiency
	}

	if choice != nil {
		snapshot.BestCoinID = &choice.CoinID
		snapshot.BestCoinConfidence = &choice.Confidence
		snapshot.BestCoinReason = &choice.Reason
	}

	return snapshot, nil
}

// deviceEfficiency normalizes a vendor-stated efficiency to J/TH, or derives
// it from wall power when the vendor figure is absent.
func (o *SnapshotOrchestrator) deviceEfficiency(device *models.Device, baseRateHs float64) (float64, bool) {
	if device.Efficiency != nil {
		return units.EfficiencyJoulesPerTH(*device.Efficiency, device.HashrateUnit)
	}
	return units.EfficiencyFromPower(device.PowerWatts, baseRateHs)
}

// mirrorToHistory copies the finalized batch into the analytic sink. The
// Postgres write has already committed; a failure here only costs chart
// freshness.
func (o *SnapshotOrchestrator) mirrorToHistory(ctx context.Context, logger *logging.Logger, snapshots []*models.ProfitabilitySnapshot) {
	if o.historySink == nil {
		return
	}
	if err := o.historySink.InsertBatch(ctx, snapshots); err != nil {
		logger.WithError(err).Warn("history sink write failed")
	}
}
