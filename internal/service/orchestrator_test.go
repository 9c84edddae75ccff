package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rig-profit/internal/config"
	apperrors "github.com/rig-profit/internal/errors"
	"github.com/rig-profit/internal/models"
	"github.com/rig-profit/internal/pricing"
	"github.com/rig-profit/internal/types"
)

// mockDeviceStore serves a fixed catalog
type mockDeviceStore struct {
	devices     []*models.Device
	listings    map[string][]*models.VendorListing
	coins       map[string][]*models.Coin
	devicesErr  error
	listingsErr error
}

func (m *mockDeviceStore) FindDevices(ctx context.Context) ([]*models.Device, error) {
	if m.devicesErr != nil {
		return nil, m.devicesErr
	}
	return m.devices, nil
}

func (m *mockDeviceStore) FindListings(ctx context.Context, deviceID string) ([]*models.VendorListing, error) {
	if m.listingsErr != nil {
		return nil, m.listingsErr
	}
	return m.listings[deviceID], nil
}

func (m *mockDeviceStore) FindCoinsByAlgorithm(ctx context.Context, algorithmKey string) ([]*models.Coin, error) {
	return m.coins[algorithmKey], nil
}

// mockSnapshotStore records written batches
type mockSnapshotStore struct {
	written  [][]*models.ProfitabilitySnapshot
	writeErr error
}

func (m *mockSnapshotStore) WriteSnapshots(ctx context.Context, snapshots []*models.ProfitabilitySnapshot) error {
	if m.writeErr != nil {
		return m.writeErr
	}
	m.written = append(m.written, snapshots)
	return nil
}

type mockHistorySink struct {
	batches   int
	insertErr error
}

func (m *mockHistorySink) InsertBatch(ctx context.Context, snapshots []*models.ProfitabilitySnapshot) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.batches++
	return nil
}

type mockPayoutFeed struct {
	rates     types.PayoutRateTable
	fetchedAt time.Time
	err       error
}

func (m *mockPayoutFeed) FetchAll(ctx context.Context) (types.PayoutRateTable, time.Time, error) {
	if m.err != nil {
		return nil, time.Time{}, m.err
	}
	return m.rates, m.fetchedAt, nil
}

type mockPriceResolver struct {
	result *pricing.Result
	err    error
}

func (m *mockPriceResolver) Resolve(ctx context.Context) (*pricing.Result, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

type mockFxSource struct {
	rates types.FxRateSet
	err   error
}

func (m *mockFxSource) LatestRates(ctx context.Context) (types.FxRateSet, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rates, nil
}

type orchestratorFixture struct {
	deviceStore   *mockDeviceStore
	snapshotStore *mockSnapshotStore
	historySink   *mockHistorySink
	payoutFeed    *mockPayoutFeed
	priceResolver *mockPriceResolver
	fxSource      *mockFxSource
	engineCfg     config.EngineConfig
}

func defaultFixture() *orchestratorFixture {
	now := time.Now()
	return &orchestratorFixture{
		deviceStore: &mockDeviceStore{
			devices: []*models.Device{testDevice("dev-1", "100", "TH/s", 3200, "sha256")},
			listings: map[string][]*models.VendorListing{
				"dev-1": {listing("l1", "2999", "USD", true)},
			},
			coins: map[string][]*models.Coin{
				"sha256": {coin("btc", "BTC")},
			},
		},
		snapshotStore: &mockSnapshotStore{},
		historySink:   &mockHistorySink{},
		payoutFeed: &mockPayoutFeed{
			rates:     types.PayoutRateTable{"sha256": 0.00005},
			fetchedAt: now,
		},
		priceResolver: &mockPriceResolver{
			result: &pricing.Result{
				Price:  models.ReferencePrice{UsdValue: 60000, Source: "coingecko", FetchedAt: now},
				Source: types.PriceSourceLive,
			},
		},
		fxSource: &mockFxSource{rates: types.FxRateSet{"USD": 1.0}},
		engineCfg: config.EngineConfig{
			ElectricityUsdPerKwh:   0.10,
			ProviderHashrateUnitHs: 1e6,
			TriggerSecret:          "test-secret",
			SchedulerUserAgent:     "rig-profit-cron",
			Workers:                4,
		},
	}
}

func (f *orchestratorFixture) orchestrator() *SnapshotOrchestrator {
	return NewSnapshotOrchestrator(
		f.deviceStore,
		f.snapshotStore,
		f.historySink,
		f.payoutFeed,
		f.priceResolver,
		f.fxSource,
		nil,
		f.engineCfg,
		testBestCoinConfig(),
		testLogger(),
	)
}

func testDevice(id, hashrate, unit string, powerWatts float64, algoKey string) *models.Device {
	return &models.Device{
		ID:           id,
		Name:         "device " + id,
		Hashrate:     hashrate,
		HashrateUnit: unit,
		PowerWatts:   powerWatts,
		Algorithm:    models.AlgorithmRef{Key: algoKey, Name: algoKey},
	}
}

func validAuth() TriggerAuth {
	return TriggerAuth{HeaderSecret: "test-secret"}
}

func TestOrchestrator_EndToEnd(t *testing.T) {
	f := defaultFixture()
	orch := f.orchestrator()

	summary, err := orch.Run(context.Background(), validAuth())
	require.NoError(t, err)

	assert.Equal(t, types.RunStateCompleted, summary.State)
	assert.Equal(t, 1, summary.DevicesTotal)
	assert.Equal(t, 1, summary.SnapshotsWritten)
	assert.Equal(t, 0, summary.Skipped)
	assert.InDelta(t, 60000.0, summary.ReferencePriceUsd, 1e-9)
	assert.Equal(t, types.PriceSourceLive, summary.ReferencePriceSource)

	require.Len(t, f.snapshotStore.written, 1)
	require.Len(t, f.snapshotStore.written[0], 1)
	snapshot := f.snapshotStore.written[0][0]

	// 100 TH/s against a per-MH/s rate of 0.00005 at $60000
	expectedRevenue := (100e12 / 1e6) * 0.00005 * 60000
	assert.InDelta(t, expectedRevenue, snapshot.RevenueUsdPerDay, 1e-6)
	assert.InDelta(t, 7.68, snapshot.ElectricityUsdPerDay, 1e-9)
	assert.InDelta(t, expectedRevenue-7.68, snapshot.ProfitUsdPerDay, 1e-6)

	require.NotNil(t, snapshot.LowestPriceUsd)
	assert.InDelta(t, 2999.0, *snapshot.LowestPriceUsd, 1e-9)
	require.NotNil(t, snapshot.RoiDays)
	assert.Equal(t, 1, *snapshot.RoiDays)

	require.NotNil(t, snapshot.BestCoinID)
	assert.Equal(t, "btc", *snapshot.BestCoinID)

	assert.Equal(t, models.BreakdownSchemaVersion, snapshot.Breakdown.SchemaVersion)
	assert.InDelta(t, 100e12, snapshot.Breakdown.HashrateBaseHs, 1)
	assert.Equal(t, "sha256", snapshot.Breakdown.ProviderAlgorithm)
	require.NotNil(t, snapshot.Breakdown.EfficiencyJoulesPerTH)
	assert.InDelta(t, 32.0, *snapshot.Breakdown.EfficiencyJoulesPerTH, 1e-9)

	assert.Equal(t, 1, f.historySink.batches)
}

func TestOrchestrator_SkipsUnmappedAlgorithms(t *testing.T) {
	f := defaultFixture()
	f.deviceStore.devices = []*models.Device{
		testDevice("dev-1", "100", "TH/s", 3200, "sha256"),
		testDevice("dev-2", "500", "MH/s", 750, "mystery_algo"),
		testDevice("dev-3", "9.5", "GH/s", 3425, "another_mystery"),
	}
	orch := f.orchestrator()

	summary, err := orch.Run(context.Background(), validAuth())
	require.NoError(t, err)

	assert.Equal(t, types.RunStateCompleted, summary.State)
	assert.Equal(t, 3, summary.DevicesTotal)
	assert.Equal(t, 1, summary.SnapshotsWritten)
	assert.Equal(t, 2, summary.Skipped)
	assert.Equal(t, 2, summary.SkippedByReason[types.SkipNoPayoutRate])
}

func TestOrchestrator_SkipsUnparsableHashrate(t *testing.T) {
	f := defaultFixture()
	f.deviceStore.devices = append(f.deviceStore.devices,
		testDevice("dev-bad", "lots", "TH/s", 100, "sha256"),
		testDevice("dev-weird", "100", "furlongs", 100, "sha256"),
	)
	orch := f.orchestrator()

	summary, err := orch.Run(context.Background(), validAuth())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.SnapshotsWritten)
	assert.Equal(t, 2, summary.SkippedByReason[types.SkipUnparsableHashrate])
}

func TestOrchestrator_PayoutFeedFailureAbortsRun(t *testing.T) {
	f := defaultFixture()
	f.payoutFeed.err = errors.New("upstream down")
	orch := f.orchestrator()

	summary, err := orch.Run(context.Background(), validAuth())
	require.Error(t, err)

	assert.True(t, apperrors.IsSharedInput(err))
	assert.Equal(t, types.RunStateFailed, summary.State)
	assert.Zero(t, summary.SnapshotsWritten)
	assert.Empty(t, f.snapshotStore.written)
}

func TestOrchestrator_PriceFailureAbortsRun(t *testing.T) {
	f := defaultFixture()
	f.priceResolver.err = apperrors.NewPriceUnavailableError(errors.New("all tiers failed"))
	orch := f.orchestrator()

	summary, err := orch.Run(context.Background(), validAuth())
	require.Error(t, err)

	assert.True(t, apperrors.IsSharedInput(err))
	assert.Equal(t, types.RunStateFailed, summary.State)
	assert.Empty(t, f.snapshotStore.written)
}

func TestOrchestrator_Unauthorized(t *testing.T) {
	f := defaultFixture()
	orch := f.orchestrator()

	summary, err := orch.Run(context.Background(), TriggerAuth{HeaderSecret: "wrong"})
	require.Error(t, err)

	assert.True(t, apperrors.IsUnauthorized(err))
	assert.Equal(t, types.RunStateFailed, summary.State)
	assert.Empty(t, f.snapshotStore.written)
}

func TestOrchestrator_AuthCarriers(t *testing.T) {
	tests := []struct {
		name string
		auth TriggerAuth
		ok   bool
	}{
		{"header secret", TriggerAuth{HeaderSecret: "test-secret"}, true},
		{"bearer token", TriggerAuth{BearerToken: "test-secret"}, true},
		{"query token", TriggerAuth{QueryToken: "test-secret"}, true},
		{"wrong everywhere", TriggerAuth{HeaderSecret: "a", BearerToken: "b", QueryToken: "c"}, false},
		{"scheduler ua ignored when secret set", TriggerAuth{UserAgent: "rig-profit-cron/1.0"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := defaultFixture()
			orch := f.orchestrator()

			_, err := orch.Run(context.Background(), tt.auth)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, apperrors.IsUnauthorized(err))
			}
		})
	}
}

func TestOrchestrator_SchedulerUserAgentWhenNoSecret(t *testing.T) {
	f := defaultFixture()
	f.engineCfg.TriggerSecret = ""
	orch := f.orchestrator()

	_, err := orch.Run(context.Background(), TriggerAuth{UserAgent: "rig-profit-cron/1.0 (scheduler)"})
	assert.NoError(t, err)

	_, err = orch.Run(context.Background(), TriggerAuth{UserAgent: "curl/8.0"})
	assert.True(t, apperrors.IsUnauthorized(err))
}

func TestOrchestrator_PersistenceFailure(t *testing.T) {
	f := defaultFixture()
	f.snapshotStore.writeErr = errors.New("connection reset")
	orch := f.orchestrator()

	summary, err := orch.Run(context.Background(), validAuth())
	require.Error(t, err)

	assert.True(t, apperrors.IsPersistence(err))
	assert.Equal(t, types.RunStateFailed, summary.State)
	assert.Zero(t, summary.SnapshotsWritten)
}

func TestOrchestrator_HistorySinkFailureIsNonFatal(t *testing.T) {
	f := defaultFixture()
	f.historySink.insertErr = errors.New("clickhouse unavailable")
	orch := f.orchestrator()

	summary, err := orch.Run(context.Background(), validAuth())
	require.NoError(t, err)

	assert.Equal(t, types.RunStateCompleted, summary.State)
	assert.Equal(t, 1, summary.SnapshotsWritten)
}

func TestOrchestrator_SharedComputedAtAcrossBatch(t *testing.T) {
	f := defaultFixture()
	f.deviceStore.devices = nil
	f.deviceStore.listings = map[string][]*models.VendorListing{}
	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("dev-%d", i)
		f.deviceStore.devices = append(f.deviceStore.devices,
			testDevice(id, "100", "TH/s", 3200, "sha256"))
	}
	orch := f.orchestrator()

	summary, err := orch.Run(context.Background(), validAuth())
	require.NoError(t, err)
	require.Equal(t, 20, summary.SnapshotsWritten)

	batch := f.snapshotStore.written[0]
	for _, snapshot := range batch {
		assert.Equal(t, summary.ComputedAt, snapshot.ComputedAt)
	}
}

func TestOrchestrator_RunsAreReproducible(t *testing.T) {
	f := defaultFixture()
	orch := f.orchestrator()

	_, err := orch.Run(context.Background(), validAuth())
	require.NoError(t, err)
	_, err = orch.Run(context.Background(), validAuth())
	require.NoError(t, err)

	require.Len(t, f.snapshotStore.written, 2)
	first := f.snapshotStore.written[0][0]
	second := f.snapshotStore.written[1][0]

	assert.Equal(t, first.RevenueUsdPerDay, second.RevenueUsdPerDay)
	assert.Equal(t, first.ProfitUsdPerDay, second.ProfitUsdPerDay)
	assert.Equal(t, first.RoiDays, second.RoiDays)
	assert.Equal(t, first.BestCoinID, second.BestCoinID)
}

func TestOrchestrator_EmptyCatalog(t *testing.T) {
	f := defaultFixture()
	f.deviceStore.devices = nil
	orch := f.orchestrator()

	summary, err := orch.Run(context.Background(), validAuth())
	require.NoError(t, err)

	assert.Equal(t, types.RunStateCompleted, summary.State)
	assert.Zero(t, summary.DevicesTotal)
	assert.Zero(t, summary.SnapshotsWritten)
	assert.Empty(t, f.snapshotStore.written)
}

func TestOrchestrator_ListingFailureSkipsDevice(t *testing.T) {
	f := defaultFixture()
	f.deviceStore.listingsErr = errors.New("query timeout")
	orch := f.orchestrator()

	summary, err := orch.Run(context.Background(), validAuth())
	require.NoError(t, err)

	assert.Zero(t, summary.SnapshotsWritten)
	assert.Equal(t, 1, summary.SkippedByReason[types.SkipComputeError])
}
