package models

import (
	"time"

	"github.com/rig-profit/internal/types"
)

// BreakdownSchemaVersion is the current shape version of SnapshotBreakdown.
// Bump it whenever a field is added or its meaning changes, so downstream
// consumers can interpret historical rows.
const BreakdownSchemaVersion = 2

// SnapshotBreakdown records every intermediate value that fed a snapshot,
// for auditability and display.
type SnapshotBreakdown struct {
	SchemaVersion         int               `json:"schemaVersion"`
	HashrateBaseHs        float64           `json:"hashrateBaseHs"`
	EfficiencyJoulesPerTH *float64          `json:"efficiencyJoulesPerTh,omitempty"`
	CatalogAlgorithm      string            `json:"catalogAlgorithm"`
	ProviderAlgorithm     string            `json:"providerAlgorithm"`
	PayoutRate            float64           `json:"payoutRate"`
	PayoutRateFetchedAt   time.Time         `json:"payoutRateFetchedAt"`
	ReferencePriceUsd     float64           `json:"referencePriceUsd"`
	ReferencePriceSource  types.PriceSource `json:"referencePriceSource"`
	ListingsConsidered    int               `json:"listingsConsidered"`
	ListingsConverted     int               `json:"listingsConverted"`
}

// ProfitabilitySnapshot is one immutable, timestamped profitability record for
// one device. Snapshots are created once per run, never updated, never deleted
// by the engine; the full history is the time series consumed by charts.
type ProfitabilitySnapshot struct {
	ID                   string            `json:"id"`
	DeviceID             string            `json:"deviceId"`
	ComputedAt           time.Time         `json:"computedAt"` // shared by the whole batch
	ElectricityUsdPerKwh float64           `json:"electricityUsdPerKwh"`
	RevenueUsdPerDay     float64           `json:"revenueUsdPerDay"`
	ElectricityUsdPerDay float64           `json:"electricityUsdPerDay"`
	ProfitUsdPerDay      float64           `json:"profitUsdPerDay"`
	LowestPriceUsd       *float64          `json:"lowestPriceUsd,omitempty"`
	RoiDays              *int              `json:"roiDays,omitempty"`
	BestCoinID           *string           `json:"bestCoinId,omitempty"`
	BestCoinConfidence   *int              `json:"bestCoinConfidence,omitempty"` // 0-100
	BestCoinReason       *string           `json:"bestCoinReason,omitempty"`
	Breakdown            SnapshotBreakdown `json:"breakdown"`
}

// ReferencePrice is the USD value of the coin payout rates are denominated in.
type ReferencePrice struct {
	UsdValue  float64   `json:"usdValue"`
	Source    string    `json:"source"` // provider name that produced the value
	FetchedAt time.Time `json:"fetchedAt"`
}
