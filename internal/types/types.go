// Package types provides common type definitions for the profitability engine.
package types

// RunState represents the state of a snapshot orchestration run
type RunState string

const (
	// RunStateIdle represents a run that has not started yet
	RunStateIdle RunState = "idle"
	// RunStateAuthorizing represents trigger credential validation
	RunStateAuthorizing RunState = "authorizing"
	// RunStateFetchingSharedInputs represents the shared upstream fetch phase
	RunStateFetchingSharedInputs RunState = "fetching_shared_inputs"
	// RunStatePerDeviceLoop represents the per-device computation phase
	RunStatePerDeviceLoop RunState = "per_device_loop"
	// RunStateFinalizing represents the batch persistence phase
	RunStateFinalizing RunState = "finalizing"
	// RunStateCompleted represents a successfully completed run
	RunStateCompleted RunState = "completed"
	// RunStateFailed represents a terminally failed run
	RunStateFailed RunState = "failed"
)

// SkipReason explains why a device was skipped during a run
type SkipReason string

const (
	// SkipNoPayoutRate means the device's algorithm has no payout-rate entry
	SkipNoPayoutRate SkipReason = "no_payout_rate"
	// SkipUnparsableHashrate means the device's hashrate or unit could not be parsed
	SkipUnparsableHashrate SkipReason = "unparsable_hashrate"
	// SkipComputeError means an unexpected per-device error was caught
	SkipComputeError SkipReason = "compute_error"
)

// PriceSource identifies where a reference price came from
type PriceSource string

const (
	// PriceSourceLive marks a price fetched from an upstream provider this run
	PriceSourceLive PriceSource = "live"
	// PriceSourceFallback marks a persisted last-known-good price
	PriceSourceFallback PriceSource = "fallback"
)

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// PayoutRateTable maps provider algorithm keys to published payout rates,
// denominated in reward units per provider hashrate unit per day.
type PayoutRateTable map[string]float64

// Rate returns the payout rate for a provider algorithm key. The second
// return value is false when the entry is missing or non-positive, which
// callers must treat as "revenue unknown", not zero revenue.
func (t PayoutRateTable) Rate(providerKey string) (float64, bool) {
	rate, ok := t[providerKey]
	if !ok || rate <= 0 {
		return 0, false
	}
	return rate, true
}

// FxRateSet is a snapshot of currency -> units-per-USD multipliers valid at
// computation time. The engine treats it as a pure lookup table for one run.
type FxRateSet map[string]float64
