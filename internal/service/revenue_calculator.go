package service

import "math"

// RevenueCalculator turns a device hashrate and a provider payout rate into
// estimated USD revenue per day. Payout rates are quoted in coin units per
// day per providerUnitBaseHs of hashrate, so the device speed is rescaled to
// that denomination before multiplying.
type RevenueCalculator struct {
	providerUnitBaseHs float64
}

// NewRevenueCalculator creates a revenue calculator. providerUnitBaseHs is
// the hashrate denomination of the upstream feed in H/s (1e6 for a feed
// quoting per MH/s).
func NewRevenueCalculator(providerUnitBaseHs float64) *RevenueCalculator {
	return &RevenueCalculator{providerUnitBaseHs: providerUnitBaseHs}
}

// DailyRevenueUsd computes estimated revenue for one device and coin.
// A non-positive provider denomination would divide by zero, so it yields 0
// rather than a spurious number.
func (c *RevenueCalculator) DailyRevenueUsd(speedBaseHs, payoutRate, refPriceUsd float64) float64 {
	if c.providerUnitBaseHs <= 0 {
		return 0
	}
	revenue := (speedBaseHs / c.providerUnitBaseHs) * payoutRate * refPriceUsd
	if math.IsNaN(revenue) || math.IsInf(revenue, 0) {
		return 0
	}
	return revenue
}

// DailyProfitUsd is revenue minus electricity. It may be negative; a device
// that costs more to run than it earns is a real and reportable outcome.
func (c *RevenueCalculator) DailyProfitUsd(revenueUsd, electricityUsd float64) float64 {
	return revenueUsd - electricityUsd
}
