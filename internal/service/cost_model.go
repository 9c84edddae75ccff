package service

import "math"

const hoursPerDay = 24.0

// CostModel prices a device's daily electricity draw at a flat USD/kWh rate.
type CostModel struct {
	usdPerKwh float64
}

// NewCostModel creates a cost model with the given electricity rate. A
// negative or non-finite rate is clamped to zero so a malformed config value
// cannot produce a "saves you money" artifact across a whole batch.
func NewCostModel(usdPerKwh float64) *CostModel {
	if usdPerKwh < 0 || math.IsNaN(usdPerKwh) || math.IsInf(usdPerKwh, 0) {
		usdPerKwh = 0
	}
	return &CostModel{usdPerKwh: usdPerKwh}
}

// UsdPerKwh returns the configured electricity rate.
func (m *CostModel) UsdPerKwh() float64 {
	return m.usdPerKwh
}

// DailyElectricityUsd returns the cost of running a device at the given
// wall power for a full day. Zero power is a valid device and costs nothing.
func (m *CostModel) DailyElectricityUsd(powerWatts float64) float64 {
	if powerWatts <= 0 || math.IsNaN(powerWatts) || math.IsInf(powerWatts, 0) {
		return 0
	}
	kwhPerDay := powerWatts / 1000.0 * hoursPerDay
	return kwhPerDay * m.usdPerKwh
}
