package service

import "math"

// EstimateRoiDays computes how many whole days of current profit repay the
// lowest hardware price. The result is nil when the question has no answer:
// unknown price, or non-positive profit (the device never pays itself off).
func EstimateRoiDays(lowestPriceUsd *float64, profitUsdPerDay float64) *int {
	if lowestPriceUsd == nil || profitUsdPerDay <= 0 {
		return nil
	}
	days := int(math.Ceil(*lowestPriceUsd / profitUsdPerDay))
	if days <= 0 {
		return nil
	}
	return &days
}
