package service

import (
	"sort"
	"time"

	"github.com/rig-profit/internal/config"
	"github.com/rig-profit/internal/models"
	"github.com/rig-profit/internal/types"
)

// BestCoinSelector ranks the coins mineable on a device's algorithm and
// picks one with a confidence score and a human-readable reason. Selection
// is deterministic for identical inputs so historical snapshots can be
// reproduced.
type BestCoinSelector struct {
	cfg config.BestCoinConfig
}

// NewBestCoinSelector creates a selector with the given scoring policy
func NewBestCoinSelector(cfg config.BestCoinConfig) *BestCoinSelector {
	return &BestCoinSelector{cfg: cfg}
}

// BestCoinChoice is the selector's output for one device.
type BestCoinChoice struct {
	CoinID     string
	Confidence int
	Reason     string
}

// Select picks the best coin for the given algorithm rate. All candidate
// coins share the device's algorithm, so they share one payout rate; the
// tie-break is the lexically smallest coin ID, which keeps the choice
// stable across runs. Returns nil when no coins are mineable.
func (s *BestCoinSelector) Select(
	coins []*models.Coin,
	priceSource types.PriceSource,
	rateFetchedAt time.Time,
	now time.Time,
) *BestCoinChoice {
	if len(coins) == 0 {
		return nil
	}

	ranked := make([]*models.Coin, len(coins))
	copy(ranked, coins)
	sort.Slice(ranked, func(i, j int) bool {
		return ranked[i].ID < ranked[j].ID
	})
	chosen := ranked[0]

	confidence := s.cfg.BaseConfidence
	stalePrice := priceSource == types.PriceSourceFallback
	staleRate := now.Sub(rateFetchedAt) > s.cfg.RateAgeThreshold

	if stalePrice {
		confidence -= s.cfg.StalePricePenalty
	}
	if staleRate {
		confidence -= s.cfg.StaleRatePenalty
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 100 {
		confidence = 100
	}

	var reason string
	switch {
	case len(coins) == 1:
		reason = "only mineable coin with known pricing"
	case stalePrice:
		reason = "highest network payout rate, priced from last known good reference"
	default:
		reason = "highest network payout rate currently available"
	}

	return &BestCoinChoice{
		CoinID:     chosen.ID,
		Confidence: confidence,
		Reason:     reason,
	}
}
