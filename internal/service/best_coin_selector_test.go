package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rig-profit/internal/config"
	"github.com/rig-profit/internal/models"
	"github.com/rig-profit/internal/types"
)

func testBestCoinConfig() config.BestCoinConfig {
	return config.BestCoinConfig{
		BaseConfidence:    100,
		StalePricePenalty: 25,
		StaleRatePenalty:  15,
		RateAgeThreshold:  30 * time.Minute,
	}
}

func coin(id, symbol string) *models.Coin {
	return &models.Coin{ID: id, Symbol: symbol, Name: symbol, AlgorithmKey: "sha256"}
}

func TestBestCoinSelector_FullConfidenceOnFreshInputs(t *testing.T) {
	selector := NewBestCoinSelector(testBestCoinConfig())
	now := time.Now()

	choice := selector.Select(
		[]*models.Coin{coin("btc", "BTC"), coin("bch", "BCH")},
		types.PriceSourceLive,
		now.Add(-time.Minute),
		now,
	)

	require.NotNil(t, choice)
	assert.Equal(t, "bch", choice.CoinID)
	assert.Equal(t, 100, choice.Confidence)
	assert.Equal(t, "highest network payout rate currently available", choice.Reason)
}

func TestBestCoinSelector_PenalizesStaleInputs(t *testing.T) {
	selector := NewBestCoinSelector(testBestCoinConfig())
	now := time.Now()
	coins := []*models.Coin{coin("btc", "BTC"), coin("bch", "BCH")}

	t.Run("stale price", func(t *testing.T) {
		choice := selector.Select(coins, types.PriceSourceFallback, now.Add(-time.Minute), now)
		require.NotNil(t, choice)
		assert.Equal(t, 75, choice.Confidence)
		assert.Contains(t, choice.Reason, "last known good")
	})

	t.Run("stale rate", func(t *testing.T) {
		choice := selector.Select(coins, types.PriceSourceLive, now.Add(-time.Hour), now)
		require.NotNil(t, choice)
		assert.Equal(t, 85, choice.Confidence)
	})

	t.Run("both stale", func(t *testing.T) {
		choice := selector.Select(coins, types.PriceSourceFallback, now.Add(-time.Hour), now)
		require.NotNil(t, choice)
		assert.Equal(t, 60, choice.Confidence)
	})
}

func TestBestCoinSelector_SingleCoinReason(t *testing.T) {
	selector := NewBestCoinSelector(testBestCoinConfig())
	now := time.Now()

	choice := selector.Select([]*models.Coin{coin("btc", "BTC")}, types.PriceSourceLive, now, now)
	require.NotNil(t, choice)
	assert.Equal(t, "only mineable coin with known pricing", choice.Reason)
}

func TestBestCoinSelector_NoCoins(t *testing.T) {
	selector := NewBestCoinSelector(testBestCoinConfig())
	assert.Nil(t, selector.Select(nil, types.PriceSourceLive, time.Now(), time.Now()))
}

func TestBestCoinSelector_Deterministic(t *testing.T) {
	selector := NewBestCoinSelector(testBestCoinConfig())
	now := time.Now()
	coins := []*models.Coin{coin("zec", "ZEC"), coin("btc", "BTC"), coin("bch", "BCH")}

	first := selector.Select(coins, types.PriceSourceLive, now, now)
	require.NotNil(t, first)
	for i := 0; i < 10; i++ {
		again := selector.Select(coins, types.PriceSourceLive, now, now)
		require.NotNil(t, again)
		assert.Equal(t, first.CoinID, again.CoinID)
		assert.Equal(t, first.Confidence, again.Confidence)
	}
}

func TestBestCoinSelector_ConfidenceClampedToZero(t *testing.T) {
	cfg := testBestCoinConfig()
	cfg.BaseConfidence = 30
	selector := NewBestCoinSelector(cfg)
	now := time.Now()

	choice := selector.Select(
		[]*models.Coin{coin("btc", "BTC")},
		types.PriceSourceFallback,
		now.Add(-2*time.Hour),
		now,
	)
	require.NotNil(t, choice)
	assert.Equal(t, 0, choice.Confidence)
}
