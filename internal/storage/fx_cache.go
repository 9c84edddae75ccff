package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rig-profit/internal/types"
)

const fxRatesCacheKey = "fx:rates:usd"

// FxRateCache caches the upstream FX rate table in Redis so repeated runs
// inside the TTL window skip the network fetch.
type FxRateCache struct {
	cache *RedisCache
	ttl   time.Duration
}

// NewFxRateCache creates a new FX rate cache with the given TTL
func NewFxRateCache(cache *RedisCache, ttl time.Duration) *FxRateCache {
	return &FxRateCache{
		cache: cache,
		ttl:   ttl,
	}
}

// Get returns the cached rate table, or found=false on a miss.
func (c *FxRateCache) Get(ctx context.Context) (types.FxRateSet, bool, error) {
	data, err := c.cache.Client().Get(ctx, fxRatesCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read fx rates from cache: %w", err)
	}

	var rates types.FxRateSet
	if err := json.Unmarshal(data, &rates); err != nil {
		// Treat a corrupt entry as a miss so the caller refetches.
		return nil, false, nil
	}
	if len(rates) == 0 {
		return nil, false, nil
	}

	return rates, true, nil
}

// Set stores the rate table under the configured TTL.
func (c *FxRateCache) Set(ctx context.Context, rates types.FxRateSet) error {
	data, err := json.Marshal(rates)
	if err != nil {
		return fmt.Errorf("failed to marshal fx rates: %w", err)
	}

	if err := c.cache.Client().Set(ctx, fxRatesCacheKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write fx rates to cache: %w", err)
	}

	return nil
}
