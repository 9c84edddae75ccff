// Package pricing resolves the reference-currency spot price with a durable
// last-known-good fallback.
package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rig-profit/internal/circuitbreaker"
	engineerrors "github.com/rig-profit/internal/errors"
	"github.com/rig-profit/internal/logging"
	"github.com/rig-profit/internal/models"
	"github.com/rig-profit/internal/types"
)

// LastGoodPriceKey is the settings slot holding the last successfully fetched
// reference price. This is durable fallback state, not a cache: it must
// survive process restarts.
const LastGoodPriceKey = "reference_price.last_good"

// SettingsStore is the durable key/value collaborator used for the fallback
// slot. Writes are last-write-wins; only this one key is touched here.
type SettingsStore interface {
	GetSetting(ctx context.Context, key string) (string, bool, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Provider fetches the current USD spot price of the reference coin that
// payout rates are denominated in.
type Provider interface {
	Name() string
	FetchUSD(ctx context.Context) (float64, error)
}

// Resolver fetches the reference price from a prioritized provider list,
// degrading to the persisted last-known-good value when every live tier fails.
// Each provider sits behind a circuit breaker so one that is hard down gets
// short-circuited instead of eating a request timeout every run.
type Resolver struct {
	providers []Provider
	breakers  []*circuitbreaker.CircuitBreaker
	settings  SettingsStore
	logger    *logging.Logger
}

// NewResolver creates a reference price resolver. Providers are tried in
// order; the first success wins.
func NewResolver(providers []Provider, settings SettingsStore, logger *logging.Logger) *Resolver {
	breakers := make([]*circuitbreaker.CircuitBreaker, len(providers))
	for i, provider := range providers {
		breakers[i] = circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig(provider.Name()))
	}

	return &Resolver{
		providers: providers,
		breakers:  breakers,
		settings:  settings,
		logger:    logger,
	}
}

// Result carries the resolved price and which tier produced it.
type Result struct {
	Price  models.ReferencePrice
	Source types.PriceSource
}

// Resolve returns the current reference price. A successful live fetch is
// persisted best-effort before returning: a persistence failure degrades the
// next outage, not this resolve. When all live providers fail, the persisted
// value is returned unmodified with its originally recorded source. Resolve
// fails only when both tiers are unusable.
func (r *Resolver) Resolve(ctx context.Context) (*Result, error) {
	price, liveErr := r.fetchLive(ctx)
	if liveErr == nil {
		r.persist(ctx, price)
		return &Result{Price: price, Source: types.PriceSourceLive}, nil
	}

	r.logger.WithField("error", liveErr.Error()).Warn("Live reference price fetch failed, trying fallback")

	fallback, ok, err := r.readFallback(ctx)
	if err != nil {
		return nil, engineerrors.NewPriceUnavailableError(
			fmt.Errorf("live fetch failed (%v) and fallback read failed: %w", liveErr, err))
	}
	if !ok {
		return nil, engineerrors.NewPriceUnavailableError(
			fmt.Errorf("live fetch failed and no fallback is persisted: %w", liveErr))
	}

	return &Result{Price: fallback, Source: types.PriceSourceFallback}, nil
}

// fetchLive tries each provider in priority order.
func (r *Resolver) fetchLive(ctx context.Context) (models.ReferencePrice, error) {
	var lastErr error
	for i, provider := range r.providers {
		var usd float64
		err := r.breakers[i].Execute(ctx, func(ctx context.Context) error {
			value, err := provider.FetchUSD(ctx)
			if err != nil {
				return err
			}
			if value <= 0 {
				return fmt.Errorf("non-positive price %g", value)
			}
			usd = value
			return nil
		})
		if err != nil {
			lastErr = fmt.Errorf("%s: %w", provider.Name(), err)
			r.logger.WithFields(map[string]interface{}{
				"provider": provider.Name(),
				"error":    err.Error(),
			}).Warn("Reference price provider failed")
			continue
		}

		return models.ReferencePrice{
			UsdValue:  usd,
			Source:    provider.Name(),
			FetchedAt: time.Now().UTC(),
		}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no reference price providers configured")
	}
	return models.ReferencePrice{}, lastErr
}

// persist writes the fresh price to the settings slot. Best effort: the
// previous value stays in place unless this write succeeds.
func (r *Resolver) persist(ctx context.Context, price models.ReferencePrice) {
	encoded, err := json.Marshal(price)
	if err != nil {
		r.logger.WithField("error", err.Error()).Error("Failed to encode reference price for persistence")
		return
	}

	if err := r.settings.SetSetting(ctx, LastGoodPriceKey, string(encoded)); err != nil {
		r.logger.WithField("error", err.Error()).Warn("Failed to persist reference price, keeping previous fallback")
	}
}

// readFallback loads the persisted last-known-good price.
func (r *Resolver) readFallback(ctx context.Context) (models.ReferencePrice, bool, error) {
	value, ok, err := r.settings.GetSetting(ctx, LastGoodPriceKey)
	if err != nil {
		return models.ReferencePrice{}, false, err
	}
	if !ok {
		return models.ReferencePrice{}, false, nil
	}

	var price models.ReferencePrice
	if err := json.Unmarshal([]byte(value), &price); err != nil {
		return models.ReferencePrice{}, false, fmt.Errorf("decoding persisted price: %w", err)
	}
	if price.UsdValue <= 0 {
		return models.ReferencePrice{}, false, nil
	}

	return price, true, nil
}
