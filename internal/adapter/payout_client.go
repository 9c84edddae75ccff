// Package adapter provides HTTP clients for the upstream feeds consumed by
// the snapshot engine: the payout-rate provider, reference-price providers
// and the FX rate table.
package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/rig-profit/internal/retry"
	"github.com/rig-profit/internal/types"
)

// flexFloat tolerates upstream JSON that encodes numbers as strings. The
// payout provider mixes both in the same payload.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty number")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		value, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("numeric string %q: %w", s, err)
		}
		*f = flexFloat(value)
		return nil
	}

	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	*f = flexFloat(value)
	return nil
}

// payoutAlgoStats is one per-algorithm entry of the provider's status payload.
type payoutAlgoStats struct {
	Name            string    `json:"name"`
	EstimateCurrent flexFloat `json:"estimate_current"`
	EstimateLast24H flexFloat `json:"estimate_last24h"`
	ActualLast24H   flexFloat `json:"actual_last24h"`
	Coins           int       `json:"coins"`
}

// PayoutRateClient fetches the provider's per-algorithm payout table. One
// fetch serves a whole orchestration run; this client defines no local
// fallback because payout rates have no sensible default.
type PayoutRateClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	retryCfg   *retry.Config
}

// NewPayoutRateClient creates a payout-rate feed client.
func NewPayoutRateClient(baseURL string, timeout time.Duration, requestsPerSecond float64) *PayoutRateClient {
	return &PayoutRateClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		retryCfg:   retry.DefaultConfig(),
	}
}

// FetchAll retrieves the current payout-rate table, keyed by the provider's
// own algorithm naming. The returned timestamp records when the fetch
// succeeded and feeds best-coin confidence scoring.
func (c *PayoutRateClient) FetchAll(ctx context.Context) (types.PayoutRateTable, time.Time, error) {
	var table types.PayoutRateTable

	err := retry.Do(ctx, c.retryCfg, func(ctx context.Context, attempt int) error {
		fetched, err := c.fetchOnce(ctx)
		if err != nil {
			return err
		}
		table = fetched
		return nil
	})
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("payout feed fetch: %w", err)
	}

	return table, time.Now().UTC(), nil
}

func (c *PayoutRateClient) fetchOnce(ctx context.Context) (types.PayoutRateTable, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("payout feed returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading payout feed response: %w", err)
	}

	// The payload is an object keyed by algorithm name, one stats entry each.
	var raw map[string]payoutAlgoStats
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding payout feed response: %w", err)
	}

	table := make(types.PayoutRateTable, len(raw))
	for key, stats := range raw {
		rate := float64(stats.EstimateCurrent)
		// Entries that publish no usable estimate are omitted entirely:
		// a missing entry means "revenue unknown", not zero revenue.
		if rate <= 0 {
			continue
		}
		table[key] = rate
	}

	return table, nil
}
