package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rig-profit/internal/retry"
	"github.com/rig-profit/internal/types"
)

// FxRatesClient fetches a units-per-USD rate table from an open exchange-rate
// API.
type FxRatesClient struct {
	url        string
	httpClient *http.Client
	retryCfg   *retry.Config
}

// NewFxRatesClient creates an FX rate-table client.
func NewFxRatesClient(url string, timeout time.Duration) *FxRatesClient {
	return &FxRatesClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		retryCfg:   retry.DefaultConfig(),
	}
}

// LatestRates retrieves the current currency -> units-per-USD table.
func (c *FxRatesClient) LatestRates(ctx context.Context) (types.FxRateSet, error) {
	var rates types.FxRateSet

	err := retry.Do(ctx, c.retryCfg, func(ctx context.Context, attempt int) error {
		fetched, err := c.fetchOnce(ctx)
		if err != nil {
			return err
		}
		rates = fetched
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fx rates fetch: %w", err)
	}

	return rates, nil
}

func (c *FxRatesClient) fetchOnce(ctx context.Context) (types.FxRateSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fx provider returned status %d", resp.StatusCode)
	}

	// {"result":"success","base_code":"USD","rates":{"USD":1,"EUR":0.92,...}}
	var payload struct {
		Result string             `json:"result"`
		Rates  map[string]float64 `json:"rates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding fx response: %w", err)
	}

	if payload.Result != "" && payload.Result != "success" {
		return nil, fmt.Errorf("fx provider result %q", payload.Result)
	}
	if len(payload.Rates) == 0 {
		return nil, fmt.Errorf("fx provider returned an empty rate table")
	}

	return types.FxRateSet(payload.Rates), nil
}
