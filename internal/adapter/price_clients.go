package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// CoinGeckoClient fetches the reference price from CoinGecko's simple-price API.
type CoinGeckoClient struct {
	baseURL    string
	coinID     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewCoinGeckoClient creates a CoinGecko price client for the given coin id.
func NewCoinGeckoClient(baseURL string, timeout time.Duration, requestsPerSecond float64) *CoinGeckoClient {
	return &CoinGeckoClient{
		baseURL:    baseURL,
		coinID:     "bitcoin",
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Name identifies this provider in persisted price records.
func (c *CoinGeckoClient) Name() string {
	return "coingecko"
}

// FetchUSD retrieves the current USD spot price.
func (c *CoinGeckoClient) FetchUSD(ctx context.Context) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/simple/price?ids=%s&vs_currencies=usd", c.baseURL, c.coinID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	// {"bitcoin":{"usd":60000}}
	var payload map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decoding coingecko response: %w", err)
	}

	price, ok := payload[c.coinID]["usd"]
	if !ok || price <= 0 {
		return 0, fmt.Errorf("coingecko returned no usable price for %s", c.coinID)
	}

	return price, nil
}

// CoinbaseClient fetches the reference price from Coinbase's spot price API.
type CoinbaseClient struct {
	baseURL    string
	pair       string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewCoinbaseClient creates a Coinbase spot price client.
func NewCoinbaseClient(baseURL string, timeout time.Duration, requestsPerSecond float64) *CoinbaseClient {
	return &CoinbaseClient{
		baseURL:    baseURL,
		pair:       "BTC-USD",
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// Name identifies this provider in persisted price records.
func (c *CoinbaseClient) Name() string {
	return "coinbase"
}

// FetchUSD retrieves the current USD spot price.
func (c *CoinbaseClient) FetchUSD(ctx context.Context) (float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s/prices/%s/spot", c.baseURL, c.pair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("coinbase returned status %d", resp.StatusCode)
	}

	// {"data":{"base":"BTC","currency":"USD","amount":"60000.00"}}
	var payload struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("decoding coinbase response: %w", err)
	}

	price, err := strconv.ParseFloat(payload.Data.Amount, 64)
	if err != nil {
		return 0, fmt.Errorf("coinbase amount %q: %w", payload.Data.Amount, err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("coinbase returned non-positive price %g", price)
	}

	return price, nil
}
