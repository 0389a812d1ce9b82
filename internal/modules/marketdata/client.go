// Package marketdata fetches and caches historical price series.
//
// The provider client and the TTL cache are explicit, injected objects; no
// package-level mutable state is involved.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HistoryProvider is the contract the optimization orchestrator consumes.
// Implementations should return an empty or partial series on data gaps
// rather than an error where possible.
type HistoryProvider interface {
	GetHistoricalPrices(ctx context.Context, symbol, period, interval string) (PriceSeries, error)
}

// Client fetches historical OHLCV data from the quote provider's chart API.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     zerolog.Logger
}

// NewClient creates a new market data client. requestsPerSecond bounds the
// request rate against the upstream provider.
func NewClient(baseURL string, requestsPerSecond float64, log zerolog.Logger) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 4.0
	}
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		log:     log.With().Str("component", "marketdata_client").Logger(),
	}
}

// GetHistoricalPrices fetches daily historical bars for a symbol.
//
// Supports periods: 1d, 5d, 1mo, 3mo, 6mo, 1y, 2y, 5y, 10y, ytd, max
func (c *Client) GetHistoricalPrices(ctx context.Context, symbol, period, interval string) (PriceSeries, error) {
	if interval == "" {
		interval = "1d"
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return PriceSeries{Symbol: symbol}, fmt.Errorf("rate limiter wait: %w", err)
	}

	params := url.Values{}
	params.Add("interval", interval)
	params.Add("range", period)
	reqURL := c.baseURL + "/v8/finance/chart/" + url.QueryEscape(symbol) + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return PriceSeries{Symbol: symbol}, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return PriceSeries{Symbol: symbol}, fmt.Errorf("failed to fetch historical data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return PriceSeries{Symbol: symbol}, fmt.Errorf("quote provider returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return PriceSeries{Symbol: symbol}, fmt.Errorf("failed to read response body: %w", err)
	}

	var result struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Open   []float64 `json:"open"`
						High   []float64 `json:"high"`
						Low    []float64 `json:"low"`
						Close  []float64 `json:"close"`
						Volume []int64   `json:"volume"`
					} `json:"quote"`
				} `json:"indicators"`
			} `json:"result"`
			Error interface{} `json:"error"`
		} `json:"chart"`
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return PriceSeries{Symbol: symbol}, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Chart.Error != nil {
		return PriceSeries{Symbol: symbol}, fmt.Errorf("quote provider error: %v", result.Chart.Error)
	}

	if len(result.Chart.Result) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No historical data returned")
		return PriceSeries{Symbol: symbol}, nil
	}

	chartData := result.Chart.Result[0]
	if len(chartData.Indicators.Quote) == 0 {
		c.log.Warn().Str("symbol", symbol).Msg("No quote data in response")
		return PriceSeries{Symbol: symbol}, nil
	}

	quote := chartData.Indicators.Quote[0]
	prices := make([]HistoricalPrice, 0, len(chartData.Timestamp))
	for i := range chartData.Timestamp {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Close) {
			continue
		}

		// The provider sometimes returns all-zero rows for market holidays
		if quote.Open[i] == 0 && quote.High[i] == 0 && quote.Low[i] == 0 && quote.Close[i] == 0 {
			continue
		}

		volume := int64(0)
		if i < len(quote.Volume) {
			volume = quote.Volume[i]
		}

		prices = append(prices, HistoricalPrice{
			Date:   time.Unix(chartData.Timestamp[i], 0).UTC(),
			Open:   quote.Open[i],
			High:   quote.High[i],
			Low:    quote.Low[i],
			Close:  quote.Close[i],
			Volume: volume,
		})
	}

	c.log.Debug().
		Str("symbol", symbol).
		Str("period", period).
		Int("count", len(prices)).
		Msg("Fetched historical prices")

	return PriceSeries{Symbol: symbol, Prices: prices}, nil
}
