package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/username/equitytracker/backend/src/logger"
	"golang.org/x/time/rate"
)

// alphaVantageClient implements PriceSource against the Alpha Vantage
// TIME_SERIES_DAILY_ADJUSTED endpoint. The free tier allows 5 requests per
// minute, so outbound calls are paced by a rate limiter shared across the
// fan-out workers.
type alphaVantageClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	timeout    time.Duration
}

// NewAlphaVantageClient creates a PriceSource for the given API endpoint and key.
func NewAlphaVantageClient(baseURL, apiKey string, timeout time.Duration) PriceSource {
	return &alphaVantageClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		limiter:    rate.NewLimiter(rate.Every(13*time.Second), 1),
		timeout:    timeout,
	}
}

// DailyHistory fetches the full daily-adjusted close history for symbol.
// An upstream payload without the "Time Series (Daily)" key means the API has
// no data for the symbol; that is an empty history, not an error.
func (c *alphaVantageClient) DailyHistory(ctx context.Context, symbol string) (map[string]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("function", "TIME_SERIES_DAILY_ADJUSTED")
	query.Set("symbol", symbol)
	query.Set("apikey", c.apiKey)
	requestURL := fmt.Sprintf("%s/query?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: calling price API for %s: %v", ErrFetchFailed, symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: price API returned status %d for %s: %s", ErrFetchFailed, resp.StatusCode, symbol, string(body))
	}

	var payload struct {
		Series map[string]struct {
			Close string `json:"4. close"`
		} `json:"Time Series (Daily)"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: decoding price API response for %s: %v", ErrFetchFailed, symbol, err)
	}

	if payload.Series == nil {
		logger.L.Warn("Price API returned no daily series", "symbol", symbol)
		return map[string]float64{}, nil
	}

	history := make(map[string]float64, len(payload.Series))
	for date, day := range payload.Series {
		close, err := strconv.ParseFloat(day.Close, 64)
		if err != nil {
			logger.L.Warn("Skipping unparseable close price", "symbol", symbol, "date", date, "close", day.Close)
			continue
		}
		history[date] = close
	}
	return history, nil
}
