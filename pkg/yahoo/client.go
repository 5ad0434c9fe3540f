package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"stockfeed/config"
	"stockfeed/internal/ingest"

	"github.com/shopspring/decimal"
)

// Client fetches 1-minute OHLCV bars from the Yahoo Finance chart API.
// It implements ingest.BarProvider.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(cfg config.ProviderConfig) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// GetBars requests 1-minute bars for symbol over [start, end). An empty
// response for a non-trading period yields zero bars and no error.
func (c *Client) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]ingest.PriceBar, error) {
	endpoint := fmt.Sprintf(
		"%s/v8/finance/chart/%s?interval=1m&period1=%d&period2=%d",
		c.baseURL,
		url.PathEscape(symbol),
		start.Unix(),
		end.Unix(),
	)

	// Construct the GET request with context for timeout/cancel support
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// Yahoo rejects requests without a browser-ish user agent
	req.Header.Set("User-Agent", "Mozilla/5.0")

	// Execute the HTTP request
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	// Check HTTP status code
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("yahoo error: status %d, body: %s", resp.StatusCode, body)
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s: %s",
			chart.Chart.Error.Code, chart.Chart.Error.Description)
	}

	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo: empty result set")
	}

	return parseBars(symbol, chart.Chart.Result[0]), nil
}

// parseBars converts one chart result into PriceBars, dropping minutes where
// any OHLCV point is null (untraded minutes, trimmed sessions).
func parseBars(symbol string, result chartResult) []ingest.PriceBar {
	if len(result.Timestamp) == 0 || len(result.Indicators.Quote) == 0 {
		return nil
	}

	q := result.Indicators.Quote[0]
	bars := make([]ingest.PriceBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if i >= len(q.Open) || i >= len(q.High) || i >= len(q.Low) || i >= len(q.Close) || i >= len(q.Volume) {
			break
		}
		if q.Open[i] == nil || q.High[i] == nil || q.Low[i] == nil || q.Close[i] == nil || q.Volume[i] == nil {
			continue
		}

		bars = append(bars, ingest.PriceBar{
			Symbol:    symbol,
			Timestamp: time.Unix(ts, 0).UTC(),
			Open:      decimal.NewFromFloat(*q.Open[i]),
			High:      decimal.NewFromFloat(*q.High[i]),
			Low:       decimal.NewFromFloat(*q.Low[i]),
			Close:     decimal.NewFromFloat(*q.Close[i]),
			Volume:    *q.Volume[i],
		})
	}

	return bars
}
