// Package quotes supplies market data for tradable assets: a CoinGecko
// client and a cron-driven refresher that keeps a last-known-good snapshot.
package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/papertrade/trading-engine/internal/model"
)

// ErrQuoteFetch wraps any network or parse failure from the quote API.
// Callers keep serving the previous snapshot when they see it.
var ErrQuoteFetch = errors.New("quote fetch failed")

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Client fetches market data from the CoinGecko API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a quote client. An empty baseURL selects the public
// CoinGecko endpoint.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// marketRow is one entry of the /coins/markets response. Prices arrive as
// JSON numbers; they are converted to decimal at the boundary.
type marketRow struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	CurrentPrice             float64 `json:"current_price"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	MarketCap                float64 `json:"market_cap"`
	TotalVolume              float64 `json:"total_volume"`
	Image                    string  `json:"image"`
}

// FetchQuotes returns one Quote per tradable asset, ordered by market cap.
func (c *Client) FetchQuotes(ctx context.Context) ([]model.Quote, error) {
	url := c.baseURL + "/coins/markets?vs_currency=usd&order=market_cap_desc&per_page=50&page=1&price_change_percentage=24h"

	var rows []marketRow
	if err := c.getJSON(ctx, url, &rows); err != nil {
		return nil, err
	}

	qs := make([]model.Quote, 0, len(rows))
	for _, row := range rows {
		qs = append(qs, model.Quote{
			AssetID:          row.ID,
			Symbol:           strings.ToUpper(row.Symbol),
			Name:             row.Name,
			Price:            decimal.NewFromFloat(row.CurrentPrice),
			ChangePercent24h: decimal.NewFromFloat(row.PriceChangePercentage24h),
			MarketCap:        decimal.NewFromFloat(row.MarketCap),
			Volume24h:        decimal.NewFromFloat(row.TotalVolume),
			Image:            row.Image,
		})
	}
	return qs, nil
}

// chartResponse is the /coins/{id}/market_chart response: prices as
// [unix_ms, price] pairs.
type chartResponse struct {
	Prices [][2]float64 `json:"prices"`
}

// FetchHistory returns the asset's price series over the given number of days.
func (c *Client) FetchHistory(ctx context.Context, assetID string, days int) ([]model.PricePoint, error) {
	url := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d", c.baseURL, assetID, days)

	var chart chartResponse
	if err := c.getJSON(ctx, url, &chart); err != nil {
		return nil, err
	}

	points := make([]model.PricePoint, 0, len(chart.Prices))
	for _, pair := range chart.Prices {
		points = append(points, model.PricePoint{
			Timestamp: time.UnixMilli(int64(pair[0])).UTC(),
			Price:     decimal.NewFromFloat(pair[1]),
		})
	}
	return points, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQuoteFetch, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQuoteFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrQuoteFetch, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrQuoteFetch, err)
	}
	return nil
}
