package datasource

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/uri157/exchange-simulator/internal/core"
)

// barRow is the wire shape this source expects a remote klines endpoint to
// return: one JSON object per bar.
type barRow struct {
	OpenTimeMs  int64   `json:"open_time_ms"`
	CloseTimeMs int64   `json:"close_time_ms"`
	Open        float64 `json:"open,string"`
	High        float64 `json:"high,string"`
	Low         float64 `json:"low,string"`
	Close       float64 `json:"close,string"`
	Volume      float64 `json:"volume,string"`
}

// HTTP fetches bars from a remote klines endpoint (§6.1's data source
// collaborator: "bars can be sourced from a CSV file or an HTTP history
// API"). Wraps a resty client with retry-on-5xx, grounded on the
// 0xtitan6-polymarket-mm exchange client's construction pattern.
type HTTP struct {
	client *resty.Client
}

// NewHTTP builds an HTTP source pointed at baseURL.
func NewHTTP(baseURL string) *HTTP {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() >= 500
		})
	return &HTTP{client: c}
}

// LoadBars implements replay.Source.
func (h *HTTP) LoadBars(ctx context.Context, symbol, interval string, startMs, endMs int64) ([]core.Bar, error) {
	var rows []barRow
	resp, err := h.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"interval": interval,
			"startMs":  fmt.Sprintf("%d", startMs),
			"endMs":    fmt.Sprintf("%d", endMs),
		}).
		SetResult(&rows).
		Get("/klines")
	if err != nil {
		return nil, fmt.Errorf("datasource: fetch klines: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("datasource: fetch klines: status %d: %s", resp.StatusCode(), resp.String())
	}

	out := make([]core.Bar, 0, len(rows))
	for _, r := range rows {
		out = append(out, core.Bar{
			Symbol:      symbol,
			OpenTimeMs:  r.OpenTimeMs,
			CloseTimeMs: r.CloseTimeMs,
			Open:        r.Open,
			High:        r.High,
			Low:         r.Low,
			Close:       r.Close,
			Volume:      r.Volume,
		})
	}
	return out, nil
}
