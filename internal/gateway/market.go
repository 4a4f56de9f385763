package gateway

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// handleServerTime reports the engine clock, falling back to wall-clock
// time before the first bar has advanced it.
func (s *Server) handleServerTime(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UnixMilli()
	s.mu.Lock()
	if clock := s.engine.ClockMs(); clock > 0 {
		now = clock
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int64{"serverTime": now})
}

// handleKlines serves the bars currently loaded into the replayer,
// optionally narrowed by startTime/endTime/limit (§6.1).
func (s *Server) handleKlines(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	startMs, _ := strconv.ParseInt(r.URL.Query().Get("startTime"), 10, 64)
	endMs, _ := strconv.ParseInt(r.URL.Query().Get("endTime"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 500
	}

	bars := s.replayer.Bars()
	out := make([][]any, 0, limit)
	for _, b := range bars {
		if symbol != "" && b.Symbol != symbol {
			continue
		}
		if startMs > 0 && b.OpenTimeMs < startMs {
			continue
		}
		if endMs > 0 && b.OpenTimeMs > endMs {
			continue
		}
		out = append(out, []any{
			b.OpenTimeMs, fmt8(b.Open), fmt8(b.High), fmt8(b.Low), fmt8(b.Close), fmt8(b.Volume), b.CloseTimeMs,
		})
		if len(out) >= limit {
			break
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePremiumIndex reports mark price as the last traded price (§6.1:
// "no separate mark-price curve; mark = last_price").
func (s *Server) handlePremiumIndex(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))

	s.mu.Lock()
	price, ok := s.engine.LastPrice(symbol)
	now := s.engine.ClockMs()
	s.mu.Unlock()

	if !ok {
		price = 0
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":          symbol,
		"markPrice":       fmt8(price),
		"indexPrice":      fmt8(price),
		"lastFundingRate": "0.00000000",
		"time":            now,
	})
}

// handleExchangeInfo reports a single-symbol PERPETUAL listing with
// placeholder PRICE_FILTER/LOT_SIZE filters (§6.1, grounded on
// original_source/gateway/api/routes_meta.py's exchangeInfo). The
// simulator has no tick/step-size model (§2 Non-goals: no real
// order-book depth), so the filters are fixed defaults rather than
// read from a symbol-metadata store.
func (s *Server) handleExchangeInfo(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))
	if symbol == "" {
		symbol = s.replayer.Symbol()
	}
	base, quote := symbol, "USDT"
	if strings.HasSuffix(symbol, "USDT") {
		base, quote = strings.TrimSuffix(symbol, "USDT"), "USDT"
	}

	s.mu.Lock()
	now := s.engine.ClockMs()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"timezone":   "UTC",
		"serverTime": now,
		"symbols": []map[string]any{
			{
				"symbol":       symbol,
				"pair":         symbol,
				"status":       "TRADING",
				"contractType": "PERPETUAL",
				"baseAsset":    base,
				"quoteAsset":   quote,
				"filters": []map[string]any{
					{"filterType": "PRICE_FILTER", "tickSize": "0.10000000"},
					{"filterType": "LOT_SIZE", "stepSize": "0.00010000"},
				},
			},
		},
	})
}

// bookTickerSpreadFraction is the synthetic bid/ask half-spread used by
// handleBookTicker, matching the fixed 0.02% fallback in
// original_source/gateway/api/routes_orders.py's book_ticker (the engine
// keeps no live L1 book; this is a display-only synthetic quote, distinct
// from fillmodel.L1BookTicker's intrabar matching heuristic).
const bookTickerSpreadFraction = 0.0002

// handleBookTicker reports a synthetic bid/ask straddling last_price
// (§6.1, grounded on original_source/gateway/api/routes_orders.py's
// book_ticker).
func (s *Server) handleBookTicker(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))

	s.mu.Lock()
	price, ok := s.engine.LastPrice(symbol)
	s.mu.Unlock()
	if !ok {
		price = 0
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":   symbol,
		"bidPrice": fmt8(price * (1 - bookTickerSpreadFraction)),
		"bidQty":   "1.00000000",
		"askPrice": fmt8(price * (1 + bookTickerSpreadFraction)),
		"askQty":   "1.00000000",
	})
}

// handleFundingRate reports the funding schedule applied so far. The
// engine applies a cumulative rate at bar close (§4.6) rather than
// tracking per-event history, so this surfaces the account's running
// total rather than a per-event list.
func (s *Server) handleFundingRate(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))

	s.mu.Lock()
	acct := s.engine.Account()
	now := s.engine.ClockMs()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, []map[string]any{
		{
			"symbol":      symbol,
			"fundingTime": now,
			"fundingRate": fmt8(acct.TotalFunding),
		},
	})
}
