package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/uri157/exchange-simulator/internal/core"
	"github.com/uri157/exchange-simulator/internal/engine"
	"github.com/uri157/exchange-simulator/internal/fillmodel"
	"github.com/uri157/exchange-simulator/internal/replay"
)

type fakeSource struct{ bars []core.Bar }

func (f *fakeSource) LoadBars(ctx context.Context, symbol, interval string, startMs, endMs int64) ([]core.Bar, error) {
	return f.bars, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	eng := engine.New(context.Background(), engine.Config{
		StartingBalance: 10000,
		MakerFee:        0.0002,
		TakerFee:        0.0004,
		FillModel:       fillmodel.OHLCPath{UpFirst: true},
		Logger:          zerolog.Nop(),
	}, "gateway-test-run")

	bars := []core.Bar{{Symbol: "BTCUSDT", OpenTimeMs: 0, CloseTimeMs: 900, Open: 100, High: 105, Low: 95, Close: 102}}
	if err := eng.OnBar(bars[0]); err != nil {
		t.Fatalf("OnBar: %v", err)
	}

	rp := replay.New(&fakeSource{bars: bars}, nil)
	rp.SetParams(replay.Params{Symbol: "BTCUSDT", Interval: "15m"})

	var mu sync.Mutex
	return New(Config{
		Engine:       eng,
		Replayer:     rp,
		Mutex:        &mu,
		Logger:       zerolog.Nop(),
		JWTSecret:    "test-secret",
		ListenKeyTTL: time.Minute,
	})
}

func TestHandlePlaceOrderFillsMarketOrderImmediately(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{"symbol": {"BTCUSDT"}, "side": {"BUY"}, "type": {"MARKET"}, "quantity": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/fapi/v1/order", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp orderResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "FILLED" {
		t.Fatalf("expected FILLED, got %q", resp.Status)
	}
}

func TestHandlePlaceOrderAcceptsJSONBody(t *testing.T) {
	s := newTestServer(t)

	body := strings.NewReader(`{"symbol":"BTCUSDT","side":"BUY","type":"MARKET","quantity":1}`)
	req := httptest.NewRequest(http.MethodPost, "/fapi/v1/order", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp orderResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Status != "FILLED" {
		t.Fatalf("expected FILLED, got %q", resp.Status)
	}
	if resp.Symbol != "BTCUSDT" {
		t.Fatalf("expected the JSON body's symbol to be read, got %q", resp.Symbol)
	}
}

func TestHandlePlaceOrderJSONBodyTakesPrecedenceOverQuery(t *testing.T) {
	s := newTestServer(t)

	body := strings.NewReader(`{"symbol":"BTCUSDT","side":"BUY","type":"MARKET","quantity":1}`)
	req := httptest.NewRequest(http.MethodPost, "/fapi/v1/order?quantity=99", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp orderResp
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.OrigQty != "1.00000000" {
		t.Fatalf("expected the JSON body's quantity to win over the query string, got %q", resp.OrigQty)
	}
}

func TestHandlePlaceOrderRejectsInvalidParamsWithBinanceCode(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{"symbol": {"BTCUSDT"}, "side": {"BUY"}, "type": {"MARKET"}, "quantity": {"0"}}
	req := httptest.NewRequest(http.MethodPost, "/fapi/v1/order", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp exchangeError
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != -1102 {
		t.Fatalf("expected Binance code -1102, got %d", resp.Code)
	}
}

func TestHandleCancelOrderUnknownReturnsDashCode(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodDelete, "/fapi/v1/order?orderId=999", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp exchangeError
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Code != -2011 {
		t.Fatalf("expected Binance code -2011, got %d", resp.Code)
	}
}

func TestHandleOpenOrdersFiltersBySymbol(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{"symbol": {"BTCUSDT"}, "side": {"BUY"}, "type": {"LIMIT"}, "price": {"50"}, "quantity": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/fapi/v1/order", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	s.router.ServeHTTP(httptest.NewRecorder(), req)

	req2 := httptest.NewRequest(http.MethodGet, "/fapi/v1/openOrders?symbol=BTCUSDT", nil)
	rec2 := httptest.NewRecorder()
	s.router.ServeHTTP(rec2, req2)

	var orders []orderResp
	if err := json.Unmarshal(rec2.Body.Bytes(), &orders); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 open order, got %d", len(orders))
	}
}

func TestHandleServerTimeReturnsEngineClock(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/fapi/v1/time", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ServerTime != 900 {
		t.Fatalf("expected the engine clock 900 (close of the first bar), got %d", resp.ServerTime)
	}
}

func TestHandleListenKeyLifecycle(t *testing.T) {
	s := newTestServer(t)

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/fapi/v1/listenKey", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 creating a listenKey, got %d", rec.Code)
	}
	var created map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	key := created["listenKey"]
	if key == "" {
		t.Fatalf("expected a non-empty listenKey")
	}

	rec2 := httptest.NewRecorder()
	s.router.ServeHTTP(rec2, httptest.NewRequest(http.MethodPut, "/fapi/v1/listenKey?listenKey="+key, nil))
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on keepalive, got %d: %s", rec2.Code, rec2.Body.String())
	}

	rec3 := httptest.NewRecorder()
	s.router.ServeHTTP(rec3, httptest.NewRequest(http.MethodDelete, "/fapi/v1/listenKey?listenKey="+key, nil))
	if rec3.Code != http.StatusOK {
		t.Fatalf("expected 200 on close, got %d", rec3.Code)
	}
}

func TestHandleKlinesServesLoadedBars(t *testing.T) {
	s := newTestServer(t)

	// Bars() is empty until a stream has loaded the window.
	bars, errc := s.replayer.Stream(context.Background())
	for range bars {
	}
	if err := <-errc; err != nil {
		t.Fatalf("Stream: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/fapi/v1/klines?symbol=BTCUSDT", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var rows [][]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 kline row, got %d", len(rows))
	}
}

func TestHandleExchangeInfoDefaultsSymbolFromReplayerAndSplitsAssets(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/fapi/v1/exchangeInfo", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Symbols []map[string]any `json:"symbols"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Symbols) != 1 {
		t.Fatalf("expected 1 symbol, got %d", len(resp.Symbols))
	}
	sym := resp.Symbols[0]
	if sym["symbol"] != "BTCUSDT" {
		t.Fatalf("expected the default symbol from the replayer's params, got %v", sym["symbol"])
	}
	if sym["baseAsset"] != "BTC" || sym["quoteAsset"] != "USDT" {
		t.Fatalf("expected baseAsset/quoteAsset split from the symbol, got %v/%v", sym["baseAsset"], sym["quoteAsset"])
	}
	if sym["contractType"] != "PERPETUAL" {
		t.Fatalf("expected contractType PERPETUAL, got %v", sym["contractType"])
	}
}

func TestHandleBookTickerStraddlesLastPrice(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/fapi/v1/ticker/bookTicker?symbol=BTCUSDT", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["bidPrice"] != "101.97960000" {
		t.Fatalf("expected a bid 0.02%% below last_price 102, got %v", resp["bidPrice"])
	}
	if resp["askPrice"] != "102.02040000" {
		t.Fatalf("expected an ask 0.02%% above last_price 102, got %v", resp["askPrice"])
	}
}

func TestHandleAdminStatusReportsClock(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/admin/status", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		ClockMs int64 `json:"clockMs"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.ClockMs != 900 {
		t.Fatalf("expected clockMs 900 (close of the first bar), got %d", resp.ClockMs)
	}
}

func TestHandlePositionRiskReportsFlatPosition(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/fapi/v2/positionRisk?symbol=BTCUSDT", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var rows []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 position row, got %d", len(rows))
	}
	if rows[0]["positionAmt"] != "0.00000000" {
		t.Fatalf("expected a flat position amount, got %v", rows[0]["positionAmt"])
	}
}
