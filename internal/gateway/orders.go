package gateway

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/uri157/exchange-simulator/internal/core"
	"github.com/uri157/exchange-simulator/internal/engine"
)

// decodeJSONBody reads and re-buffers a JSON request body into a flat
// string map, so binance-connector-style clients that POST
// `Content-Type: application/json` (r.ParseForm never populates PostForm
// for those) are recognized (§6.3). Returns nil when the request is not a
// JSON submission or the body does not decode.
func decodeJSONBody(r *http.Request) map[string]string {
	if !strings.Contains(r.Header.Get("Content-Type"), "application/json") || r.Body == nil {
		return nil
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch t := v.(type) {
		case string:
			out[k] = t
		case float64:
			out[k] = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			out[k] = strconv.FormatBool(t)
		}
	}
	return out
}

// orderParam reads a named field from the request, preferring a decoded
// JSON body, then a urlencoded form body, then the query string on
// conflict (§6.3). jsonBody is nil for non-JSON requests.
func orderParam(jsonBody map[string]string, r *http.Request, keys ...string) string {
	for _, k := range keys {
		if v, ok := jsonBody[k]; ok && v != "" {
			return v
		}
	}
	for _, k := range keys {
		if v := r.PostFormValue(k); v != "" {
			return v
		}
	}
	for _, k := range keys {
		if v := r.URL.Query().Get(k); v != "" {
			return v
		}
	}
	return ""
}

func parseBoolish(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func normalizeType(raw string) core.OrderType {
	t := core.OrderType(strings.ToUpper(strings.TrimSpace(raw)))
	if t == "STOP" {
		return core.StopMarket
	}
	return t
}

// handlePlaceOrder accepts JSON, urlencoded form or query-string
// parameters (§6.3: "accepts JSON, form, or query parameters; on
// conflict, body wins"). Recognized aliases: quantity/origQty/qty.
func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	jsonBody := decodeJSONBody(r)
	_ = r.ParseForm()

	qtyStr := orderParam(jsonBody, r, "quantity", "origQty", "qty")
	qty, _ := strconv.ParseFloat(qtyStr, 64)
	price, _ := strconv.ParseFloat(orderParam(jsonBody, r, "price"), 64)
	stopPrice, _ := strconv.ParseFloat(orderParam(jsonBody, r, "stopPrice"), 64)

	tif := core.TimeInForce(strings.ToUpper(orderParam(jsonBody, r, "timeInForce")))
	if tif == "" {
		tif = core.GTC
	}

	p := engine.PlaceOrderParams{
		Symbol:     strings.ToUpper(orderParam(jsonBody, r, "symbol")),
		Side:       core.Side(strings.ToUpper(orderParam(jsonBody, r, "side"))),
		Type:       normalizeType(orderParam(jsonBody, r, "type")),
		Qty:        qty,
		Price:      price,
		StopPrice:  stopPrice,
		TIF:        tif,
		ReduceOnly: parseBoolish(orderParam(jsonBody, r, "reduceOnly")),
		ClientID:   orderParam(jsonBody, r, "newClientOrderId"),
		NowMs:      time.Now().UnixMilli(),
	}

	s.mu.Lock()
	if clock := s.engine.ClockMs(); clock > 0 {
		p.NowMs = clock
	}
	o, err := s.engine.PlaceOrder(p)
	s.mu.Unlock()

	if err != nil {
		writeExchangeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(o))
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	jsonBody := decodeJSONBody(r)
	_ = r.ParseForm()
	id, _ := strconv.ParseInt(orderParam(jsonBody, r, "orderId"), 10, 64)

	s.mu.Lock()
	o, ok := s.engine.OrderByID(id)
	var err error
	if ok {
		err = s.engine.Cancel(id)
	} else {
		err = core.NewError(core.ErrUnknownOrder, "order %d", id)
	}
	s.mu.Unlock()

	if err != nil {
		writeExchangeError(w, err)
		return
	}
	o.Status = core.StatusCanceled
	writeJSON(w, http.StatusOK, orderResponse(o))
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(r.URL.Query().Get("orderId"), 10, 64)

	s.mu.Lock()
	o, ok := s.engine.OrderByID(id)
	s.mu.Unlock()

	if !ok {
		writeExchangeError(w, core.NewError(core.ErrUnknownOrder, "order %d", id))
		return
	}
	writeJSON(w, http.StatusOK, orderResponse(o))
}

func (s *Server) handleOpenOrders(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))

	s.mu.Lock()
	orders := s.engine.OpenOrders(symbol)
	s.mu.Unlock()

	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCancelAllOrders(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))

	s.mu.Lock()
	ids := s.engine.CancelAll(symbol)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"canceledOrderIds": ids})
}

type fillResp struct {
	Price       string `json:"price"`
	Qty         string `json:"qty"`
	Commission  string `json:"commission"`
	IsMaker     bool   `json:"isMaker"`
	RealizedPnL string `json:"realizedPnl"`
}

type orderResp struct {
	Symbol        string     `json:"symbol"`
	OrderID       int64      `json:"orderId"`
	ClientOrderID string     `json:"clientOrderId"`
	TransactTime  int64      `json:"transactTime"`
	Price         string     `json:"price"`
	OrigQty       string     `json:"origQty"`
	ExecutedQty   string     `json:"executedQty"`
	Status        string     `json:"status"`
	TimeInForce   string     `json:"timeInForce"`
	Type          string     `json:"type"`
	Side          string     `json:"side"`
	Fills         []fillResp `json:"fills,omitempty"`
}

func orderResponse(o core.Order) orderResp {
	resp := orderResp{
		Symbol:        o.Symbol,
		OrderID:       o.ID,
		ClientOrderID: o.ClientID,
		TransactTime:  o.UpdatedAtMs,
		Price:         fmt8(o.Price),
		OrigQty:       fmt8(o.Qty),
		ExecutedQty:   fmt8(o.FilledQty),
		Status:        string(o.Status),
		TimeInForce:   string(o.TIF),
		Type:          string(o.Type),
		Side:          string(o.Side),
	}
	if len(o.Fills) > 0 {
		resp.Fills = make([]fillResp, 0, len(o.Fills))
		for _, f := range o.Fills {
			resp.Fills = append(resp.Fills, fillResp{
				Price:       fmt8(f.Price),
				Qty:         fmt8(f.Qty),
				Commission:  fmt8(f.Fee),
				IsMaker:     f.IsMaker,
				RealizedPnL: fmt8(f.RealizedPnL),
			})
		}
	}
	return resp
}
