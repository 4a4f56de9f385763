package gateway

import (
	"net/http"
	"strings"

	"github.com/uri157/exchange-simulator/internal/core"
)

// handlePositionRisk serves both v1 and v2 positionRisk shapes, which are
// identical on the wire for this simulator since there is no isolated vs.
// cross margin distinction (§4.5 treats every position as a single net
// per-symbol ledger entry).
func (s *Server) handlePositionRisk(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.URL.Query().Get("symbol"))

	s.mu.Lock()
	defer s.mu.Unlock()

	if symbol != "" {
		pos := s.engine.Position(symbol)
		price, _ := s.engine.LastPrice(symbol)
		writeJSON(w, http.StatusOK, []map[string]any{positionRiskRow(pos, price)})
		return
	}

	// No engine-wide symbol enumeration exists; the gateway only knows
	// about symbols it has seen a bar for via the replayer's loaded
	// buffer.
	seen := map[string]bool{}
	rows := make([]map[string]any, 0)
	for _, b := range s.replayer.Bars() {
		if seen[b.Symbol] {
			continue
		}
		seen[b.Symbol] = true
		pos := s.engine.Position(b.Symbol)
		price, _ := s.engine.LastPrice(b.Symbol)
		rows = append(rows, positionRiskRow(pos, price))
	}
	writeJSON(w, http.StatusOK, rows)
}

func positionRiskRow(pos core.Position, price float64) map[string]any {
	return map[string]any{
		"symbol":           pos.Symbol,
		"positionAmt":      fmt8(pos.Qty),
		"entryPrice":       fmt8(pos.EntryPrice),
		"markPrice":        fmt8(price),
		"unRealizedProfit": fmt8(pos.UnrealizedPnL(price)),
		"leverage":         "1",
		"marginType":       "cross",
	}
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	acct := s.engine.Account()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, []map[string]any{
		{
			"asset":              "USDT",
			"balance":            fmt8(acct.Balance),
			"availableBalance":   fmt8(acct.Balance),
			"crossWalletBalance": fmt8(acct.Balance),
		},
	})
}

// handleSetLeverage, handleSetMarginType and handleSetPositionSide are
// accepted but have no accounting effect: the simulator has no
// margin/liquidation model (§2 Non-goals). Only handleSetLeverage echoes
// its symbol and leverage back; the other two answer with a fixed
// {"code":200,"msg":"success"} body.
func (s *Server) handleSetLeverage(w http.ResponseWriter, r *http.Request) {
	jsonBody := decodeJSONBody(r)
	_ = r.ParseForm()
	symbol := strings.ToUpper(orderParam(jsonBody, r, "symbol"))
	leverage := orderParam(jsonBody, r, "leverage")
	writeJSON(w, http.StatusOK, map[string]any{"symbol": symbol, "leverage": leverage, "maxNotionalValue": "0"})
}

func (s *Server) handleSetMarginType(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"code": 200, "msg": "success"})
}

func (s *Server) handleSetPositionSide(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"code": 200, "msg": "success"})
}
