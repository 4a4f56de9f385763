package gateway

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/uri157/exchange-simulator/internal/replay"
)

// handleAdminStatus reports the run id, strategy label, engine clock and
// equity (§6.4).
func (s *Server) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	run := s.engine.Run()
	clock := s.engine.ClockMs()
	equity := s.engine.Equity()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"runId":         run.RunID,
		"strategyLabel": run.StrategyLabel,
		"clockMs":       clock,
		"equity":        fmt8(equity),
	})
}

type adminReplayRequest struct {
	Symbol     string  `json:"symbol"`
	Interval   string  `json:"interval"`
	StartMs    int64   `json:"startMs"`
	EndMs      int64   `json:"endMs"`
	BarsPerSec float64 `json:"barsPerSec"`
}

// handleAdminReplay reconfigures the replay window via SetParams. It does
// not restart the replay: a driver that is already running keeps streaming
// the bars it loaded before the call, and the new window is only loaded by
// a later Stream call. Nothing in this process makes that call after the
// running driver's Run returns.
func (s *Server) handleAdminReplay(w http.ResponseWriter, r *http.Request) {
	var req adminReplayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, exchangeError{Code: -1102, Msg: "invalid JSON body"})
		return
	}
	req.Symbol = strings.ToUpper(req.Symbol)

	s.replayer.SetParams(replay.Params{
		Symbol:     req.Symbol,
		Interval:   req.Interval,
		StartMs:    req.StartMs,
		EndMs:      req.EndMs,
		BarsPerSec: req.BarsPerSec,
	})

	writeJSON(w, http.StatusOK, map[string]any{"status": "reconfigured"})
}
