package engine

import "github.com/uri157/exchange-simulator/internal/core"

// applyFunding implements §4.6: every funding event with funding_time <=
// bar.close_time not yet consumed is summed into a single cumulative rate
// r applied once, at bar close, to every non-flat position. Positive
// payments debit the account (longs pay positive funding).
func (e *Engine) applyFunding(bar core.Bar) {
	var r float64
	applied := false
	for e.fundingCursor < len(e.funding) && e.funding[e.fundingCursor].FundingTimeMs <= bar.CloseTimeMs {
		r += e.funding[e.fundingCursor].Rate
		e.fundingCursor++
		applied = true
	}
	if !applied {
		return
	}
	for _, pos := range e.positions {
		if pos.Qty == 0 {
			continue
		}
		payment := pos.Qty * r * bar.Close
		e.account.ApplyFunding(payment)
		pos.RealizedPnL -= payment
		if e.metrics != nil {
			e.metrics.ObserveFunding(payment)
		}
	}
}
