package engine

import (
	"context"

	"github.com/uri157/exchange-simulator/internal/core"
)

// tryImmediateFill resolves a MARKET order, or a LIMIT/STOP_* order that is
// already marketable against the last known price, at submission time
// (§4.1). It returns true if the order reached a terminal or
// partially-filled state this way.
func (e *Engine) tryImmediateFill(o *core.Order) bool {
	last, ok := e.lastPrice[o.Symbol]
	if !ok {
		return false
	}

	switch o.Type {
	case core.Market:
		e.settleFill(o, last, false, e.clockMs)
		return true

	case core.Limit:
		if marketableAt(o.Side, last, o.Price) {
			e.settleFill(o, last, false, e.clockMs)
			return true
		}
		return false

	case core.StopMarket:
		if triggersAt(o.Side, last, o.StopPrice) {
			e.settleFill(o, o.StopPrice, false, e.clockMs)
			return true
		}
		return false

	case core.StopLimit:
		if triggersAt(o.Side, last, o.StopPrice) {
			o.Type = core.Limit
			o.StopPrice = 0
			if marketableAt(o.Side, last, o.Price) {
				e.settleFill(o, last, false, e.clockMs)
				return true
			}
		}
		return false

	default:
		return false
	}
}

func marketableAt(side core.Side, last, price float64) bool {
	if side == core.Buy {
		return last <= price
	}
	return last >= price
}

func triggersAt(side core.Side, last, stop float64) bool {
	if side == core.Buy {
		return last >= stop
	}
	return last <= stop
}

// settleFill books a single fill (qty = the order's full remaining
// quantity) against the position ledger, the account and the sink, and
// advances the order's fill bookkeeping. It is used for submission-time
// immediate fills; for bar-driven fills OnBar first clamps the fill model's
// proposed quantity with clampReduceOnlyQty and then calls bookFill
// directly.
func (e *Engine) settleFill(o *core.Order, price float64, isMaker bool, tsMs int64) {
	qty := o.RemainingQty()
	e.bookFill(o, price, qty, isMaker, tsMs)
}

// bookFill is the common accounting path shared by submission-time and
// bar-driven fills (§4.4 step 2).
func (e *Engine) bookFill(o *core.Order, price, qty float64, isMaker bool, tsMs int64) {
	if qty <= 0 {
		return
	}
	pos := e.positionFor(o.Symbol)

	signedQty := qty
	if o.Side == core.Sell {
		signedQty = -qty
	}
	fee := e.account.FeeFor(price, qty, isMaker)
	realized := pos.Update(signedQty, price)
	e.account.ApplyFill(realized, fee)

	fill := core.Fill{Price: price, Qty: qty, IsMaker: isMaker, Fee: fee, TsMs: tsMs, RealizedPnL: realized}
	o.ApplyFill(fill)

	if e.sink != nil {
		_ = e.sink.LogFill(context.Background(), tsMs, o.Symbol, o.Side, price, qty, realized, fee, isMaker)
	}
	if e.metrics != nil {
		e.metrics.ObserveFill(o.Symbol, isMaker)
	}
	e.log.Debug().
		Str("symbol", o.Symbol).
		Str("side", string(o.Side)).
		Float64("price", price).
		Float64("qty", qty).
		Bool("maker", isMaker).
		Msg("fill")
}
