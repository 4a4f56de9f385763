package engine

import (
	"context"

	"github.com/uri157/exchange-simulator/internal/core"
)

// OnBar is the bar-driven mutator of positions, the account and
// open_orders; between bars PlaceOrder, Cancel and CancelAll also change
// them. It implements the five steps of §4.4, with the
// optional strategy hook (§4.8) spliced in between steps 1 and 2:
//  1. last_price[symbol] := open, advance clock to open_time.
//  1.5. onBarOpen, if set, runs here (a strategy's on_bar observes the
//       open price and may submit orders before matching).
//  2. Run the fill model against every open order of this symbol.
//  3. Update order status, evict terminal orders.
//  4. Apply funding if an event is effective within this bar.
//  5. last_price[symbol] := close, advance clock to close_time, emit
//     an equity sample.
func (e *Engine) OnBar(bar core.Bar) error {
	if err := bar.Validate(); err != nil {
		return err
	}

	e.lastPrice[bar.Symbol] = bar.Open
	e.clockMs = bar.OpenTimeMs

	if e.onBarOpen != nil {
		e.onBarOpen(e, bar)
	}

	for _, o := range e.openOrders {
		if o.Symbol != bar.Symbol || o.Status.IsTerminal() {
			continue
		}
		fills := e.fillModel.FillsOnBar(bar, o)
		for _, f := range fills {
			qty := f.Qty
			if o.ReduceOnly {
				qty = e.clampReduceOnlyQty(o, qty)
				if qty < epsilonQty {
					continue
				}
			}
			e.bookFill(o, f.Price, qty, f.IsMaker, f.TsMs)
		}
	}
	e.evictTerminal()

	e.applyFunding(bar)

	e.lastPrice[bar.Symbol] = bar.Close
	e.clockMs = bar.CloseTimeMs

	eq := e.equity()
	if e.metrics != nil {
		e.metrics.SetEquity(eq)
	}
	if e.sink != nil {
		_ = e.sink.LogEquity(context.Background(), bar.CloseTimeMs, eq)
	}
	return nil
}

// clampReduceOnlyQty truncates a reduce-only fill to the amount that
// flattens the current position, discarding any excess (§4.5).
func (e *Engine) clampReduceOnlyQty(o *core.Order, qty float64) float64 {
	pos := e.positionFor(o.Symbol)
	var room float64
	if o.Side == core.Buy {
		room = -pos.Qty
	} else {
		room = pos.Qty
	}
	if room < 0 {
		room = 0
	}
	return min(qty, room)
}
