package engine

import (
	"github.com/google/uuid"

	"github.com/uri157/exchange-simulator/internal/core"
)

// PlaceOrderParams mirrors the public place_order operation of §4.4.
type PlaceOrderParams struct {
	Symbol     string
	Side       core.Side
	Type       core.OrderType
	Qty        float64
	Price      float64
	StopPrice  float64
	TIF        core.TimeInForce
	ReduceOnly bool
	ClientID   string
	NowMs      int64
}

// PlaceOrder validates params, applies reduce-only clamping, attempts an
// immediate fill against the last known price (§4.1 "transition through NEW
// -> FILLED"), and otherwise inserts the order into open_orders. On
// validation failure it returns a *core.Error and no order (§4.1 "no side
// effects").
func (e *Engine) PlaceOrder(p PlaceOrderParams) (core.Order, error) {
	if err := validate(p); err != nil {
		if e.metrics != nil {
			e.metrics.ObserveReject(string(core.KindOf(err)))
		}
		return core.Order{}, err
	}

	if p.Type == core.Market {
		if _, ok := e.lastPrice[p.Symbol]; !ok {
			err := core.NewError(core.ErrNoMarketPrice, "no market price for %s", p.Symbol)
			if e.metrics != nil {
				e.metrics.ObserveReject(string(core.ErrNoMarketPrice))
			}
			return core.Order{}, err
		}
	}

	qty := p.Qty
	if p.ReduceOnly {
		executable := e.reduceOnlyExecutableQty(p.Symbol, p.Side, qty)
		if executable < epsilonQty {
			o := e.newOrder(p, 0)
			o.Status = core.StatusCanceled
			if e.metrics != nil {
				e.metrics.ObserveCancel()
			}
			return o.Snapshot(), nil
		}
		qty = executable
	}

	o := e.newOrder(p, qty)

	if filled := e.tryImmediateFill(o); filled {
		return o.Snapshot(), nil
	}

	e.insertOpen(o)
	return o.Snapshot(), nil
}

// reduceOnlyExecutableQty implements §4.5: invalid-direction orders get a
// zero executable quantity (caller cancels); valid-direction orders clamp
// to the current absolute position size.
func (e *Engine) reduceOnlyExecutableQty(symbol string, side core.Side, qty float64) float64 {
	pos := e.positionFor(symbol)
	switch {
	case side == core.Buy && pos.Qty < -epsilonQty:
		return min(qty, -pos.Qty)
	case side == core.Sell && pos.Qty > epsilonQty:
		return min(qty, pos.Qty)
	default:
		return 0
	}
}

func (e *Engine) newOrder(p PlaceOrderParams, qty float64) *core.Order {
	e.nextID++
	clientID := p.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	return &core.Order{
		ID:          e.nextID,
		ClientID:    clientID,
		Symbol:      p.Symbol,
		Side:        p.Side,
		Type:        p.Type,
		Qty:         qty,
		Price:       p.Price,
		StopPrice:   p.StopPrice,
		TIF:         p.TIF,
		ReduceOnly:  p.ReduceOnly,
		Status:      core.StatusNew,
		CreatedAtMs: p.NowMs,
		UpdatedAtMs: p.NowMs,
	}
}

func (e *Engine) insertOpen(o *core.Order) {
	e.orderIndex[o.ID] = len(e.openOrders)
	e.openOrders = append(e.openOrders, o)
	if e.metrics != nil {
		e.metrics.SetOpenOrders(len(e.openOrders))
	}
}

// Cancel removes id from open_orders if it is non-terminal (§4.4).
func (e *Engine) Cancel(id int64) error {
	idx, ok := e.orderIndex[id]
	if !ok {
		return core.NewError(core.ErrUnknownOrder, "order %d", id)
	}
	o := e.openOrders[idx]
	if o.Status.IsTerminal() {
		return core.NewError(core.ErrUnknownOrder, "order %d already terminal", id)
	}
	o.Status = core.StatusCanceled
	e.evictTerminal()
	if e.metrics != nil {
		e.metrics.ObserveCancel()
	}
	return nil
}

// CancelAll cancels every open order for symbol (or all symbols when
// symbol is empty) and returns the canceled ids.
func (e *Engine) CancelAll(symbol string) []int64 {
	var canceled []int64
	for _, o := range e.openOrders {
		if o.Status.IsTerminal() {
			continue
		}
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		o.Status = core.StatusCanceled
		canceled = append(canceled, o.ID)
	}
	if len(canceled) > 0 {
		e.evictTerminal()
		if e.metrics != nil {
			e.metrics.ObserveCancel()
		}
	}
	return canceled
}

// OpenOrders returns snapshots of open orders, optionally filtered by
// symbol.
func (e *Engine) OpenOrders(symbol string) []core.Order {
	out := make([]core.Order, 0, len(e.openOrders))
	for _, o := range e.openOrders {
		if symbol != "" && o.Symbol != symbol {
			continue
		}
		out = append(out, o.Snapshot())
	}
	return out
}

// OrderByID returns a snapshot of an open order by id.
func (e *Engine) OrderByID(id int64) (core.Order, bool) {
	idx, ok := e.orderIndex[id]
	if !ok {
		return core.Order{}, false
	}
	return e.openOrders[idx].Snapshot(), true
}

// evictTerminal compacts open_orders, dropping terminal entries, and
// rebuilds the id index. Called after cancellation and after each bar's
// matching pass.
func (e *Engine) evictTerminal() {
	kept := e.openOrders[:0]
	for _, o := range e.openOrders {
		if !o.Status.IsTerminal() {
			kept = append(kept, o)
		}
	}
	e.openOrders = kept
	e.orderIndex = make(map[int64]int, len(e.openOrders))
	for i, o := range e.openOrders {
		e.orderIndex[o.ID] = i
	}
	if e.metrics != nil {
		e.metrics.SetOpenOrders(len(e.openOrders))
	}
}

func validate(p PlaceOrderParams) error {
	if p.Symbol == "" {
		return core.NewError(core.ErrInvalidParam, "missing symbol")
	}
	if p.Side != core.Buy && p.Side != core.Sell {
		return core.NewError(core.ErrInvalidParam, "missing or invalid side")
	}
	if p.Qty <= 0 {
		return core.NewError(core.ErrInvalidParam, "qty must be > 0")
	}
	switch p.Type {
	case core.Market:
	case core.Limit:
		if p.Price <= 0 {
			return core.NewError(core.ErrInvalidParam, "LIMIT requires positive price")
		}
	case core.StopMarket:
		if p.StopPrice <= 0 {
			return core.NewError(core.ErrInvalidParam, "STOP_MARKET requires positive stop_price")
		}
	case core.StopLimit:
		if p.Price <= 0 {
			return core.NewError(core.ErrInvalidParam, "STOP_LIMIT requires positive price")
		}
		if p.StopPrice <= 0 {
			return core.NewError(core.ErrInvalidParam, "STOP_LIMIT requires positive stop_price")
		}
	default:
		return core.NewError(core.ErrUnsupportedType, "%s", p.Type)
	}
	return nil
}

const epsilonQty = 1e-12

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
