package fillmodel

import "github.com/uri157/exchange-simulator/internal/core"

// OHLCPath is the core fill model: a fixed intrabar traversal order, applied
// identically to every bar. UpFirst selects open->high->low->close when
// true, open->low->high->close when false.
type OHLCPath struct {
	UpFirst     bool
	SlippageBps float64
}

// FillsOnBar implements Model. At most one fill is produced per call (§4.2,
// §4.4 "ordering guarantees").
func (m OHLCPath) FillsOnBar(bar core.Bar, order *core.Order) []core.Fill {
	return fillsOnBarOHLC(bar, order, m.UpFirst, m.SlippageBps)
}

// fillsOnBarOHLC is the shared traversal used by OHLCPath, RandomOHLC and
// (as a delegate) L1BookTicker.
func fillsOnBarOHLC(bar core.Bar, order *core.Order, upFirst bool, slippageBps float64) []core.Fill {
	remaining := order.RemainingQty()
	if remaining <= 0 {
		return nil
	}

	if order.Type == core.Market {
		price := applyTakerSlippage(order.Side, bar.Open, slippageBps, bar)
		return []core.Fill{mkFill(price, remaining, false, bar.OpenTimeMs)}
	}

	segs := pathSegments(bar, upFirst)

	for _, s := range segs {
		switch order.Type {
		case core.Limit:
			if !marketable(order.Side, s.value, order.Price) {
				continue
			}
			if s.isOpen {
				// Gap-through: fills at open as taker, not at the limit price.
				price := applyTakerSlippage(order.Side, s.value, slippageBps, bar)
				return []core.Fill{mkFill(price, remaining, false, s.tsMs)}
			}
			return []core.Fill{mkFill(order.Price, remaining, true, s.tsMs)}

		case core.StopMarket:
			if !triggers(order.Side, s.value, order.StopPrice) {
				continue
			}
			fillPrice := order.StopPrice
			if s.isOpen {
				fillPrice = s.value
			}
			price := applyTakerSlippage(order.Side, fillPrice, slippageBps, bar)
			return []core.Fill{mkFill(price, remaining, false, s.tsMs)}

		case core.StopLimit:
			if !triggers(order.Side, s.value, order.StopPrice) {
				continue
			}
			// Mutate in-place: the stop resolves into a plain LIMIT (§4.2.5).
			order.Type = core.Limit
			order.StopPrice = 0
			if s.isOpen && marketable(order.Side, bar.Open, order.Price) {
				price := applyTakerSlippage(order.Side, bar.Open, slippageBps, bar)
				return []core.Fill{mkFill(price, remaining, false, s.tsMs)}
			}
			// Not immediately marketable: stays open, eligible for the
			// remaining segments of this same bar as a LIMIT.
			continue

		default:
			return nil
		}
	}
	return nil
}
