package fillmodel

import "github.com/uri157/exchange-simulator/internal/core"

// L1BookTicker synthesizes a bid/ask from a configured half-spread around
// the bar's open and fills takers at the far-side quote (§4.2c). A LIMIT
// that is not immediately marketable at open delegates to the OHLC path,
// then re-prices any resulting non-maker fill to the half-spread quote.
type L1BookTicker struct {
	UpFirst       bool
	HalfSpreadBps float64
	SlippageBps   float64
}

// FillsOnBar implements Model.
func (m L1BookTicker) FillsOnBar(bar core.Bar, order *core.Order) []core.Fill {
	remaining := order.RemainingQty()
	if remaining <= 0 {
		return nil
	}

	bid, ask := m.quotes(bar.Open)

	switch order.Type {
	case core.Market:
		price := m.farSide(order.Side, bid, ask)
		return []core.Fill{mkFill(price, remaining, false, bar.OpenTimeMs)}

	case core.StopMarket, core.StopLimit:
		if triggers(order.Side, bar.Open, order.StopPrice) {
			if order.Type == core.StopLimit {
				order.Type = core.Limit
				order.StopPrice = 0
				if marketable(order.Side, bar.Open, order.Price) {
					price := m.farSide(order.Side, bid, ask)
					return []core.Fill{mkFill(price, remaining, false, bar.OpenTimeMs)}
				}
				// Falls through to the delegate below, now as a LIMIT.
				break
			}
			price := m.farSide(order.Side, bid, ask)
			return []core.Fill{mkFill(price, remaining, false, bar.OpenTimeMs)}
		}

	case core.Limit:
		if marketable(order.Side, bar.Open, order.Price) {
			price := m.farSide(order.Side, bid, ask)
			return []core.Fill{mkFill(price, remaining, false, bar.OpenTimeMs)}
		}
	}

	fills := fillsOnBarOHLC(bar, order, m.UpFirst, m.SlippageBps)
	for i, f := range fills {
		if !f.IsMaker {
			fills[i].Price = m.farSide(order.Side, bid, ask)
		}
	}
	return fills
}

func (m L1BookTicker) quotes(mid float64) (bid, ask float64) {
	half := mid * (m.HalfSpreadBps / 10000.0)
	return mid - half, mid + half
}

func (m L1BookTicker) farSide(side core.Side, bid, ask float64) float64 {
	if side == core.Buy {
		return ask
	}
	return bid
}
