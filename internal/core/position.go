package core

// Position is the per-symbol net position: signed qty, VWAP entry price and
// cumulative realized PnL. The Executor is the only caller of Update; no
// other code mutates a Position directly.
type Position struct {
	Symbol      string
	Qty         float64
	EntryPrice  float64
	RealizedPnL float64
}

// Update is the sole mutation entry point of the ledger (§4.3). qtyChange is
// signed (positive for a buy fill, negative for a sell fill); price is the
// fill price. It returns the realized PnL booked by this update (zero unless
// the update closes some or all of the existing position).
func (p *Position) Update(qtyChange, price float64) float64 {
	if abs(qtyChange) < epsilon {
		return 0
	}

	if abs(p.Qty) < epsilon {
		// Flat -> open fresh, no PnL.
		p.Qty = qtyChange
		p.EntryPrice = price
		return 0
	}

	if sign(p.Qty) == sign(qtyChange) {
		// Same-side add: VWAP update, no PnL.
		absOld := abs(p.Qty)
		absAdd := abs(qtyChange)
		p.EntryPrice = (p.EntryPrice*absOld + price*absAdd) / (absOld + absAdd)
		p.Qty += qtyChange
		return 0
	}

	// Opposite sign: closes some or all of the existing position.
	absQty := abs(p.Qty)
	absChange := abs(qtyChange)

	if absChange < absQty-epsilon {
		// Partial close: realize on closedQty, entry price unchanged.
		closedQty := absChange
		realized := closePnL(p.Qty, p.EntryPrice, price, closedQty)
		p.RealizedPnL += realized
		p.Qty += qtyChange
		return realized
	}

	// Full close, possibly a flip.
	realized := closePnL(p.Qty, p.EntryPrice, price, absQty)
	p.RealizedPnL += realized
	remainder := absChange - absQty
	p.Qty += qtyChange
	if remainder > epsilon {
		// Open the remainder on the new (opposite) side at the fill price.
		p.EntryPrice = price
	} else {
		p.Qty = 0
		p.EntryPrice = 0
	}
	return realized
}

// closePnL realizes PnL on closedQty of a position with signed qty and
// entryPrice, closed at price: long realizes (price-entry)*qty, short
// realizes (entry-price)*qty.
func closePnL(qty, entryPrice, price, closedQty float64) float64 {
	if qty > 0 {
		return (price - entryPrice) * closedQty
	}
	return (entryPrice - price) * closedQty
}

// UnrealizedPnL returns the mark-to-market PnL of the position at lastPrice.
func (p *Position) UnrealizedPnL(lastPrice float64) float64 {
	if abs(p.Qty) < epsilon {
		return 0
	}
	if p.Qty > 0 {
		return (lastPrice - p.EntryPrice) * p.Qty
	}
	return (p.EntryPrice - lastPrice) * (-p.Qty)
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func sign(x float64) int {
	switch {
	case x > epsilon:
		return 1
	case x < -epsilon:
		return -1
	default:
		return 0
	}
}
