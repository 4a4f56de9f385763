// Package fillmodel implements the intrabar matching capability of §4.2: a
// pure function `(bar, order) -> []Fill` under a chosen price path. Three
// variants are provided: a fixed OHLC path, a per-bar-randomized path, and an
// L1 book-ticker heuristic that delegates to the OHLC path for anything not
// immediately marketable at the synthesized quote.
package fillmodel

import (
	"github.com/uri157/exchange-simulator/internal/core"
)

// Model is the capability interface selected at Executor construction,
// replacing dynamic dispatch with a single-method interface (§9).
type Model interface {
	FillsOnBar(bar core.Bar, order *core.Order) []core.Fill
}

// segment is one checkpoint along the intrabar price path: a price level and
// the timestamp assigned to a fill produced at that level (§4.2).
type segment struct {
	value   float64
	tsMs    int64
	isOpen  bool
}

// pathSegments builds the four checkpoints of the bar's traversal: open,
// first extreme, second extreme, close. Fill timestamps follow §4.2: first
// extreme at open+Δ/3, second extreme at open+2Δ/3, close at close_time,
// open (gap) fills at open_time.
func pathSegments(bar core.Bar, upFirst bool) [4]segment {
	delta := bar.CloseTimeMs - bar.OpenTimeMs
	t1 := bar.OpenTimeMs + delta/3
	t2 := bar.OpenTimeMs + 2*delta/3

	first, second := bar.High, bar.Low
	if !upFirst {
		first, second = bar.Low, bar.High
	}
	return [4]segment{
		{value: bar.Open, tsMs: bar.OpenTimeMs, isOpen: true},
		{value: first, tsMs: t1},
		{value: second, tsMs: t2},
		{value: bar.Close, tsMs: bar.CloseTimeMs},
	}
}

// marketable reports whether a limit at price is crossable once price has
// moved to v: a buy limit crosses falling prices, a sell limit crosses
// rising prices.
func marketable(side core.Side, v, price float64) bool {
	if side == core.Buy {
		return v <= price
	}
	return v >= price
}

// triggers reports whether a stop at stopPrice fires once price has moved
// to v: a buy stop fires on an upward cross, a sell stop on a downward one.
func triggers(side core.Side, v, stopPrice float64) bool {
	if side == core.Buy {
		return v >= stopPrice
	}
	return v <= stopPrice
}

// clamp restricts x to [lo, hi].
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// applyTakerSlippage adjusts a taker fill price against the trader by
// slippageBps, clamped into the bar's [low, high] range (§4.2).
func applyTakerSlippage(side core.Side, price, slippageBps float64, bar core.Bar) float64 {
	if slippageBps == 0 {
		return price
	}
	adj := price
	frac := slippageBps / 10000.0
	if side == core.Buy {
		adj = price * (1 + frac)
	} else {
		adj = price * (1 - frac)
	}
	return clamp(adj, bar.Low, bar.High)
}

func mkFill(price, qty float64, isMaker bool, tsMs int64) core.Fill {
	return core.Fill{Price: price, Qty: qty, IsMaker: isMaker, TsMs: tsMs}
}
