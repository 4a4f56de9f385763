package fillmodel

import (
	"testing"

	"github.com/uri157/exchange-simulator/internal/core"
)

func TestL1BookTickerMarketFillsAtFarSideQuote(t *testing.T) {
	m := L1BookTicker{HalfSpreadBps: 10} // 0.1% half-spread
	b := bar(100, 110, 90, 105)
	o := &core.Order{Side: core.Buy, Type: core.Market, Qty: 1}

	fills := m.FillsOnBar(b, o)
	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}
	wantAsk := 100 * 1.001
	if fills[0].Price != wantAsk {
		t.Fatalf("expected buy to fill at the ask %v, got %v", wantAsk, fills[0].Price)
	}
	if fills[0].IsMaker {
		t.Fatalf("book-ticker market fills are always taker")
	}
}

func TestL1BookTickerLimitMarketableAtOpenFillsAtQuote(t *testing.T) {
	m := L1BookTicker{HalfSpreadBps: 10}
	b := bar(100, 110, 90, 105)
	o := &core.Order{Side: core.Sell, Type: core.Limit, Price: 95, Qty: 1}

	fills := m.FillsOnBar(b, o)
	if len(fills) != 1 {
		t.Fatalf("expected the sell limit to be immediately marketable at open, got %d fills", len(fills))
	}
	wantBid := 100 * 0.999
	if fills[0].Price != wantBid {
		t.Fatalf("expected sell to fill at the bid %v, got %v", wantBid, fills[0].Price)
	}
}

func TestL1BookTickerLimitNotMarketableDelegatesToOHLC(t *testing.T) {
	m := L1BookTicker{UpFirst: true, HalfSpreadBps: 10}
	b := bar(100, 110, 90, 105)
	o := &core.Order{Side: core.Buy, Type: core.Limit, Price: 95, Qty: 1}

	fills := m.FillsOnBar(b, o)
	if len(fills) != 1 {
		t.Fatalf("expected the delegate to eventually cross the limit, got %d", len(fills))
	}
	if !fills[0].IsMaker {
		t.Fatalf("a resting limit crossed by price fills as maker even under the book-ticker model")
	}
	if fills[0].Price != 95 {
		t.Fatalf("maker fills keep the limit price, expected 95, got %v", fills[0].Price)
	}
}
