package fillmodel

import (
	"testing"

	"github.com/uri157/exchange-simulator/internal/core"
)

func bar(open, high, low, close float64) core.Bar {
	return core.Bar{
		Symbol: "BTCUSDT", OpenTimeMs: 0, CloseTimeMs: 900,
		Open: open, High: high, Low: low, Close: close,
	}
}

func TestOHLCPathMarketFillsAtOpenWithSlippage(t *testing.T) {
	m := OHLCPath{UpFirst: true, SlippageBps: 10}
	b := bar(100, 110, 90, 105)
	o := &core.Order{Side: core.Buy, Type: core.Market, Qty: 1}

	fills := m.FillsOnBar(b, o)
	if len(fills) != 1 {
		t.Fatalf("expected 1 fill, got %d", len(fills))
	}
	if fills[0].IsMaker {
		t.Fatalf("market fills are always taker")
	}
	want := 100 * 1.001
	if fills[0].Price != want {
		t.Fatalf("expected slipped price %v, got %v", want, fills[0].Price)
	}
}

func TestOHLCPathLimitFillsAsMakerWhenCrossed(t *testing.T) {
	m := OHLCPath{UpFirst: true}
	b := bar(100, 110, 90, 105)
	o := &core.Order{Side: core.Buy, Type: core.Limit, Price: 95, Qty: 1}

	fills := m.FillsOnBar(b, o)
	if len(fills) != 1 {
		t.Fatalf("expected a fill once low crosses the limit, got %d", len(fills))
	}
	if !fills[0].IsMaker {
		t.Fatalf("a resting limit crossed by price should fill as maker")
	}
	if fills[0].Price != 95 {
		t.Fatalf("expected fill at the limit price 95, got %v", fills[0].Price)
	}
}

func TestOHLCPathLimitGapThroughFillsAsTakerAtOpen(t *testing.T) {
	m := OHLCPath{UpFirst: true}
	b := bar(80, 110, 80, 105)
	o := &core.Order{Side: core.Buy, Type: core.Limit, Price: 95, Qty: 1}

	fills := m.FillsOnBar(b, o)
	if len(fills) != 1 {
		t.Fatalf("expected a fill, got %d", len(fills))
	}
	if fills[0].IsMaker {
		t.Fatalf("a gapped-through limit fills as taker at the open, not maker")
	}
	if fills[0].Price != 80 {
		t.Fatalf("expected fill at the open price 80, got %v", fills[0].Price)
	}
}

func TestOHLCPathLimitNeverCrossedProducesNoFill(t *testing.T) {
	m := OHLCPath{UpFirst: true}
	b := bar(100, 110, 95, 105)
	o := &core.Order{Side: core.Buy, Type: core.Limit, Price: 80, Qty: 1}

	fills := m.FillsOnBar(b, o)
	if len(fills) != 0 {
		t.Fatalf("expected no fill, got %d", len(fills))
	}
}

func TestOHLCPathStopMarketTriggersAndFillsTaker(t *testing.T) {
	m := OHLCPath{UpFirst: true}
	b := bar(100, 120, 90, 110)
	o := &core.Order{Side: core.Buy, Type: core.StopMarket, StopPrice: 115, Qty: 1}

	fills := m.FillsOnBar(b, o)
	if len(fills) != 1 {
		t.Fatalf("expected the stop to trigger against the high, got %d fills", len(fills))
	}
	if fills[0].IsMaker {
		t.Fatalf("a triggered stop market fills as taker")
	}
	if fills[0].Price != 115 {
		t.Fatalf("expected fill at the stop price 115, got %v", fills[0].Price)
	}
}

// TestOHLCPathStopLimitSymmetricSegmentWalk implements the literal,
// symmetric §4.2 segment-walk rule described in DESIGN.md: a STOP_LIMIT
// that converts to LIMIT mid-walk is re-evaluated by the remaining
// segments of the same bar, regardless of which side triggered first.
func TestOHLCPathStopLimitSymmetricSegmentWalk(t *testing.T) {
	t.Run("buy stop-limit fills once the high triggers and a later low crosses the limit", func(t *testing.T) {
		m := OHLCPath{UpFirst: true}
		b := bar(100, 120, 95, 105)
		o := &core.Order{Side: core.Buy, Type: core.StopLimit, StopPrice: 115, Price: 110, Qty: 1}

		fills := m.FillsOnBar(b, o)
		if len(fills) != 1 {
			t.Fatalf("expected a fill once the converted limit is crossed by the low, got %d", len(fills))
		}
		if !fills[0].IsMaker {
			t.Fatalf("the converted limit fills as maker")
		}
		if fills[0].Price != 110 {
			t.Fatalf("expected fill at the converted limit price 110, got %v", fills[0].Price)
		}
		if o.Type != core.Limit {
			t.Fatalf("expected the order to have converted to LIMIT, got %v", o.Type)
		}
	})

	t.Run("sell stop-limit triggered by the low and crossed by a later high also fills", func(t *testing.T) {
		m := OHLCPath{UpFirst: false}
		b := bar(100, 120, 80, 105)
		o := &core.Order{Side: core.Sell, Type: core.StopLimit, StopPrice: 85, Price: 90, Qty: 1}

		fills := m.FillsOnBar(b, o)
		if len(fills) != 1 {
			t.Fatalf("the symmetric rule requires a fill here too, got %d", len(fills))
		}
		if fills[0].Price != 90 {
			t.Fatalf("expected fill at the converted limit price 90, got %v", fills[0].Price)
		}
	})
}

func TestOHLCPathUpFirstOrderingAffectsWhichExtremeComesFirst(t *testing.T) {
	b := bar(100, 120, 80, 100)

	upFirst := OHLCPath{UpFirst: true}
	o1 := &core.Order{Side: core.Sell, Type: core.Limit, Price: 115, Qty: 1}
	fills := upFirst.FillsOnBar(b, o1)
	if len(fills) != 1 || fills[0].TsMs != 300 {
		t.Fatalf("expected the sell limit to cross on the first extreme (t=300) when up_first, got %+v", fills)
	}

	downFirst := OHLCPath{UpFirst: false}
	o2 := &core.Order{Side: core.Sell, Type: core.Limit, Price: 115, Qty: 1}
	fills2 := downFirst.FillsOnBar(b, o2)
	if len(fills2) != 1 || fills2[0].TsMs != 600 {
		t.Fatalf("expected the sell limit to cross on the second extreme (t=600) when down_first, got %+v", fills2)
	}
}
