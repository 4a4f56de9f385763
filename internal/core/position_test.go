package core

import "testing"

func TestPositionUpdateOpenFlat(t *testing.T) {
	p := Position{Symbol: "BTCUSDT"}
	realized := p.Update(1.0, 100)
	if realized != 0 {
		t.Fatalf("opening a flat position should realize 0, got %v", realized)
	}
	if p.Qty != 1.0 || p.EntryPrice != 100 {
		t.Fatalf("unexpected position after open: %+v", p)
	}
}

func TestPositionUpdateSameSideAddsVWAP(t *testing.T) {
	p := Position{Qty: 1.0, EntryPrice: 100}
	realized := p.Update(1.0, 200)
	if realized != 0 {
		t.Fatalf("same-side add should realize 0, got %v", realized)
	}
	if p.Qty != 2.0 {
		t.Fatalf("expected qty 2.0, got %v", p.Qty)
	}
	if p.EntryPrice != 150 {
		t.Fatalf("expected VWAP entry 150, got %v", p.EntryPrice)
	}
}

func TestPositionUpdatePartialClose(t *testing.T) {
	p := Position{Qty: 2.0, EntryPrice: 100}
	realized := p.Update(-1.0, 110)
	if realized != 10 {
		t.Fatalf("expected realized 10, got %v", realized)
	}
	if p.Qty != 1.0 || p.EntryPrice != 100 {
		t.Fatalf("unexpected remainder: %+v", p)
	}
}

func TestPositionUpdateFullCloseFlattens(t *testing.T) {
	p := Position{Qty: 1.0, EntryPrice: 100}
	realized := p.Update(-1.0, 90)
	if realized != -10 {
		t.Fatalf("expected realized -10, got %v", realized)
	}
	if p.Qty != 0 || p.EntryPrice != 0 {
		t.Fatalf("expected flat position, got %+v", p)
	}
}

func TestPositionUpdateFlip(t *testing.T) {
	p := Position{Qty: 1.0, EntryPrice: 100}
	realized := p.Update(-3.0, 110)
	if realized != 10 {
		t.Fatalf("expected realized 10 on the closed leg, got %v", realized)
	}
	if p.Qty != -2.0 {
		t.Fatalf("expected flipped short qty -2.0, got %v", p.Qty)
	}
	if p.EntryPrice != 110 {
		t.Fatalf("expected new entry at flip price 110, got %v", p.EntryPrice)
	}
}

func TestPositionUnrealizedPnL(t *testing.T) {
	long := Position{Qty: 2.0, EntryPrice: 100}
	if got := long.UnrealizedPnL(110); got != 20 {
		t.Fatalf("long unrealized: expected 20, got %v", got)
	}

	short := Position{Qty: -2.0, EntryPrice: 100}
	if got := short.UnrealizedPnL(90); got != 20 {
		t.Fatalf("short unrealized: expected 20, got %v", got)
	}

	flat := Position{}
	if got := flat.UnrealizedPnL(100); got != 0 {
		t.Fatalf("flat unrealized: expected 0, got %v", got)
	}
}
