package replay

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/uri157/exchange-simulator/internal/core"
	"github.com/uri157/exchange-simulator/internal/engine"
	"github.com/uri157/exchange-simulator/internal/fillmodel"
)

func newDriverTestEngine() *engine.Engine {
	return engine.New(context.Background(), engine.Config{
		StartingBalance: 10000,
		MakerFee:        0.0002,
		TakerFee:        0.0004,
		FillModel:       fillmodel.OHLCPath{UpFirst: true},
		Logger:          zerolog.Nop(),
	}, "driver-test-run")
}

func TestDriverRunCommitsEachBarAndBroadcasts(t *testing.T) {
	src := &fakeSource{bars: threeBars()}
	r := New(src, nil)
	r.SetParams(Params{Symbol: "BTCUSDT", Interval: "15m"})

	eng := newDriverTestEngine()
	var mu sync.Mutex

	var broadcasts []core.Bar
	d := NewDriver(r, eng, &mu, zerolog.Nop(), func(bar core.Bar, eq float64) {
		broadcasts = append(broadcasts, bar)
	})

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(broadcasts) != 3 {
		t.Fatalf("expected 3 broadcasts (one per bar), got %d", len(broadcasts))
	}
	if eng.ClockMs() != 2700 {
		t.Fatalf("expected the engine clock to advance to the final bar's close, got %d", eng.ClockMs())
	}
}

func TestDriverRunSkipsBroadcastOnRejectedBar(t *testing.T) {
	badBar := core.Bar{Symbol: "BTCUSDT", OpenTimeMs: 0, CloseTimeMs: 900, Open: 100, High: 50, Low: 150, Close: 100}
	src := &fakeSource{bars: []core.Bar{badBar}}
	r := New(src, nil)
	r.SetParams(Params{Symbol: "BTCUSDT", Interval: "15m"})

	eng := newDriverTestEngine()
	var mu sync.Mutex
	calls := 0
	d := NewDriver(r, eng, &mu, zerolog.Nop(), func(bar core.Bar, eq float64) {
		calls++
	})

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected a rejected bar to skip the broadcast callback, got %d calls", calls)
	}
}
