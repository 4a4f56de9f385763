// Package replay implements the Replayer of §4.7: a paced async producer of
// bars, decoupled from the engine by a bounded channel, grounded on the
// teacher's runBacktest candle loop (backtest.go) generalized from "iterate
// a slice once at full speed" into "iterate a slice at a configurable
// real-time throttle, restartably reconfigured, cooperatively stoppable."
package replay

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/uri157/exchange-simulator/internal/core"
)

// Source loads the bar sequence for a (symbol, interval, start, end)
// window. internal/datasource implementations (CSV, HTTP) satisfy this.
type Source interface {
	LoadBars(ctx context.Context, symbol, interval string, startMs, endMs int64) ([]core.Bar, error)
}

// Params configures a replay window (§4.7).
type Params struct {
	Symbol     string
	Interval   string
	StartMs    int64
	EndMs      int64
	BarsPerSec float64 // 0 = unthrottled (offline runner)
}

// MetricsRecorder is the subset of internal/metrics.Recorder the replayer
// drives; declared locally to avoid an import cycle, mirroring
// engine.MetricsRecorder.
type MetricsRecorder interface {
	ObserveBarPlayed()
}

// Replayer holds the loaded bar sequence in memory (§4.7: "finite, sorted
// by open_time"). SetParams, Stop, Bars and Symbol may be called from
// other goroutines while a stream runs; a running stream keeps the buffer
// and pace it started with.
type Replayer struct {
	source  Source
	metrics MetricsRecorder

	mu      sync.Mutex
	params  Params
	bars    []core.Bar
	loaded  bool
	stopped bool
}

// New constructs a Replayer over source. metrics may be nil.
func New(source Source, metrics MetricsRecorder) *Replayer {
	return &Replayer{source: source, metrics: metrics}
}

// SetParams reconfigures the replay window (§4.7 "invalidates the loaded
// buffer; a subsequent stream call reloads").
func (r *Replayer) SetParams(p Params) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = p
	r.loaded = false
	r.bars = nil
	r.stopped = false
}

// Stop requests the current stream terminate after the bar in flight
// (§4.7 "a stop request causes the stream to terminate after the current
// bar"). Cooperative: safe to call from another goroutine.
func (r *Replayer) Stop() {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
}

// Bars returns the currently loaded buffer, or nil if nothing has been
// loaded yet. Used by the gateway's klines endpoint to serve historical
// bars without a second source round-trip.
func (r *Replayer) Bars() []core.Bar {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Bar(nil), r.bars...)
}

// Symbol returns the symbol configured by the most recent SetParams call,
// or "" if none has been set yet. Used by gateway handlers that need a
// default symbol when the request omits one.
func (r *Replayer) Symbol() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params.Symbol
}

func (r *Replayer) isStopped() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stopped
}

func (r *Replayer) ensureLoaded(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return nil
	}
	bars, err := r.source.LoadBars(ctx, r.params.Symbol, r.params.Interval, r.params.StartMs, r.params.EndMs)
	if err != nil {
		return err
	}
	r.bars = bars
	r.loaded = true
	return nil
}

// Stream returns a lazy, finite, non-restartable channel of bars, paced at
// params.BarsPerSec (§4.7). The channel is closed when the buffer is
// exhausted, the context is canceled, or Stop is called. A zero
// BarsPerSec disables pacing entirely (the offline runner's case).
//
// Stream spawns one producer goroutine, managed via errgroup so a load
// error surfaces through the returned error channel rather than a panic —
// mirrors the fan-out/fan-in discipline of the teacher-pack's
// aggregator-style concurrent fetchers.
func (r *Replayer) Stream(ctx context.Context) (<-chan core.Bar, <-chan error) {
	out := make(chan core.Bar, 16)
	errc := make(chan error, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(out)
		if err := r.ensureLoaded(gctx); err != nil {
			return err
		}

		r.mu.Lock()
		bars, barsPerSec := r.bars, r.params.BarsPerSec
		r.mu.Unlock()

		var interval time.Duration
		if barsPerSec > 0 {
			interval = time.Duration(float64(time.Second) / barsPerSec)
		}

		for _, bar := range bars {
			if r.isStopped() {
				return nil
			}
			select {
			case <-gctx.Done():
				return gctx.Err()
			case out <- bar:
			}
			if r.metrics != nil {
				r.metrics.ObserveBarPlayed()
			}
			if interval > 0 {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-time.After(interval):
				}
			}
		}
		return nil
	})

	go func() {
		errc <- g.Wait()
		close(errc)
	}()

	return out, errc
}
