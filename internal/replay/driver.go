package replay

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/uri157/exchange-simulator/internal/core"
	"github.com/uri157/exchange-simulator/internal/engine"
)

// Driver is the replay task of §5: the sole writer of engine state. It
// pulls bars from a Replayer and feeds engine.OnBar, serialized against
// any concurrent request handlers via the supplied mutex — discipline (b)
// of §5's two equivalent serialization disciplines.
type Driver struct {
	replayer *Replayer
	engine   *engine.Engine
	mu       *sync.Mutex
	log      zerolog.Logger

	onBroadcast func(bar core.Bar, eq float64)
}

// NewDriver builds a Driver. mu must be the same mutex request handlers
// acquire before reading or mutating engine state. onBroadcast, if set, is
// called after each bar commits, outside the lock, to fan the update out
// to WebSocket subscribers (§5 "WebSocket broadcast at bar-close").
func NewDriver(replayer *Replayer, eng *engine.Engine, mu *sync.Mutex, log zerolog.Logger, onBroadcast func(bar core.Bar, eq float64)) *Driver {
	return &Driver{replayer: replayer, engine: eng, mu: mu, log: log, onBroadcast: onBroadcast}
}

// Run consumes the Replayer's stream until it closes or ctx is canceled,
// committing each bar to the engine under the shared lock (§5 "held for
// the duration of on_bar"). A bar the engine rejects is logged and
// skipped. Returns the stream's error: nil when the buffer is exhausted or
// Stop was called, the load error if loading failed, and the context's
// error on cancellation.
func (d *Driver) Run(ctx context.Context) error {
	bars, errc := d.replayer.Stream(ctx)
	for bar := range bars {
		d.mu.Lock()
		err := d.engine.OnBar(bar)
		eq := 0.0
		if err == nil {
			eq = d.engine.Equity()
		}
		d.mu.Unlock()

		if err != nil {
			d.log.Error().Err(err).Str("symbol", bar.Symbol).Msg("replay: bar rejected")
			continue
		}
		if d.onBroadcast != nil {
			d.onBroadcast(bar, eq)
		}
	}
	return <-errc
}
