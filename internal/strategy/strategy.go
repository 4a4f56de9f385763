// Package strategy defines the optional Strategy Host of §4.8: a pluggable
// decision-maker driven through the Executor's OnBarOpen hook, mirroring the
// teacher's Broker abstraction in broker.go — a small interface any
// concrete backend implements, resolved by name from a registry rather than
// wired by the caller directly.
package strategy

import (
	"github.com/uri157/exchange-simulator/internal/core"
	"github.com/uri157/exchange-simulator/internal/engine"
)

// Strategy is driven once per bar from the Executor's OnBarOpen hook, after
// last_price has been set to the bar's open and before the bar is matched,
// so a MARKET order it submits fills at the open. Implementations must not
// retain the Bar or Engine pointer beyond the call.
type Strategy interface {
	// OnStart is called once before the first bar, with the engine the
	// strategy may submit orders against.
	OnStart(e *engine.Engine) error

	// OnBar is called once per bar, at the open and before matching.
	OnBar(e *engine.Engine, bar core.Bar) error

	// OnFinish marks the end of a run. cmd/exchange-simulator calls
	// OnStart and OnBar only; it never calls OnFinish.
	OnFinish(e *engine.Engine) error
}
