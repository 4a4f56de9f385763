package strategy

import (
	"github.com/uri157/exchange-simulator/internal/core"
	"github.com/uri157/exchange-simulator/internal/engine"
)

// noop is the default strategy: it submits nothing and simply lets the
// gateway or an external driver place orders directly against the engine.
type noop struct{}

func (noop) OnStart(*engine.Engine) error        { return nil }
func (noop) OnBar(*engine.Engine, core.Bar) error { return nil }
func (noop) OnFinish(*engine.Engine) error        { return nil }

func init() {
	Register("noop", func(map[string]any) (Strategy, error) { return noop{}, nil })
}
