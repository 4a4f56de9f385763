// Package engine wires the Position Ledger, Account, Fill Model and sink
// into the single matching loop described in §4.4-4.6: the Executor. The
// Executor is the sole owner of open_orders; it is not internally locked
// (§5) — callers that need serialized access (the gateway) wrap it with
// their own mutex or single-threaded event loop.
package engine

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/uri157/exchange-simulator/internal/core"
	"github.com/uri157/exchange-simulator/internal/fillmodel"
)

// Sink is the analytical-store collaborator of §6.2. Implementations must
// tolerate out-of-order arrival within a single bar but never across bars.
type Sink interface {
	NewRun(ctx context.Context, strategyLabel string, params map[string]any) (string, error)
	LogFill(ctx context.Context, ts int64, symbol string, side core.Side, price, qty, realizedPnL, fee float64, isMaker bool) error
	LogEquity(ctx context.Context, ts int64, equity float64) error
}

// MetricsRecorder is the minimal observability hook the engine drives; the
// concrete implementation lives in internal/metrics to avoid an import
// cycle. A nil recorder is valid (no-op).
type MetricsRecorder interface {
	ObserveFill(symbol string, isMaker bool)
	ObserveReject(kind string)
	ObserveCancel()
	SetEquity(v float64)
	ObserveFunding(payment float64)
	SetOpenOrders(n int)
}

// Config bundles the knobs an Engine is constructed with (§3 Run entity).
type Config struct {
	StrategyLabel   string
	Params          map[string]any
	StartingBalance float64
	MakerFee        float64
	TakerFee        float64
	FillModel       fillmodel.Model
	Sink            Sink
	Metrics         MetricsRecorder
	Logger          zerolog.Logger

	// OnBarOpen is an optional hook invoked after last_price is set to
	// bar.open and before the matching step (§4.8: the Strategy Host's
	// on_bar runs exactly here). Declared as a plain func rather than an
	// interface so internal/strategy can depend on internal/engine
	// without a cycle back.
	OnBarOpen func(e *Engine, bar core.Bar)
}

// Engine is the matching loop plus its owned state: the Account, the
// per-symbol Position Ledger, the open-orders collection, the funding
// cursor and the bar clock.
type Engine struct {
	run       *core.Run
	account   *core.Account
	positions map[string]*core.Position
	lastPrice map[string]float64
	clockMs   int64

	openOrders []*core.Order
	orderIndex map[int64]int
	nextID     int64

	funding       []core.FundingEvent
	fundingCursor int

	fillModel fillmodel.Model
	sink      Sink
	metrics   MetricsRecorder
	log       zerolog.Logger
	onBarOpen func(e *Engine, bar core.Bar)
}

// New constructs an Engine with a fresh Run record (§3 "created before
// first fill").
func New(ctx context.Context, cfg Config, runID string) *Engine {
	if runID == "" {
		runID = uuid.NewString()
	}
	if cfg.Sink != nil {
		if id, err := cfg.Sink.NewRun(ctx, cfg.StrategyLabel, cfg.Params); err == nil && id != "" {
			runID = id
		}
	}
	return &Engine{
		run: &core.Run{
			RunID:         runID,
			StrategyLabel: cfg.StrategyLabel,
			Params:        cfg.Params,
			FeeConfig: core.FeeConfig{
				MakerFee: cfg.MakerFee,
				TakerFee: cfg.TakerFee,
			},
		},
		account:    core.NewAccount(cfg.StartingBalance, cfg.MakerFee, cfg.TakerFee),
		positions:  make(map[string]*core.Position),
		lastPrice:  make(map[string]float64),
		orderIndex: make(map[int64]int),
		fillModel:  cfg.FillModel,
		sink:       cfg.Sink,
		metrics:    cfg.Metrics,
		log:        cfg.Logger,
		onBarOpen:  cfg.OnBarOpen,
	}
}

// Run returns the engine's run record.
func (e *Engine) Run() core.Run { return *e.run }

// Account returns a copy of the current account state.
func (e *Engine) Account() core.Account { return *e.account }

// Position returns a copy of the position for symbol (zero value if none).
func (e *Engine) Position(symbol string) core.Position {
	if p, ok := e.positions[symbol]; ok {
		return *p
	}
	return core.Position{Symbol: symbol}
}

// LastPrice returns the last observed price for symbol and whether one is
// known yet.
func (e *Engine) LastPrice(symbol string) (float64, bool) {
	p, ok := e.lastPrice[symbol]
	return p, ok
}

// ClockMs returns the engine's current bar-clock time.
func (e *Engine) ClockMs() int64 { return e.clockMs }

// SetFunding installs the sorted funding event schedule (§4.6). Must be
// called before replay begins; the cursor resets to zero.
func (e *Engine) SetFunding(events []core.FundingEvent) {
	e.funding = events
	e.fundingCursor = 0
}

// positionFor lazily creates a flat position for symbol (§3 "created lazily
// on first non-zero fill").
func (e *Engine) positionFor(symbol string) *core.Position {
	p, ok := e.positions[symbol]
	if !ok {
		p = &core.Position{Symbol: symbol}
		e.positions[symbol] = p
	}
	return p
}

// Equity returns balance + sum of unrealized PnL across all positions at
// their respective last prices (§3, §8).
func (e *Engine) Equity() float64 { return e.equity() }

// equity computes balance + sum of unrealized PnL across all positions at
// their respective last prices (§3, §8).
func (e *Engine) equity() float64 {
	total := e.account.Balance
	for sym, p := range e.positions {
		if last, ok := e.lastPrice[sym]; ok {
			total += p.UnrealizedPnL(last)
		}
	}
	return total
}
