package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/uri157/exchange-simulator/internal/core"
)

// createTablesSQL is applied once at startup; grounded on the teacher-pack's
// preference for a plain migration statement run ad hoc rather than a
// migration framework (Funky1981-jax-trading-assistant's domain/*/store.go
// pattern assumes the schema pre-exists; this sink creates it itself since
// the simulator has no separate migration tool).
const createTablesSQL = `
CREATE TABLE IF NOT EXISTS sim_runs (
	run_id TEXT PRIMARY KEY,
	strategy_label TEXT NOT NULL,
	params_json TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS sim_fills (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	ts_ms BIGINT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	qty DOUBLE PRECISION NOT NULL,
	realized_pnl DOUBLE PRECISION NOT NULL,
	fee DOUBLE PRECISION NOT NULL,
	is_maker BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS sim_equity (
	id BIGSERIAL PRIMARY KEY,
	run_id TEXT NOT NULL,
	ts_ms BIGINT NOT NULL,
	equity DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sim_fills_run_ts_idx ON sim_fills (run_id, ts_ms);
CREATE INDEX IF NOT EXISTS sim_equity_run_ts_idx ON sim_equity (run_id, ts_ms);
`

// Postgres is the optional server-backed engine.Sink implementation,
// selected when a DSN is configured. Grounded on
// Funky1981-jax-trading-assistant's raw pgxpool.Pool usage
// (internal/domain/ejlayer/store.go) rather than GORM, to exercise a
// second, distinct pattern from the same pack for the same interface.
type Postgres struct {
	pool  *pgxpool.Pool
	runID string
}

// NewPostgres connects to dsn and ensures the sink's tables exist.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("sink: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sink: ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, createTablesSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("sink: create tables: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// NewRun implements engine.Sink.
func (p *Postgres) NewRun(ctx context.Context, strategyLabel string, params map[string]any) (string, error) {
	p.runID = uuid.NewString()
	paramsJSON, err := marshalParams(params)
	if err != nil {
		return "", fmt.Errorf("sink: marshal params: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO sim_runs (run_id, strategy_label, params_json, created_at) VALUES ($1, $2, $3, $4)`,
		p.runID, strategyLabel, paramsJSON, time.Now())
	if err != nil {
		return "", fmt.Errorf("sink: insert run: %w", err)
	}
	return p.runID, nil
}

// LogFill implements engine.Sink.
func (p *Postgres) LogFill(ctx context.Context, ts int64, symbol string, side core.Side, price, qty, realizedPnL, fee float64, isMaker bool) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO sim_fills (run_id, ts_ms, symbol, side, price, qty, realized_pnl, fee, is_maker, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.runID, ts, symbol, string(side), price, qty, realizedPnL, fee, isMaker, time.Now())
	if err != nil {
		return fmt.Errorf("sink: insert fill: %w", err)
	}
	return nil
}

// LogEquity implements engine.Sink.
func (p *Postgres) LogEquity(ctx context.Context, ts int64, equity float64) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO sim_equity (run_id, ts_ms, equity, created_at) VALUES ($1, $2, $3, $4)`,
		p.runID, ts, equity, time.Now())
	if err != nil {
		return fmt.Errorf("sink: insert equity: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() { p.pool.Close() }
