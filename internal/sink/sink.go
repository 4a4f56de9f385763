// Package sink implements the analytical-store collaborator of §6.2: a
// GORM-backed sink that records fills and equity samples, grounded on the
// teacher-pack's gorm.io/gorm usage in web3guy0-polybot/internal/database.
// The default backend is an embedded SQLite file (no external service
// required to run a backtest); an optional Postgres backend is selected
// when a DSN is configured (postgres.go).
package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/uri157/exchange-simulator/internal/core"
)

// runRow, fillRow and equityRow are the GORM models persisted for a run.
// Grounded on the teacher-pack's Trade/ArbTrade row shapes — one flat
// struct per domain event, auto-migrated at startup.
type runRow struct {
	RunID         string `gorm:"primaryKey"`
	StrategyLabel string
	ParamsJSON    string
	CreatedAt     time.Time
}

type fillRow struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	RunID       string `gorm:"index"`
	TsMs        int64  `gorm:"index"`
	Symbol      string `gorm:"index"`
	Side        string
	Price       float64
	Qty         float64
	RealizedPnL float64
	Fee         float64
	IsMaker     bool
	CreatedAt   time.Time
}

type equityRow struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"index"`
	TsMs      int64  `gorm:"index"`
	Equity    float64
	CreatedAt time.Time
}

// SQLite is the default embedded engine.Sink implementation.
type SQLite struct {
	db    *gorm.DB
	runID string
}

// NewSQLite opens (creating if needed) a sqlite database file at path and
// auto-migrates the sink's tables.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sink: mkdir %s: %w", dir, err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sink: open sqlite %s: %w", path, err)
	}
	if err := db.AutoMigrate(&runRow{}, &fillRow{}, &equityRow{}); err != nil {
		return nil, fmt.Errorf("sink: automigrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

// NewRun implements engine.Sink: it generates a fresh run id on every
// call, persists a row naming the run, and returns that id.
func (s *SQLite) NewRun(ctx context.Context, strategyLabel string, params map[string]any) (string, error) {
	s.runID = uuid.NewString()
	paramsJSON, err := marshalParams(params)
	if err != nil {
		return "", fmt.Errorf("sink: marshal params: %w", err)
	}
	row := runRow{RunID: s.runID, StrategyLabel: strategyLabel, ParamsJSON: paramsJSON, CreatedAt: time.Now()}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("sink: create run: %w", err)
	}
	return s.runID, nil
}

// LogFill implements engine.Sink.
func (s *SQLite) LogFill(ctx context.Context, ts int64, symbol string, side core.Side, price, qty, realizedPnL, fee float64, isMaker bool) error {
	row := fillRow{
		RunID: s.runID, TsMs: ts, Symbol: symbol, Side: string(side),
		Price: price, Qty: qty, RealizedPnL: realizedPnL, Fee: fee, IsMaker: isMaker,
		CreatedAt: time.Now(),
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

// LogEquity implements engine.Sink.
func (s *SQLite) LogEquity(ctx context.Context, ts int64, equity float64) error {
	row := equityRow{RunID: s.runID, TsMs: ts, Equity: equity, CreatedAt: time.Now()}
	return s.db.WithContext(ctx).Create(&row).Error
}

// Close releases the underlying connection pool.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
