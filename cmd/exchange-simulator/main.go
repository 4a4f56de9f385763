// Command exchange-simulator wires the configured source, fill model,
// sink, strategy and (for the gateway subcommand) the REST/WebSocket
// surface around a single internal/engine.Engine. Grounded on the
// teacher's main.go (env-switch broker selection, Prometheus
// /healthz+/metrics mux) and web3guy0-polybot/cmd/polybot/main.go's
// zerolog ConsoleWriter + SetGlobalLevel init.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/uri157/exchange-simulator/internal/config"
	"github.com/uri157/exchange-simulator/internal/core"
	"github.com/uri157/exchange-simulator/internal/datasource"
	"github.com/uri157/exchange-simulator/internal/engine"
	"github.com/uri157/exchange-simulator/internal/fillmodel"
	"github.com/uri157/exchange-simulator/internal/gateway"
	"github.com/uri157/exchange-simulator/internal/metrics"
	"github.com/uri157/exchange-simulator/internal/replay"
	"github.com/uri157/exchange-simulator/internal/sink"
	"github.com/uri157/exchange-simulator/internal/strategy"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "exchange-simulator",
		Short: "Deterministic exchange simulator for perpetual-futures markets",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to config file")

	root.AddCommand(backtestCmd())
	root.AddCommand(gatewayCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogger(cfg config.LoggingConfig) zerolog.Logger {
	var w io.Writer = os.Stderr
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: os.Stderr}
	}
	log := zerolog.New(w).With().Timestamp().Logger()
	lvl, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	return log
}

func buildFillModel(cfg config.FillModeConfig) (fillmodel.Model, error) {
	switch cfg.Kind {
	case "ohlc", "":
		return fillmodel.OHLCPath{UpFirst: cfg.UpFirst, SlippageBps: cfg.SlippageBps}, nil
	case "random":
		return fillmodel.NewRandomOHLC(cfg.Seed, cfg.SlippageBps), nil
	case "bookticker":
		return fillmodel.L1BookTicker{UpFirst: cfg.UpFirst, HalfSpreadBps: cfg.HalfSpreadBps, SlippageBps: cfg.SlippageBps}, nil
	default:
		return nil, fmt.Errorf("unknown fill_model.kind %q", cfg.Kind)
	}
}

func buildSource(cfg config.SourceConfig) (replay.Source, error) {
	switch cfg.Kind {
	case "csv", "":
		return datasource.CSV{Path: cfg.CSVPath}, nil
	case "http":
		return datasource.NewHTTP(cfg.HTTPURL), nil
	default:
		return nil, fmt.Errorf("unknown source.kind %q", cfg.Kind)
	}
}

func buildSink(ctx context.Context, cfg config.SinkConfig) (engine.Sink, func() error, error) {
	switch cfg.Kind {
	case "postgres":
		pg, err := sink.NewPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, func() error { pg.Close(); return nil }, nil
	case "sqlite", "":
		sq, err := sink.NewSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return sq, sq.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown sink.kind %q", cfg.Kind)
	}
}

func parseRunWindow(cfg config.RunConfig) (startMs, endMs int64, err error) {
	const layout = "2006-01-02"
	start, err := time.Parse(layout, cfg.StartDate)
	if err != nil {
		return 0, 0, fmt.Errorf("run.start_date: %w", err)
	}
	end, err := time.Parse(layout, cfg.EndDate)
	if err != nil {
		return 0, 0, fmt.Errorf("run.end_date: %w", err)
	}
	return start.UnixMilli(), end.UnixMilli(), nil
}

func buildEngine(ctx context.Context, cfg *config.Config, log zerolog.Logger, reg prometheus.Registerer) (*engine.Engine, *metrics.Recorder, engine.Sink, func() error, error) {
	rec := metrics.New(reg)

	fm, err := buildFillModel(cfg.FillMode)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	sk, closeSink, err := buildSink(ctx, cfg.Sink)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	strat, err := strategy.New(cfg.Run.Strategy, nil)
	if err != nil {
		closeSink()
		return nil, nil, nil, nil, err
	}

	eng := engine.New(ctx, engine.Config{
		StrategyLabel:   cfg.Run.Strategy,
		StartingBalance: cfg.Run.StartingBalance,
		MakerFee:        cfg.Fees.MakerFee,
		TakerFee:        cfg.Fees.TakerFee,
		FillModel:       fm,
		Sink:            sk,
		Metrics:         rec,
		Logger:          log,
		OnBarOpen: func(e *engine.Engine, bar core.Bar) {
			if err := strat.OnBar(e, bar); err != nil {
				log.Warn().Err(err).Msg("strategy: on_bar")
			}
		},
	}, "")

	if err := strat.OnStart(eng); err != nil {
		closeSink()
		return nil, nil, nil, nil, err
	}

	return eng, rec, sk, closeSink, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		log.Info().Str("addr", addr).Msg("serving /metrics and /healthz")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server")
		}
	}()
}

func backtestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backtest",
		Short: "Run a single deterministic replay to completion",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := initLogger(cfg.Logging)

			reg := prometheus.NewRegistry()
			serveMetrics(":9090", reg, log)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			eng, rec, _, closeSink, err := buildEngine(ctx, cfg, log, reg)
			if err != nil {
				return err
			}
			defer closeSink()

			startMs, endMs, err := parseRunWindow(cfg.Run)
			if err != nil {
				return err
			}
			src, err := buildSource(cfg.Source)
			if err != nil {
				return err
			}

			rp := replay.New(src, rec)
			rp.SetParams(replay.Params{
				Symbol:     cfg.Run.Symbol,
				Interval:   cfg.Run.Interval,
				StartMs:    startMs,
				EndMs:      endMs,
				BarsPerSec: cfg.Run.BarsPerSec,
			})
			mu := &sync.Mutex{}
			driver := replay.NewDriver(rp, eng, mu, log, nil)

			if err := driver.Run(ctx); err != nil {
				return err
			}
			log.Info().Float64("equity", eng.Equity()).Msg("backtest complete")
			return nil
		},
	}
}

func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Serve the Binance-style REST/WebSocket gateway over a live replay",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := initLogger(cfg.Logging)

			reg := prometheus.NewRegistry()
			serveMetrics(":9090", reg, log)

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			eng, rec, _, closeSink, err := buildEngine(ctx, cfg, log, reg)
			if err != nil {
				return err
			}
			defer closeSink()

			startMs, endMs, err := parseRunWindow(cfg.Run)
			if err != nil {
				return err
			}
			src, err := buildSource(cfg.Source)
			if err != nil {
				return err
			}

			rp := replay.New(src, rec)
			rp.SetParams(replay.Params{
				Symbol:     cfg.Run.Symbol,
				Interval:   cfg.Run.Interval,
				StartMs:    startMs,
				EndMs:      endMs,
				BarsPerSec: cfg.Run.BarsPerSec,
			})
			mu := &sync.Mutex{}

			srv := gateway.New(gateway.Config{
				Engine:         eng,
				Replayer:       rp,
				Mutex:          mu,
				Metrics:        rec,
				Logger:         log,
				JWTSecret:      cfg.Gateway.JWTSecret,
				ListenKeyTTL:   cfg.Gateway.ListenKeyTTL,
				AllowedOrigins: cfg.Gateway.AllowedOrigins,
			})

			return srv.ListenAndServe(ctx, cfg.Gateway.ListenAddr)
		},
	}
}
