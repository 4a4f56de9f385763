// Package gateway exposes the engine over a Binance-USDⓈ-M-style REST and
// WebSocket surface (§6.3), grounded on
// SAbdulRahuman-opense-ai-agents/opense.ai/api/server.go's chi Server
// struct, buildRouter, and WSHub pattern, with the hub itself specialized
// on 0xtitan6-polymarket-mm/internal/api/stream.go.
package gateway

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/uri157/exchange-simulator/internal/core"
	"github.com/uri157/exchange-simulator/internal/engine"
	"github.com/uri157/exchange-simulator/internal/replay"
)

// MetricsRecorder is the subset of internal/metrics.Recorder the gateway
// drives directly (everything else flows through the engine/replayer,
// which hold their own recorder references). Declared locally to avoid an
// import cycle, mirroring engine.MetricsRecorder and replay.MetricsRecorder.
type MetricsRecorder interface {
	SetWSClients(n int)
}

// Server wires the engine, replayer and driver behind chi-routed HTTP
// handlers. It owns no engine state itself; every handler that reads or
// mutates the engine acquires mu first, matching the discipline
// replay.Driver uses for its own bar commits (§5).
type Server struct {
	engine   *engine.Engine
	replayer *replay.Replayer
	driver   *replay.Driver
	mu       *sync.Mutex

	hub        *hub
	listenKeys *listenKeyManager
	log        zerolog.Logger

	allowedOrigins []string
	router         chi.Router
}

// Config bundles the knobs Server needs beyond the collaborators
// themselves. The Driver is constructed by New, not supplied, since its
// onBroadcast callback must close over the Server's own hub.
type Config struct {
	Engine         *engine.Engine
	Replayer       *replay.Replayer
	Mutex          *sync.Mutex
	Metrics        MetricsRecorder
	Logger         zerolog.Logger
	JWTSecret      string
	ListenKeyTTL   time.Duration
	AllowedOrigins []string
}

// New builds a Server, its hub and its replay driver, and wires the
// router. The returned Server is ready to be passed to ListenAndServe.
func New(cfg Config) *Server {
	s := &Server{
		engine:         cfg.Engine,
		replayer:       cfg.Replayer,
		mu:             cfg.Mutex,
		hub:            newHub(cfg.Logger, cfg.Metrics),
		listenKeys:     newListenKeyManager(cfg.JWTSecret, cfg.ListenKeyTTL),
		log:            cfg.Logger,
		allowedOrigins: cfg.AllowedOrigins,
	}
	s.driver = replay.NewDriver(cfg.Replayer, cfg.Engine, cfg.Mutex, cfg.Logger, s.onBarCommit)
	go s.hub.run()
	s.router = s.buildRouter()
	return s
}

// onBarCommit is passed to replay.NewDriver as the onBroadcast callback:
// it fans each committed bar and the resulting equity out to every
// connected WebSocket client (§5 "WebSocket broadcast at bar-close").
func (s *Server) onBarCommit(bar core.Bar, eq float64) {
	s.hub.broadcastEnvelope("bar", map[string]any{
		"symbol":    bar.Symbol,
		"openTime":  bar.OpenTimeMs,
		"closeTime": bar.CloseTimeMs,
		"open":      fmt8(bar.Open),
		"high":      fmt8(bar.High),
		"low":       fmt8(bar.Low),
		"close":     fmt8(bar.Close),
		"volume":    fmt8(bar.Volume),
	})
	s.hub.broadcastEnvelope("markPrice", map[string]any{
		"symbol": bar.Symbol,
		"price":  fmt8(bar.Close),
		"equity": fmt8(eq),
	})
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/fapi/v1/time", s.handleServerTime)
	r.Get("/fapi/v1/exchangeInfo", s.handleExchangeInfo)
	r.Get("/fapi/v1/klines", s.handleKlines)
	r.Get("/fapi/v1/premiumIndex", s.handlePremiumIndex)
	r.Get("/fapi/v1/fundingRate", s.handleFundingRate)
	r.Get("/fapi/v1/ticker/bookTicker", s.handleBookTicker)

	r.Post("/fapi/v1/order", s.handlePlaceOrder)
	r.Delete("/fapi/v1/order", s.handleCancelOrder)
	r.Get("/fapi/v1/order", s.handleGetOrder)
	r.Get("/fapi/v1/openOrders", s.handleOpenOrders)
	r.Delete("/fapi/v1/allOpenOrders", s.handleCancelAllOrders)

	r.Get("/fapi/v2/positionRisk", s.handlePositionRisk)
	r.Get("/fapi/v2/balance", s.handleBalance)
	r.Post("/fapi/v1/leverage", s.handleSetLeverage)
	r.Post("/fapi/v1/marginType", s.handleSetMarginType)
	r.Post("/fapi/v1/positionSide/dual", s.handleSetPositionSide)

	r.Post("/fapi/v1/listenKey", s.handleListenKeyCreate)
	r.Put("/fapi/v1/listenKey", s.handleListenKeyKeepAlive)
	r.Delete("/fapi/v1/listenKey", s.handleListenKeyClose)

	r.Get("/admin/status", s.handleAdminStatus)
	r.Post("/admin/replay", s.handleAdminReplay)

	r.Get("/stream", s.handleStream)
	r.Get("/ws/stream", s.handleStream)

	return r
}

// ListenAndServe starts the HTTP server and runs the replay driver
// concurrently, returning when either stops or ctx is canceled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errc := make(chan error, 2)
	go func() { errc <- s.driver.Run(ctx) }()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("gateway: listen")
			errc <- err
		}
	}()

	return <-errc
}

func loggingMiddleware(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Dur("elapsed", time.Since(start)).
				Msg("gateway: request")
		})
	}
}
