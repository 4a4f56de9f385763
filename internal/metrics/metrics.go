// Package metrics exposes the Prometheus metrics the engine, replayer and
// gateway update during operation, served at /metrics exactly like the
// teacher's main.go wired promhttp.Handler().
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder implements engine.MetricsRecorder, replay.MetricsRecorder and
// gateway.MetricsRecorder with a single set of registered collectors.
type Recorder struct {
	fills       *prometheus.CounterVec
	rejects     *prometheus.CounterVec
	cancels     prometheus.Counter
	equity      prometheus.Gauge
	funding     prometheus.Counter
	fundingSum  prometheus.Gauge
	openOrders  prometheus.Gauge
	barsPlayed  prometheus.Counter
	wsClients   prometheus.Gauge
}

// New builds and registers the simulator's metric collectors against reg.
// main.go passes the prometheus.NewRegistry() it serves at /metrics; tests
// pass a fresh registry of their own for isolation.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		fills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_fills_total",
			Help: "Fills booked by the matching loop.",
		}, []string{"symbol", "liquidity"}),
		rejects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sim_order_rejects_total",
			Help: "Order submissions rejected, by error kind.",
		}, []string{"kind"}),
		cancels: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sim_order_cancels_total",
			Help: "Orders canceled (explicit or reduce-only zero-clamp).",
		}),
		equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sim_equity",
			Help: "Current equity (balance + unrealized PnL).",
		}),
		funding: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sim_funding_events_total",
			Help: "Funding applications processed.",
		}),
		fundingSum: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sim_funding_cashflow_last",
			Help: "Most recent funding cash flow applied to a single position.",
		}),
		openOrders: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sim_open_orders",
			Help: "Current count of open (non-terminal) orders.",
		}),
		barsPlayed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sim_bars_played_total",
			Help: "Bars consumed by the replayer.",
		}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sim_ws_clients",
			Help: "Connected WebSocket subscribers.",
		}),
	}
	reg.MustRegister(r.fills, r.rejects, r.cancels, r.equity, r.funding, r.fundingSum, r.openOrders, r.barsPlayed, r.wsClients)
	return r
}

func (r *Recorder) ObserveFill(symbol string, isMaker bool) {
	liq := "taker"
	if isMaker {
		liq = "maker"
	}
	r.fills.WithLabelValues(symbol, liq).Inc()
}

func (r *Recorder) ObserveReject(kind string) { r.rejects.WithLabelValues(kind).Inc() }
func (r *Recorder) ObserveCancel()            { r.cancels.Inc() }
func (r *Recorder) SetEquity(v float64)       { r.equity.Set(v) }
func (r *Recorder) ObserveFunding(payment float64) {
	r.funding.Inc()
	r.fundingSum.Set(payment)
}
func (r *Recorder) SetOpenOrders(n int)  { r.openOrders.Set(float64(n)) }
func (r *Recorder) ObserveBarPlayed()    { r.barsPlayed.Inc() }
func (r *Recorder) SetWSClients(n int)   { r.wsClients.Set(float64(n)) }
