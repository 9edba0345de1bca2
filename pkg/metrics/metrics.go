package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes session counters on a private registry. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ticks     prometheus.Counter
	quotes    *prometheus.CounterVec
	trades    prometheus.Counter
	cancels   prometheus.Counter
	clips     prometheus.Counter
	lastPrice prometheus.Gauge
	depth     *prometheus.GaugeVec
	profit    *prometheus.CounterVec
	simTime   prometheus.Gauge
}

// New registers the session metrics under namespace.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Simulation ticks executed",
		}),

		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quotes_total",
			Help:      "Quotes submitted to the exchange by strategy",
		}, []string{"strategy"}),

		trades: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Trades executed",
		}),

		cancels: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cancels_total",
			Help:      "Stale quotes cancelled on new customer orders",
		}),

		clips: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_clips_total",
			Help:      "Quotes forced into the market price band",
		}),

		lastPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_trade_price",
			Help:      "Price of the most recent trade",
		}),

		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "orderbook_depth",
			Help:      "Resting quantity by side",
		}, []string{"side"}),

		profit: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "profit_total",
			Help:      "Realized profit by strategy",
		}, []string{"strategy"}),

		simTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sim_time_seconds",
			Help:      "Current simulated session time",
		}),
	}

	registry.MustRegister(
		m.ticks, m.quotes, m.trades, m.cancels, m.clips,
		m.lastPrice, m.depth, m.profit, m.simTime,
	)
	return m
}

// Registry returns the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Tick(now float64) {
	if m == nil {
		return
	}
	m.ticks.Inc()
	m.simTime.Set(now)
}

func (m *Metrics) Quote(strategy string) {
	if m == nil {
		return
	}
	m.quotes.WithLabelValues(strategy).Inc()
}

func (m *Metrics) Trade(price int64) {
	if m == nil {
		return
	}
	m.trades.Inc()
	m.lastPrice.Set(float64(price))
}

func (m *Metrics) Cancel() {
	if m == nil {
		return
	}
	m.cancels.Inc()
}

func (m *Metrics) Clip() {
	if m == nil {
		return
	}
	m.clips.Inc()
}

func (m *Metrics) Profit(strategy string, amount int64) {
	if m == nil || amount <= 0 {
		return
	}
	m.profit.WithLabelValues(strategy).Add(float64(amount))
}

func (m *Metrics) Depth(bids, asks int) {
	if m == nil {
		return
	}
	m.depth.WithLabelValues("bid").Set(float64(bids))
	m.depth.WithLabelValues("ask").Set(float64(asks))
}
