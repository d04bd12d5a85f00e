package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder implements ports.Metrics using Prometheus.
type Recorder struct {
	registry     *prometheus.Registry
	tickDuration prometheus.Histogram
	replacements prometheus.Counter
	trades       *prometheus.CounterVec
	persistErrs  *prometheus.CounterVec
	portfolio    prometheus.Gauge
	price        *prometheus.GaugeVec
}

// New creates a recorder on its own registry, so tests and multiple engines
// never collide on the global one.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "memesim_tick_duration_seconds",
			Help:    "Duration of one simulation tick in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .333},
		}),
		replacements: f.NewCounter(prometheus.CounterOpts{
			Name: "memesim_replacements_total",
			Help: "Total number of tickers delisted and replaced",
		}),
		trades: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memesim_trades_total",
			Help: "Trades by side and result",
		}, []string{"side", "result"}),
		persistErrs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "memesim_persistence_errors_total",
			Help: "Snapshot store failures by operation",
		}, []string{"op"}),
		portfolio: f.NewGauge(prometheus.GaugeOpts{
			Name: "memesim_portfolio_value",
			Help: "Total portfolio value at the last revaluation",
		}),
		price: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "memesim_ticker_price",
			Help: "Current price of a live ticker",
		}, []string{"symbol"}),
	}
}

// ObserveTick records tick latency and how many tickers were replaced.
func (r *Recorder) ObserveTick(d time.Duration, replaced int) {
	r.tickDuration.Observe(d.Seconds())
	r.replacements.Add(float64(replaced))
}

// RecordTrade counts one trade attempt.
func (r *Recorder) RecordTrade(side, result string) {
	r.trades.WithLabelValues(side, result).Inc()
}

// RecordPersistenceError counts one store failure.
func (r *Recorder) RecordPersistenceError(op string) {
	r.persistErrs.WithLabelValues(op).Inc()
}

// SetPortfolioValue records the latest total value.
func (r *Recorder) SetPortfolioValue(v float64) {
	r.portfolio.Set(v)
}

// SetTickerPrice records a live ticker's price.
func (r *Recorder) SetTickerPrice(symbol string, price float64) {
	r.price.WithLabelValues(symbol).Set(price)
}

// RemoveTicker drops the price series of a delisted symbol.
func (r *Recorder) RemoveTicker(symbol string) {
	r.price.DeleteLabelValues(symbol)
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
