package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	dueStrategies prometheus.Gauge
	strategyRuns  *prometheus.CounterVec
	strategyTime  *prometheus.HistogramVec
	errorsTotal   *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	latency       *prometheus.HistogramVec
}

// New registers the recorder on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the recorder on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		cycles: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strattick_cycles_total",
				Help: "Tick cycles by outcome",
			},
			[]string{"outcome"},
		),
		cycleDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "strattick_cycle_duration_seconds",
				Help:    "Wall time of a tick cycle",
				Buckets: prometheus.DefBuckets,
			},
		),
		dueStrategies: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "strattick_due_strategies",
				Help: "Strategies due in the last cycle",
			},
		),
		strategyRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strattick_strategy_runs_total",
				Help: "Strategy invocations by outcome",
			},
			[]string{"strategy", "outcome"},
		),
		strategyTime: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strattick_strategy_duration_seconds",
				Help:    "Wall time of one strategy invocation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "strattick_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "strattick_last_price",
				Help: "Last recorded price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "strattick_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle records the outcome of one tick cycle.
func (r *Recorder) RecordCycle(outcome string, due int, seconds float64) {
	r.cycles.WithLabelValues(outcome).Inc()
	r.cycleDuration.Observe(seconds)
	r.dueStrategies.Set(float64(due))
}

// RecordStrategyRun records one strategy invocation.
func (r *Recorder) RecordStrategyRun(strategyID, outcome string, seconds float64) {
	r.strategyRuns.WithLabelValues(strategyID, outcome).Inc()
	r.strategyTime.WithLabelValues(strategyID).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Noop discards every observation.
type Noop struct{}

func (Noop) RecordCycle(string, int, float64)          {}
func (Noop) RecordStrategyRun(string, string, float64) {}
func (Noop) RecordError(string)                        {}
func (Noop) RecordLastPrice(string, float64)           {}
func (Noop) RecordLatency(string, float64)             {}
