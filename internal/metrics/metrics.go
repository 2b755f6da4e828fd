// Package metrics holds the Prometheus instrumentation for the evaluator and
// the position watcher.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric the service exports. It owns its own Prometheus
// registry so tests and repeated construction never collide on registration.
type Registry struct {
	reg *prometheus.Registry

	Evaluations    *prometheus.CounterVec
	GateBlocks     *prometheus.CounterVec
	SignalsEmitted *prometheus.CounterVec
	EvalDuration   *prometheus.HistogramVec

	OpenPositions  prometheus.Gauge
	PositionEvents *prometheus.CounterVec
	PositionCloses *prometheus.CounterVec

	TicksDropped prometheus.Counter
}

// NewRegistry creates and registers all metrics
func NewRegistry() *Registry {
	m := &Registry{
		reg: prometheus.NewRegistry(),

		Evaluations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendgate_evaluations_total",
				Help: "Pipeline evaluations by timeframe and verdict kind",
			},
			[]string{"timeframe", "kind"},
		),

		GateBlocks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendgate_gate_blocks_total",
				Help: "Rejections by gate stage and reason",
			},
			[]string{"stage", "reason"},
		),

		SignalsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendgate_signals_total",
				Help: "Accepted signals by timeframe and direction",
			},
			[]string{"timeframe", "direction"},
		),

		EvalDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trendgate_evaluation_duration_seconds",
				Help:    "Full pipeline evaluation duration",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"timeframe"},
		),

		OpenPositions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "trendgate_open_positions",
				Help: "Number of non-terminal positions",
			},
		),

		PositionEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendgate_position_events_total",
				Help: "Lifecycle events by type",
			},
			[]string{"event"},
		),

		PositionCloses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trendgate_position_closes_total",
				Help: "Terminal positions by outcome verdict",
			},
			[]string{"verdict"},
		),

		TicksDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "trendgate_ticks_dropped_total",
				Help: "Price ticks skipped because the previous tick was still processing",
			},
		),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		m.Evaluations,
		m.GateBlocks,
		m.SignalsEmitted,
		m.EvalDuration,
		m.OpenPositions,
		m.PositionEvents,
		m.PositionCloses,
		m.TicksDropped,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this registry
func (m *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// ObserveEvaluation records one pipeline run
func (m *Registry) ObserveEvaluation(timeframe, kind string, d time.Duration) {
	m.Evaluations.WithLabelValues(timeframe, kind).Inc()
	m.EvalDuration.WithLabelValues(timeframe).Observe(d.Seconds())
}
