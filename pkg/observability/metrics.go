package observability

import (
	"context"
	"net/http"

	"github.com/aretw0/companion/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "companion"

// Turn outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the agent's collectors.
type Metrics struct {
	registry *prometheus.Registry

	NodeVisits    *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	Turns         *prometheus.CounterVec
	TurnFailures  *prometheus.CounterVec
	TurnDuration  prometheus.Histogram
	Degradations  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them, together with the
// Go runtime and process collectors, on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Total number of graph node visits.",
		}, []string{"node"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Duration of stage executions.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"node"}),
		Turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Completed turns by workflow and outcome.",
		}, []string{"workflow", "outcome"}),
		TurnFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_failures_total",
			Help:      "Failed turns by error kind.",
		}, []string{"kind"}),
		TurnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "End to end duration of turns.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		Degradations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "memory_degradations_total",
			Help:      "Tolerated memory failures by operation.",
		}, []string{"op"}),
	}
	m.registry.MustRegister(
		m.NodeVisits, m.StageDuration, m.Turns, m.TurnFailures, m.TurnDuration, m.Degradations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks records lifecycle events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeID).Inc()
		},
		OnNodeLeave: func(_ context.Context, e *domain.NodeEvent) {
			m.StageDuration.WithLabelValues(e.NodeID).Observe(e.Duration.Seconds())
		},
		OnTurnEnd: func(_ context.Context, e *domain.TurnEvent) {
			workflow := e.Workflow.String()
			if e.Err != nil {
				m.Turns.WithLabelValues(workflow, OutcomeFailure).Inc()
				m.TurnFailures.WithLabelValues(domain.KindOf(e.Err)).Inc()
			} else {
				m.Turns.WithLabelValues(workflow, OutcomeSuccess).Inc()
			}
			m.TurnDuration.Observe(e.Duration.Seconds())
		},
		OnDegraded: func(_ context.Context, e *domain.DegradationEvent) {
			m.Degradations.WithLabelValues(e.Operation).Inc()
		},
	}
}
