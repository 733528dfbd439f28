package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/storychain/pkg/domain"
)

// Metrics bundles the prometheus collectors for the generation loop.
// Collectors live on a private registry so embedding applications and
// parallel tests never collide on metric names.
type Metrics struct {
	registry *prometheus.Registry

	epochsTotal       *prometheus.CounterVec
	inferenceAttempts *prometheus.CounterVec
	inferenceDuration prometheus.Histogram
	nodesTotal        prometheus.Counter
}

// NewMetrics creates the collectors and registers them.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		epochsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storychain_epochs_total",
				Help: "Total number of generation epochs, by terminal status",
			},
			[]string{"status"},
		),
		inferenceAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storychain_inference_attempts_total",
				Help: "Total number of inference requests, by outcome",
			},
			[]string{"outcome"},
		),
		inferenceDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name: "storychain_inference_duration_seconds",
				Help: "Duration of individual inference requests",
				// Local model generations run tens of seconds, not
				// milliseconds; buckets span 0.5s to ~4 minutes.
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			},
		),
		nodesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "storychain_nodes_total",
				Help: "Total number of scene nodes appended to chains",
			},
		),
	}

	m.registry.MustRegister(
		m.epochsTotal,
		m.inferenceAttempts,
		m.inferenceDuration,
		m.nodesTotal,
	)
	return m
}

// Hooks returns lifecycle hooks that feed the collectors. Combine them
// with other hook sets via domain.MergeHooks.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEpochEnd: func(ctx context.Context, e *domain.EpochEvent) {
			status := "completed"
			if e.Err != nil {
				status = "failed"
			}
			m.epochsTotal.WithLabelValues(status).Inc()
		},
		OnInferenceEnd: func(ctx context.Context, e *domain.InferenceEvent) {
			outcome := "ok"
			if e.Err != nil {
				outcome = "error"
			}
			m.inferenceAttempts.WithLabelValues(outcome).Inc()
			m.inferenceDuration.Observe(e.Duration.Seconds())
		},
		OnNodeAppended: func(ctx context.Context, e *domain.EpochEvent) {
			m.nodesTotal.Inc()
		},
	}
}

// Handler exposes the collectors in prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the private registry, for embedders that want to
// add their own collectors to the same scrape endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
