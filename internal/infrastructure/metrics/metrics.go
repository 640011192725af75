// Package metrics exposes billing measurements to Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wekeepgrowing/resume-billing/internal/usecase"
)

const namespace = "billing"

// Metrics implements usecase.Recorder on a private registry.
type Metrics struct {
	registry          *prometheus.Registry
	webhookEvents     *prometheus.CounterVec
	reconcileDuration *prometheus.HistogramVec
	reconcileErrors   *prometheus.CounterVec
	accessDecisions   *prometheus.CounterVec
}

var _ usecase.Recorder = (*Metrics)(nil)

// NewMetrics registers the billing collectors plus the Go and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Stripe webhook events by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		reconcileDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reconcile_duration_seconds",
				Help:      "Time spent reconciling provider objects into the store",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		reconcileErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reconcile_errors_total",
				Help:      "Reconciliations that ended in an error",
			},
			[]string{"kind"},
		),
		accessDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "access_decisions_total",
				Help:      "Access checks by result and granting source",
			},
			[]string{"result", "source"},
		),
	}
}

func (m *Metrics) ObserveWebhook(eventType string, outcome usecase.WebhookOutcome) {
	m.webhookEvents.WithLabelValues(eventType, string(outcome)).Inc()
}

func (m *Metrics) ObserveReconcile(kind string, duration time.Duration, err error) {
	m.reconcileDuration.WithLabelValues(kind).Observe(duration.Seconds())
	if err != nil {
		m.reconcileErrors.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) ObserveAccess(granted bool, source string) {
	result := "denied"
	if granted {
		result = "granted"
	}
	m.accessDecisions.WithLabelValues(result, source).Inc()
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
