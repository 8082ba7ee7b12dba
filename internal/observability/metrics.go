package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "entitlement_api"

// Metrics collects application metrics. A nil *Metrics is valid and records nothing,
// so components can be constructed without a registry in tests.
type Metrics struct {
	registry *prometheus.Registry

	keySetFetches      *prometheus.CounterVec
	tokenVerifications *prometheus.CounterVec
	providerCalls      *prometheus.CounterVec
	providerLatency    *prometheus.HistogramVec
	entitlements       *prometheus.CounterVec
}

// NewMetrics registers all collectors against a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		keySetFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jwks_fetches_total",
			Help:      "Upstream key-set fetch attempts by outcome.",
		}, []string{"outcome"}),
		tokenVerifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_verifications_total",
			Help:      "Bearer token verifications by outcome.",
		}, []string{"outcome"}),
		providerCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_provider_calls_total",
			Help:      "Payment provider calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		providerLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_provider_call_duration_seconds",
			Help:      "Payment provider call latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		entitlements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entitlement_checks_total",
			Help:      "Computed subscription entitlements by result.",
		}, []string{"active"}),
	}
}

// KeySetFetch records one upstream key-set fetch attempt.
func (m *Metrics) KeySetFetch(outcome string) {
	if m == nil {
		return
	}
	m.keySetFetches.WithLabelValues(outcome).Inc()
}

// TokenVerification records the outcome of a verification ("ok" or a failure reason).
func (m *Metrics) TokenVerification(outcome string) {
	if m == nil {
		return
	}
	m.tokenVerifications.WithLabelValues(outcome).Inc()
}

// ProviderCall records a payment provider call and its latency.
func (m *Metrics) ProviderCall(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(operation, outcome).Inc()
	m.providerLatency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Entitlement records a computed entitlement.
func (m *Metrics) Entitlement(active bool) {
	if m == nil {
		return
	}
	m.entitlements.WithLabelValues(strconv.FormatBool(active)).Inc()
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the Prometheus exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
