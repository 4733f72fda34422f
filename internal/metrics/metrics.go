// Package metrics provides Prometheus instrumentation for the Lysbox
// presign service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	// PresignRequests counts presign requests by mode and outcome.
	PresignRequests *prometheus.CounterVec

	// PresignDuration observes end-to-end presign handling latency.
	PresignDuration prometheus.Histogram

	// IdentityVerifyDuration observes identity provider round-trip latency.
	IdentityVerifyDuration prometheus.Histogram

	// RateLimited counts requests rejected by the rate limiter.
	RateLimited prometheus.Counter
}

// New creates the service metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		PresignRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lysbox",
			Subsystem: "presign",
			Name:      "requests_total",
			Help:      "Presign requests by mode and outcome.",
		}, []string{"mode", "status"}),
		PresignDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lysbox",
			Subsystem: "presign",
			Name:      "request_duration_seconds",
			Help:      "End-to-end presign request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		IdentityVerifyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lysbox",
			Subsystem: "presign",
			Name:      "identity_verify_duration_seconds",
			Help:      "Identity provider verification latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lysbox",
			Subsystem: "presign",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
