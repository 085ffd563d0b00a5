// Package metrics registers the Prometheus instruments for the login
// flow and the HTTP surface, and exposes the /metrics handler.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	// Flow metrics.
	flowTotal             *prometheus.CounterVec
	providerRequestsTotal *prometheus.CounterVec

	// HTTP metrics.
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
)

// Register initializes the instruments on the given registerer (nil means
// the default) and returns the handler for /metrics. Idempotent.
func Register(registry prometheus.Registerer) http.Handler {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	registerOnce.Do(func() {
		flowTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialgate_flow_total",
			Help: "Social login flow outcomes by phase",
		}, []string{"phase", "result"}) // phase: start|callback, result: ok|invalid_state|no_profile|resolve_failed|session_failed|not_configured|error

		providerRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "socialgate_provider_requests_total",
			Help: "Outbound identity-provider calls by result",
		}, []string{"call", "result"}) // call: exchange|profile, result: ok|error

		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests processed",
		}, []string{"method", "path", "status"})

		httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"})

		registry.MustRegister(flowTotal, providerRequestsTotal, httpRequestsTotal, httpRequestDuration)
	})

	return promhttp.Handler()
}

// ObserveFlow counts one flow outcome.
func ObserveFlow(phase, result string) {
	if flowTotal != nil {
		flowTotal.WithLabelValues(phase, result).Inc()
	}
}

// ObserveProviderCall counts one outbound provider call.
func ObserveProviderCall(call string, err error) {
	if providerRequestsTotal == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	providerRequestsTotal.WithLabelValues(call, result).Inc()
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, path, status string, seconds float64) {
	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	}
	if httpRequestDuration != nil {
		httpRequestDuration.WithLabelValues(method, path).Observe(seconds)
	}
}
