// Package metrics holds the Prometheus collectors for PromoKeeper.
//
// Collectors live on a private registry so tests and multiple servers in one
// process never collide on the global default registry. All recording
// methods are safe on a nil *Metrics, which records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "promokeeper"

// Repository call outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeNotFound = "not_found"
)

// Metrics bundles every collector.
type Metrics struct {
	registry *prometheus.Registry

	// repositoryCalls counts repository-backed store actions.
	// Labels: action (list, get, create, update, delete), outcome
	repositoryCalls *prometheus.CounterVec

	// repositoryLatency measures repository call duration.
	// Labels: action
	repositoryLatency *prometheus.HistogramVec

	// validationFailures counts validator rejections per form field.
	// Labels: field
	validationFailures *prometheus.CounterVec

	// rpcRequests counts gRPC calls.
	// Labels: method, code
	rpcRequests *prometheus.CounterVec

	// rpcLatency measures gRPC handler duration.
	// Labels: method
	rpcLatency *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry, alongside the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		repositoryCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "repository_calls_total",
			Help:      "Repository calls by action and outcome",
		}, []string{"action", "outcome"}),
		repositoryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "repository_latency_seconds",
			Help:      "Repository call latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"action"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "validator",
			Name:      "failures_total",
			Help:      "Promotion form validation failures by field",
		}, []string{"field"}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "gRPC requests by method and status code",
		}, []string{"method", "code"}),
		rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "gRPC request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.repositoryCalls,
		m.repositoryLatency,
		m.validationFailures,
		m.rpcRequests,
		m.rpcLatency,
	)
	return m
}

// Registry exposes the private registry for gathering in tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveRepository records one repository call.
func (m *Metrics) ObserveRepository(action, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.repositoryCalls.WithLabelValues(action, outcome).Inc()
	m.repositoryLatency.WithLabelValues(action).Observe(d.Seconds())
}

// ValidationFailed records one rejected form field.
func (m *Metrics) ValidationFailed(field string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(field).Inc()
}

// ObserveRPC records one gRPC call.
func (m *Metrics) ObserveRPC(method, code string, d time.Duration) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(method, code).Inc()
	m.rpcLatency.WithLabelValues(method).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
