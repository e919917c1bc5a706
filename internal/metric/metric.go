// Package metric defines the Prometheus metrics of the transcoder and the
// registry that exposes them.
package metric

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ldproxy"

// Outcomes recorded for a request.
const (
	OutcomeOK            = "ok"
	OutcomeClientError   = "client_error"
	OutcomeNotAcceptable = "not_acceptable"
	OutcomeUpstreamError = "upstream_error"
	OutcomeServerError   = "server_error"
)

// Metrics contains the transcoder metrics
type Metrics struct {
	RequestsTotal          *prometheus.CounterVec
	RequestDuration        *prometheus.HistogramVec
	NegotiationFailures    *prometheus.CounterVec
	SerializationArtifacts *prometheus.CounterVec
}

// NewMetrics creates the transcoder metrics, unregistered
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of transcoding requests by route and outcome",
			},
			[]string{"path", "outcome"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Transcoding request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"path"},
		),
		NegotiationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "negotiation_failures_total",
				Help:      "Content negotiation failures by side (parse or render)",
			},
			[]string{"side"},
		),
		SerializationArtifacts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "serialization_artifacts_total",
				Help:      "Statements whose graph name was dropped by a triple-only format",
			},
			[]string{"format"},
		),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RequestsTotal,
		m.RequestDuration,
		m.NegotiationFailures,
		m.SerializationArtifacts,
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(path, outcome string, elapsed time.Duration) {
	m.RequestsTotal.WithLabelValues(path, outcome).Inc()
	m.RequestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// NegotiationFailed records a failed negotiation.
func (m *Metrics) NegotiationFailed(side string) {
	m.NegotiationFailures.WithLabelValues(side).Inc()
}

// SerializationArtifact records statements that lost their graph name.
func (m *Metrics) SerializationArtifact(format string, dropped int) {
	m.SerializationArtifacts.WithLabelValues(format).Add(float64(dropped))
}

// Registry owns a Prometheus registry holding the transcoder metrics and the
// Go runtime collectors.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	metrics            *Metrics
}

// NewRegistry creates a registry with all metrics registered.
func NewRegistry() *Registry {
	r := &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		metrics:            NewMetrics(),
	}
	r.prometheusRegistry.MustRegister(r.metrics.collectors()...)
	r.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Metrics returns the transcoder metrics.
func (r *Registry) Metrics() *Metrics { return r.metrics }

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry { return r.prometheusRegistry }

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.prometheusRegistry, promhttp.HandlerOpts{})
}
