package aggregator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for aggregations.
type Metrics struct {
	Registry            *prometheus.Registry
	AggregationsTotal   *prometheus.CounterVec
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     prometheus.Histogram
	TransportErrorTotal *prometheus.CounterVec
	RecordsMergedTotal  *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	aggregations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multiget_aggregations_total",
			Help: "Total aggregations by result.",
		},
		[]string{"result"},
	)
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multiget_requests_total",
			Help: "Total upstream GET requests by outcome.",
		},
		[]string{"outcome"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "multiget_request_duration_seconds",
			Help:    "Latency of upstream GET requests, successful or not.",
			Buckets: prometheus.DefBuckets,
		},
	)
	transportErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multiget_transport_errors_total",
			Help: "Total upstream transport failures by type.",
		},
		[]string{"error_type"},
	)
	recordsMerged := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "multiget_records_merged_total",
			Help: "Total records merged into results by body shape.",
		},
		[]string{"shape"},
	)

	registry.MustRegister(aggregations, requests, requestDuration, transportErrors, recordsMerged)

	return &Metrics{
		Registry:            registry,
		AggregationsTotal:   aggregations,
		RequestsTotal:       requests,
		RequestDuration:     requestDuration,
		TransportErrorTotal: transportErrors,
		RecordsMergedTotal:  recordsMerged,
	}
}

// IncAggregation increments the aggregations counter for a result label.
func (m *Metrics) IncAggregation(result string) {
	if m == nil {
		return
	}
	m.AggregationsTotal.WithLabelValues(result).Inc()
}

// IncRequest increments the requests counter for an outcome label.
func (m *Metrics) IncRequest(outcome string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records an upstream request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncTransportError increments the transport errors counter for a type label.
func (m *Metrics) IncTransportError(errorType string) {
	if m == nil {
		return
	}
	m.TransportErrorTotal.WithLabelValues(errorType).Inc()
}

// AddRecords adds n merged records for a body shape.
func (m *Metrics) AddRecords(kind RecordKind, n int) {
	if m == nil || n == 0 {
		return
	}
	m.RecordsMergedTotal.WithLabelValues(kind.String()).Add(float64(n))
}
