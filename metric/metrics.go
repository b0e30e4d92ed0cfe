// Package metric exposes Prometheus instrumentation for the cache,
// ingest, and reasoning paths.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// namespace prefixes every metric.
const namespace = "semknow"

// Metrics holds the instrument set. A nil *Metrics disables recording, so
// callers never guard their call sites.
type Metrics struct {
	ingestsTotal *prometheus.CounterVec // by code
	ingestBytes  prometheus.Histogram

	cacheOpsTotal *prometheus.CounterVec // by op and outcome

	applicationsTotal *prometheus.CounterVec // by template and state
	derivedTriples    *prometheus.HistogramVec
	applyDuration     *prometheus.HistogramVec

	discoveriesTotal *prometheus.CounterVec // by outcome
}

// New creates and registers the instrument set.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ingestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "total",
			Help:      "Ingest attempts by outcome code",
		}, []string{"code"}),

		ingestBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "payload_bytes",
			Help:      "Size of successfully ingested payloads",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 8),
		}),

		cacheOpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Cache operations by op and outcome",
		}, []string{"op", "outcome"}),

		applicationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reason",
			Name:      "applications_total",
			Help:      "Template applications by template and terminal state",
		}, []string{"template", "state"}),

		derivedTriples: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reason",
			Name:      "derived_triples",
			Help:      "Triples derived per successful application",
			Buckets:   []float64{0, 1, 10, 100, 1000, 10000},
		}, []string{"template"}),

		applyDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reason",
			Name:      "apply_duration_seconds",
			Help:      "Template application duration",
			Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30},
		}, []string{"template"}),

		discoveriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "endpoint",
			Name:      "discoveries_total",
			Help:      "Live endpoint discoveries by outcome",
		}, []string{"outcome"}),
	}
}

// RecordIngest records one ingest attempt.
func (m *Metrics) RecordIngest(code string, payloadBytes int) {
	if m == nil {
		return
	}
	m.ingestsTotal.WithLabelValues(code).Inc()
	if payloadBytes > 0 {
		m.ingestBytes.Observe(float64(payloadBytes))
	}
}

// RecordCacheOp records one cache operation.
func (m *Metrics) RecordCacheOp(op, outcome string) {
	if m == nil {
		return
	}
	m.cacheOpsTotal.WithLabelValues(op, outcome).Inc()
}

// RecordApplication records one template application.
func (m *Metrics) RecordApplication(template, state string, derived int, duration time.Duration) {
	if m == nil {
		return
	}
	m.applicationsTotal.WithLabelValues(template, state).Inc()
	m.applyDuration.WithLabelValues(template).Observe(duration.Seconds())
	if state == "Succeeded" {
		m.derivedTriples.WithLabelValues(template).Observe(float64(derived))
	}
}

// RecordDiscovery records one live discovery attempt.
func (m *Metrics) RecordDiscovery(outcome string) {
	if m == nil {
		return
	}
	m.discoveriesTotal.WithLabelValues(outcome).Inc()
}
