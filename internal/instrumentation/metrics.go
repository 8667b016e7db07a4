// Package instrumentation wires the Prometheus metrics for the dashboard.
package instrumentation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the service. A nil *Metrics is
// valid and records nothing, which keeps tests free of registry collisions.
type Metrics struct {
	RefreshTotal    *prometheus.CounterVec
	UpstreamCalls   *prometheus.CounterVec
	AlertsTriggered prometheus.Counter
	BatchSize       prometheus.Gauge
	BatchAgeSeconds prometheus.Gauge
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		RefreshTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptodash_refresh_total",
			Help: "Refresh cycles by outcome (fresh, backup, empty)",
		}, []string{"outcome"}),

		UpstreamCalls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptodash_upstream_calls_total",
			Help: "Upstream API calls by endpoint and result",
		}, []string{"endpoint", "result"}),

		AlertsTriggered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cryptodash_alerts_triggered_total",
			Help: "Price alerts moved to history",
		}),

		BatchSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cryptodash_batch_size",
			Help: "Number of records in the last served batch",
		}),

		BatchAgeSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "cryptodash_batch_age_seconds",
			Help: "Age of the last served batch in seconds",
		}),
	}
}

// RecordRefresh counts one refresh cycle outcome.
func (m *Metrics) RecordRefresh(outcome string) {
	if m == nil {
		return
	}
	m.RefreshTotal.WithLabelValues(outcome).Inc()
}

// RecordUpstreamCall counts one upstream API call.
func (m *Metrics) RecordUpstreamCall(endpoint, result string) {
	if m == nil {
		return
	}
	m.UpstreamCalls.WithLabelValues(endpoint, result).Inc()
}

// RecordAlertsTriggered counts alerts that fired this cycle.
func (m *Metrics) RecordAlertsTriggered(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.AlertsTriggered.Add(float64(n))
}

// RecordBatch records the size and age of the batch just produced.
func (m *Metrics) RecordBatch(size int, ageSeconds float64) {
	if m == nil {
		return
	}
	m.BatchSize.Set(float64(size))
	m.BatchAgeSeconds.Set(ageSeconds)
}
