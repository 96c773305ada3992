// Package metrics exposes Prometheus counters for the reconciliation layer.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	reconcile  *prometheus.CounterVec
	rejections *prometheus.CounterVec
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reconcile: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Name:      "reconcile_total",
			Help:      "Resource writes by resource type and reconciliation outcome.",
		}, []string{"resource", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "practice",
			Name:      "payload_rejections_total",
			Help:      "Payloads rejected by decoding or sanitization, by resource type and error kind.",
		}, []string{"resource", "kind"}),
	}
	reg.MustRegister(m.reconcile, m.rejections)
	return m
}

// Reconciled counts a committed write.
func (m *Metrics) Reconciled(resource, outcome string) {
	if m == nil {
		return
	}
	m.reconcile.WithLabelValues(resource, outcome).Inc()
}

// Rejected counts a payload refused before reaching the store.
func (m *Metrics) Rejected(resource, kind string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(resource, kind).Inc()
}
