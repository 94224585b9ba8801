package metrics

import (
	"github.com/marmos91/dittostore/pkg/index"
	"github.com/prometheus/client_golang/prometheus"
)

// indexMetrics is the Prometheus implementation of index.Metrics.
type indexMetrics struct {
	lookups *prometheus.CounterVec
}

// NewIndexMetrics creates a new Prometheus-backed index.Metrics.
//
// Returns nil if metrics are not enabled.
func NewIndexMetrics() index.Metrics {
	if !IsEnabled() {
		return nil
	}

	return &indexMetrics{
		lookups: register(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "path_index_lookups_total",
				Help:      "Total number of path index lookups by result (hit, miss, error)",
			},
			[]string{"result"},
		)),
	}
}

// RecordLookup implements index.Metrics.RecordLookup
func (m *indexMetrics) RecordLookup(result string) {
	m.lookups.WithLabelValues(result).Inc()
}
