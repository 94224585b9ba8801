package metrics

import (
	"time"

	"github.com/marmos91/dittostore/pkg/mutation"
	"github.com/prometheus/client_golang/prometheus"
)

// mutationMetrics is the Prometheus implementation of mutation.Metrics.
type mutationMetrics struct {
	plansTotal   *prometheus.CounterVec
	planDuration *prometheus.HistogramVec
	collisions   prometheus.Counter
	keysTotal    *prometheus.CounterVec
}

// NewMutationMetrics creates a new Prometheus-backed mutation.Metrics.
//
// Returns nil if metrics are not enabled, which makes the resolver and the
// executor use their no-op implementation.
func NewMutationMetrics() mutation.Metrics {
	if !IsEnabled() {
		return nil
	}

	return &mutationMetrics{
		plansTotal: register(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutation_plans_total",
				Help:      "Total number of executed plan batches by operation and outcome",
			},
			[]string{"op", "outcome"},
		)),
		planDuration: register(prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "mutation_plan_duration_seconds",
				Help:      "Duration of plan batches in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14), // 5ms .. ~41s
			},
			[]string{"op"},
		)),
		collisions: register(prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutation_collisions_total",
				Help:      "Total number of destinations that needed a collision suffix",
			},
		)),
		keysTotal: register(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "mutation_keys_total",
				Help:      "Total number of keys processed by operation and stage",
			},
			[]string{"op", "stage"},
		)),
	}
}

// ObservePlan implements mutation.Metrics.ObservePlan
func (m *mutationMetrics) ObservePlan(op mutation.Op, outcome string, duration time.Duration) {
	m.plansTotal.WithLabelValues(string(op), outcome).Inc()
	m.planDuration.WithLabelValues(string(op)).Observe(duration.Seconds())
}

// RecordCollision implements mutation.Metrics.RecordCollision
func (m *mutationMetrics) RecordCollision() {
	m.collisions.Inc()
}

// RecordKeys implements mutation.Metrics.RecordKeys
func (m *mutationMetrics) RecordKeys(op mutation.Op, stage string, n int) {
	if n <= 0 {
		return
	}
	m.keysTotal.WithLabelValues(string(op), stage).Add(float64(n))
}
