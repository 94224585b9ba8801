// Package metrics provides Prometheus metrics collection for DittoStore components.
//
// Collection is opt-in. Until InitRegistry is called every constructor
// returns nil and components fall back to their no-op implementation.
//
// Usage:
//
//	metrics.InitRegistry()
//	executor := mutation.NewExecutor(store, idx, cfg, metrics.NewMutationMetrics())
//
//	// Without InitRegistry, or with nil, nothing is recorded
//	executor := mutation.NewExecutor(store, idx, cfg, nil)
package metrics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// namespace prefixes every metric name.
const namespace = "dittostore"

var (
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry creates the registry shared by every collector, with the Go
// runtime and process collectors already registered. Calls after the first
// are ignored.
func InitRegistry() {
	registryOnce.Do(func() {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
		)
		registry = reg
	})
}

// GetRegistry returns the shared registry, or nil before InitRegistry.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// register adds c to the registry and returns it. When an identical
// collector is already registered (the constructor ran twice in one
// process) the existing one is returned so both callers share its values.
func register[C prometheus.Collector](c C) C {
	err := registry.Register(c)
	if err == nil {
		return c
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(fmt.Sprintf("metrics: cannot register collector: %v", err))
}
