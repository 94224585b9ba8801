package config

import (
	"github.com/marmos91/dittostore/pkg/index"
	"github.com/marmos91/dittostore/pkg/metrics"
	"github.com/marmos91/dittostore/pkg/mutation"
	"github.com/marmos91/dittostore/pkg/store/object/s3"
)

// MetricsResult contains all metrics-related components created from configuration.
//
// Collectors are nil when metrics are disabled; every consumer treats nil as
// a no-op.
type MetricsResult struct {
	// Server is the HTTP server exposing Prometheus metrics (nil if disabled)
	Server *metrics.Server

	S3       s3.S3Metrics
	Mutation mutation.Metrics
	Index    index.Metrics
}

// InitializeMetrics creates and initializes all metrics components based on configuration.
//
// If metrics are enabled in the configuration:
//   - Initializes the global Prometheus registry
//   - Creates the metrics HTTP server
//   - Creates Prometheus-backed metrics instances for all components
//
// If metrics are disabled, every field is nil.
func InitializeMetrics(cfg *Config) *MetricsResult {
	if !cfg.Metrics.Enabled {
		return &MetricsResult{}
	}

	metrics.InitRegistry()

	return &MetricsResult{
		Server:   metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port}),
		S3:       metrics.NewS3Metrics(),
		Mutation: metrics.NewMutationMetrics(),
		Index:    metrics.NewIndexMetrics(),
	}
}
