package config

import (
	"strings"

	"github.com/marmos91/dittostore/pkg/acl"
	"github.com/marmos91/dittostore/pkg/gc"
	"github.com/marmos91/dittostore/pkg/mutation"
	"github.com/marmos91/dittostore/pkg/version"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Booleans defaulting to true are handled by Load through viper defaults
//   - Store-specific defaults are handled by store implementations
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStoreDefaults(&cfg.Store)
	applyIndexDefaults(&cfg.Index)
	applyMutationDefaults(&cfg.Mutation)
	applyVersionDefaults(&cfg.Versions)
	applyGCDefaults(&cfg.GC)
	applyMetricsDefaults(&cfg.Metrics)

	if cfg.ACL.Rules == nil {
		cfg.ACL.Rules = []acl.Rule{}
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyStoreDefaults sets object store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.S3 == nil {
		cfg.S3 = make(map[string]any)
	}

	// Apply defaults for all store types (for config file generation)
	if _, ok := cfg.Memory["page_size"]; !ok {
		cfg.Memory["page_size"] = 1000
	}
	if _, ok := cfg.S3["region"]; !ok {
		cfg.S3["region"] = "us-east-1"
	}
	if _, ok := cfg.S3["max_retries"]; !ok {
		cfg.S3["max_retries"] = 10
	}
}

// applyIndexDefaults sets path index defaults.
func applyIndexDefaults(cfg *IndexConfig) {
	if cfg.Type == "" {
		cfg.Type = "memory"
	}

	if cfg.Memory == nil {
		cfg.Memory = make(map[string]any)
	}
	if cfg.Badger == nil {
		cfg.Badger = make(map[string]any)
	}

	if _, ok := cfg.Memory["ttl"]; !ok {
		cfg.Memory["ttl"] = "5m"
	}
	if _, ok := cfg.Badger["ttl"]; !ok {
		cfg.Badger["ttl"] = "24h"
	}
	if _, ok := cfg.Badger["db_path"]; !ok {
		cfg.Badger["db_path"] = "/tmp/dittostore-index"
	}
}

// applyMutationDefaults sets mutation defaults.
func applyMutationDefaults(cfg *MutationConfig) {
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = mutation.DefaultMaxAttempts
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = mutation.DefaultBatchSize
	}
	// CallsPerSecond defaults to 0 (unlimited)
	// Burst defaults to 0 (same as CallsPerSecond)
}

// applyVersionDefaults sets snapshot layout defaults.
func applyVersionDefaults(cfg *version.Config) {
	if cfg.Prefix == "" {
		cfg.Prefix = version.DefaultPrefix
	}
	if cfg.URLBase == "" {
		cfg.URLBase = version.DefaultURLBase
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = version.DefaultMaxAttempts
	}
}

// applyGCDefaults sets orphan collector defaults.
func applyGCDefaults(cfg *gc.Config) {
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 1000 // S3 DeleteObjects limit
	}
	// DryRun defaults to false
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	if cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Mutation: MutationConfig{
			AllowCrossOrg: true,
		},
		ACL: ACLConfig{
			DefaultAllow: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
