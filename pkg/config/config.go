package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/dittostore/pkg/acl"
	"github.com/marmos91/dittostore/pkg/gc"
	"github.com/marmos91/dittostore/pkg/version"
	"github.com/spf13/viper"
)

// Config represents the complete DittoStore configuration.
//
// This structure captures all configurable aspects of DittoStore including:
//   - Logging configuration
//   - Object store selection and configuration (store-specific)
//   - Path index selection and configuration (index-specific)
//   - Mutation limits (collision attempts, batch size, rate limit)
//   - Version snapshot layout and orphan collection
//   - ACL rules
//   - Metrics
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (DITTOSTORE_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
//
// Store Configuration Pattern:
// Each store implementation defines its own configuration type and the
// factory decodes it from the type-specific section (e.g., store.s3). Only
// the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Store specifies the object store type and type-specific configuration
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Index specifies the path-existence index consulted before naming a
	// destination
	Index IndexConfig `mapstructure:"index" yaml:"index"`

	// Mutation bounds move/copy/rename planning and execution
	Mutation MutationConfig `mapstructure:"mutation" yaml:"mutation"`

	// Versions configures the snapshot layout
	Versions version.Config `mapstructure:"versions" yaml:"versions"`

	// GC configures the orphan snapshot collector
	GC gc.Config `mapstructure:"gc" yaml:"gc"`

	// ACL lists permission rules
	ACL ACLConfig `mapstructure:"acl" yaml:"acl"`

	// Metrics configures Prometheus metrics collection
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stderr (default), stdout, or a file path
	Output string `mapstructure:"output" yaml:"output" validate:"required"`
}

// StoreConfig specifies object store configuration.
//
// The Type field determines which store implementation is used.
// Only the corresponding type-specific configuration section is used.
type StoreConfig struct {
	// Type specifies which object store implementation to use
	// Valid values: memory, s3
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=memory s3"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3"`
}

// IndexConfig specifies path index configuration.
type IndexConfig struct {
	// Type specifies which index implementation to use
	// Valid values: none, memory, badger
	Type string `mapstructure:"type" yaml:"type" validate:"required,oneof=none memory badger"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger"`
}

// MutationConfig bounds move/copy/rename planning and execution.
type MutationConfig struct {
	// MaxAttempts is the number of suffixed names tried before giving up
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts" validate:"gte=0,lte=100"`

	// BatchSize is the number of source keys handled per execution batch
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size" validate:"gte=0,lte=10000"`

	// CallsPerSecond caps object store calls made by the executor (0 = unlimited)
	CallsPerSecond uint `mapstructure:"calls_per_second" yaml:"calls_per_second"`

	// Burst is the rate limiter bucket size (0 = calls_per_second)
	Burst uint `mapstructure:"burst" yaml:"burst"`

	// AllowCrossOrg lets a destination name a different org than its source
	AllowCrossOrg bool `mapstructure:"allow_cross_org" yaml:"allow_cross_org"`
}

// ACLConfig lists permission rules.
type ACLConfig struct {
	// DefaultAllow is the decision when no rule matches
	DefaultAllow bool `mapstructure:"default_allow" yaml:"default_allow"`

	// Rules are evaluated deny-first; empty grants everything
	Rules []acl.Rule `mapstructure:"rules" yaml:"rules" validate:"dive"`
}

// MetricsConfig configures Prometheus metrics collection.
type MetricsConfig struct {
	// Enabled turns on metrics collection and the metrics HTTP server
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the metrics HTTP server port (default: 9090)
	Port int `mapstructure:"port" yaml:"port" validate:"omitempty,min=1,max=65535"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (DITTOSTORE_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the DITTOSTORE_ prefix and underscores
	// Example: DITTOSTORE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("DITTOSTORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Registering every scalar key lets AutomaticEnv override values absent
	// from the file. Booleans whose default is true must be set here: a
	// zero value after Unmarshal can't be told apart from an explicit false.
	v.SetDefault("logging.level", "INFO")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("store.type", "memory")
	v.SetDefault("index.type", "memory")
	v.SetDefault("mutation.max_attempts", 0)
	v.SetDefault("mutation.batch_size", 0)
	v.SetDefault("mutation.calls_per_second", 0)
	v.SetDefault("mutation.burst", 0)
	v.SetDefault("mutation.allow_cross_org", true)
	v.SetDefault("versions.prefix", "")
	v.SetDefault("versions.url_base", "")
	v.SetDefault("versions.max_attempts", 0)
	v.SetDefault("gc.batch_size", 0)
	v.SetDefault("gc.dry_run", false)
	v.SetDefault("acl.default_allow", true)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.port", 0)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/dittostore/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing file is acceptable - defaults and env apply
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittostore")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "dittostore")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the init command).
func GetConfigDir() string {
	return getConfigDir()
}
