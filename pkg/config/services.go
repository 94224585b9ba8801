package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittostore/internal/logger"
	"github.com/marmos91/dittostore/pkg/acl"
	"github.com/marmos91/dittostore/pkg/gc"
	"github.com/marmos91/dittostore/pkg/index"
	"github.com/marmos91/dittostore/pkg/mutation"
	"github.com/marmos91/dittostore/pkg/store/object"
	"github.com/marmos91/dittostore/pkg/version"
)

// Services holds every component built from a configuration, wired
// together.
type Services struct {
	Store     object.Store
	Index     index.PathIndex
	Checker   *index.Checker
	ACL       acl.Checker
	Validator *mutation.Validator
	Executor  *mutation.Executor
	Versions  *version.Manager
	Collector *gc.Collector
	Metrics   *MetricsResult
}

// NewServices creates the object store, the path index and every component
// that depends on them.
//
// This function orchestrates the complete initialization process:
//  1. Initializes metrics (no-op when disabled)
//  2. Creates the object store
//  3. Creates the path index and the existence checker in front of it
//  4. Builds the ACL, the mutation pipeline, the version manager and the
//     orphan collector
//
// Example:
//
//	cfg, _ := config.Load("config.yaml")
//	svc, err := config.NewServices(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer svc.Close()
func NewServices(ctx context.Context, cfg *Config) (*Services, error) {
	if cfg == nil {
		return nil, errors.New("configuration is nil")
	}

	m := InitializeMetrics(cfg)

	// Step 1: Object store
	store, err := CreateObjectStore(ctx, &cfg.Store, m.S3)
	if err != nil {
		return nil, err
	}
	logger.Debug("Object store ready: type=%s", cfg.Store.Type)

	return newServices(ctx, cfg, store, m)
}

// NewServicesWithStore is NewServices over an already open object store. The
// store section of cfg is ignored.
func NewServicesWithStore(ctx context.Context, cfg *Config, store object.Store) (*Services, error) {
	if cfg == nil {
		return nil, errors.New("configuration is nil")
	}
	if store == nil {
		return nil, errors.New("object store is nil")
	}
	return newServices(ctx, cfg, store, InitializeMetrics(cfg))
}

func newServices(ctx context.Context, cfg *Config, store object.Store, m *MetricsResult) (*Services, error) {
	// Step 2: Path index
	idx, err := CreatePathIndex(ctx, &cfg.Index)
	if err != nil {
		return nil, err
	}
	logger.Debug("Path index ready: type=%s", cfg.Index.Type)

	checker := index.NewChecker(idx, store).WithMetrics(m.Index)

	// Step 3: ACL and mutation pipeline
	rules, err := CreateACL(&cfg.ACL)
	if err != nil {
		closeIndex(idx)
		return nil, err
	}

	resolver := mutation.NewResolver(cfg.Mutation.MaxAttempts, m.Mutation)
	validator := mutation.NewValidator(resolver, checker.Exists, mutation.WithCrossOrg(cfg.Mutation.AllowCrossOrg))
	versions := version.NewManager(store, cfg.Versions)
	executor := mutation.NewExecutor(store, idx, mutation.ExecutorConfig{
		BatchSize:      cfg.Mutation.BatchSize,
		CallsPerSecond: cfg.Mutation.CallsPerSecond,
		Burst:          cfg.Mutation.Burst,
	}, m.Mutation).WithVersions(versions)

	// Step 4: Orphan collection
	collector := gc.NewCollector(store, versions, cfg.GC)

	return &Services{
		Store:     store,
		Index:     idx,
		Checker:   checker,
		ACL:       rules,
		Validator: validator,
		Executor:  executor,
		Versions:  versions,
		Collector: collector,
		Metrics:   m,
	}, nil
}

// Close releases the path index.
func (s *Services) Close() error {
	if s.Index == nil {
		return nil
	}
	if err := s.Index.Close(); err != nil {
		return fmt.Errorf("failed to close path index: %w", err)
	}
	return nil
}

func closeIndex(idx index.PathIndex) {
	if idx == nil {
		return
	}
	if err := idx.Close(); err != nil {
		logger.Warn("Failed to close path index: %v", err)
	}
}
