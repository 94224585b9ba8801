package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittostore/internal/logger"
	"github.com/marmos91/dittostore/pkg/acl"
	"github.com/marmos91/dittostore/pkg/index"
	indexBadger "github.com/marmos91/dittostore/pkg/index/badger"
	indexMemory "github.com/marmos91/dittostore/pkg/index/memory"
	"github.com/marmos91/dittostore/pkg/store/object"
	objectMemory "github.com/marmos91/dittostore/pkg/store/object/memory"
	objectS3 "github.com/marmos91/dittostore/pkg/store/object/s3"
	"github.com/mitchellh/mapstructure"
)

// CreateObjectStore creates an object store based on configuration.
//
// This factory function uses the Type field to determine which store implementation
// to create, then decodes the type-specific configuration from the corresponding
// map and passes it to the store's constructor.
//
// Supported types:
//   - "memory": Uses pkg/store/object/memory (in-process, ephemeral)
//   - "s3": Uses pkg/store/object/s3 (Amazon S3 or compatible storage)
//
// Parameters:
//   - ctx: Context for initialization operations
//   - cfg: Object store configuration
//   - metrics: S3 metrics (nil disables collection; ignored by other types)
//
// Returns:
//   - object.Store: Initialized object store
//   - error: Configuration or initialization error
func CreateObjectStore(ctx context.Context, cfg *StoreConfig, metrics objectS3.S3Metrics) (object.Store, error) {
	switch cfg.Type {
	case "memory":
		return createMemoryObjectStore(ctx, cfg.Memory)
	case "s3":
		return createS3ObjectStore(ctx, cfg.S3, metrics)
	default:
		return nil, fmt.Errorf("unknown object store type: %q (supported: memory, s3)", cfg.Type)
	}
}

// createMemoryObjectStore creates an in-memory object store.
func createMemoryObjectStore(ctx context.Context, options map[string]any) (object.Store, error) {
	var storeCfg objectMemory.MemoryObjectStoreConfig
	if err := mapstructure.WeakDecode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory object store config: %w", err)
	}

	return objectMemory.NewMemoryObjectStore(ctx, storeCfg)
}

// createS3ObjectStore creates an S3-based object store.
func createS3ObjectStore(ctx context.Context, options map[string]any, metrics objectS3.S3Metrics) (object.Store, error) {
	type S3ObjectStoreOptions struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		ForcePathStyle  bool   `mapstructure:"force_path_style"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3ObjectStoreOptions
	if err := mapstructure.WeakDecode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 object store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 object store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 object store: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(storeCfg.Region),
	}

	// Static credentials if provided, otherwise the default credential chain
	if storeCfg.AccessKeyID != "" && storeCfg.SecretAccessKey != "" {
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(storeCfg.AccessKeyID, storeCfg.SecretAccessKey, ""),
		))
	}

	maxRetries := storeCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries // Retry for transient errors (502, 503, timeouts, etc.)
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// Custom endpoint for MinIO, Localstack, etc.
		if storeCfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(storeCfg.Endpoint)
			o.UsePathStyle = true
		}
		if storeCfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Object Store
	// ========================================================================

	store, err := objectS3.NewS3ObjectStore(ctx, objectS3.S3ObjectStoreConfig{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 object store: %w", err)
	}

	logger.Info("S3 object store initialized: bucket=%s, region=%s, prefix=%s",
		storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// CreatePathIndex creates a path index based on configuration.
//
// Supported types:
//   - "none": No index; every existence check goes to the object store
//   - "memory": Uses pkg/index/memory (in-process, TTL-bounded)
//   - "badger": Uses pkg/index/badger (BadgerDB storage, persistent)
//
// Returns:
//   - index.PathIndex: Initialized index, or nil for "none"
//   - error: Configuration or initialization error
func CreatePathIndex(ctx context.Context, cfg *IndexConfig) (index.PathIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case "none":
		return nil, nil
	case "memory":
		var idxCfg indexMemory.Config
		if err := decodeWithDurations(cfg.Memory, &idxCfg); err != nil {
			return nil, fmt.Errorf("failed to decode memory index config: %w", err)
		}
		return indexMemory.New(idxCfg), nil
	case "badger":
		var idxCfg indexBadger.Config
		if err := decodeWithDurations(cfg.Badger, &idxCfg); err != nil {
			return nil, fmt.Errorf("failed to decode badger index config: %w", err)
		}
		idx, err := indexBadger.New(ctx, idxCfg)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger index: %w", err)
		}
		return idx, nil
	default:
		return nil, fmt.Errorf("unknown path index type: %q (supported: none, memory, badger)", cfg.Type)
	}
}

// CreateACL builds the permission checker. Without rules the default
// decision applies to every request.
func CreateACL(cfg *ACLConfig) (acl.Checker, error) {
	if len(cfg.Rules) == 0 && cfg.DefaultAllow {
		return acl.AllowAll{}, nil
	}
	if len(cfg.Rules) == 0 {
		logger.Warn("ACL has no rules and default_allow is false: every request will be refused")
	}

	rules, err := acl.NewRuleSet(cfg.Rules, cfg.DefaultAllow)
	if err != nil {
		return nil, fmt.Errorf("invalid acl: %w", err)
	}
	return rules, nil
}

// decodeWithDurations decodes options into out, accepting "5m"-style
// strings for time.Duration fields.
func decodeWithDurations(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder: %w", err)
	}
	return decoder.Decode(options)
}
