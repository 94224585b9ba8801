// Package s3 implements an S3-backed object store for DittoStore.
package s3

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3ObjectStore implements object.Store using Amazon S3 or S3-compatible
// storage.
//
// This implementation provides:
//   - Full object.Store support (get, head, put, delete, list)
//   - object.Copier support through server-side CopyObject
//   - object.BatchDeleter support through DeleteObjects (1000 keys per call)
//
// Key Design:
//   - Keys are org-qualified paths ("acme/docs/report.html")
//   - An optional KeyPrefix is prepended to every key and stripped from
//     listing results, so callers never see it
//   - The bucket mirrors the virtual tree and stays human-readable
//
// Thread Safety:
// This implementation is safe for concurrent use by multiple goroutines.
// Concurrent writes to the same key are last-write-wins.
type S3ObjectStore struct {
	client    *s3.Client
	bucket    string
	keyPrefix string
	metrics   S3Metrics
}

// S3ObjectStoreConfig contains configuration for the S3 object store.
type S3ObjectStoreConfig struct {
	// Client is the configured S3 client
	Client *s3.Client

	// Bucket is the S3 bucket name
	Bucket string

	// KeyPrefix is an optional prefix for all object keys
	// Example: "dittostore/" results in keys like "dittostore/acme/a.html"
	KeyPrefix string

	// Metrics receives per-operation observations (nil disables collection)
	Metrics S3Metrics
}

// NewS3ObjectStore creates a new S3-based object store.
//
// This verifies bucket access. The bucket must already exist - this function
// does not create it.
//
// Context Cancellation:
// This operation checks the context before verifying bucket access.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - cfg: S3 configuration
//
// Returns:
//   - *S3ObjectStore: Initialized S3 object store
//   - error: Returns error if bucket access fails or context is cancelled
func NewS3ObjectStore(ctx context.Context, cfg S3ObjectStoreConfig) (*S3ObjectStore, error) {
	// ========================================================================
	// Step 1: Check context before S3 operations
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 2: Validate configuration
	// ========================================================================

	if cfg.Client == nil {
		return nil, fmt.Errorf("S3 client is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix != "" && !strings.HasSuffix(keyPrefix, "/") {
		keyPrefix += "/"
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}

	// ========================================================================
	// Step 3: Verify bucket access
	// ========================================================================

	_, err := cfg.Client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access bucket %q: %w", cfg.Bucket, err)
	}

	return &S3ObjectStore{
		client:    cfg.Client,
		bucket:    cfg.Bucket,
		keyPrefix: keyPrefix,
		metrics:   metrics,
	}, nil
}

// objectKey returns the full S3 object key for a store key.
func (s *S3ObjectStore) objectKey(key string) string {
	return s.keyPrefix + key
}

// storeKey strips the configured prefix from an S3 object key.
func (s *S3ObjectStore) storeKey(objectKey string) string {
	return strings.TrimPrefix(objectKey, s.keyPrefix)
}

// observe records the outcome of an S3 call.
func (s *S3ObjectStore) observe(operation string, start time.Time, err error) {
	s.metrics.ObserveOperation(operation, time.Since(start), err)
}

// isNotFound reports whether err is an S3 "missing key" response.
//
// GetObject returns NoSuchKey; HeadObject has no body and surfaces a bare
// NotFound.
func isNotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}

// isPreconditionFailed reports whether a conditional write lost the race.
func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "PreconditionFailed", "ConditionalRequestConflict":
			return true
		}
	}
	return false
}
