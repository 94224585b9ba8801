package s3

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittostore/pkg/store/object"
)

// ============================================================================
// Read Operations
// ============================================================================

// Get returns a reader for the object stored at key.
//
// The caller is responsible for closing the returned ReadCloser.
//
// Context Cancellation:
// The S3 GetObject operation respects context cancellation. If the context is
// cancelled during download, the reader will return an error.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - key: Object key
//
// Returns:
//   - io.ReadCloser: Reader for the content (must be closed by caller)
//   - *object.ObjectInfo: Object info including metadata
//   - error: ErrObjectNotFound if the key doesn't exist, or S3/context errors
func (s *S3ObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, *object.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	start := time.Now()
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	s.observe("GetObject", start, err)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)
		}
		return nil, nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	info := &object.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(result.ContentLength),
		ETag:         aws.ToString(result.ETag),
		ContentType:  aws.ToString(result.ContentType),
		LastModified: aws.ToTime(result.LastModified),
		Metadata:     result.Metadata,
	}

	body := &metricsReadCloser{
		ReadCloser: result.Body,
		metrics:    s.metrics,
		operation:  "read",
	}
	return body, info, nil
}

// Head returns object info without downloading content.
//
// Returns:
//   - *object.ObjectInfo: Object info including metadata
//   - error: ErrObjectNotFound if the key doesn't exist, or S3/context errors
func (s *S3ObjectStore) Head(ctx context.Context, key string) (*object.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	s.observe("HeadObject", start, err)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("failed to head object: %w", err)
	}

	return &object.ObjectInfo{
		Key:          key,
		Size:         aws.ToInt64(result.ContentLength),
		ETag:         aws.ToString(result.ETag),
		ContentType:  aws.ToString(result.ContentType),
		LastModified: aws.ToTime(result.LastModified),
		Metadata:     result.Metadata,
	}, nil
}
