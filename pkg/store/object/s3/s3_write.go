package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/marmos91/dittostore/pkg/store/object"
)

// maxBatchSize is the DeleteObjects limit per request.
const maxBatchSize = 1000

// ============================================================================
// Write Operations
// ============================================================================

// Put writes the complete content of an object with a single PutObject.
//
// When opts.IfNoneMatch is set the request carries "If-None-Match: *" and S3
// rejects it with 412 if the key already exists.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - key: Object key
//   - data: Complete content
//   - opts: Content type, metadata and the optional create-only condition
//
// Returns:
//   - error: ErrObjectExists on a lost conditional write, or S3/context errors
func (s *S3ObjectStore) Put(ctx context.Context, key string, data []byte, opts object.PutOptions) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:   aws.String(s.bucket),
		Key:      aws.String(s.objectKey(key)),
		Body:     bytes.NewReader(data),
		Metadata: opts.Metadata,
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if opts.IfNoneMatch {
		input.IfNoneMatch = aws.String("*")
	}

	start := time.Now()
	_, err := s.client.PutObject(ctx, input)
	s.observe("PutObject", start, err)
	if err != nil {
		if opts.IfNoneMatch && isPreconditionFailed(err) {
			return fmt.Errorf("object %s: %w", key, object.ErrObjectExists)
		}
		return fmt.Errorf("failed to write object to S3: %w", err)
	}

	s.metrics.RecordBytes("write", int64(len(data)))
	return nil
}

// Delete removes an object.
//
// S3 DeleteObject succeeds for missing keys, so this operation is idempotent.
func (s *S3ObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	s.observe("DeleteObject", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}

	return nil
}

// Copy duplicates src to dst with a server-side CopyObject.
//
// Content type and user metadata are carried over (MetadataDirective COPY).
//
// Returns:
//   - error: ErrObjectNotFound if src doesn't exist, or S3/context errors
func (s *S3ObjectStore) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// CopySource is "bucket/key" and must be URL-encoded.
	source := url.PathEscape(s.bucket) + "/" + escapeKey(s.objectKey(src))

	start := time.Now()
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:            aws.String(s.bucket),
		Key:               aws.String(s.objectKey(dst)),
		CopySource:        aws.String(source),
		MetadataDirective: types.MetadataDirectiveCopy,
	})
	s.observe("CopyObject", start, err)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("object %s: %w", src, object.ErrObjectNotFound)
		}
		return fmt.Errorf("failed to copy object %s to %s: %w", src, dst, err)
	}

	return nil
}

// escapeKey URL-encodes each segment of key while keeping separators.
func escapeKey(key string) string {
	u := url.URL{Path: key}
	return u.EscapedPath()
}

// DeleteBatch removes multiple objects.
//
// S3 supports batch deletes of up to 1000 objects at a time. This
// implementation automatically chunks larger batches.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - keys: Object keys to delete
//
// Returns:
//   - map[string]error: Map of failed deletions (empty = all succeeded)
//   - error: Returns error for context cancellation
func (s *S3ObjectStore) DeleteBatch(ctx context.Context, keys []string) (map[string]error, error) {
	failures := make(map[string]error)

	for i := 0; i < len(keys); i += maxBatchSize {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(keys); j++ {
				failures[keys[j]] = err
			}
			return failures, err
		}

		end := min(i+maxBatchSize, len(keys))
		batch := keys[i:end]

		objects := make([]types.ObjectIdentifier, len(batch))
		for j, key := range batch {
			objects[j] = types.ObjectIdentifier{Key: aws.String(s.objectKey(key))}
		}

		start := time.Now()
		result, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{
				Objects: objects,
				Quiet:   aws.Bool(true),
			},
		})
		s.observe("DeleteObjects", start, err)
		if err != nil {
			for _, key := range batch {
				failures[key] = err
			}
			continue
		}

		for _, deleteErr := range result.Errors {
			if deleteErr.Key == nil {
				continue
			}

			errMsg := "unknown error"
			if deleteErr.Code != nil && deleteErr.Message != nil {
				errMsg = fmt.Sprintf("%s: %s", *deleteErr.Code, *deleteErr.Message)
			}
			failures[s.storeKey(*deleteErr.Key)] = errors.New(errMsg)
		}
	}

	return failures, nil
}
