package s3

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/dittostore/pkg/store/object"
)

// List returns one page of a ListObjectsV2 listing.
//
// The configured KeyPrefix is added to the request prefix and StartAfter,
// and stripped from returned keys and common prefixes. The continuation token
// is S3's own and is passed through unchanged.
//
// Parameters:
//   - ctx: Context for cancellation and timeouts
//   - opts: Prefix, delimiter, resume position and page size
//
// Returns:
//   - *object.ListPage: The page
//   - error: S3 or context errors
func (s *S3ObjectStore) List(ctx context.Context, opts object.ListOptions) (*object.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.objectKey(opts.Prefix)),
	}
	if opts.Delimiter != "" {
		input.Delimiter = aws.String(opts.Delimiter)
	}
	if opts.ContinuationToken != "" {
		input.ContinuationToken = aws.String(opts.ContinuationToken)
	} else if opts.StartAfter != "" {
		input.StartAfter = aws.String(s.objectKey(opts.StartAfter))
	}
	if opts.MaxKeys > 0 {
		input.MaxKeys = aws.Int32(int32(min(opts.MaxKeys, maxBatchSize)))
	}

	start := time.Now()
	result, err := s.client.ListObjectsV2(ctx, input)
	s.observe("ListObjectsV2", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	page := &object.ListPage{
		Objects:               make([]object.ObjectInfo, 0, len(result.Contents)),
		IsTruncated:           aws.ToBool(result.IsTruncated),
		NextContinuationToken: aws.ToString(result.NextContinuationToken),
	}

	for _, obj := range result.Contents {
		if obj.Key == nil {
			continue
		}
		page.Objects = append(page.Objects, object.ObjectInfo{
			Key:          s.storeKey(*obj.Key),
			Size:         aws.ToInt64(obj.Size),
			ETag:         aws.ToString(obj.ETag),
			LastModified: aws.ToTime(obj.LastModified),
		})
	}

	for _, cp := range result.CommonPrefixes {
		if cp.Prefix == nil {
			continue
		}
		page.CommonPrefixes = append(page.CommonPrefixes, s.storeKey(*cp.Prefix))
	}

	return page, nil
}
