//go:build integration

package s3_test

import (
	"context"
	"os"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/marmos91/dittostore/pkg/config"
	"github.com/marmos91/dittostore/pkg/enumerate"
	"github.com/marmos91/dittostore/pkg/mutation"
	"github.com/marmos91/dittostore/pkg/store/object"
)

func localstackEndpoint() string {
	if endpoint := os.Getenv("LOCALSTACK_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return "http://localhost:4566"
}

// setupTestBucket creates a bucket on Localstack and returns a cleanup
// function deleting its objects and the bucket itself.
func setupTestBucket(t *testing.T, bucketName string) func() {
	t.Helper()
	ctx := context.Background()

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		t.Fatalf("Failed to load AWS config: %v", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(localstackEndpoint())
		o.UsePathStyle = true
	})

	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucketName)}); err != nil {
		t.Fatalf("Failed to create test bucket: %v", err)
	}

	return func() {
		paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{Bucket: aws.String(bucketName)})
		for paginator.HasMorePages() {
			page, err := paginator.NextPage(ctx)
			if err != nil {
				break
			}
			for _, obj := range page.Contents {
				_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucketName), Key: obj.Key})
			}
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucketName)})
	}
}

// TestServices_S3_Integration drives the services built from configuration
// against a real S3-compatible service (Localstack).
//
// Prerequisites:
//   - Localstack running on localhost:4566
//   - Run with: go test -tags=integration ./test/integration/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestServices_S3_Integration(t *testing.T) {
	ctx := context.Background()

	// ========================================================================
	// Setup: Bucket and services from configuration
	// ========================================================================

	bucketName := "dittostore-e2e-" + uuid.NewString()[:8]
	cleanup := setupTestBucket(t, bucketName)
	defer cleanup()

	cfg := config.GetDefaultConfig()
	cfg.Store.Type = "s3"
	cfg.Store.S3 = map[string]any{
		"region":            "us-east-1",
		"bucket":            bucketName,
		"endpoint":          localstackEndpoint(),
		"access_key_id":     "test",
		"secret_access_key": "test",
		"max_retries":       3,
	}
	cfg.Index.Type = "none"
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("Invalid test config: %v", err)
	}

	svc, err := config.NewServices(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create services: %v", err)
	}
	defer svc.Close()

	for _, key := range []string{"acme/site", "acme/site.props", "acme/site/index.html", "acme/site/css/main.css"} {
		if err := svc.Store.Put(ctx, key, []byte("content of "+key), object.PutOptions{}); err != nil {
			t.Fatalf("Failed to seed %s: %v", key, err)
		}
	}

	// ========================================================================
	// Test: Version, move, collect
	// ========================================================================

	t.Run("SnapshotThenMove", func(t *testing.T) {
		rec, err := svc.Versions.Create(ctx, "acme/site/index.html", "before-move")
		if err != nil {
			t.Fatalf("Create version failed: %v", err)
		}

		plan, err := svc.Validator.Validate(ctx, mutation.OpMove,
			mutation.Values{mutation.FieldDestination: "/acme/www"},
			mutation.ParseLocation("/acme/site"))
		if err != nil {
			t.Fatalf("Validate failed: %v", err)
		}

		res, err := svc.Executor.ExecuteAll(ctx, plan)
		if err != nil {
			t.Fatalf("ExecuteAll failed: %v", err)
		}
		if res.Copied != 4 || res.Deleted != 4 || len(res.Failed) != 0 {
			t.Fatalf("Unexpected result: %+v", res)
		}

		n, err := enumerate.Count(ctx, svc.Store, "acme/www")
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 4 {
			t.Errorf("Expected 4 keys under acme/www, got %d", n)
		}

		// The primary is gone, but its snapshot is still readable
		data, err := svc.Versions.Read(ctx, rec)
		if err != nil {
			t.Fatalf("Read version failed: %v", err)
		}
		if string(data) != "content of acme/site/index.html" {
			t.Errorf("Unexpected snapshot content %q", data)
		}
	})

	t.Run("CollectOrphans", func(t *testing.T) {
		stats, err := svc.Collector.Collect(ctx, "acme")
		if err != nil {
			t.Fatalf("Collect failed: %v", err)
		}
		if stats.DeletedCount != 1 {
			t.Errorf("Expected the orphaned snapshot deleted, got %s", stats.Summary())
		}
	})
}
