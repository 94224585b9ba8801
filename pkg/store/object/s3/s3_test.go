package s3

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(fmt.Errorf("wrapped: %w", &types.NotFound{})))
	assert.True(t, isNotFound(&smithy.GenericAPIError{Code: "NotFound"}))
	assert.False(t, isNotFound(&smithy.GenericAPIError{Code: "AccessDenied"}))
	assert.False(t, isNotFound(errors.New("boom")))
}

func TestIsPreconditionFailed(t *testing.T) {
	assert.True(t, isPreconditionFailed(&smithy.GenericAPIError{Code: "PreconditionFailed"}))
	assert.True(t, isPreconditionFailed(&smithy.GenericAPIError{Code: "ConditionalRequestConflict"}))
	assert.False(t, isPreconditionFailed(&types.NoSuchKey{}))
}

func TestKeyPrefixMapping(t *testing.T) {
	s := &S3ObjectStore{keyPrefix: "tenant/"}
	assert.Equal(t, "tenant/acme/a.html", s.objectKey("acme/a.html"))
	assert.Equal(t, "acme/a.html", s.storeKey("tenant/acme/a.html"))
}

func TestEscapeKey(t *testing.T) {
	assert.Equal(t, "acme/my%20docs/a.html", escapeKey("acme/my docs/a.html"))
}

func TestNewS3ObjectStore_Validation(t *testing.T) {
	_, err := NewS3ObjectStore(context.Background(), S3ObjectStoreConfig{Bucket: "b"})
	require.Error(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewS3ObjectStore(ctx, S3ObjectStoreConfig{})
	assert.ErrorIs(t, err, context.Canceled)
}
