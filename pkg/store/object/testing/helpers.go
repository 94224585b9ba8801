package testing

import (
	"testing"

	"github.com/marmos91/dittostore/pkg/store/object"
	"github.com/stretchr/testify/require"
)

// mustPut writes data at key and fails the test on error.
func mustPut(t *testing.T, s object.Store, key string, data []byte) {
	t.Helper()
	require.NoError(t, s.Put(testContext(), key, data, object.PutOptions{}))
}

// mustRead returns the content stored at key.
func mustRead(t *testing.T, s object.Store, key string) []byte {
	t.Helper()
	data, _, err := object.ReadAll(testContext(), s, key)
	require.NoError(t, err)
	return data
}

// listAll drains a listing and returns every object key and common prefix.
func listAll(t *testing.T, s object.Store, opts object.ListOptions) (keys []string, prefixes []string) {
	t.Helper()
	for {
		page, err := s.List(testContext(), opts)
		require.NoError(t, err)
		for _, obj := range page.Objects {
			keys = append(keys, obj.Key)
		}
		prefixes = append(prefixes, page.CommonPrefixes...)
		if !page.IsTruncated {
			return keys, prefixes
		}
		require.NotEmpty(t, page.NextContinuationToken)
		opts.ContinuationToken = page.NextContinuationToken
	}
}
