package mutation

import (
	"context"
	"testing"

	"github.com/marmos91/dittostore/pkg/store/object"
	"github.com/marmos91/dittostore/pkg/store/object/memory"
	"github.com/stretchr/testify/require"
)

// existing returns an ExistsFunc reporting the given keys as taken.
func existing(taken ...string) ExistsFunc {
	set := make(map[string]bool, len(taken))
	for _, k := range taken {
		set[k] = true
	}
	return func(_ context.Context, key string) (bool, error) {
		return set[key], nil
	}
}

func newStore(t *testing.T, seed ...string) *memory.MemoryObjectStore {
	t.Helper()
	s, err := memory.NewMemoryObjectStore(context.Background(), memory.MemoryObjectStoreConfig{})
	require.NoError(t, err)
	for _, k := range seed {
		require.NoError(t, s.Put(context.Background(), k, []byte("content of "+k), object.PutOptions{}))
	}
	return s
}

func allKeys(t *testing.T, s object.Store, prefix string) []string {
	t.Helper()
	page, err := s.List(context.Background(), object.ListOptions{Prefix: prefix})
	require.NoError(t, err)
	out := []string{}
	for _, o := range page.Objects {
		out = append(out, o.Key)
	}
	return out
}
