// Package memory implements an in-memory object store for DittoStore.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/marmos91/dittostore/pkg/store/object"
)

// DefaultPageSize mirrors the S3 ListObjectsV2 default.
const DefaultPageSize = 1000

// memoryObject is one stored object. data and info are never mutated after
// insertion; writes replace the whole item.
type memoryObject struct {
	key  string
	data []byte
	info object.ObjectInfo
}

func lessObject(a, b *memoryObject) bool {
	return a.key < b.key
}

// MemoryObjectStore implements object.Store using in-memory storage.
//
// Objects are kept in a B-tree ordered by key so that prefix listings come out
// in ascending byte order, exactly like S3 ListObjectsV2. It's designed for:
//   - Testing and development
//   - Single-process deployments that don't need durability
//
// Characteristics:
//   - Fast: All operations are memory-speed
//   - Volatile: Data lost on restart
//   - Thread-safe: Protected by RWMutex
//
// Implemented Interfaces:
//   - object.Store (get, head, put, delete, list)
//   - object.Copier (copy without re-reading content)
//
// Thread Safety:
// All operations are protected by a sync.RWMutex. Content is copied on read
// and write so callers never share buffers with the store.
type MemoryObjectStore struct {
	// tree stores objects ordered by key
	tree *btree.BTreeG[*memoryObject]

	// pageSize is the default and maximum number of keys per listing page
	pageSize int

	// now is the clock used for LastModified
	now func() time.Time

	// mu protects concurrent access to tree
	mu sync.RWMutex
}

// MemoryObjectStoreConfig contains configuration for the memory object store.
type MemoryObjectStoreConfig struct {
	// PageSize bounds listing pages (default: 1000). Small values are useful
	// to exercise pagination in tests.
	PageSize int `mapstructure:"page_size"`
}

// NewMemoryObjectStore creates a new in-memory object store.
//
// The store starts empty.
//
// Parameters:
//   - ctx: Context for cancellation (checked before initialization)
//   - cfg: Store configuration
//
// Returns:
//   - *MemoryObjectStore: Initialized store
//   - error: Only returns error if context is cancelled
func NewMemoryObjectStore(ctx context.Context, cfg MemoryObjectStoreConfig) (*MemoryObjectStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &MemoryObjectStore{
		tree:     btree.NewG(2, lessObject),
		pageSize: pageSize,
		now:      time.Now,
	}, nil
}

// Len returns the number of stored objects.
func (s *MemoryObjectStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tree.Len()
}

// lookup returns the object stored at key. Caller must hold mu.
func (s *MemoryObjectStore) lookup(key string) (*memoryObject, bool) {
	return s.tree.Get(&memoryObject{key: key})
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return object.ErrInvalidKey
	}
	return nil
}

func cloneMetadata(md map[string]string) map[string]string {
	if len(md) == 0 {
		return nil
	}
	out := make(map[string]string, len(md))
	for k, v := range md {
		out[strings.ToLower(k)] = v
	}
	return out
}

func cloneInfo(info object.ObjectInfo) *object.ObjectInfo {
	out := info
	out.Metadata = cloneMetadata(info.Metadata)
	return &out
}
