package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/marmos91/dittostore/pkg/store/object"
)

// ============================================================================
// Read Operations
// ============================================================================

// Get returns a reader for the object stored at key.
//
// The returned reader reads from a copy of the content, so later writes to
// the same key won't affect it.
//
// Context Cancellation:
// Only checked before acquiring the lock.
//
// Returns:
//   - io.ReadCloser: Reader for the content (closing is a no-op)
//   - *object.ObjectInfo: Object info including metadata
//   - error: ErrObjectNotFound if the key doesn't exist, or context errors
func (s *MemoryObjectStore) Get(ctx context.Context, key string) (io.ReadCloser, *object.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.lookup(key)
	if !ok {
		return nil, nil, fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)
	}

	dataCopy := make([]byte, len(obj.data))
	copy(dataCopy, obj.data)

	return io.NopCloser(bytes.NewReader(dataCopy)), cloneInfo(obj.info), nil
}

// Head returns object info without reading content.
//
// Returns:
//   - *object.ObjectInfo: Object info including metadata
//   - error: ErrObjectNotFound if the key doesn't exist, or context errors
func (s *MemoryObjectStore) Head(ctx context.Context, key string) (*object.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.lookup(key)
	if !ok {
		return nil, fmt.Errorf("object %s: %w", key, object.ErrObjectNotFound)
	}

	return cloneInfo(obj.info), nil
}
