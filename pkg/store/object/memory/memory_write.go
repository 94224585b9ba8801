package memory

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"

	"github.com/marmos91/dittostore/pkg/store/object"
)

// ============================================================================
// Write Operations
// ============================================================================

// Put writes the complete content of an object.
//
// The data is copied, so the caller may reuse the buffer afterwards.
//
// Parameters:
//   - ctx: Context for cancellation
//   - key: Object key
//   - data: Complete content
//   - opts: Content type, metadata and the optional if-none-match condition
//
// Returns:
//   - error: ErrObjectExists when opts.IfNoneMatch is set and key exists,
//     ErrInvalidKey for malformed keys, or context errors
func (s *MemoryObjectStore) Put(ctx context.Context, key string, data []byte, opts object.PutOptions) error {
	// ========================================================================
	// Step 1: Validate before acquiring lock
	// ========================================================================

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := validateKey(key); err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}

	// ========================================================================
	// Step 2: Build the new item outside the lock
	// ========================================================================

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)

	sum := md5.Sum(dataCopy)
	obj := &memoryObject{
		key:  key,
		data: dataCopy,
		info: object.ObjectInfo{
			Key:          key,
			Size:         int64(len(dataCopy)),
			ETag:         hex.EncodeToString(sum[:]),
			ContentType:  opts.ContentType,
			LastModified: s.now(),
			Metadata:     cloneMetadata(opts.Metadata),
		},
	}

	// ========================================================================
	// Step 3: Insert under write lock
	// ========================================================================

	s.mu.Lock()
	defer s.mu.Unlock()

	if opts.IfNoneMatch {
		if _, exists := s.lookup(key); exists {
			return fmt.Errorf("object %s: %w", key, object.ErrObjectExists)
		}
	}

	s.tree.ReplaceOrInsert(obj)
	return nil
}

// Delete removes an object.
//
// This operation is idempotent - deleting a missing key returns nil.
func (s *MemoryObjectStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tree.Delete(&memoryObject{key: key})
	return nil
}

// Copy duplicates src to dst without copying the content buffer.
//
// Stored buffers are immutable, so the new item can share them safely.
//
// Returns:
//   - error: ErrObjectNotFound if src doesn't exist, or context errors
func (s *MemoryObjectStore) Copy(ctx context.Context, src, dst string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := validateKey(dst); err != nil {
		return fmt.Errorf("copy to %q: %w", dst, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	obj, ok := s.lookup(src)
	if !ok {
		return fmt.Errorf("object %s: %w", src, object.ErrObjectNotFound)
	}

	info := *cloneInfo(obj.info)
	info.Key = dst
	info.LastModified = s.now()

	s.tree.ReplaceOrInsert(&memoryObject{key: dst, data: obj.data, info: info})
	return nil
}
