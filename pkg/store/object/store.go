// Package object defines the object store collaborator used by DittoStore.
//
// The object store is a flat key-value namespace with prefix listing. It has
// no directories, no rename primitive and no multi-key transactions; every
// filesystem-like behaviour is built on top of it by the keys, mutation,
// enumerate and version packages.
package object

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ============================================================================
// Types
// ============================================================================

// ObjectInfo describes a stored object without its content.
type ObjectInfo struct {
	// Key is the full object key (e.g. "acme/docs/report.html")
	Key string

	// Size is the content length in bytes
	Size int64

	// ETag is an opaque content fingerprint, if the backend provides one
	ETag string

	// ContentType is the MIME type recorded at write time
	ContentType string

	// LastModified is the time of the last write
	LastModified time.Time

	// Metadata holds user-defined metadata. Only populated by Head() and Get();
	// listings leave it nil.
	Metadata map[string]string
}

// PutOptions controls how an object is written.
type PutOptions struct {
	// ContentType is stored alongside the object
	ContentType string

	// Metadata is stored as user-defined metadata (keys are lower-cased)
	Metadata map[string]string

	// IfNoneMatch makes the write conditional on the key not existing yet.
	// A conflicting write fails with ErrObjectExists.
	IfNoneMatch bool
}

// ListOptions selects a page of keys.
type ListOptions struct {
	// Prefix restricts the listing to keys starting with this string
	Prefix string

	// Delimiter groups keys sharing the same segment after Prefix into
	// CommonPrefixes (usually "/"). Empty means a recursive listing.
	Delimiter string

	// StartAfter skips every key lexicographically less than or equal to it
	StartAfter string

	// ContinuationToken resumes a previous listing. Takes precedence over
	// StartAfter.
	ContinuationToken string

	// MaxKeys bounds the page size. Zero uses the backend default.
	MaxKeys int
}

// ListPage is one page of a listing.
//
// Objects are sorted by key in ascending byte order. When IsTruncated is
// true, NextContinuationToken resumes the listing after the last key.
type ListPage struct {
	Objects               []ObjectInfo
	CommonPrefixes        []string
	IsTruncated           bool
	NextContinuationToken string
}

// ============================================================================
// Store Interface
// ============================================================================

// Store is the minimal object store contract.
//
// Thread Safety:
// Implementations must be safe for concurrent use by multiple goroutines.
// Concurrent writes to the same key are last-write-wins.
type Store interface {
	// Get returns a reader for the object content and its info.
	//
	// The caller must close the reader.
	//
	// Returns:
	//   - io.ReadCloser: Reader for the content
	//   - *ObjectInfo: Object info including metadata
	//   - error: ErrObjectNotFound if the key doesn't exist
	Get(ctx context.Context, key string) (io.ReadCloser, *ObjectInfo, error)

	// Head returns object info without reading content.
	//
	// Returns:
	//   - *ObjectInfo: Object info including metadata
	//   - error: ErrObjectNotFound if the key doesn't exist
	Head(ctx context.Context, key string) (*ObjectInfo, error)

	// Put writes the complete content of an object.
	//
	// Returns:
	//   - error: ErrObjectExists if opts.IfNoneMatch is set and the key exists
	Put(ctx context.Context, key string, data []byte, opts PutOptions) error

	// Delete removes an object. Deleting a missing key succeeds.
	Delete(ctx context.Context, key string) error

	// List returns one page of keys matching opts.
	List(ctx context.Context, opts ListOptions) (*ListPage, error)
}

// Copier is implemented by stores that support server-side copies.
type Copier interface {
	// Copy duplicates src to dst, keeping content type and metadata.
	//
	// Returns:
	//   - error: ErrObjectNotFound if src doesn't exist
	Copy(ctx context.Context, src, dst string) error
}

// BatchDeleter is implemented by stores that can delete many keys per call.
type BatchDeleter interface {
	// DeleteBatch removes keys and returns per-key failures. The error is
	// reserved for failures affecting the whole call (e.g. cancellation).
	DeleteBatch(ctx context.Context, keys []string) (map[string]error, error)
}

// ============================================================================
// Helpers
// ============================================================================

// Exists reports whether key exists. Missing keys are not an error.
func Exists(ctx context.Context, s Store, key string) (bool, error) {
	_, err := s.Head(ctx, key)
	if err == nil {
		return true, nil
	}
	if IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// ReadAll returns the full content of key along with its info.
func ReadAll(ctx context.Context, s Store, key string) ([]byte, *ObjectInfo, error) {
	body, info, err := s.Get(ctx, key)
	if err != nil {
		return nil, nil, err
	}
	defer func() { _ = body.Close() }()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}
	return data, info, nil
}

// Copy duplicates src to dst.
//
// Stores implementing Copier copy server-side; others fall back to a read
// followed by a write that keeps content type and metadata.
func Copy(ctx context.Context, s Store, src, dst string) error {
	if c, ok := s.(Copier); ok {
		return c.Copy(ctx, src, dst)
	}

	data, info, err := ReadAll(ctx, s, src)
	if err != nil {
		return err
	}

	return s.Put(ctx, dst, data, PutOptions{
		ContentType: info.ContentType,
		Metadata:    info.Metadata,
	})
}

// DeleteMany removes keys, batching when the store supports it.
func DeleteMany(ctx context.Context, s Store, keys []string) (map[string]error, error) {
	if bd, ok := s.(BatchDeleter); ok {
		return bd.DeleteBatch(ctx, keys)
	}

	failures := make(map[string]error)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return failures, err
		}
		if err := s.Delete(ctx, key); err != nil {
			failures[key] = err
		}
	}
	return failures, nil
}

// IsNotFound reports whether err wraps ErrObjectNotFound.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrObjectNotFound)
}
