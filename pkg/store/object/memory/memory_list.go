package memory

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/marmos91/dittostore/pkg/store/object"
)

// ============================================================================
// Listing
// ============================================================================

// List returns one page of keys matching opts.
//
// Semantics follow S3 ListObjectsV2:
//   - Keys are returned in ascending byte order
//   - StartAfter skips every key <= StartAfter
//   - With a Delimiter, keys sharing the next segment collapse into a single
//     CommonPrefixes entry; objects and prefixes both count toward MaxKeys
//   - NextContinuationToken is opaque and resumes after the last returned
//     object or common prefix
//
// Parameters:
//   - ctx: Context for cancellation
//   - opts: Prefix, delimiter, resume position and page size
//
// Returns:
//   - *object.ListPage: The page (never nil on success)
//   - error: Context errors or a malformed continuation token
func (s *MemoryObjectStore) List(ctx context.Context, opts object.ListOptions) (*object.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 1: Resolve the resume position
	// ========================================================================

	after := opts.StartAfter
	if opts.ContinuationToken != "" {
		decoded, err := decodeToken(opts.ContinuationToken)
		if err != nil {
			return nil, err
		}
		after = decoded
	}

	maxKeys := opts.MaxKeys
	if maxKeys <= 0 || maxKeys > s.pageSize {
		maxKeys = s.pageSize
	}

	// A resume position that is itself a common prefix means its whole
	// subtree was already reported.
	skipPrefix := ""
	if opts.Delimiter != "" && after != "" && strings.HasSuffix(after, opts.Delimiter) {
		skipPrefix = after
	}

	// ========================================================================
	// Step 2: Walk the tree from the first candidate key
	// ========================================================================

	pivot := opts.Prefix
	if after > pivot {
		pivot = after
	}

	page := &object.ListPage{}
	count := 0
	last := ""
	lastPrefix := ""

	s.mu.RLock()
	s.tree.AscendGreaterOrEqual(&memoryObject{key: pivot}, func(obj *memoryObject) bool {
		key := obj.key
		if !strings.HasPrefix(key, opts.Prefix) {
			return false
		}
		if key <= after {
			return true
		}
		if skipPrefix != "" && strings.HasPrefix(key, skipPrefix) {
			return true
		}

		if opts.Delimiter != "" {
			rest := key[len(opts.Prefix):]
			if i := strings.Index(rest, opts.Delimiter); i >= 0 {
				cp := opts.Prefix + rest[:i+len(opts.Delimiter)]
				if cp == lastPrefix {
					return true
				}
				if count == maxKeys {
					page.IsTruncated = true
					return false
				}
				lastPrefix = cp
				page.CommonPrefixes = append(page.CommonPrefixes, cp)
				count++
				last = cp
				return true
			}
		}

		if count == maxKeys {
			page.IsTruncated = true
			return false
		}
		info := obj.info
		info.Metadata = nil
		page.Objects = append(page.Objects, info)
		count++
		last = key
		return true
	})
	s.mu.RUnlock()

	// ========================================================================
	// Step 3: Build the continuation token
	// ========================================================================

	if page.IsTruncated {
		page.NextContinuationToken = encodeToken(last)
	}

	return page, nil
}

func encodeToken(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func decodeToken(token string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", fmt.Errorf("invalid continuation token: %w", object.ErrInvalidKey)
	}
	return string(b), nil
}
