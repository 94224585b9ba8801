// Package enumerate lists every key of an object or folder subtree.
//
// A prefix key names either a concrete object ("acme/docs/a.html") or a folder
// ("acme/docs"). A folder's subtree is the marker key itself, its ".props"
// sibling and everything beneath "prefix/". Listings walk the object store in
// ascending key order, follow continuation tokens until exhaustion and never
// emit a key twice, even when a page boundary falls in the middle of the
// subtree.
package enumerate

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/marmos91/dittostore/pkg/keys"
	"github.com/marmos91/dittostore/pkg/store/object"
)

// DefaultPageSize is the number of keys requested per object store call.
const DefaultPageSize = 1000

// ErrInvalidToken is returned when a page token cannot be decoded.
var ErrInvalidToken = errors.New("invalid continuation token")

// ListAllKeys returns a lazy sequence of every key in the subtree rooted at
// prefixKey.
//
// A concrete key yields exactly one element, prefixKey itself, without
// touching the store. Each call to the returned sequence re-enumerates from
// the store. Iteration stops at the first error, which is yielded with an
// empty key.
func ListAllKeys(ctx context.Context, store object.Store, prefixKey string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if keys.IsConcrete(prefixKey) {
			yield(prefixKey, nil)
			return
		}

		_, err := walk(ctx, store, prefixKey, "", 0, func(info object.ObjectInfo) bool {
			return yield(info.Key, nil)
		})
		if err != nil {
			yield("", err)
		}
	}
}

// Count returns the number of keys ListAllKeys would yield.
func Count(ctx context.Context, store object.Store, prefixKey string) (int, error) {
	n := 0
	for _, err := range ListAllKeys(ctx, store, prefixKey) {
		if err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}

// Page is a bounded slice of a subtree listing.
type Page struct {
	// Objects holds the listed objects in ascending key order
	Objects []object.ObjectInfo

	// NextToken resumes the listing after the last object; empty when the
	// subtree is exhausted
	NextToken string
}

// ListPage returns up to limit keys of the subtree rooted at prefixKey,
// starting after the position encoded in token.
//
// The token encodes the last returned key rather than backend pagination
// state, so resuming stays correct when keys were added or deleted between
// calls: nothing at or before the last returned key is listed again.
//
// Parameters:
//   - ctx: Context for cancellation
//   - store: Object store to enumerate
//   - prefixKey: Org-qualified object or folder key
//   - token: Token from a previous page, or "" to start
//   - limit: Maximum number of objects (DefaultPageSize when <= 0)
//
// Returns:
//   - *Page: The page, never nil on success
//   - error: ErrInvalidToken or object store errors
func ListPage(ctx context.Context, store object.Store, prefixKey, token string, limit int) (*Page, error) {
	after, err := DecodeToken(token)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if keys.IsConcrete(prefixKey) {
		if after >= prefixKey {
			return &Page{}, nil
		}
		info, err := store.Head(ctx, prefixKey)
		if err != nil {
			if object.IsNotFound(err) {
				return &Page{Objects: []object.ObjectInfo{{Key: prefixKey}}}, nil
			}
			return nil, err
		}
		return &Page{Objects: []object.ObjectInfo{*info}}, nil
	}

	page := &Page{}
	more := false
	_, err = walk(ctx, store, prefixKey, after, limit, func(info object.ObjectInfo) bool {
		if len(page.Objects) == limit {
			more = true
			return false
		}
		page.Objects = append(page.Objects, info)
		return true
	})
	if err != nil {
		return nil, err
	}

	if more {
		page.NextToken = EncodeToken(page.Objects[len(page.Objects)-1].Key)
	}
	return page, nil
}

// EncodeToken turns the last listed key into an opaque resume token.
func EncodeToken(lastKey string) string {
	if lastKey == "" {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(lastKey))
}

// DecodeToken returns the key encoded in token ("" for an empty token).
func DecodeToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(b) == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidToken, token)
	}
	return string(b), nil
}

// walk streams the subtree of prefixKey in ascending order, starting after
// the key after, calling fn for every object until fn returns false or the
// subtree ends.
//
// pageSize bounds each store request (DefaultPageSize when <= 0). The
// returned string is the last key passed to fn.
func walk(ctx context.Context, store object.Store, prefixKey, after string, pageSize int, fn func(object.ObjectInfo) bool) (string, error) {
	if pageSize <= 0 || pageSize > DefaultPageSize {
		pageSize = DefaultPageSize
	}

	// Every key of the subtree sorts before the first key past "prefix/".
	// ".props" ('.') and "prefix/..." ('/') both sort before any other
	// sibling starting with prefix followed by a byte greater than '/'.
	descendants := prefixKey + keys.Separator
	if prefixKey == "" {
		descendants = ""
	}

	last := after
	opts := object.ListOptions{
		Prefix:     prefixKey,
		StartAfter: after,
		MaxKeys:    pageSize,
	}

	for {
		if err := ctx.Err(); err != nil {
			return last, err
		}

		page, err := store.List(ctx, opts)
		if err != nil {
			return last, fmt.Errorf("failed to list %q: %w", prefixKey, err)
		}

		for _, info := range page.Objects {
			// Pages may overlap when the backend retries or when keys were
			// written behind the cursor.
			if last != "" && info.Key <= last {
				continue
			}
			if !keys.Belongs(info.Key, prefixKey) {
				if descendants != "" && info.Key > descendants && !strings.HasPrefix(info.Key, descendants) {
					return last, nil
				}
				continue
			}
			last = info.Key
			if !fn(info) {
				return last, nil
			}
		}

		if !page.IsTruncated || page.NextContinuationToken == "" {
			return last, nil
		}
		opts.ContinuationToken = page.NextContinuationToken
	}
}
