// Package index provides the path-existence cache consulted before choosing a
// destination key.
//
// The index is an optimization layered in front of the object store, never a
// source of truth. A hit means "exists" without a store round-trip; a miss is
// always confirmed against the store. A stale index can therefore only cause
// an unnecessary collision suffix, never an overwrite.
package index

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/dittostore/internal/logger"
	"github.com/marmos91/dittostore/pkg/enumerate"
	"github.com/marmos91/dittostore/pkg/keys"
	"github.com/marmos91/dittostore/pkg/store/object"
)

// ErrClosed is returned by operations on a closed index.
var ErrClosed = errors.New("path index closed")

// PathIndex records which org-qualified keys are known to exist.
//
// Has reports true when path is itself an indexed key, when its ".props"
// sibling is indexed, or when any indexed key lives beneath "path/". That is
// the same notion of existence the object store check uses, so a folder is
// taken even if its marker object is missing.
//
// Implementations must be safe for concurrent use.
type PathIndex interface {
	Has(ctx context.Context, path string) (bool, error)
	Add(ctx context.Context, paths ...string) error
	Remove(ctx context.Context, paths ...string) error
	Close() error
}

// Lookup results reported to Metrics.
const (
	LookupHit   = "hit"
	LookupMiss  = "miss"
	LookupError = "error"
)

// Metrics observes index lookups made by a Checker.
//
// This is optional - if not provided, metrics collection is skipped.
type Metrics interface {
	RecordLookup(result string)
}

type noopMetrics struct{}

func (noopMetrics) RecordLookup(string) {}

// Checker answers existence questions using an optional index and the object
// store.
type Checker struct {
	index   PathIndex
	store   object.Store
	metrics Metrics
}

// NewChecker creates a Checker. idx may be nil, in which case every check goes
// to the store.
func NewChecker(idx PathIndex, store object.Store) *Checker {
	return &Checker{index: idx, store: store, metrics: noopMetrics{}}
}

// WithMetrics sets the lookup observer. A nil m disables collection.
func (c *Checker) WithMetrics(m Metrics) *Checker {
	if m == nil {
		m = noopMetrics{}
	}
	c.metrics = m
	return c
}

// Exists reports whether path is taken either as an object, a folder marker or
// a folder with descendants.
//
// Index errors are logged and treated as a miss.
func (c *Checker) Exists(ctx context.Context, path string) (bool, error) {
	if c.index != nil {
		hit, err := c.index.Has(ctx, path)
		switch {
		case err != nil:
			c.metrics.RecordLookup(LookupError)
			logger.Warn("Path index lookup failed for %s: %v", path, err)
		case hit:
			c.metrics.RecordLookup(LookupHit)
			return true, nil
		default:
			c.metrics.RecordLookup(LookupMiss)
		}
	}

	exists, err := StoreExists(ctx, c.store, path)
	if err != nil {
		return false, err
	}

	if exists && c.index != nil {
		if err := c.index.Add(ctx, path); err != nil {
			logger.Debug("Path index warm-up failed for %s: %v", path, err)
		}
	}
	return exists, nil
}

// Index returns the underlying index (may be nil).
func (c *Checker) Index() PathIndex {
	return c.index
}

// StoreExists checks path against the object store: the key itself, its
// ".props" sibling, then any key beneath "path/".
func StoreExists(ctx context.Context, store object.Store, path string) (bool, error) {
	for _, key := range []string{path, keys.PropsKey(path)} {
		ok, err := object.Exists(ctx, store, key)
		if err != nil {
			return false, fmt.Errorf("existence check for %s: %w", key, err)
		}
		if ok {
			return true, nil
		}
	}

	page, err := store.List(ctx, object.ListOptions{
		Prefix:  path + keys.Separator,
		MaxKeys: 1,
	})
	if err != nil {
		return false, fmt.Errorf("existence check for %s/: %w", path, err)
	}
	return len(page.Objects) > 0, nil
}

// Rebuild adds every key of the subtree rooted at prefix to idx.
//
// Keys are added in batches. Returns the number of keys indexed.
func Rebuild(ctx context.Context, idx PathIndex, store object.Store, prefix string) (int, error) {
	const batchSize = 500

	batch := make([]string, 0, batchSize)
	total := 0
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := idx.Add(ctx, batch...); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	for key, err := range enumerate.ListAllKeys(ctx, store, prefix) {
		if err != nil {
			return total, err
		}
		batch = append(batch, key)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	logger.Info("Path index rebuilt: prefix=%q keys=%d", prefix, total)
	return total, nil
}
