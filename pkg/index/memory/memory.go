// Package memory implements an in-process path index with per-entry expiry.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/marmos91/dittostore/pkg/index"
	"github.com/marmos91/dittostore/pkg/keys"
)

// DefaultTTL bounds how long an entry is trusted.
const DefaultTTL = 5 * time.Minute

type entry struct {
	path    string
	expires time.Time
}

func lessEntry(a, b entry) bool {
	return a.path < b.path
}

// MemoryIndex is a PathIndex kept in a B-tree ordered by path.
//
// Entries expire after the configured TTL; expired entries are treated as
// absent and dropped lazily on lookup.
type MemoryIndex struct {
	mu     sync.Mutex
	tree   *btree.BTreeG[entry]
	ttl    time.Duration
	now    func() time.Time
	closed bool
}

// Config contains configuration for the memory index.
type Config struct {
	// TTL is the lifetime of an entry (default: 5m). Negative disables
	// expiry.
	TTL time.Duration `mapstructure:"ttl"`
}

// New creates an empty MemoryIndex.
func New(cfg Config) *MemoryIndex {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	return &MemoryIndex{
		tree: btree.NewG(16, lessEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

var _ index.PathIndex = (*MemoryIndex)(nil)

// Has implements index.PathIndex.
func (m *MemoryIndex) Has(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false, index.ErrClosed
	}

	for _, p := range []string{path, keys.PropsKey(path)} {
		if m.liveLocked(p) {
			return true, nil
		}
	}

	prefix := path + keys.Separator
	found := false
	var expired []entry
	now := m.now()
	m.tree.AscendGreaterOrEqual(entry{path: prefix}, func(e entry) bool {
		if !strings.HasPrefix(e.path, prefix) {
			return false
		}
		if m.expiredAt(e, now) {
			expired = append(expired, e)
			return true
		}
		found = true
		return false
	})
	for _, e := range expired {
		m.tree.Delete(e)
	}
	return found, nil
}

// Add implements index.PathIndex.
func (m *MemoryIndex) Add(ctx context.Context, paths ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return index.ErrClosed
	}

	expires := time.Time{}
	if m.ttl > 0 {
		expires = m.now().Add(m.ttl)
	}
	for _, p := range paths {
		m.tree.ReplaceOrInsert(entry{path: p, expires: expires})
	}
	return nil
}

// Remove implements index.PathIndex.
func (m *MemoryIndex) Remove(ctx context.Context, paths ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return index.ErrClosed
	}

	for _, p := range paths {
		m.tree.Delete(entry{path: p})
	}
	return nil
}

// Len returns the number of entries, expired ones included.
func (m *MemoryIndex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tree.Len()
}

// Close implements index.PathIndex.
func (m *MemoryIndex) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.tree.Clear(false)
	return nil
}

// liveLocked reports whether p is present and unexpired. Caller holds mu.
func (m *MemoryIndex) liveLocked(p string) bool {
	e, ok := m.tree.Get(entry{path: p})
	if !ok {
		return false
	}
	if m.expiredAt(e, m.now()) {
		m.tree.Delete(e)
		return false
	}
	return true
}

func (m *MemoryIndex) expiredAt(e entry, now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}
