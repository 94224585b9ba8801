// Package version manages immutable, timestamp-ordered snapshots of objects.
//
// A snapshot captures the bytes of a primary key at creation time and is
// written once with an if-none-match precondition. The primary key keeps
// mutating independently. Labels are free-form and need not be unique.
package version

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittostore/internal/logger"
	"github.com/marmos91/dittostore/pkg/keys"
	"github.com/marmos91/dittostore/pkg/store/object"
)

const (
	// DefaultPrefix is the top-level key prefix holding every snapshot
	DefaultPrefix = ".versions"

	// DefaultURLBase is prepended to snapshot locations in records
	DefaultURLBase = "/versionsource"

	// DefaultMaxAttempts bounds timestamp retries on a conflicting write
	DefaultMaxAttempts = 10
)

// Metadata keys stored on every snapshot.
const (
	MetaLabel   = "label"
	MetaPrimary = "primary"
)

var (
	// ErrPrimaryNotFound is returned when the key to snapshot doesn't exist.
	ErrPrimaryNotFound = errors.New("primary object not found")

	// ErrVersionNotFound is returned when no snapshot matches a reference.
	ErrVersionNotFound = errors.New("version not found")
)

// Record describes one snapshot.
type Record struct {
	// Timestamp is the creation time in milliseconds, strictly increasing
	// per primary key
	Timestamp int64 `json:"timestamp" yaml:"timestamp"`

	// Label is the optional human-readable name given at creation
	Label string `json:"label,omitempty" yaml:"label,omitempty"`

	// URL is the retrieval address of the snapshot content
	URL string `json:"url" yaml:"url"`

	// Key is the object key holding the snapshot
	Key string `json:"key" yaml:"key"`

	Size      int64     `json:"size" yaml:"size"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// Config configures a Manager.
type Config struct {
	// Prefix is the key prefix holding snapshots (default ".versions")
	Prefix string `mapstructure:"prefix" yaml:"prefix"`

	// URLBase is the base of Record.URL (default "/versionsource")
	URLBase string `mapstructure:"url_base" yaml:"url_base"`

	// MaxAttempts bounds retries when a snapshot key is already taken
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts" validate:"gte=0"`
}

// Manager creates, lists and resolves snapshots.
//
// Thread Safety:
// Safe for concurrent use. Timestamps come from an atomic counter bumped
// past the previous value, so two snapshots taken in the same millisecond
// still get distinct, increasing timestamps.
type Manager struct {
	store       object.Store
	prefix      string
	urlBase     string
	maxAttempts int
	clock       func() time.Time
	last        atomic.Int64
}

// NewManager creates a Manager over store.
func NewManager(store object.Store, cfg Config) *Manager {
	prefix := strings.Trim(cfg.Prefix, keys.Separator)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	urlBase := strings.TrimSuffix(cfg.URLBase, keys.Separator)
	if urlBase == "" {
		urlBase = DefaultURLBase
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	return &Manager{
		store:       store,
		prefix:      prefix,
		urlBase:     urlBase,
		maxAttempts: maxAttempts,
		clock:       time.Now,
	}
}

// Prefix returns the key prefix holding snapshots.
func (m *Manager) Prefix() string {
	return m.prefix
}

// Create snapshots the current content of primary.
//
// Parameters:
//   - ctx: Context for cancellation
//   - primary: Org-qualified key of the object ("acme/docs/a.html")
//   - label: Optional human-readable name
//
// Returns:
//   - *Record: The new snapshot
//   - error: ErrPrimaryNotFound if primary doesn't exist
func (m *Manager) Create(ctx context.Context, primary, label string) (*Record, error) {
	primary, err := normalize(primary)
	if err != nil {
		return nil, err
	}

	// ========================================================================
	// Step 1: Capture the current content
	// ========================================================================

	data, info, err := object.ReadAll(ctx, m.store, primary)
	if err != nil {
		if object.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrPrimaryNotFound, primary, err)
		}
		return nil, fmt.Errorf("failed to read %s: %w", primary, err)
	}

	md := map[string]string{MetaPrimary: primary}
	if label != "" {
		md[MetaLabel] = label
	}

	// ========================================================================
	// Step 2: Write it once under a fresh timestamp
	// ========================================================================

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		ts := m.nextTimestamp()
		key := m.snapshotKey(primary, ts)

		err := m.store.Put(ctx, key, data, object.PutOptions{
			ContentType: info.ContentType,
			Metadata:    md,
			IfNoneMatch: true,
		})
		if errors.Is(err, object.ErrObjectExists) {
			logger.Debug("Version key %s already taken (attempt %d)", key, attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to write version of %s: %w", primary, err)
		}

		logger.Info("Created version %d of %s (label=%q, %d bytes)", ts, primary, label, len(data))
		return &Record{
			Timestamp: ts,
			Label:     label,
			URL:       m.url(primary, ts),
			Key:       key,
			Size:      int64(len(data)),
			CreatedAt: time.UnixMilli(ts),
		}, nil
	}

	return nil, fmt.Errorf("no free version slot for %s after %d attempts", primary, m.maxAttempts)
}

// List returns the snapshots of primary in ascending timestamp order. It
// returns an empty slice when there are none.
func (m *Manager) List(ctx context.Context, primary string) ([]Record, error) {
	primary, err := normalize(primary)
	if err != nil {
		return nil, err
	}

	records := []Record{}
	opts := object.ListOptions{
		Prefix:    m.snapshotDir(primary),
		Delimiter: keys.Separator,
	}

	for {
		page, err := m.store.List(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list versions of %s: %w", primary, err)
		}

		for _, obj := range page.Objects {
			owner, ts, ok := m.ParseSnapshotKey(obj.Key)
			if !ok || owner != primary {
				continue
			}

			rec, err := m.record(ctx, primary, ts, obj)
			if err != nil {
				return nil, err
			}
			if rec != nil {
				records = append(records, *rec)
			}
		}

		if !page.IsTruncated {
			break
		}
		opts.ContinuationToken = page.NextContinuationToken
	}

	slices.SortFunc(records, func(a, b Record) int {
		return cmp.Compare(a.Timestamp, b.Timestamp)
	})
	return records, nil
}

// Resolve finds a snapshot of primary by reference.
//
// The first snapshot (in creation order) whose label equals ref wins. When
// no label matches and ref is numeric, it is matched against timestamps. An
// empty ref resolves to the latest snapshot.
//
// Returns:
//   - *Record: The matching snapshot
//   - error: ErrVersionNotFound when nothing matches
func (m *Manager) Resolve(ctx context.Context, primary, ref string) (*Record, error) {
	records, err := m.List(ctx, primary)
	if err != nil {
		return nil, err
	}

	if ref == "" {
		if len(records) == 0 {
			return nil, fmt.Errorf("%w: %s has no versions", ErrVersionNotFound, primary)
		}
		return &records[len(records)-1], nil
	}

	for i := range records {
		if records[i].Label == ref {
			return &records[i], nil
		}
	}

	if ts, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for i := range records {
			if records[i].Timestamp == ts {
				return &records[i], nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s@%s", ErrVersionNotFound, primary, ref)
}

// Open returns a reader over the snapshot content. The caller must close it.
func (m *Manager) Open(ctx context.Context, rec *Record) (io.ReadCloser, error) {
	body, _, err := m.store.Get(ctx, rec.Key)
	if err != nil {
		if object.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrVersionNotFound, rec.Key, err)
		}
		return nil, err
	}
	return body, nil
}

// Read returns the snapshot content.
func (m *Manager) Read(ctx context.Context, rec *Record) ([]byte, error) {
	body, err := m.Open(ctx, rec)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }()

	return io.ReadAll(body)
}

// Move re-homes the snapshots of every primary key in the tree rooted at from
// onto the tree rooted at to, keeping timestamps, labels and content. It is
// called once the primary keys themselves have moved.
//
// Each snapshot is written at its new key with an if-none-match precondition
// and then deleted at the old one, so re-running an interrupted Move is safe.
//
// Parameters:
//   - ctx: Context for cancellation
//   - from: Org-qualified root of the moved tree ("acme/docs" or "acme/a.html")
//   - to: Org-qualified root it moved to
//
// Returns:
//   - int: Number of snapshots moved
//   - error: The first listing, copy or delete failure
func (m *Manager) Move(ctx context.Context, from, to string) (int, error) {
	from = strings.Trim(from, keys.Separator)
	to = strings.Trim(to, keys.Separator)
	if from == "" || to == "" {
		return 0, fmt.Errorf("%w: empty version move root", object.ErrInvalidKey)
	}
	if from == to {
		return 0, nil
	}

	// ========================================================================
	// Step 1: Collect the snapshots of every primary under from
	// ========================================================================

	type relocation struct {
		src, dst string
	}
	var moves []relocation

	opts := object.ListOptions{Prefix: m.prefix + keys.Separator + from}
	for {
		page, err := m.store.List(ctx, opts)
		if err != nil {
			return 0, fmt.Errorf("failed to list versions under %s: %w", from, err)
		}

		for _, obj := range page.Objects {
			primary, ts, ok := m.ParseSnapshotKey(obj.Key)
			if !ok {
				continue
			}
			target, ok := keys.Rebase(primary, from, to)
			if !ok {
				continue
			}
			moves = append(moves, relocation{src: obj.Key, dst: m.snapshotKey(target, ts)})
		}

		if !page.IsTruncated {
			break
		}
		opts.ContinuationToken = page.NextContinuationToken
	}

	// ========================================================================
	// Step 2: Rewrite each snapshot under its new primary, then drop the old
	// ========================================================================

	moved := 0
	for _, mv := range moves {
		if err := ctx.Err(); err != nil {
			return moved, err
		}

		data, info, err := object.ReadAll(ctx, m.store, mv.src)
		if err != nil {
			if object.IsNotFound(err) {
				continue
			}
			return moved, fmt.Errorf("failed to read version %s: %w", mv.src, err)
		}

		primary, _, _ := m.ParseSnapshotKey(mv.dst)
		md := map[string]string{MetaPrimary: primary}
		if label := info.Metadata[MetaLabel]; label != "" {
			md[MetaLabel] = label
		}

		err = m.store.Put(ctx, mv.dst, data, object.PutOptions{
			ContentType: info.ContentType,
			Metadata:    md,
			IfNoneMatch: true,
		})
		if err != nil && !errors.Is(err, object.ErrObjectExists) {
			return moved, fmt.Errorf("failed to write version %s: %w", mv.dst, err)
		}

		if err := m.store.Delete(ctx, mv.src); err != nil {
			return moved, fmt.Errorf("failed to delete version %s: %w", mv.src, err)
		}
		moved++
	}

	if moved > 0 {
		logger.Info("Moved %d versions from %s to %s", moved, from, to)
	}
	return moved, nil
}

// record builds a Record from a listed snapshot, reading its label. A
// snapshot deleted since the listing yields nil.
func (m *Manager) record(ctx context.Context, primary string, ts int64, obj object.ObjectInfo) (*Record, error) {
	info, err := m.store.Head(ctx, obj.Key)
	if err != nil {
		if object.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read version %s: %w", obj.Key, err)
	}

	return &Record{
		Timestamp: ts,
		Label:     info.Metadata[MetaLabel],
		URL:       m.url(primary, ts),
		Key:       obj.Key,
		Size:      info.Size,
		CreatedAt: time.UnixMilli(ts),
	}, nil
}

// nextTimestamp returns the current time in milliseconds, bumped past the
// previously returned value when the clock has not advanced.
func (m *Manager) nextTimestamp() int64 {
	now := m.clock().UnixMilli()
	for {
		last := m.last.Load()
		next := max(now, last+1)
		if m.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

func normalize(primary string) (string, error) {
	primary = strings.Trim(primary, keys.Separator)
	org, key := keys.Split(primary)
	if org == "" || !keys.ValidSegments(key) {
		return "", fmt.Errorf("%w: %q is not an org-qualified key", object.ErrInvalidKey, primary)
	}
	return primary, nil
}
