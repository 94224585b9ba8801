// Package badger implements a persistent path index on BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/dittostore/pkg/index"
	"github.com/marmos91/dittostore/pkg/keys"
)

// DefaultTTL is the lifetime of an indexed path.
const DefaultTTL = 24 * time.Hour

// BadgerIndex implements index.PathIndex using BadgerDB for persistence.
//
// It is suitable for long-running processes that want a warm index across
// restarts. Entries carry a TTL so paths deleted behind the index's back age
// out on their own.
//
// Thread Safety:
// BadgerDB transactions are safe for concurrent use; the index holds no other
// mutable state.
type BadgerIndex struct {
	db  *badger.DB
	ttl time.Duration
}

// Config contains configuration for the BadgerDB path index.
type Config struct {
	// DBPath is the directory where BadgerDB stores its files
	DBPath string `mapstructure:"db_path"`

	// InMemory keeps the database in memory (DBPath is ignored)
	InMemory bool `mapstructure:"in_memory"`

	// TTL is the lifetime of an entry (default: 24h). Negative disables
	// expiry.
	TTL time.Duration `mapstructure:"ttl"`

	// BlockCacheSizeMB is BadgerDB's block cache size in MB (default: 64)
	BlockCacheSizeMB int64 `mapstructure:"block_cache_size_mb"`
}

// New opens (or creates) a BadgerDB path index.
//
// Context Cancellation:
// The context is checked before opening the database.
//
// Parameters:
//   - ctx: Context for cancellation
//   - cfg: Database location, TTL and cache size
//
// Returns:
//   - *BadgerIndex: Ready-to-use index
//   - error: If the database cannot be opened or context is cancelled
func New(ctx context.Context, cfg Config) (*BadgerIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if !cfg.InMemory && cfg.DBPath == "" {
		return nil, fmt.Errorf("db_path is required for the badger index")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(cfg.DBPath)
	}

	// Keys are short and values empty; compression would only cost CPU.
	opts = opts.WithLoggingLevel(badger.WARNING)
	opts = opts.WithCompression(options.None)

	blockCacheMB := cfg.BlockCacheSizeMB
	if blockCacheMB == 0 {
		blockCacheMB = 64
	}
	opts = opts.WithBlockCacheSize(blockCacheMB << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}

	return &BadgerIndex{db: db, ttl: ttl}, nil
}

var _ index.PathIndex = (*BadgerIndex)(nil)

// Has implements index.PathIndex.
func (b *BadgerIndex) Has(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	found := false
	err := b.db.View(func(txn *badger.Txn) error {
		for _, p := range []string{path, keys.PropsKey(path)} {
			_, err := txn.Get(keyPath(p))
			if err == nil {
				found = true
				return nil
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
		}

		prefix := keyPath(path + keys.Separator)
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		it.Seek(prefix)
		found = it.ValidForPrefix(prefix)
		return nil
	})
	if err != nil {
		return false, b.wrap("lookup", err)
	}
	return found, nil
}

// Add implements index.PathIndex.
//
// Paths are written through a WriteBatch so large rebuilds don't exceed
// transaction limits.
func (b *BadgerIndex) Add(ctx context.Context, paths ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, p := range paths {
		e := badger.NewEntry(keyPath(p), nil)
		if b.ttl > 0 {
			e = e.WithTTL(b.ttl)
		}
		if err := wb.SetEntry(e); err != nil {
			return b.wrap("add", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return b.wrap("add", err)
	}
	return nil
}

// Remove implements index.PathIndex.
func (b *BadgerIndex) Remove(ctx context.Context, paths ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()

	for _, p := range paths {
		if err := wb.Delete(keyPath(p)); err != nil {
			return b.wrap("remove", err)
		}
	}

	if err := wb.Flush(); err != nil {
		return b.wrap("remove", err)
	}
	return nil
}

// Close implements index.PathIndex.
func (b *BadgerIndex) Close() error {
	return b.db.Close()
}

func (b *BadgerIndex) wrap(op string, err error) error {
	if errors.Is(err, badger.ErrDBClosed) {
		return fmt.Errorf("path index %s: %w", op, index.ErrClosed)
	}
	return fmt.Errorf("path index %s: %w", op, err)
}
