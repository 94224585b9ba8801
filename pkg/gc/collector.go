// Package gc removes orphaned version snapshots.
//
// A snapshot is orphaned when its primary key no longer exists. This happens
// when an object is deleted, or moved away, after snapshots were taken:
// snapshots stay reachable only through their primary key, so once it is
// gone they just occupy space.
//
// Collection is an explicit operator action. It never runs on its own.
package gc

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/dittostore/internal/logger"
	"github.com/marmos91/dittostore/pkg/store/object"
	"github.com/marmos91/dittostore/pkg/version"
)

// Collector finds and deletes orphaned snapshots of one org at a time.
//
// Thread Safety: Safe for concurrent use.
type Collector struct {
	store    object.Store
	versions *version.Manager
	config   Config
}

// Config contains configuration for the garbage collector.
type Config struct {
	// BatchSize is how many orphaned snapshots to delete per batch (default: 1000)
	// S3 supports up to 1000 objects per DeleteObjects call
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size" validate:"gte=0,lte=1000"`

	// DryRun mode logs what would be deleted without actually deleting (default: false)
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// NewCollector creates a new garbage collector.
//
// Parameters:
//   - store: Object store holding primaries and snapshots
//   - versions: Version manager defining the snapshot layout
//   - config: Garbage collection configuration
func NewCollector(store object.Store, versions *version.Manager, config Config) *Collector {
	if config.BatchSize <= 0 {
		config.BatchSize = 1000
	}

	return &Collector{
		store:    store,
		versions: versions,
		config:   config,
	}
}

// Collect performs a single garbage collection run over org.
//
// This is the core GC algorithm:
//  1. Enumerate every snapshot of org, grouped by primary key
//  2. Check each distinct primary once against the store
//  3. Batch delete the snapshots of missing primaries
//
// Returns:
//   - *Stats: Collection statistics
//   - error: Returns error if enumeration fails or context is cancelled
func (c *Collector) Collect(ctx context.Context, org string) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	root := c.versions.OrgRoot(org)

	logger.Info("GC: Phase 1 - Enumerating snapshots under %s...", root)

	byPrimary := make(map[string][]string)
	var primaries []string

	opts := object.ListOptions{Prefix: root + "/"}
	for {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			return stats, err
		}

		page, err := c.store.List(ctx, opts)
		if err != nil {
			stats.EndTime = time.Now()
			return stats, fmt.Errorf("failed to enumerate snapshots: %w", err)
		}

		for _, obj := range page.Objects {
			primary, _, ok := c.versions.ParseSnapshotKey(obj.Key)
			if !ok {
				logger.Debug("GC: Skipping foreign key %s", obj.Key)
				continue
			}

			stats.SnapshotCount++
			if _, seen := byPrimary[primary]; !seen {
				primaries = append(primaries, primary)
			}
			byPrimary[primary] = append(byPrimary[primary], obj.Key)
		}

		if !page.IsTruncated {
			break
		}
		opts.ContinuationToken = page.NextContinuationToken
	}

	logger.Info("GC: Found %d snapshots of %d primaries", stats.SnapshotCount, len(primaries))

	// Phase 2: Find primaries that no longer exist
	var orphaned []string
	for _, primary := range primaries {
		exists, err := object.Exists(ctx, c.store, primary)
		if err != nil {
			stats.EndTime = time.Now()
			return stats, fmt.Errorf("failed to check %s: %w", primary, err)
		}
		if exists {
			continue
		}
		stats.OrphanedPrimaries++
		orphaned = append(orphaned, byPrimary[primary]...)
	}
	stats.OrphanedCount = uint64(len(orphaned))

	if len(orphaned) == 0 {
		logger.Info("GC: No orphaned snapshots found")
		stats.EndTime = time.Now()
		return stats, nil
	}

	logger.Info("GC: Found %d orphaned snapshots", stats.OrphanedCount)

	if c.config.DryRun {
		logger.Info("GC: DRY RUN - Would delete %d snapshots:", stats.OrphanedCount)
		for i, key := range orphaned {
			if i < 10 {
				logger.Info("  - %s", key)
			}
		}
		if len(orphaned) > 10 {
			logger.Info("  ... and %d more", len(orphaned)-10)
		}
		stats.EndTime = time.Now()
		return stats, nil
	}

	// Phase 3: Batch delete orphaned snapshots
	logger.Info("GC: Phase 3 - Deleting orphaned snapshots in batches of %d...", c.config.BatchSize)

	for i := 0; i < len(orphaned); i += c.config.BatchSize {
		if err := ctx.Err(); err != nil {
			stats.EndTime = time.Now()
			return stats, err
		}

		end := min(i+c.config.BatchSize, len(orphaned))
		batch := orphaned[i:end]

		failures, err := object.DeleteMany(ctx, c.store, batch)
		if err != nil {
			logger.Warn("GC: Batch delete failed: %v", err)
			stats.FailedCount += uint64(len(batch))
			continue
		}

		stats.DeletedCount += uint64(len(batch) - len(failures))
		stats.FailedCount += uint64(len(failures))

		for key, ferr := range failures {
			logger.Debug("GC: Failed to delete %s: %v", key, ferr)
		}
	}

	stats.EndTime = time.Now()

	logger.Info("GC: Completed - deleted %d snapshots, %d failed, duration=%s",
		stats.DeletedCount, stats.FailedCount, stats.Duration())

	return stats, nil
}

// Stats contains statistics from a garbage collection run.
type Stats struct {
	StartTime         time.Time `json:"startTime" yaml:"startTime"`
	EndTime           time.Time `json:"endTime" yaml:"endTime"`
	SnapshotCount     uint64    `json:"snapshots" yaml:"snapshots"`
	OrphanedPrimaries uint64    `json:"orphanedPrimaries" yaml:"orphanedPrimaries"`
	OrphanedCount     uint64    `json:"orphaned" yaml:"orphaned"`
	DeletedCount      uint64    `json:"deleted" yaml:"deleted"`
	FailedCount       uint64    `json:"failed" yaml:"failed"`
}

// Duration returns the total collection duration.
func (s *Stats) Duration() time.Duration {
	if s.EndTime.IsZero() {
		return time.Since(s.StartTime)
	}
	return s.EndTime.Sub(s.StartTime)
}

// Summary returns a human-readable summary of the collection.
func (s *Stats) Summary() string {
	return fmt.Sprintf("snapshots=%d orphaned=%d (of %d primaries) deleted=%d failed=%d duration=%s",
		s.SnapshotCount, s.OrphanedCount, s.OrphanedPrimaries,
		s.DeletedCount, s.FailedCount, s.Duration())
}
