package mutation

import (
	"context"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/marmos91/dittostore/internal/logger"
	"github.com/marmos91/dittostore/pkg/keys"
)

// DefaultMaxAttempts bounds collision retries.
const DefaultMaxAttempts = 10

// ExistsFunc reports whether an org-qualified key is taken.
type ExistsFunc func(ctx context.Context, key string) (bool, error)

// Resolver picks a destination that does not collide with an existing key.
//
// A free candidate is returned unchanged. A taken one gets "-<n>" inserted
// before the extension of its final segment, where n is the current time in
// milliseconds forced to increase strictly on every draw within the process.
// Two resolutions in the same millisecond therefore never propose the same
// name, and a suffixed name that is itself taken is retried with a fresh
// suffix.
//
// Thread safety:
// Safe for concurrent use; the suffix source is a single atomic counter.
type Resolver struct {
	maxAttempts int
	clock       func() time.Time
	last        atomic.Int64
	metrics     Metrics
}

// NewResolver creates a Resolver. maxAttempts <= 0 uses DefaultMaxAttempts.
// A nil metrics disables collection.
func NewResolver(maxAttempts int, metrics Metrics) *Resolver {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &Resolver{
		maxAttempts: maxAttempts,
		clock:       time.Now,
		metrics:     metrics,
	}
}

// Resolve returns candidate if it is free, otherwise the first free suffixed
// variant.
//
// Parameters:
//   - ctx: Context passed to exists
//   - candidate: Org-qualified destination key
//   - exists: Existence check (typically an index.Checker)
//
// Returns:
//   - string: A key exists reported as free
//   - error: ErrCollisionExhausted after maxAttempts suffixed candidates
//     were all taken, or the error returned by exists
func (r *Resolver) Resolve(ctx context.Context, candidate string, exists ExistsFunc) (string, error) {
	taken, err := exists(ctx, candidate)
	if err != nil {
		return "", err
	}
	if !taken {
		return candidate, nil
	}

	r.metrics.RecordCollision()

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		next := keys.WithSuffix(candidate, strconv.FormatInt(r.nextSuffix(), 10))

		taken, err := exists(ctx, next)
		if err != nil {
			return "", err
		}
		if !taken {
			logger.Debug("Collision resolved: %s -> %s (attempt %d)", candidate, next, attempt)
			return next, nil
		}
	}

	return "", newError(ErrCollisionExhausted, "no free name for %s after %d attempts", candidate, r.maxAttempts)
}

// nextSuffix returns the current time in milliseconds, bumped past the
// previously returned value when the clock has not advanced.
func (r *Resolver) nextSuffix() int64 {
	now := r.clock().UnixMilli()
	for {
		last := r.last.Load()
		next := max(now, last+1)
		if r.last.CompareAndSwap(last, next) {
			return next
		}
	}
}
