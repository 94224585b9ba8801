// Package ratelimiter paces calls into the object store.
package ratelimiter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Limiter bounds the rate of object store calls issued by a long-running
// operation such as a folder move.
//
// It wraps golang.org/x/time/rate's token bucket: tokens refill at the
// configured rate and the burst is the bucket capacity. A batch request
// (e.g. DeleteObjects for 500 keys) consumes one token per key so a batch
// cannot bypass the sustained rate.
//
// A nil *Limiter is valid and never waits.
//
// Thread safety:
// All methods are safe for concurrent use.
type Limiter struct {
	limiter *rate.Limiter
}

// New creates a Limiter allowing callsPerSecond sustained calls with bursts
// of up to burst calls.
//
// Special cases:
//   - callsPerSecond = 0: returns nil (unlimited)
//   - burst = 0: burst defaults to callsPerSecond
//
// Example:
//
//	// 200 calls/s sustained, 400 in a burst
//	limiter := New(200, 400)
func New(callsPerSecond, burst uint) *Limiter {
	if callsPerSecond == 0 {
		return nil
	}
	if burst == 0 {
		burst = callsPerSecond
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(callsPerSecond), int(burst)),
	}
}

// Wait blocks until one call may proceed or ctx is done.
//
// Returns:
//   - nil if a token was acquired
//   - context error if the context was cancelled first
func (l *Limiter) Wait(ctx context.Context) error {
	return l.WaitN(ctx, 1)
}

// WaitN blocks until n calls may proceed or ctx is done.
//
// Requests larger than the burst are split into burst-sized waits, so a large
// batch is paced instead of rejected.
func (l *Limiter) WaitN(ctx context.Context, n int) error {
	if l == nil || n <= 0 {
		return nil
	}

	burst := l.limiter.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := l.limiter.WaitN(ctx, step); err != nil {
			return fmt.Errorf("rate limit wait cancelled: %w", err)
		}
		n -= step
	}
	return nil
}

// Allow reports whether one call may proceed right now, consuming a token if
// so.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}
	return l.limiter.Allow()
}

// Tokens returns the number of tokens currently available. Unlimited
// limiters report -1.
func (l *Limiter) Tokens() float64 {
	if l == nil {
		return -1
	}
	return l.limiter.Tokens()
}
