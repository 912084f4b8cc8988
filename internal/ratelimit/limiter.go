// Package ratelimit implements fixed-window request counters keyed by an
// arbitrary identity string (for example "resolve:ip:203.0.113.7").
//
// A bucket is created on the first request for a key, incremented in place
// while its window is open, and replaced once the window has elapsed. Expired
// buckets are replaced lazily on the next access, so no background cleanup is
// needed for correctness.
package ratelimit

import (
	"context"
	"math"
	"time"
)

// Result describes the outcome of a single Check.
type Result struct {
	OK         bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
	ResetAt    time.Time
}

// RetryAfterSeconds returns RetryAfter rounded up to whole seconds, never below 1.
// Suitable for the Retry-After response header.
func (r Result) RetryAfterSeconds() int {
	seconds := int(math.Ceil(r.RetryAfter.Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}

// Limiter is the fixed-window counter contract. Implementations must make the
// read-modify-write of a single key atomic.
type Limiter interface {
	Check(ctx context.Context, key string, limit int, window time.Duration, now time.Time) (Result, error)
}

// bucket is the persisted counter state for one key.
type bucket struct {
	count     int
	expiresAt time.Time
}

// advance applies one request to b and returns the next state, the result and
// whether the state changed. A missing bucket is passed as found=false.
func advance(b bucket, found bool, limit int, window time.Duration, now time.Time) (bucket, Result, bool) {
	if !found || !now.Before(b.expiresAt) {
		next := bucket{count: 1, expiresAt: now.Add(window)}
		return next, Result{
			OK:        true,
			Limit:     limit,
			Remaining: max(limit-1, 0),
			ResetAt:   next.expiresAt,
		}, true
	}

	if b.count < limit {
		b.count++
		return b, Result{
			OK:        true,
			Limit:     limit,
			Remaining: limit - b.count,
			ResetAt:   b.expiresAt,
		}, true
	}

	return b, Result{
		OK:         false,
		Limit:      limit,
		Remaining:  0,
		RetryAfter: max(b.expiresAt.Sub(now), 0),
		ResetAt:    b.expiresAt,
	}, false
}
