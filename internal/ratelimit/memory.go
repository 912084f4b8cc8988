package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter keeps buckets in a process-local map guarded by a mutex.
// Use it for tests and single-instance deployments; multi-instance
// deployments need SQLLimiter so all instances share counters.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string]bucket
}

// NewMemoryLimiter creates an empty in-memory limiter.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{buckets: make(map[string]bucket)}
}

// Check counts one request against key.
func (m *MemoryLimiter) Check(
	_ context.Context,
	key string,
	limit int,
	window time.Duration,
	now time.Time,
) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, found := m.buckets[key]
	next, result, changed := advance(current, found, limit, window, now)
	if changed {
		m.buckets[key] = next
	}

	return result, nil
}

// Sweep removes buckets whose window ended before now.
// It returns the number of removed buckets.
func (m *MemoryLimiter) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, b := range m.buckets {
		if !now.Before(b.expiresAt) {
			delete(m.buckets, key)
			removed++
		}
	}
	return removed
}

// StartSweeper periodically calls Sweep to bound memory under key churn.
// The returned function stops the sweeper and waits for it to exit.
func (m *MemoryLimiter) StartSweeper(interval time.Duration) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				m.Sweep(now)
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
