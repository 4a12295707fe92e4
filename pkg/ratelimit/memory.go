package ratelimit

import (
	"context"
	"sync"
	"time"
)

type windowCounter struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a fixed-window counter held in process memory. Counts are
// approximate across instances; use the Redis backend when running more than
// one replica.
type MemoryLimiter struct {
	window time.Duration
	max    int

	mu      sync.Mutex
	entries map[string]*windowCounter
	now     func() time.Time
}

// NewMemoryLimiter builds an in-memory limiter allowing max requests per window.
func NewMemoryLimiter(window time.Duration, max int) *MemoryLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &MemoryLimiter{
		window:  window,
		max:     max,
		entries: make(map[string]*windowCounter),
		now:     time.Now,
	}
}

// Allow reports whether the key is under its limit and records the request.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || now.After(entry.resetAt) {
		l.entries[key] = &windowCounter{count: 1, resetAt: now.Add(l.window)}
		l.pruneLocked(now)
		return true, nil
	}

	entry.count++
	return entry.count <= l.max, nil
}

// pruneLocked drops expired windows so the map does not grow unbounded.
func (l *MemoryLimiter) pruneLocked(now time.Time) {
	if len(l.entries) < 1024 {
		return
	}
	for key, entry := range l.entries {
		if now.After(entry.resetAt) {
			delete(l.entries, key)
		}
	}
}
