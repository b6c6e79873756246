package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/yenharbor/payment-core/internal/application"
)

// sweepProbability is the chance any single Allow call pays for cleaning up
// expired counters, instead of running a dedicated timer goroutine.
const sweepProbability = 0.01

type window struct {
	count   int
	resetAt time.Time
}

// MemoryLimiter is a per-key sliding-window counter for single-instance
// deployments. Counters live in memory only: losing them on restart degrades
// to permissive, which is acceptable for an abuse guard.
type MemoryLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	windows map[string]*window

	now func() time.Time
}

func NewMemoryLimiter(limit int, windowSize time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		limit:   limit,
		window:  windowSize,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

var _ application.RateLimiter = (*MemoryLimiter)(nil)

func (l *MemoryLimiter) Allow(_ context.Context, key string) application.Decision {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	w := l.windows[key]
	if w == nil || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(l.window)}
		l.windows[key] = w
	}
	w.count++

	if rand.Float64() < sweepProbability {
		l.sweepLocked(now)
	}

	if w.count > l.limit {
		return application.Decision{
			Allowed:    false,
			Remaining:  0,
			RetryAfter: w.resetAt.Sub(now),
		}
	}

	return application.Decision{
		Allowed:   true,
		Remaining: l.limit - w.count,
	}
}

func (l *MemoryLimiter) sweepLocked(now time.Time) {
	for key, w := range l.windows {
		if !now.Before(w.resetAt) {
			delete(l.windows, key)
		}
	}
}

// Len reports the number of live counters, for tests.
func (l *MemoryLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}
