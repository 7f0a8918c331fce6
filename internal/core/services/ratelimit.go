package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DispatchLimiter paces batch submissions to the vector store.
// It combines a token bucket for steady spacing with a shared pause that
// any worker can trigger when the store reports rate limiting.
type DispatchLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	pauseTo time.Time
}

// NewDispatchLimiter creates a limiter that allows one dispatch per interval.
// A zero or negative interval disables spacing.
func NewDispatchLimiter(interval time.Duration) *DispatchLimiter {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &DispatchLimiter{
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Wait blocks until a dispatch is allowed or ctx is done.
// Any active pause is honoured before the token bucket.
func (l *DispatchLimiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	pauseTo := l.pauseTo
	l.mu.Unlock()

	if wait := time.Until(pauseTo); wait > 0 {
		if err := sleepCtx(ctx, wait); err != nil {
			return err
		}
	}

	return l.limiter.Wait(ctx)
}

// Pause holds back all dispatches for d. Overlapping pauses keep the later deadline.
func (l *DispatchLimiter) Pause(d time.Duration) {
	if d <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if until := time.Now().Add(d); until.After(l.pauseTo) {
		l.pauseTo = until
	}
}

// Paused reports whether a pause is currently in effect.
func (l *DispatchLimiter) Paused() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return time.Now().Before(l.pauseTo)
}
