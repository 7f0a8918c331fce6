package services

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Backoff computes exponential retry delays with jitter.
type Backoff struct {
	// Initial is the delay before the first retry.
	Initial time.Duration

	// Max caps any single delay.
	Max time.Duration

	// Multiplier grows the delay per attempt (default 2).
	Multiplier float64

	// Jitter is the +/- fraction applied to each delay (default 0.2).
	Jitter float64

	// rand returns a value in [0,1). Tests replace it for determinism.
	rand func() float64
}

// Delay returns the wait before retry number n (1-based).
func (b Backoff) Delay(n int) time.Duration {
	if n < 1 || b.Initial <= 0 {
		return 0
	}
	mult := b.Multiplier
	if mult <= 1 {
		mult = 2
	}
	d := float64(b.Initial) * math.Pow(mult, float64(n-1))
	if b.Max > 0 && d > float64(b.Max) {
		d = float64(b.Max)
	}

	jitter := b.Jitter
	if jitter == 0 {
		jitter = 0.2
	}
	r := rand.Float64
	if b.rand != nil {
		r = b.rand
	}
	d += d * jitter * (2*r() - 1)
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// retryTransient runs op until it succeeds, fails with a non-transient error,
// exhausts maxAttempts, or ctx ends. It returns the attempt count and last error.
// onRetry, when set, is called before each wait with the error that triggered it.
func retryTransient(
	ctx context.Context,
	maxAttempts int,
	backoff Backoff,
	op func(ctx context.Context) error,
	onRetry func(attempt int, err error, wait time.Duration),
) (int, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = op(ctx)
		if err == nil {
			return attempt, nil
		}
		if !domain.IsTransient(err) || attempt == maxAttempts {
			return attempt, err
		}

		wait := backoff.Delay(attempt)
		if ra := retryAfter(err); ra > wait {
			wait = ra
		}
		if onRetry != nil {
			onRetry(attempt, err, wait)
		}

		if err := sleepCtx(ctx, wait); err != nil {
			return attempt, err
		}
	}
	return maxAttempts, err
}

// retryAfter extracts a server-suggested wait from a transient store error.
func retryAfter(err error) time.Duration {
	var tse *domain.TransientStoreError
	if errors.As(err, &tse) {
		return tse.RetryAfter
	}
	return 0
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
