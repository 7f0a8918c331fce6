package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

func fixedRand(v float64) func() float64 { return func() float64 { return v } }

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Initial: 100 * time.Millisecond, Max: time.Second, rand: fixedRand(0.5)}

	assert.Equal(t, time.Duration(0), b.Delay(0))
	assert.Equal(t, 100*time.Millisecond, b.Delay(1))
	assert.Equal(t, 200*time.Millisecond, b.Delay(2))
	assert.Equal(t, 400*time.Millisecond, b.Delay(3))
	assert.Equal(t, 800*time.Millisecond, b.Delay(4))
	assert.Equal(t, time.Second, b.Delay(5))
	assert.Equal(t, time.Second, b.Delay(20))
}

func TestBackoff_DelayJitterBounds(t *testing.T) {
	low := Backoff{Initial: 100 * time.Millisecond, rand: fixedRand(0)}
	high := Backoff{Initial: 100 * time.Millisecond, rand: fixedRand(0.999999)}

	assert.Equal(t, 80*time.Millisecond, low.Delay(1))
	assert.InDelta(t, float64(120*time.Millisecond), float64(high.Delay(1)), float64(time.Microsecond))
}

func TestBackoff_ZeroInitial(t *testing.T) {
	assert.Equal(t, time.Duration(0), Backoff{}.Delay(3))
}

func TestRetryTransient_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	retries := 0

	attempts, err := retryTransient(context.Background(), 5, Backoff{Initial: time.Millisecond},
		func(context.Context) error {
			calls++
			if calls < 3 {
				return domain.ErrRateLimited
			}
			return nil
		},
		func(int, error, time.Duration) { retries++ })

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, retries)
}

func TestRetryTransient_StopsAtCeiling(t *testing.T) {
	calls := 0

	attempts, err := retryTransient(context.Background(), 4, Backoff{Initial: time.Millisecond},
		func(context.Context) error {
			calls++
			return &domain.TransientStoreError{Op: "upsert", Err: errors.New("timeout")}
		}, nil)

	require.Error(t, err)
	assert.Equal(t, 4, attempts)
	assert.Equal(t, 4, calls)
	assert.True(t, domain.IsTransient(err))
}

func TestRetryTransient_NonTransientNotRetried(t *testing.T) {
	calls := 0
	boom := errors.New("bad request")

	attempts, err := retryTransient(context.Background(), 4, Backoff{Initial: time.Millisecond},
		func(context.Context) error {
			calls++
			return boom
		}, nil)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, 1, calls)
}

func TestRetryTransient_HonoursRetryAfter(t *testing.T) {
	var waits []time.Duration
	calls := 0

	_, err := retryTransient(context.Background(), 2, Backoff{Initial: time.Millisecond, rand: fixedRand(0.5)},
		func(context.Context) error {
			calls++
			if calls == 1 {
				return &domain.TransientStoreError{Op: "upsert", Err: domain.ErrRateLimited, RetryAfter: 20 * time.Millisecond}
			}
			return nil
		},
		func(_ int, _ error, wait time.Duration) { waits = append(waits, wait) })

	require.NoError(t, err)
	require.Len(t, waits, 1)
	assert.Equal(t, 20*time.Millisecond, waits[0])
}

func TestRetryTransient_ContextCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	attempts, err := retryTransient(ctx, 10, Backoff{Initial: time.Hour},
		func(context.Context) error { return domain.ErrUpstreamUnavailable },
		func(int, error, time.Duration) { cancel() })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestSleepCtx(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), 0))
	assert.NoError(t, sleepCtx(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}
