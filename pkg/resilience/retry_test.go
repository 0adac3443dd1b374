package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordSleep 记录每次等待的时长，而不真正等待。
func recordSleep(delays *[]time.Duration) func(context.Context, time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	calls := 0
	got, err := Retry(context.Background(), RetryPolicy{MaxAttempts: 3}, func(context.Context, int) (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	var delays []time.Duration
	policy := RetryPolicy{
		MaxAttempts: 3,
		Backoff:     LinearBackoff(time.Second),
		Sleep:       recordSleep(&delays),
	}
	got, err := Retry(context.Background(), policy, func(_ context.Context, attempt int) (int, error) {
		if attempt < 2 {
			return 0, errors.New("blip")
		}
		return attempt, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Equal(t, []time.Duration{time.Second}, delays)
}

func TestRetry_ExhaustedWrapsLastError(t *testing.T) {
	var delays []time.Duration
	var retried []int
	last := errors.New("third")
	policy := RetryPolicy{
		MaxAttempts: 3,
		Backoff:     ExponentialBackoff(time.Second),
		Sleep:       recordSleep(&delays),
		OnRetry:     func(attempt int, _ error, _ time.Duration) { retried = append(retried, attempt) },
	}
	calls := 0
	_, err := Retry(context.Background(), policy, func(context.Context, int) (struct{}, error) {
		calls++
		if calls == 3 {
			return struct{}{}, last
		}
		return struct{}{}, errors.New("earlier")
	})

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.ErrorIs(t, err, last)
	assert.Contains(t, err.Error(), "all retry attempts failed")
	assert.Equal(t, 3, calls)
	// 最后一次失败后不再等待
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, delays)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestRetry_NonRetryableReturnsImmediately(t *testing.T) {
	fatal := errors.New("bad request")
	calls := 0
	policy := RetryPolicy{
		MaxAttempts: 5,
		Retryable:   func(err error) bool { return !errors.Is(err, fatal) },
	}
	_, err := Retry(context.Background(), policy, func(context.Context, int) (int, error) {
		calls++
		return 0, fatal
	})
	assert.Same(t, fatal, err)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextErrorsAreNotRetried(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), RetryPolicy{MaxAttempts: 3}, func(context.Context, int) (int, error) {
		calls++
		return 0, context.DeadlineExceeded
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, calls)
}

func TestRetry_CancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	policy := RetryPolicy{
		MaxAttempts: 3,
		Backoff:     LinearBackoff(time.Hour),
		OnRetry:     func(int, error, time.Duration) { cancel() },
	}
	calls := 0
	_, err := Retry(ctx, policy, func(context.Context, int) (int, error) {
		calls++
		return 0, errors.New("blip")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestRetry_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), RetryPolicy{}, func(context.Context, int) (int, error) {
		calls++
		return 0, errors.New("nope")
	})
	var exhausted *ExhaustedError
	assert.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 1, calls)
}

func TestBackoffFuncs(t *testing.T) {
	exp := ExponentialBackoff(time.Second)
	assert.Equal(t, time.Second, exp(1, nil))
	assert.Equal(t, 2*time.Second, exp(2, nil))
	assert.Equal(t, 4*time.Second, exp(3, nil))

	lin := LinearBackoff(time.Second)
	assert.Equal(t, time.Second, lin(1, nil))
	assert.Equal(t, 3*time.Second, lin(3, nil))
}
