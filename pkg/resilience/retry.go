// Package resilience 提供通用的重试工具，供上游调用共享同一套退避实现。
package resilience

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// BackoffFunc 根据已失败的尝试序号（从 1 开始）和本次错误计算下一次等待时长。
type BackoffFunc func(attempt int, err error) time.Duration

// RetryPolicy 重试策略
type RetryPolicy struct {
	// MaxAttempts 最大尝试次数（包含第一次），小于 1 时按 1 处理
	MaxAttempts int
	// Backoff 退避函数，为 nil 时不等待
	Backoff BackoffFunc
	// Retryable 可重试的错误判断函数，为 nil 时除 context 错误外都可重试
	Retryable func(error) bool
	// OnRetry 重试回调，在等待之前调用
	OnRetry func(attempt int, err error, delay time.Duration)
	// Sleep 等待函数，测试中可替换；为 nil 时使用 SleepContext
	Sleep func(ctx context.Context, d time.Duration) error
}

// ExhaustedError 表示所有尝试都已失败，Err 为最后一次的错误。
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all retry attempts failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Retry 执行 op，失败时按策略退避重试。
// 不可重试的错误和 context 错误会立即原样返回；耗尽次数后返回 *ExhaustedError。
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := op(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if isContextErr(err) || ctx.Err() != nil {
			return zero, err
		}
		if policy.Retryable != nil && !policy.Retryable(err) {
			return zero, err
		}
		if attempt == maxAttempts {
			break
		}

		var delay time.Duration
		if policy.Backoff != nil {
			delay = policy.Backoff(attempt, err)
		}
		if policy.OnRetry != nil {
			policy.OnRetry(attempt, err, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, &ExhaustedError{Attempts: maxAttempts, Err: lastErr}
}

// SleepContext 等待 d，context 结束时提前返回其错误。
func SleepContext(ctx context.Context, d time.Duration) error {
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

// ExponentialBackoff 返回 base * 2^(attempt-1)。
func ExponentialBackoff(base time.Duration) BackoffFunc {
	return func(attempt int, _ error) time.Duration {
		return time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	}
}

// LinearBackoff 返回 base * attempt。
func LinearBackoff(base time.Duration) BackoffFunc {
	return func(attempt int, _ error) time.Duration {
		return base * time.Duration(attempt)
	}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
