package llm

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/metrics"
	"ielts-tutor-go/pkg/resilience"
)

// RetryConfig 配置重试装饰器。
type RetryConfig struct {
	// MaxAttempts 最大尝试次数，默认 3
	MaxAttempts int
	// BaseDelay 退避基数，默认 1s
	BaseDelay time.Duration
	// Sleep 等待函数，测试中可替换
	Sleep func(ctx context.Context, d time.Duration) error
}

type retryClient struct {
	inner    Client
	cfg      RetryConfig
	provider string
}

// WithRetry 为 Client 包装重试逻辑。耗尽次数后返回 *UpstreamError。
func WithRetry(c Client, cfg RetryConfig) Client {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = time.Second
	}
	return &retryClient{inner: c, cfg: cfg, provider: providerName(c)}
}

func (r *retryClient) Name() string { return r.provider }

func (r *retryClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	policy := resilience.RetryPolicy{
		MaxAttempts: r.cfg.MaxAttempts,
		Backoff:     StatusBackoff(r.cfg.BaseDelay),
		Retryable:   isRetryable,
		Sleep:       r.cfg.Sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			metrics.LLMRetriesTotal.WithLabelValues(statusLabel(err)).Inc()
			log.Warnw("LLM 调用失败，准备重试",
				"provider", r.provider,
				"attempt", attempt,
				"delay", delay.String(),
				"error", err,
			)
		},
	}

	completion, err := resilience.Retry(ctx, policy, func(ctx context.Context, attempt int) (*Completion, error) {
		start := time.Now()
		c, err := r.inner.Complete(ctx, prompt)
		metrics.LLMRequestDuration.WithLabelValues(r.provider).Observe(time.Since(start).Seconds())
		metrics.LLMRequestsTotal.WithLabelValues(r.provider, outcomeLabel(err)).Inc()
		return c, err
	})
	if err != nil {
		var exhausted *resilience.ExhaustedError
		if errors.As(err, &exhausted) {
			return nil, &UpstreamError{
				Attempts:   exhausted.Attempts,
				StatusCode: StatusCode(exhausted.Err),
				Err:        exhausted.Err,
			}
		}
		return nil, err
	}
	return completion, nil
}

// StatusBackoff 上游过载（503）时指数退避 base*2^(attempt-1)，其他失败线性退避 base*attempt。
func StatusBackoff(base time.Duration) resilience.BackoffFunc {
	exponential := resilience.ExponentialBackoff(base)
	linear := resilience.LinearBackoff(base)
	return func(attempt int, err error) time.Duration {
		if StatusCode(err) == http.StatusServiceUnavailable {
			return exponential(attempt, err)
		}
		return linear(attempt, err)
	}
}

// isRetryable 内容格式错误不是瞬时故障，不重试。
func isRetryable(err error) bool {
	var invalid *ErrInvalidResponse
	return !errors.As(err, &invalid)
}

func statusLabel(err error) string {
	if code := StatusCode(err); code != 0 {
		return strconv.Itoa(code)
	}
	return "network"
}

func outcomeLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case StatusCode(err) != 0:
		return "status_" + strconv.Itoa(StatusCode(err))
	default:
		return "error"
	}
}
