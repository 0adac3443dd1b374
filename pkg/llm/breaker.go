package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/metrics"
)

// BreakerConfig 配置熔断器。
type BreakerConfig struct {
	Name         string
	MinRequests  uint32
	FailureRatio float64
	OpenTimeout  time.Duration
}

type breakerClient struct {
	inner Client
	cb    *gobreaker.CircuitBreaker
}

// WithBreaker 为 Client 包装熔断器。熔断打开时返回携带 503 的 *UpstreamError。
func WithBreaker(c Client, cfg BreakerConfig) Client {
	if cfg.MinRequests == 0 {
		cfg.MinRequests = 5
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = 0.6
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cfg.MinRequests && failureRatio >= cfg.FailureRatio
		},
		IsSuccessful: func(err error) bool {
			// 调用方取消和内容格式问题不代表上游不可用
			if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			var invalid *ErrInvalidResponse
			return errors.As(err, &invalid)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.LLMBreakerState.Set(float64(to))
			log.Warnw("LLM 熔断器状态变化", "name", name, "from", from.String(), "to", to.String())
		},
	}
	return &breakerClient{inner: c, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerClient) Name() string { return providerName(b.inner) }

func (b *breakerClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Complete(ctx, prompt)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, &UpstreamError{StatusCode: http.StatusServiceUnavailable, Err: err}
		}
		return nil, err
	}
	return result.(*Completion), nil
}

// State 返回当前熔断器状态，供测试和管理接口使用。
func (b *breakerClient) State() gobreaker.State {
	return b.cb.State()
}
