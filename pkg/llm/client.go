// Package llm 封装与大语言模型的交互：单次补全、重试退避、熔断以及结构化输出解析。
package llm

import (
	"context"
	"fmt"
	"strings"

	"ielts-tutor-go/internal/config"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Completion 是一次补全调用的结果。
type Completion struct {
	Text     string
	Model    string
	Provider string
}

// Client 定义了 LLM 客户端的接口：给定完整提示词，返回模型的文本补全。
// 实现之间可以相互包装（重试、熔断），调用方无需感知。
type Client interface {
	Complete(ctx context.Context, prompt string) (*Completion, error)
}

// namer 由具体的 provider 实现，用于日志与指标标签。
type namer interface {
	Name() string
}

func providerName(c Client) string {
	if n, ok := c.(namer); ok {
		return n.Name()
	}
	return "unknown"
}

// NewClient 根据配置创建 provider，并按顺序包装重试与（可选的）熔断器。
// 熔断器位于重试之外，打开时直接快速失败，不会再进入退避等待。
func NewClient(cfg config.LLMConfig) (Client, error) {
	var base Client
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderGemini:
		base = NewGeminiClient(cfg)
	case ProviderOpenAI:
		c, err := NewOpenAIClient(cfg)
		if err != nil {
			return nil, err
		}
		base = c
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}

	client := WithRetry(base, RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
	})
	if cfg.Breaker.Enabled {
		client = WithBreaker(client, BreakerConfig{
			Name:         providerName(base),
			MinRequests:  cfg.Breaker.MinRequests,
			FailureRatio: cfg.Breaker.FailureRatio,
			OpenTimeout:  cfg.Breaker.OpenTimeout,
		})
	}
	return client, nil
}
