package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"ielts-tutor-go/internal/config"
)

// OpenAIClient 使用 OpenAI 兼容的 chat completions 接口（DeepSeek、OpenRouter 等）。
type OpenAIClient struct {
	client     *openai.Client
	model      string
	generation config.LLMGenerationConfig
}

// NewOpenAIClient 创建 OpenAI 兼容客户端，BaseURL 为空时使用官方地址。
func NewOpenAIClient(cfg config.LLMConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai API key is required")
	}
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		generation: cfg.Generation,
	}, nil
}

// Name 返回 provider 名称。
func (c *OpenAIClient) Name() string { return ProviderOpenAI }

// Complete 以单条 user 消息发送提示词。
func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(c.generation.Temperature),
		TopP:        float32(c.generation.TopP),
		MaxTokens:   c.generation.MaxTokens,
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, mapOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, &ErrInvalidResponse{Err: errors.New("no choices in openai response")}
	}

	return &Completion{
		Text:     resp.Choices[0].Message.Content,
		Model:    resp.Model,
		Provider: ProviderOpenAI,
	}, nil
}

// mapOpenAIError 把 SDK 的错误统一成 *StatusError，便于重试层按状态码退避。
func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{StatusCode: reqErr.HTTPStatusCode, Body: fmt.Sprint(reqErr.Err)}
	}
	return fmt.Errorf("failed to call openai api: %w", err)
}
