package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ielts-tutor-go/internal/config"
)

// GeminiClient 通过 generateContent 接口调用 Gemini。
// BaseURL 为完整的接口地址，APIKey 非空时以 key 查询参数附加。
type GeminiClient struct {
	endpoint   string
	apiKey     string
	model      string
	generation config.LLMGenerationConfig
	client     *http.Client
}

// NewGeminiClient 创建一个 Gemini 客户端。
func NewGeminiClient(cfg config.LLMConfig) *GeminiClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GeminiClient{
		endpoint:   cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		generation: cfg.Generation,
		client:     &http.Client{Timeout: timeout},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"topP,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	ModelVersion string `json:"modelVersion"`
}

// Name 返回 provider 名称。
func (c *GeminiClient) Name() string { return ProviderGemini }

// Complete 发送一次 generateContent 请求。非 2xx 返回 *StatusError，由外层决定是否重试。
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (*Completion, error) {
	reqBody := geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: c.generationConfig(),
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gemini request: %w", err)
	}

	endpoint, err := c.requestURL()
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call gemini api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gemini response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &ErrInvalidResponse{Content: string(body), Err: fmt.Errorf("decode gemini response: %w", err)}
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, &ErrInvalidResponse{Content: string(body), Err: errors.New("no candidates in gemini response")}
	}

	var sb strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	model := parsed.ModelVersion
	if model == "" {
		model = c.model
	}
	return &Completion{Text: sb.String(), Model: model, Provider: ProviderGemini}, nil
}

func (c *GeminiClient) requestURL() (string, error) {
	if c.apiKey == "" {
		return c.endpoint, nil
	}
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid gemini endpoint: %w", err)
	}
	q := u.Query()
	q.Set("key", c.apiKey)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// generationConfig 只在配置了非零值时发送。
func (c *GeminiClient) generationConfig() *geminiGenerationConfig {
	g := c.generation
	if g.Temperature == 0 && g.TopP == 0 && g.MaxTokens == 0 {
		return nil
	}
	gc := &geminiGenerationConfig{}
	if g.Temperature != 0 {
		t := g.Temperature
		gc.Temperature = &t
	}
	if g.TopP != 0 {
		p := g.TopP
		gc.TopP = &p
	}
	if g.MaxTokens != 0 {
		m := g.MaxTokens
		gc.MaxOutputTokens = &m
	}
	return gc
}
