package session

import (
	"context"
	"fmt"
	"strings"

	"ielts-tutor-go/pkg/llm"
)

const summaryPrompt = `Progressively summarize the lines of conversation provided, adding onto the previous summary and returning a new summary.
Keep the summary short, in the language of the conversation, and keep every lesson, question number and answer that was discussed.

Current summary:
%s

New lines of conversation:
%s

New summary:`

// LLMSummarizer 使用 LLM 生成滚动摘要。
type LLMSummarizer struct {
	client llm.Client
}

// NewLLMSummarizer 创建基于 LLM 的摘要器。
func NewLLMSummarizer(client llm.Client) *LLMSummarizer {
	return &LLMSummarizer{client: client}
}

// Summarize 实现 Summarizer 接口。
func (s *LLMSummarizer) Summarize(ctx context.Context, previous string, turns []Turn) (string, error) {
	var lines strings.Builder
	for _, t := range turns {
		fmt.Fprintf(&lines, "Human: %s\nAI: %s\n", t.Input, t.Output)
	}
	if previous == "" {
		previous = "(none)"
	}

	completion, err := s.client.Complete(ctx, fmt.Sprintf(summaryPrompt, previous, strings.TrimRight(lines.String(), "\n")))
	if err != nil {
		return "", fmt.Errorf("summarize conversation: %w", err)
	}
	summary := strings.TrimSpace(completion.Text)
	if summary == "" {
		return "", fmt.Errorf("summarize conversation: empty summary")
	}
	return summary, nil
}
