package session

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"ielts-tutor-go/internal/config"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/metrics"
)

// Turn 是一轮对话：用户输入与模型回复。
type Turn struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// Summarizer 将较早的对话折叠进一段滚动摘要。previous 为已有摘要，可能为空。
type Summarizer interface {
	Summarize(ctx context.Context, previous string, turns []Turn) (string, error)
}

// Memory 是一个会话的对话记忆。估算 token 超过预算时，
// 除最近 keepRecent 轮以外的对话会被折叠进摘要；同一时间只进行一次折叠。
type Memory struct {
	mu         sync.Mutex
	summary    string
	turns      []Turn
	folding    bool
	maxTokens  int
	keepRecent int
	summarizer Summarizer
}

// NewMemory 创建对话记忆。summarizer 为 nil 时超出预算的旧对话直接丢弃。
func NewMemory(cfg config.MemoryConfig, summarizer Summarizer) *Memory {
	keep := cfg.KeepRecent
	if keep < 0 {
		keep = 0
	}
	return &Memory{
		maxTokens:  cfg.MaxTokens,
		keepRecent: keep,
		summarizer: summarizer,
	}
}

// EstimateTokens 粗略估算文本的 token 数：每 4 个字符约 1 个 token。
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// Append 追加一轮对话，必要时同步折叠旧对话。
func (m *Memory) Append(ctx context.Context, turn Turn) {
	m.mu.Lock()
	m.turns = append(m.turns, turn)
	if m.folding || m.maxTokens <= 0 || len(m.turns) <= m.keepRecent ||
		EstimateTokens(m.renderLocked()) <= m.maxTokens {
		m.mu.Unlock()
		return
	}
	m.folding = true
	fold := make([]Turn, len(m.turns)-m.keepRecent)
	copy(fold, m.turns)
	previous := m.summary
	m.mu.Unlock()

	// 摘要调用在锁外执行，期间的 Append 只会追加到末尾。
	// 请求结束后客户端断开不应中断摘要，这里不继承 ctx 的取消。
	summary, err := m.summarize(context.WithoutCancel(ctx), previous, fold)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.folding = false
	if err != nil {
		// 保留原对话，下一次 Append 会重新尝试折叠
		log.Warnw("对话摘要失败，保留待折叠的对话", "turns", len(fold), "error", err)
		metrics.MemorySummariesTotal.WithLabelValues("failure").Inc()
		return
	}
	m.turns = append([]Turn(nil), m.turns[len(fold):]...)
	if m.summarizer == nil {
		metrics.MemorySummariesTotal.WithLabelValues("dropped").Inc()
		return
	}
	m.summary = summary
	metrics.MemorySummariesTotal.WithLabelValues("success").Inc()
}

func (m *Memory) summarize(ctx context.Context, previous string, turns []Turn) (string, error) {
	if m.summarizer == nil {
		return previous, nil
	}
	summary, err := m.summarizer.Summarize(ctx, previous, turns)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(summary), nil
}

// Render 将摘要和最近的对话渲染为提示词中的 history 文本。
func (m *Memory) Render() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderLocked()
}

func (m *Memory) renderLocked() string {
	var b strings.Builder
	if m.summary != "" {
		b.WriteString("Summary of earlier conversation: ")
		b.WriteString(m.summary)
		b.WriteString("\n")
	}
	for _, t := range m.turns {
		b.WriteString("Human: ")
		b.WriteString(t.Input)
		b.WriteString("\nAI: ")
		b.WriteString(t.Output)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// Summary 返回当前摘要。
func (m *Memory) Summary() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}

// Turns 返回尚未折叠的对话副本。
func (m *Memory) Turns() []Turn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Turn(nil), m.turns...)
}

// Len 返回尚未折叠的对话轮数。
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}
