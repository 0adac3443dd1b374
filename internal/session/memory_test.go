package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ielts-tutor-go/internal/config"
	"ielts-tutor-go/pkg/llm"
)

type fakeSummarizer struct {
	mu       sync.Mutex
	calls    int
	previous []string
	folded   [][]Turn
	ctxErrs  []error
	err      error
}

func (f *fakeSummarizer) Summarize(ctx context.Context, previous string, turns []Turn) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ctxErrs = append(f.ctxErrs, ctx.Err())
	f.previous = append(f.previous, previous)
	f.folded = append(f.folded, turns)
	if f.err != nil {
		return "", f.err
	}
	return "summary#" + strings.Repeat("x", f.calls), nil
}

func longTurn(n int) Turn {
	return Turn{Input: strings.Repeat("a", n), Output: strings.Repeat("b", n)}
}

func TestMemory_RenderEmpty(t *testing.T) {
	m := NewMemory(config.MemoryConfig{MaxTokens: 100, KeepRecent: 2}, nil)
	assert.Equal(t, "", m.Render())
}

func TestMemory_RenderTurns(t *testing.T) {
	m := NewMemory(config.MemoryConfig{MaxTokens: 1000, KeepRecent: 2}, nil)
	m.Append(context.Background(), Turn{Input: "câu 2 là gì?", Output: "Câu 2 hỏi về..."})
	m.Append(context.Background(), Turn{Input: "thanks", Output: "you're welcome"})

	assert.Equal(t, "Human: câu 2 là gì?\nAI: Câu 2 hỏi về...\nHuman: thanks\nAI: you're welcome", m.Render())
	assert.Equal(t, 2, m.Len())
}

func TestMemory_FoldsOldTurnsOverBudget(t *testing.T) {
	sum := &fakeSummarizer{}
	m := NewMemory(config.MemoryConfig{MaxTokens: 100, KeepRecent: 2}, sum)

	for i := 0; i < 4; i++ {
		m.Append(context.Background(), longTurn(60))
	}

	// 3 轮约 99 token 未超预算，第 4 轮触发折叠，保留最近 2 轮
	assert.Equal(t, 1, sum.calls)
	assert.Equal(t, "", sum.previous[0])
	assert.Len(t, sum.folded[0], 2)
	assert.Equal(t, "summary#x", m.Summary())
	assert.Equal(t, 2, m.Len())
	assert.True(t, strings.HasPrefix(m.Render(), "Summary of earlier conversation: summary#x\nHuman: "))
}

func TestMemory_SummaryIsCarriedForward(t *testing.T) {
	sum := &fakeSummarizer{}
	m := NewMemory(config.MemoryConfig{MaxTokens: 50, KeepRecent: 1}, sum)

	for i := 0; i < 6; i++ {
		m.Append(context.Background(), longTurn(60))
	}

	require.GreaterOrEqual(t, sum.calls, 2)
	assert.Equal(t, "summary#x", sum.previous[1])
	assert.Equal(t, 1, m.Len())
}

func TestMemory_SummarizerFailureKeepsTurns(t *testing.T) {
	sum := &fakeSummarizer{err: errors.New("upstream down")}
	m := NewMemory(config.MemoryConfig{MaxTokens: 100, KeepRecent: 2}, sum)

	m.Append(context.Background(), Turn{Input: "My name is Lan", Output: "Hi Lan"})
	for i := 0; i < 3; i++ {
		m.Append(context.Background(), longTurn(60))
	}

	// 摘要失败：对话全部保留，没有摘要
	require.Equal(t, 1, sum.calls)
	assert.Equal(t, "", m.Summary())
	assert.Equal(t, 4, m.Len())
	assert.Contains(t, m.Render(), "My name is Lan")

	// 摘要恢复后，下一次追加把包含名字的旧对话折叠进摘要
	sum.mu.Lock()
	sum.err = nil
	sum.mu.Unlock()
	m.Append(context.Background(), longTurn(60))

	require.Equal(t, 2, sum.calls)
	assert.Len(t, sum.folded[1], 3)
	assert.Contains(t, sum.folded[1][0].Input, "My name is Lan")
	assert.Equal(t, "summary#xx", m.Summary())
	assert.Equal(t, 2, m.Len())
}

func TestMemory_SummarizerIgnoresRequestCancellation(t *testing.T) {
	sum := &fakeSummarizer{}
	m := NewMemory(config.MemoryConfig{MaxTokens: 100, KeepRecent: 2}, sum)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 4; i++ {
		m.Append(ctx, longTurn(60))
	}

	require.Equal(t, 1, sum.calls)
	assert.NoError(t, sum.ctxErrs[0])
	assert.Equal(t, "summary#x", m.Summary())
}

func TestMemory_NilSummarizerBoundsGrowth(t *testing.T) {
	m := NewMemory(config.MemoryConfig{MaxTokens: 40, KeepRecent: 1}, nil)
	for i := 0; i < 10; i++ {
		m.Append(context.Background(), longTurn(60))
	}
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, "", m.Summary())
}

func TestMemory_KeepsRecentTurnsEvenOverBudget(t *testing.T) {
	sum := &fakeSummarizer{}
	m := NewMemory(config.MemoryConfig{MaxTokens: 10, KeepRecent: 3}, sum)
	for i := 0; i < 3; i++ {
		m.Append(context.Background(), longTurn(60))
	}
	assert.Equal(t, 0, sum.calls)
	assert.Equal(t, 3, m.Len())
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 2, EstimateTokens("12345678"))
	assert.Equal(t, 1, EstimateTokens("Đáp án"))
}

func TestLLMSummarizer(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Text: "  Student asked about question 2.  "})
	s := NewLLMSummarizer(client)

	out, err := s.Summarize(context.Background(), "", []Turn{{Input: "câu 2?", Output: "Đáp án B"}})
	require.NoError(t, err)
	assert.Equal(t, "Student asked about question 2.", out)
	assert.Contains(t, client.LastPrompt(), "Human: câu 2?\nAI: Đáp án B")
	assert.Contains(t, client.LastPrompt(), "(none)")
}

func TestLLMSummarizer_PropagatesError(t *testing.T) {
	s := NewLLMSummarizer(llm.NewMockClient())
	_, err := s.Summarize(context.Background(), "prev", []Turn{{Input: "a", Output: "b"}})
	assert.Error(t, err)
}
