package evaluation

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ielts-tutor-go/internal/config"
	"ielts-tutor-go/pkg/errs"
	"ielts-tutor-go/pkg/llm"
	"ielts-tutor-go/pkg/storage"
)

func testEvalConfig() config.EvaluationConfig {
	return config.EvaluationConfig{
		MaxFeedbackChars: 600,
		AudioAdjustment:  config.AudioAdjustmentConfig{Excellent: 0.2, Good: 0.1, Fair: 0, Poor: -0.2},
	}
}

type fakeAudioStat struct {
	size int64
	err  error
}

func (f fakeAudioStat) Stat(_ context.Context, key string) (*storage.ObjectInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &storage.ObjectInfo{Key: key, Size: f.size}, nil
}

func speakingRequest(audio string) Request {
	return Request{
		QuestionID:      "q1",
		QuestionContent: "Describe your hometown.",
		Answer:          "My hometown is a small city...",
		Audio:           audio,
		Criteria:        []string{"Fluency", "Pronunciation"},
		QuestionType:    "speaking",
	}
}

func TestEvaluate_SpeakingWithPoorAudio(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Text: `{"score": 4, "feedback": "Clear structure."}`})
	ev := NewEvaluator(client, testEvalConfig(), nil)

	res, err := ev.Evaluate(context.Background(), speakingRequest(strings.Repeat("x", 10000)))
	require.NoError(t, err)
	assert.Equal(t, 3.8, res.Score)
	assert.Equal(t, "Clear structure.\n**Audio:** poor quality detected.", res.Feedback)
	require.NotNil(t, res.AudioAnalysis)
	assert.Equal(t, QualityPoor, res.AudioAnalysis.Quality)
	assert.Equal(t, 1, res.AudioAnalysis.Duration)
	assert.True(t, res.AudioAnalysis.HasAudioEnhancement)
	assert.Empty(t, res.Error)

	prompt := client.LastPrompt()
	assert.Contains(t, prompt, "AUDIO ANALYSIS AVAILABLE")
	assert.Contains(t, prompt, "For speaking assessment")
	assert.Contains(t, prompt, "- Fluency\n- Pronunciation")
}

func TestEvaluate_GoodAudioHasNoNote(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Text: `{"score": 3, "feedback": "OK."}`})
	ev := NewEvaluator(client, testEvalConfig(), nil)

	res, err := ev.Evaluate(context.Background(), speakingRequest(strings.Repeat("x", 60000)))
	require.NoError(t, err)
	assert.Equal(t, 3.1, res.Score)
	assert.Equal(t, "OK.", res.Feedback)
}

func TestEvaluate_FencedJSON(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Text: "```json\n{\"score\": 4.5, \"feedback\": \"Well argued.\"}\n```"})
	ev := NewEvaluator(client, testEvalConfig(), nil)

	res, err := ev.Evaluate(context.Background(), Request{
		QuestionContent: "Discuss both views.",
		Answer:          "Some people think...",
		Criteria:        []string{"Task response"},
		QuestionType:    "essay",
	})
	require.NoError(t, err)
	assert.Equal(t, 4.5, res.Score)
	assert.Equal(t, "Well argued.", res.Feedback)
	assert.Nil(t, res.AudioAnalysis)

	prompt := client.LastPrompt()
	assert.NotContains(t, prompt, "AUDIO ANALYSIS")
	assert.Contains(t, prompt, "STUDENT RESPONSE: Some people think...")
}

func TestEvaluate_ParsedScoreUnchangedWithoutAudio(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Text: `{"score": 3.456, "feedback": "Mostly relevant."}`})
	ev := NewEvaluator(client, testEvalConfig(), nil)

	res, err := ev.Evaluate(context.Background(), Request{
		QuestionContent: "Discuss both views.",
		Answer:          "Some people think...",
		Criteria:        []string{"Task response"},
		QuestionType:    "essay",
	})
	require.NoError(t, err)
	assert.Equal(t, 3.456, res.Score)
	assert.Equal(t, "Mostly relevant.", res.Feedback)
}

func TestEvaluate_GarbageFallsBack(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Text: "the student did fine I guess"})
	ev := NewEvaluator(client, testEvalConfig(), nil)

	res, err := ev.Evaluate(context.Background(), speakingRequest(strings.Repeat("x", 200000)))
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, FallbackFeedback, res.Feedback)
	assert.Equal(t, ErrParsingFailed, res.Error)
}

func TestEvaluate_ClampsModelScore(t *testing.T) {
	client := llm.NewMockClient(
		llm.MockResponse{Text: `{"score": 9, "feedback": "Great"}`},
		llm.MockResponse{Text: `{"score": 0, "feedback": "Bad"}`},
	)
	ev := NewEvaluator(client, testEvalConfig(), nil)

	res, err := ev.Evaluate(context.Background(), speakingRequest(strings.Repeat("x", 200000)))
	require.NoError(t, err)
	assert.Equal(t, 5.0, res.Score)

	res, err = ev.Evaluate(context.Background(), speakingRequest(strings.Repeat("x", 100)))
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
}

func TestEvaluate_NoAnswerOmittedFromPrompt(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Text: `{"score": 1, "feedback": "No answer."}`})
	ev := NewEvaluator(client, testEvalConfig(), nil)

	_, err := ev.Evaluate(context.Background(), Request{Criteria: []string{"Accuracy"}, QuestionType: "reading"})
	require.NoError(t, err)
	assert.NotContains(t, client.LastPrompt(), "STUDENT RESPONSE")
	assert.Contains(t, client.LastPrompt(), "QUESTION: No question content provided")
}

func TestEvaluate_FeedbackIsBounded(t *testing.T) {
	long := strings.Repeat("word ", 400)
	client := llm.NewMockClient(llm.MockResponse{Text: `{"score": 4, "feedback": "` + long + `"}`})
	ev := NewEvaluator(client, testEvalConfig(), nil)

	res, err := ev.Evaluate(context.Background(), speakingRequest(strings.Repeat("x", 200000)))
	require.NoError(t, err)
	assert.LessOrEqual(t, utf8.RuneCountInString(res.Feedback), 600)
	assert.True(t, strings.HasSuffix(res.Feedback, "\n**Audio:** excellent quality detected."))
}

func TestEvaluate_Validation(t *testing.T) {
	client := llm.NewMockClient()
	ev := NewEvaluator(client, testEvalConfig(), nil)

	_, err := ev.Evaluate(context.Background(), Request{QuestionType: "essay"})
	assert.True(t, errs.IsValidation(err))

	_, err = ev.Evaluate(context.Background(), Request{Criteria: []string{"x"}, QuestionType: "poetry"})
	assert.True(t, errs.IsValidation(err))

	_, err = ev.Evaluate(context.Background(), Request{Criteria: []string{"  "}, QuestionType: "essay"})
	assert.True(t, errs.IsValidation(err))

	assert.Equal(t, 0, client.CallCount())
}

func TestEvaluate_UpstreamErrorPropagates(t *testing.T) {
	upstream := &llm.UpstreamError{
		Attempts:   3,
		StatusCode: http.StatusServiceUnavailable,
		Err:        &llm.StatusError{StatusCode: http.StatusServiceUnavailable},
	}
	client := llm.NewMockClient(llm.MockResponse{Err: upstream})
	ev := NewEvaluator(client, testEvalConfig(), nil)

	res, err := ev.Evaluate(context.Background(), speakingRequest(""))
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, llm.IsServiceBusy(err))
	assert.Equal(t, 1, client.CallCount())
}

func TestEvaluate_AudioKeyUsesStoredSize(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Text: `{"score": 4, "feedback": "Nice."}`})
	ev := NewEvaluator(client, testEvalConfig(), fakeAudioStat{size: 150000})

	req := speakingRequest("")
	req.AudioKey = "audio/u1/a.webm"
	res, err := ev.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4.2, res.Score)
	require.NotNil(t, res.AudioAnalysis)
	assert.Equal(t, QualityExcellent, res.AudioAnalysis.Quality)
	assert.Equal(t, 3, res.AudioAnalysis.Duration)
}

func TestEvaluate_AudioKeyLookupFailureIsIgnored(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Text: `{"score": 4, "feedback": "Nice."}`})
	ev := NewEvaluator(client, testEvalConfig(), fakeAudioStat{err: errors.New("no such key")})

	req := speakingRequest("")
	req.AudioKey = "missing"
	res, err := ev.Evaluate(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 4.0, res.Score)
	assert.Nil(t, res.AudioAnalysis)
}
