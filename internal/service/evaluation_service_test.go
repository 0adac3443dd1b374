package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ielts-tutor-go/internal/config"
	"ielts-tutor-go/internal/evaluation"
	"ielts-tutor-go/pkg/llm"
	"ielts-tutor-go/pkg/tasks"
)

func newEvaluationFixture(responses ...llm.MockResponse) (EvaluationService, *fakePublisher) {
	evaluator := evaluation.NewEvaluator(llm.NewMockClient(responses...), config.EvaluationConfig{
		MaxFeedbackChars: 600,
		AudioAdjustment:  config.AudioAdjustmentConfig{Excellent: 0.2, Good: 0.1, Fair: 0, Poor: -0.2},
	}, nil)
	publisher := &fakePublisher{}
	return NewEvaluationService(evaluator, publisher), publisher
}

func essayRequest() evaluation.Request {
	return evaluation.Request{
		QuestionID:      "q1",
		QuestionContent: "Describe your hometown.",
		Answer:          "My hometown is a small coastal city.",
		Criteria:        []string{"Task response", "Grammar"},
		QuestionType:    "essay",
	}
}

func TestEvaluationService_RecordsResultForSignedInUser(t *testing.T) {
	svc, publisher := newEvaluationFixture(llm.MockResponse{Text: `{"score": 4, "feedback": "Clear and relevant."}`})

	result, err := svc.Evaluate(context.Background(), "u1", essayRequest())
	require.NoError(t, err)
	assert.InDelta(t, 4.0, result.Score, 1e-9)

	published := publisher.Published()
	require.Len(t, published, 1)
	assert.Equal(t, tasks.TypeEvaluationRecorded, published[0].Type)
	var payload tasks.EvaluationRecorded
	require.NoError(t, published[0].Decode(&payload))
	assert.Equal(t, "q1", payload.QuestionID)
	assert.Equal(t, "u1", payload.UserID)
	assert.Equal(t, "Clear and relevant.", payload.Feedback)
}

func TestEvaluationService_SkipsRecordingWithoutUser(t *testing.T) {
	svc, publisher := newEvaluationFixture(llm.MockResponse{Text: `{"score": 3, "feedback": "ok"}`})

	_, err := svc.Evaluate(context.Background(), "", essayRequest())
	require.NoError(t, err)
	assert.Empty(t, publisher.Published())
}

func TestEvaluationService_SkipsRecordingFallback(t *testing.T) {
	svc, publisher := newEvaluationFixture(llm.MockResponse{Text: "I cannot grade this."})

	result, err := svc.Evaluate(context.Background(), "u1", essayRequest())
	require.NoError(t, err)
	assert.Equal(t, evaluation.ErrParsingFailed, result.Error)
	assert.Empty(t, publisher.Published())
}

func TestEvaluationService_PropagatesUpstreamFailure(t *testing.T) {
	svc, publisher := newEvaluationFixture()

	_, err := svc.Evaluate(context.Background(), "u1", essayRequest())
	require.Error(t, err)
	assert.True(t, llm.IsServiceBusy(err))
	assert.Empty(t, publisher.Published())
}
