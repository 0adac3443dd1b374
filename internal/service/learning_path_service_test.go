package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ielts-tutor-go/pkg/errs"
	"ielts-tutor-go/pkg/llm"
)

const generatedPath = "Here is your path:\n```json\n" + `{
  "title": "From A2 to B2",
  "description": "Build everyday fluency",
  "totalLessons": 20,
  "topics": ["Grammar Fundamentals (Part 1/5) - Present Simple"],
  "estimatedTime": "3 months",
  "keySkills": ["speaking", "writing"]
}` + "\n```"

func TestLearningPath_Generate(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Text: generatedPath})
	svc := NewLearningPathService(newFakeContentRepo(), client)

	path, err := svc.Generate(context.Background(), "A2", "B2")
	require.NoError(t, err)
	assert.Equal(t, "From A2 to B2", path.Title)
	assert.Equal(t, 20, path.TotalLessons)
	assert.Equal(t, []string{"speaking", "writing"}, path.KeySkills)
	assert.Contains(t, client.LastPrompt(), "from level A2 to B2")
}

func TestLearningPath_GenerateValidation(t *testing.T) {
	client := llm.NewMockClient()
	svc := NewLearningPathService(newFakeContentRepo(), client)

	_, err := svc.Generate(context.Background(), "", " ")
	var verr *errs.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 2)
	assert.Equal(t, 0, client.CallCount())
}

func TestLearningPath_GenerateRejectsBadShape(t *testing.T) {
	client := llm.NewMockClient(llm.MockResponse{Text: `{"title": "x"}`})
	svc := NewLearningPathService(newFakeContentRepo(), client)

	_, err := svc.Generate(context.Background(), "A1", "C1")
	var invalid *llm.ErrInvalidResponse
	assert.True(t, errors.As(err, &invalid))
}

func TestLearningPath_SaveListGet(t *testing.T) {
	repo := newFakeContentRepo()
	svc := NewLearningPathService(repo, llm.NewMockClient())
	ctx := context.Background()

	saved, err := svc.Save(ctx, "u1", SaveLearningPathRequest{
		LearningPath:  &LearningPathInput{Title: "Path", TotalLessons: 10, Topics: []string{"a"}},
		CurrentLesson: &LessonInput{Title: "Lesson 1", Theory: "t", Questions: []QuestionInput{{Question: "q", Type: "essay"}}},
	})
	require.NoError(t, err)
	require.Len(t, saved.Lessons, 1)
	assert.Equal(t, 1, saved.Lessons[0].LessonNumber)
	assert.Equal(t, saved.ID, saved.Lessons[0].LearningPathID)

	list, err := svc.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	got, err := svc.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "Path", got.Title)

	_, err = svc.Get(ctx, "missing")
	var nf *errs.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, errs.CodeLearningPathNotFound, nf.Code)
}

func TestLearningPath_SaveRequiresTitle(t *testing.T) {
	svc := NewLearningPathService(newFakeContentRepo(), llm.NewMockClient())
	_, err := svc.Save(context.Background(), "u1", SaveLearningPathRequest{})
	assert.True(t, errs.IsValidation(err))
}
