// Package tasks defines the envelope for background tasks sent through Kafka.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	// TypeEvaluationRecorded 保存一次答案评估结果
	TypeEvaluationRecorded = "evaluation.recorded"
	// TypeLessonIndex 将课程写入搜索索引
	TypeLessonIndex = "lesson.index"
)

// Task is the envelope written to the topic; Payload is decoded by Type.
type Task struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// EvaluationRecorded is the payload of TypeEvaluationRecorded.
type EvaluationRecorded struct {
	QuestionID string  `json:"question_id"`
	UserID     string  `json:"user_id"`
	Answer     string  `json:"answer"`
	AudioKey   string  `json:"audio_key,omitempty"`
	Score      float64 `json:"score"`
	Feedback   string  `json:"feedback"`
}

// LessonIndex is the payload of TypeLessonIndex.
type LessonIndex struct {
	LessonID string `json:"lesson_id"`
}

// New wraps payload into a Task of the given type.
func New(taskType string, payload interface{}) (Task, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	return Task{
		ID:        uuid.NewString(),
		Type:      taskType,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Decode unmarshals the payload into out.
func (t Task) Decode(out interface{}) error {
	if err := json.Unmarshal(t.Payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Type, err)
	}
	return nil
}
