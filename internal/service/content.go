package service

import (
	"encoding/json"

	"ielts-tutor-go/internal/model"
	"ielts-tutor-go/pkg/llm"
)

// FlexibleString 接受 JSON 字符串；其他类型的值（对象、数组、数字）按 JSON 原文保存。
type FlexibleString string

func (f *FlexibleString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = FlexibleString(s)
		return nil
	}
	if string(b) == "null" {
		*f = ""
		return nil
	}
	*f = FlexibleString(b)
	return nil
}

// QuestionInput 是 LLM 生成或客户端提交的题目。
type QuestionInput struct {
	Question           string          `json:"question"`
	Type               string          `json:"type"`
	Options            json.RawMessage `json:"options,omitempty"`
	CorrectAnswer      FlexibleString  `json:"correctAnswer,omitempty"`
	Explanation        string          `json:"explanation,omitempty"`
	EvaluationCriteria []string        `json:"evaluationCriteria,omitempty"`
	Categories         []string        `json:"categories,omitempty"`
	AudioText          string          `json:"audioText,omitempty"`
	TimeLimit          int             `json:"timeLimit,omitempty"`
}

// LessonInput 是 LLM 生成或客户端提交的课程。
type LessonInput struct {
	Title        string          `json:"title"`
	Theory       string          `json:"theory"`
	LessonNumber int             `json:"lessonNumber"`
	Questions    []QuestionInput `json:"questions"`
}

// LearningPathInput 是 LLM 生成的学习路线。
type LearningPathInput struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	TotalLessons  int      `json:"totalLessons"`
	Topics        []string `json:"topics"`
	EstimatedTime string   `json:"estimatedTime"`
	KeySkills     []string `json:"keySkills"`
}

func (q QuestionInput) toModel() model.Question {
	options := q.Options
	if string(options) == "null" {
		options = nil
	}
	return model.Question{
		Question:           q.Question,
		Type:               q.Type,
		Options:            options,
		CorrectAnswer:      string(q.CorrectAnswer),
		Explanation:        q.Explanation,
		EvaluationCriteria: q.EvaluationCriteria,
		Categories:         q.Categories,
		AudioText:          q.AudioText,
		TimeLimit:          q.TimeLimit,
	}
}

func (l LessonInput) toModel(learningPathID string) *model.Lesson {
	lesson := &model.Lesson{
		LearningPathID: learningPathID,
		Title:          l.Title,
		Theory:         l.Theory,
		LessonNumber:   l.LessonNumber,
		Questions:      make([]model.Question, 0, len(l.Questions)),
	}
	for _, q := range l.Questions {
		lesson.Questions = append(lesson.Questions, q.toModel())
	}
	return lesson
}

var questionTypeEnum = []string{
	model.QuestionMultipleChoice,
	model.QuestionEssay,
	model.QuestionSpeaking,
	model.QuestionCategorization,
	model.QuestionReading,
	model.QuestionFillBlank,
}

var lessonSchema = &llm.Schema{
	Name: "lesson",
	Definition: map[string]any{
		"type":     "object",
		"required": []string{"title", "theory", "questions"},
		"properties": map[string]any{
			"title":  map[string]any{"type": "string", "minLength": 1},
			"theory": map[string]any{"type": "string"},
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"question", "type"},
					"properties": map[string]any{
						"question":           map[string]any{"type": "string", "minLength": 1},
						"type":               map[string]any{"enum": questionTypeEnum},
						"evaluationCriteria": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
				},
			},
		},
	},
}

var learningPathSchema = &llm.Schema{
	Name: "learning_path",
	Definition: map[string]any{
		"type":     "object",
		"required": []string{"title", "description", "totalLessons", "topics", "estimatedTime", "keySkills"},
		"properties": map[string]any{
			"title":         map[string]any{"type": "string", "minLength": 1},
			"description":   map[string]any{"type": "string"},
			"totalLessons":  map[string]any{"type": "integer", "minimum": 0},
			"topics":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"estimatedTime": map[string]any{"type": "string"},
			"keySkills":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	},
}
