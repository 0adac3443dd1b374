package evaluation

import (
	"strings"

	"ielts-tutor-go/pkg/llm"
)

// Outcome 是模型输出的解析结果：Parsed 或 Unparsable。
type Outcome interface {
	isOutcome()
}

// Parsed 是通过 schema 校验的评分结果。
type Parsed struct {
	Score    float64 `json:"score"`
	Feedback string  `json:"feedback"`
}

// Unparsable 保存无法解析的原始输出。
type Unparsable struct {
	Raw string
	Err error
}

func (Parsed) isOutcome()     {}
func (Unparsable) isOutcome() {}

var evaluationSchema = &llm.Schema{
	Name: "evaluation",
	Definition: map[string]any{
		"type":     "object",
		"required": []string{"score", "feedback"},
		"properties": map[string]any{
			"score":    map[string]any{"type": "number"},
			"feedback": map[string]any{"type": "string", "minLength": 1},
		},
	},
}

// ParseCompletion 依次尝试整段 JSON、```json 代码块与第一个 {...} 对象。
func ParseCompletion(text string) Outcome {
	var p Parsed
	if err := llm.DecodeStructured(text, evaluationSchema, &p); err != nil {
		return Unparsable{Raw: text, Err: err}
	}
	p.Feedback = strings.TrimSpace(p.Feedback)
	if p.Feedback == "" {
		return Unparsable{Raw: text}
	}
	return p
}
