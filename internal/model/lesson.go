package model

import "encoding/json"

// 题目类型
const (
	QuestionMultipleChoice = "multiple_choice"
	QuestionEssay          = "essay"
	QuestionSpeaking       = "speaking"
	QuestionCategorization = "categorization"
	QuestionReading        = "reading"
	QuestionFillBlank      = "fill_blank"
)

// Lesson 是学习路线中的一节课，包含理论与题目。
type Lesson struct {
	Base
	LearningPathID string     `gorm:"type:varchar(36);index;not null" json:"learningPathId"`
	Title          string     `gorm:"type:varchar(255);not null" json:"title"`
	Theory         string     `gorm:"type:longtext" json:"theory"`
	LessonNumber   int        `gorm:"not null;default:0" json:"lessonNumber"`
	IsCompleted    bool       `gorm:"not null;default:false" json:"isCompleted"`
	Questions      []Question `gorm:"foreignKey:LessonID;constraint:OnDelete:CASCADE" json:"questions"`
}

func (Lesson) TableName() string {
	return "lessons"
}

// Question 是课程中的一道题。
type Question struct {
	Base
	LessonID           string             `gorm:"type:varchar(36);index;not null" json:"lessonId"`
	Question           string             `gorm:"type:text;not null" json:"question"`
	Type               string             `gorm:"type:varchar(32);not null" json:"type"`
	Options            json.RawMessage    `gorm:"type:json" json:"options,omitempty"`
	CorrectAnswer      string             `gorm:"type:text" json:"correctAnswer,omitempty"`
	Explanation        string             `gorm:"type:text" json:"explanation,omitempty"`
	EvaluationCriteria []string           `gorm:"type:json;serializer:json" json:"evaluationCriteria"`
	Categories         []string           `gorm:"type:json;serializer:json" json:"categories,omitempty"`
	AudioText          string             `gorm:"type:text" json:"audioText,omitempty"`
	TimeLimit          int                `json:"timeLimit,omitempty"`
	Responses          []QuestionResponse `gorm:"foreignKey:QuestionID;constraint:OnDelete:CASCADE" json:"responses,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

// QuestionResponse 记录用户对一道题的作答与评估结果。
type QuestionResponse struct {
	Base
	QuestionID string  `gorm:"type:varchar(36);index;not null" json:"questionId"`
	UserID     string  `gorm:"type:varchar(36);index;not null" json:"userId"`
	Answer     string  `gorm:"type:text" json:"answer"`
	AudioKey   string  `gorm:"type:varchar(255)" json:"audioKey,omitempty"`
	Score      float64 `json:"score"`
	Feedback   string  `gorm:"type:text" json:"feedback"`
}

func (QuestionResponse) TableName() string {
	return "question_responses"
}
