package model

// LessonDocument 定义了存储在 Elasticsearch 中的课程文档结构。
type LessonDocument struct {
	LessonID       string   `json:"lesson_id"`
	LearningPathID string   `json:"learning_path_id"`
	UserID         string   `json:"user_id"`
	Title          string   `json:"title"`
	Theory         string   `json:"theory"`
	Questions      []string `json:"questions"`
	LessonNumber   int      `json:"lesson_number"`
}

// LessonSearchResult 定义了返回给前端的课程搜索结果。
type LessonSearchResult struct {
	LessonID       string  `json:"lessonId"`
	LearningPathID string  `json:"learningPathId"`
	Title          string  `json:"title"`
	Snippet        string  `json:"snippet"`
	LessonNumber   int     `json:"lessonNumber"`
	Score          float64 `json:"score"`
}
