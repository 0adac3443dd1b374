// Package session 维护进程内的聊天会话注册表：每个会话持有一份有界的对话记忆，
// 以及可选的课程上下文快照。
package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// QuestionSummary 是课程上下文中一道题的精简信息。
type QuestionSummary struct {
	ID            string          `json:"id"`
	Question      string          `json:"question"`
	Type          string          `json:"type"`
	Options       json.RawMessage `json:"options,omitempty"`
	CorrectAnswer string          `json:"correctAnswer,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
}

// LessonContext 是绑定到会话上的课程快照。
type LessonContext struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Theory    string            `json:"theory"`
	Questions []QuestionSummary `json:"questions"`
}

// LessonSource 按 ID 加载课程快照。课程不存在时返回 (nil, nil)。
type LessonSource interface {
	FindLesson(ctx context.Context, lessonID string) (*LessonContext, error)
}

// Session 是一个聊天会话。Memory 自带锁；其余可变字段由 mu 保护。
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	Memory    *Memory

	mu         sync.Mutex
	lesson     *LessonContext
	lastAccess time.Time
}

// Lesson 返回当前绑定的课程上下文，没有时为 nil。
func (s *Session) Lesson() *LessonContext {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lesson
}

// LastAccess 返回最近一次访问时间。
func (s *Session) LastAccess() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastAccess
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastAccess = now
	s.mu.Unlock()
}

// needsLesson 判断是否需要为 lessonID 重新加载上下文。
func (s *Session) needsLesson(lessonID string) bool {
	if lessonID == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lesson == nil || s.lesson.ID != lessonID
}

// replaceLesson 整体替换课程上下文，旧的题目列表不会保留。
func (s *Session) replaceLesson(lc *LessonContext) {
	s.mu.Lock()
	s.lesson = lc
	s.mu.Unlock()
}
