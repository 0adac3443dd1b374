package session

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ielts-tutor-go/internal/config"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/metrics"
)

const anonymousOwner = "anon"

// Registry 是会话注册表。由 NewRegistry 显式创建并注入到需要它的服务中。
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session

	lessons     LessonSource
	summarizer  Summarizer
	ttl         time.Duration
	maxSessions int
	memory      config.MemoryConfig
	now         func() time.Time
}

// Option 用于定制 Registry。
type Option func(*Registry)

// WithClock 替换时间来源，主要用于测试。
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// NewRegistry 创建一个新的会话注册表。
func NewRegistry(cfg config.SessionConfig, lessons LessonSource, summarizer Summarizer, opts ...Option) *Registry {
	r := &Registry{
		sessions:    make(map[string]*Session),
		lessons:     lessons,
		summarizer:  summarizer,
		ttl:         cfg.TTL,
		maxSessions: cfg.MaxSessions,
		memory:      cfg.Memory,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewSessionID 生成形如 {userId|anon}_{unixMillis}_{random9} 的会话 ID。
func NewSessionID(userID string, now time.Time) string {
	owner := userID
	if owner == "" {
		owner = anonymousOwner
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("%s_%d_%s", owner, now.UnixMilli(), random)
}

// GetOrCreate 查找或创建会话，并在需要时绑定课程上下文。
// sessionID 为空时生成新 ID。lessonID 与当前绑定的课程不同（或尚未绑定）时加载课程快照；
// 加载失败或课程不存在只记录日志，保留原有上下文。
func (r *Registry) GetOrCreate(ctx context.Context, sessionID, userID, lessonID string) (string, *Session) {
	now := r.now()
	if sessionID == "" {
		sessionID = NewSessionID(userID, now)
	}

	// 1. 在注册表锁内查找或创建会话并刷新访问时间
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		sess = &Session{
			ID:        sessionID,
			UserID:    userID,
			CreatedAt: now,
			Memory:    NewMemory(r.memory, r.summarizer),
		}
		r.sessions[sessionID] = sess
		log.Infow("创建聊天会话", "sessionId", sessionID, "userId", userID)
	}
	sess.touch(now)
	size := len(r.sessions)
	r.mu.Unlock()
	metrics.ActiveSessions.Set(float64(size))

	// 2. 课程加载在锁外进行，不阻塞其他会话
	if sess.needsLesson(lessonID) && r.lessons != nil {
		lc, err := r.lessons.FindLesson(ctx, lessonID)
		switch {
		case err != nil:
			log.Warnw("加载课程上下文失败，保留原上下文", "sessionId", sessionID, "lessonId", lessonID, "error", err)
		case lc == nil:
			log.Warnw("课程不存在，保留原上下文", "sessionId", sessionID, "lessonId", lessonID)
		default:
			sess.replaceLesson(lc)
			log.Infow("会话绑定课程上下文", "sessionId", sessionID, "lessonId", lc.ID, "questions", len(lc.Questions))
		}
	}

	return sessionID, sess
}

// Get 返回已存在的会话，不刷新访问时间。
func (r *Registry) Get(sessionID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sess, ok := r.sessions[sessionID]
	return sess, ok
}

// Len 返回当前会话数量。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Cleanup 先删除空闲超过 TTL 的会话，再按最近访问时间从旧到新淘汰，直到数量不超过上限。
func (r *Registry) Cleanup() (expired, evicted int) {
	now := r.now()

	r.mu.Lock()
	defer func() {
		size := len(r.sessions)
		r.mu.Unlock()
		metrics.ActiveSessions.Set(float64(size))
		if expired > 0 || evicted > 0 {
			log.Infow("会话清理完成", "expired", expired, "evicted", evicted, "remaining", size)
		}
	}()

	for id, sess := range r.sessions {
		if now.Sub(sess.LastAccess()) > r.ttl {
			delete(r.sessions, id)
			expired++
		}
	}
	metrics.SessionEvictionsTotal.WithLabelValues("ttl").Add(float64(expired))

	if r.maxSessions <= 0 || len(r.sessions) <= r.maxSessions {
		return expired, evicted
	}

	type entry struct {
		id   string
		last time.Time
	}
	entries := make([]entry, 0, len(r.sessions))
	for id, sess := range r.sessions {
		entries = append(entries, entry{id: id, last: sess.LastAccess()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].last.Before(entries[j].last) })

	for _, e := range entries[:len(entries)-r.maxSessions] {
		delete(r.sessions, e.id)
		evicted++
	}
	metrics.SessionEvictionsTotal.WithLabelValues("capacity").Add(float64(evicted))
	return expired, evicted
}

// Clear 删除全部会话，返回删除的数量。
func (r *Registry) Clear() int {
	r.mu.Lock()
	n := len(r.sessions)
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	metrics.ActiveSessions.Set(0)
	return n
}

// SessionInfo 是管理接口中展示的单个会话信息。
type SessionInfo struct {
	SessionID        string    `json:"sessionId"`
	UserID           string    `json:"userId,omitempty"`
	HasLessonContext bool      `json:"hasLessonContext"`
	LessonTitle      string    `json:"lessonTitle,omitempty"`
	QuestionsCount   int       `json:"questionsCount"`
	Turns            int       `json:"turns"`
	LastAccess       time.Time `json:"lastAccess"`
	AgeMillis        int64     `json:"age"`
}

// Stats 是注册表的统计快照。
type Stats struct {
	TotalSessions          int           `json:"totalSessions"`
	Sessions               []SessionInfo `json:"sessions"`
	SessionsWithContext    int           `json:"sessionsWithContext"`
	SessionsWithoutContext int           `json:"sessionsWithoutContext"`
	AverageAgeMillis       float64       `json:"averageAge"`
}

// Stats 返回统计信息，Sessions 按最近访问时间倒序，最多 limit 条。
func (r *Registry) Stats(limit int) Stats {
	now := r.now()

	r.mu.Lock()
	infos := make([]SessionInfo, 0, len(r.sessions))
	for id, sess := range r.sessions {
		info := SessionInfo{
			SessionID:  id,
			UserID:     sess.UserID,
			LastAccess: sess.LastAccess(),
			Turns:      sess.Memory.Len(),
		}
		if lc := sess.Lesson(); lc != nil {
			info.HasLessonContext = true
			info.LessonTitle = lc.Title
			info.QuestionsCount = len(lc.Questions)
		}
		info.AgeMillis = now.Sub(info.LastAccess).Milliseconds()
		infos = append(infos, info)
	}
	r.mu.Unlock()

	stats := Stats{TotalSessions: len(infos)}
	var totalAge int64
	for _, info := range infos {
		if info.HasLessonContext {
			stats.SessionsWithContext++
		} else {
			stats.SessionsWithoutContext++
		}
		totalAge += info.AgeMillis
	}
	if len(infos) > 0 {
		stats.AverageAgeMillis = float64(totalAge) / float64(len(infos))
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].LastAccess.After(infos[j].LastAccess) })
	if limit > 0 && len(infos) > limit {
		infos = infos[:limit]
	}
	stats.Sessions = infos
	return stats
}
