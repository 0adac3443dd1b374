package service

import (
	"context"
	"strings"
	"time"

	"ielts-tutor-go/internal/config"
	"ielts-tutor-go/internal/model"
	"ielts-tutor-go/internal/repository"
	"ielts-tutor-go/internal/session"
	"ielts-tutor-go/pkg/errs"
	"ielts-tutor-go/pkg/llm"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/metrics"
)

// ChatRequest 是一轮聊天请求。
type ChatRequest struct {
	Message   string `json:"message"`
	LessonID  string `json:"lessonId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	UserID    string `json:"userId,omitempty"`
}

// ChatReply 是一轮聊天的回复，SessionID 供调用方在下一轮继续使用。
type ChatReply struct {
	Response         string `json:"response"`
	HasLessonContext bool   `json:"hasLessonContext"`
	LessonTitle      string `json:"lessonTitle,omitempty"`
	SessionID        string `json:"sessionId"`
}

// ChatService 定义了聊天操作的接口。
type ChatService interface {
	Respond(ctx context.Context, req ChatRequest) (*ChatReply, error)
	History(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error)
}

type chatService struct {
	registry         *session.Registry
	llmClient        llm.Client
	conversationRepo repository.ConversationRepository
	lessonTemplate   string
	generalTemplate  string
	theoryMaxChars   int
	historyLimit     int64
}

// NewChatService 创建一个新的 ChatService 实例。conversationRepo 为 nil 时不保存聊天记录。
func NewChatService(registry *session.Registry, llmClient llm.Client, conversationRepo repository.ConversationRepository, cfg config.ChatConfig) ChatService {
	s := &chatService{
		registry:         registry,
		llmClient:        llmClient,
		conversationRepo: conversationRepo,
		lessonTemplate:   defaultLessonTemplate,
		generalTemplate:  defaultGeneralTemplate,
		theoryMaxChars:   cfg.TheoryMaxChars,
		historyLimit:     cfg.HistoryLimit,
	}
	if cfg.Prompt.LessonTemplate != "" {
		s.lessonTemplate = cfg.Prompt.LessonTemplate
	}
	if cfg.Prompt.GeneralTemplate != "" {
		s.generalTemplate = cfg.Prompt.GeneralTemplate
	}
	return s
}

// Respond 处理一轮聊天：解析会话、选择模板、调用 LLM、写入会话记忆。
func (s *chatService) Respond(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, errs.NewValidation("Message is required")
	}

	// 1. 解析会话，必要时绑定课程上下文
	sessionID, sess := s.registry.GetOrCreate(ctx, req.SessionID, req.UserID, req.LessonID)

	// 2. 选择提示词模板
	history := sess.Memory.Render()
	lc := sess.Lesson()
	mode := "general"
	var prompt string
	if lc != nil {
		mode = "lesson"
		prompt = renderLessonPrompt(s.lessonTemplate, lc, s.theoryMaxChars, history, message)
	} else {
		prompt = renderGeneralPrompt(s.generalTemplate, history, message)
	}

	// 3. 调用 LLM（重试由客户端负责）
	completion, err := s.llmClient.Complete(ctx, prompt)
	if err != nil {
		metrics.ChatTurnsTotal.WithLabelValues(mode, "error").Inc()
		log.Errorw("聊天调用 LLM 失败", "sessionId", sessionID, "error", err)
		return nil, err
	}
	answer := strings.TrimSpace(completion.Text)

	// 4. 写入会话记忆与聊天记录
	sess.Memory.Append(ctx, session.Turn{Input: message, Output: answer})
	s.saveTranscript(ctx, sessionID, sess.UserID, lc, message, answer)
	metrics.ChatTurnsTotal.WithLabelValues(mode, "success").Inc()

	reply := &ChatReply{Response: answer, SessionID: sessionID}
	if lc != nil {
		reply.HasLessonContext = true
		reply.LessonTitle = lc.Title
	}
	return reply, nil
}

// saveTranscript 保存聊天记录，失败只记录日志。
func (s *chatService) saveTranscript(ctx context.Context, sessionID, ownerID string, lc *session.LessonContext, question, answer string) {
	if s.conversationRepo == nil {
		return
	}
	lessonID := ""
	if lc != nil {
		lessonID = lc.ID
	}
	// 即使请求已被取消，也保存已经生成的回复
	ctx = context.WithoutCancel(ctx)
	now := time.Now()
	err := s.conversationRepo.Append(ctx, sessionID, ownerID,
		model.ChatMessage{Role: "user", Content: question, LessonID: lessonID, Timestamp: now},
		model.ChatMessage{Role: "assistant", Content: answer, LessonID: lessonID, Timestamp: now},
	)
	if err != nil {
		log.Warnw("保存聊天记录失败", "sessionId", sessionID, "error", err)
	}
}

// History 返回会话最近的聊天记录。属于其他用户的会话按不存在处理；匿名会话凭会话 ID 即可读取。
func (s *chatService) History(ctx context.Context, userID, sessionID string) ([]model.ChatMessage, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, errs.NewValidation("sessionId is required")
	}
	if s.conversationRepo == nil {
		return []model.ChatMessage{}, nil
	}

	owner, err := s.conversationRepo.Owner(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if owner == "" {
		// 注册表中仍存活的会话以创建者为准
		if sess, ok := s.registry.Get(sessionID); ok {
			owner = sess.UserID
		}
	}
	if owner != "" && owner != userID {
		return nil, errs.NewNotFound("Chat session", errs.CodeChatSessionNotFound)
	}
	return s.conversationRepo.History(ctx, sessionID, s.historyLimit)
}
