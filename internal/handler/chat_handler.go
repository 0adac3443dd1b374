package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"ielts-tutor-go/internal/middleware"
	"ielts-tutor-go/internal/service"
	"ielts-tutor-go/pkg/llm"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/response"
)

const (
	chatFailedMessage = "Failed to process chat message"
	chatRateScope     = "chat"
)

var (
	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true // 允许所有来源
		},
	}
)

// ChatHandler 负责处理聊天请求，包括 HTTP 与 WebSocket 两种方式。
type ChatHandler struct {
	chatService service.ChatService
	auth        *middleware.Authenticator
	// allow 为 nil 时 WebSocket 消息不限流
	allow func(ctx context.Context, userID string) bool
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, auth *middleware.Authenticator) *ChatHandler {
	return &ChatHandler{chatService: chatService, auth: auth}
}

// limitMessages 让 WebSocket 上的每条消息与 POST /chat 共用 chat 限流额度。
func (h *ChatHandler) limitMessages(counter middleware.WindowCounter, limit int64, window time.Duration) {
	h.allow = func(ctx context.Context, userID string) bool {
		return middleware.Allow(ctx, counter, chatRateScope, userID, limit, window).Allowed
	}
}

// ChatRequest 定义了聊天 API 的请求体结构。
type ChatRequest struct {
	Message   string `json:"message"`
	LessonID  string `json:"lessonId"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
}

// Chat 处理一轮聊天。已登录用户的 ID 优先于请求体中的 userId。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Chat: Invalid request payload, error: %v", err)
		response.BadRequest(c, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		response.BadRequest(c, "Message is required")
		return
	}

	userID := middleware.CurrentUserID(c)
	if userID == "" {
		userID = req.UserID
	}
	reply, err := h.chatService.Respond(c.Request.Context(), service.ChatRequest{
		Message:   req.Message,
		LessonID:  req.LessonID,
		SessionID: req.SessionID,
		UserID:    userID,
	})
	if err != nil {
		log.Errorw("Chat API error", "sessionId", req.SessionID, "error", err)
		respondLLMError(c, err, chatFailedMessage)
		return
	}
	response.OK(c, reply, "Chat response generated successfully")
}

// History 返回会话最近的聊天记录，已登录用户只能查看自己的会话。
func (h *ChatHandler) History(c *gin.Context) {
	sessionID := c.Query("sessionId")
	messages, err := h.chatService.History(c.Request.Context(), middleware.CurrentUserID(c), sessionID)
	if err != nil {
		log.Warnw("获取聊天记录失败", "sessionId", sessionID, "error", err)
		response.FromError(c, err, "Failed to retrieve chat history")
		return
	}
	response.OK(c, gin.H{"sessionId": sessionID, "messages": messages}, "")
}

// wsMessage 是 WebSocket 上客户端发送的消息。
type wsMessage struct {
	Message   string `json:"message"`
	LessonID  string `json:"lessonId"`
	SessionID string `json:"sessionId"`
}

// wsReply 是 WebSocket 上服务端发送的消息，Type 为 response 或 error。
type wsReply struct {
	Type      string             `json:"type"`
	Data      *service.ChatReply `json:"data,omitempty"`
	Error     string             `json:"error,omitempty"`
	Timestamp int64              `json:"timestamp"`
}

// Handle 处理一个传入的 WebSocket 连接。每条消息是一轮聊天，连接内沿用同一个会话。
func (h *ChatHandler) Handle(c *gin.Context) {
	user, _, err := h.auth.Authenticate(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.FromError(c, err, "Invalid token")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立，用户: %s", user.ID)

	sessionID := ""
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("从 WebSocket 读取消息失败: %v", err)
			}
			return
		}
		if msg.SessionID != "" {
			sessionID = msg.SessionID
		}
		if strings.TrimSpace(msg.Message) == "" {
			_ = conn.WriteJSON(wsReply{Type: "error", Error: "Message is required", Timestamp: time.Now().UnixMilli()})
			continue
		}
		if h.allow != nil && !h.allow(c.Request.Context(), user.ID) {
			_ = conn.WriteJSON(wsReply{Type: "error", Error: middleware.TooManyRequestsMessage, Timestamp: time.Now().UnixMilli()})
			continue
		}

		reply, err := h.chatService.Respond(c.Request.Context(), service.ChatRequest{
			Message:   msg.Message,
			LessonID:  msg.LessonID,
			SessionID: sessionID,
			UserID:    user.ID,
		})
		if err != nil {
			log.Errorf("处理 WebSocket 聊天失败: %v", err)
			errMsg := chatFailedMessage
			if llm.IsServiceBusy(err) {
				errMsg = ServiceBusyMessage
			}
			_ = conn.WriteJSON(wsReply{Type: "error", Error: errMsg, Timestamp: time.Now().UnixMilli()})
			continue
		}
		sessionID = reply.SessionID
		if err := conn.WriteJSON(wsReply{Type: "response", Data: reply, Timestamp: time.Now().UnixMilli()}); err != nil {
			log.Warnf("写入 WebSocket 消息失败: %v", err)
			return
		}
	}
}
