package handler

import (
	"github.com/gin-gonic/gin"

	"ielts-tutor-go/internal/middleware"
	"ielts-tutor-go/internal/session"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/response"
)

const adminSessionListLimit = 10

// AdminHandler 负责处理管理员的聊天会话管理请求。
type AdminHandler struct {
	registry *session.Registry
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。
func NewAdminHandler(registry *session.Registry) *AdminHandler {
	return &AdminHandler{registry: registry}
}

// ListChatSessions 返回会话注册表的统计信息与最近活跃的会话。
func (h *AdminHandler) ListChatSessions(c *gin.Context) {
	response.OK(c, h.registry.Stats(adminSessionListLimit), "")
}

// CleanupChatSessions 立即执行一次过期与容量清理。
func (h *AdminHandler) CleanupChatSessions(c *gin.Context) {
	expired, evicted := h.registry.Cleanup()
	log.Infow("管理员触发会话清理", "adminId", middleware.CurrentUserID(c), "expired", expired, "evicted", evicted)
	response.OK(c, gin.H{"expired": expired, "evicted": evicted, "remaining": h.registry.Len()}, "Cleanup completed")
}

// ClearChatSessions 删除全部聊天会话。
func (h *AdminHandler) ClearChatSessions(c *gin.Context) {
	cleared := h.registry.Clear()
	log.Infow("管理员清空聊天会话", "adminId", middleware.CurrentUserID(c), "cleared", cleared)
	response.OK(c, gin.H{"cleared": cleared}, "All chat sessions cleared")
}
