package handler

import (
	"github.com/gin-gonic/gin"

	"ielts-tutor-go/internal/middleware"
	"ielts-tutor-go/internal/service"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/response"
)

// AuthHandler 负责处理 token 生命周期相关的 API 请求：刷新与登出。
type AuthHandler struct {
	userService service.UserService
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(userService service.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// RefreshTokenRequest 定义了刷新 token API 的请求体结构。
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// RefreshToken 处理刷新 token 的请求。
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("RefreshToken: Invalid request payload, error: %v", err)
		response.BadRequest(c, "refreshToken is required")
		return
	}

	result, err := h.userService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		log.Warnf("RefreshToken: Failed to refresh token, error: %v", err)
		response.FromError(c, err, "Failed to refresh token")
		return
	}

	log.Info("Token refreshed successfully")
	response.OK(c, result, "Token refreshed successfully")
}

// Logout 将当前 access token 加入黑名单。
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenString := c.GetString(middleware.TokenKey)
	if err := h.userService.Logout(c.Request.Context(), tokenString); err != nil {
		log.Warnf("Logout: Failed to revoke token, error: %v", err)
		response.FromError(c, err, "Logout failed")
		return
	}
	response.OK(c, nil, "Logged out successfully")
}
