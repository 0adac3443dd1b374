package handler

import (
	"github.com/gin-gonic/gin"

	"ielts-tutor-go/internal/middleware"
	"ielts-tutor-go/internal/service"
	"ielts-tutor-go/pkg/errs"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/response"
)

// LearningPathHandler 负责处理学习路线相关的请求。
type LearningPathHandler struct {
	pathService service.LearningPathService
}

// NewLearningPathHandler 创建一个新的 LearningPathHandler。
func NewLearningPathHandler(pathService service.LearningPathService) *LearningPathHandler {
	return &LearningPathHandler{pathService: pathService}
}

// GenerateLearningPathRequest 定义了生成学习路线的请求体结构。
type GenerateLearningPathRequest struct {
	StartLevel  string `json:"startLevel"`
	TargetLevel string `json:"targetLevel"`
}

// Generate 调用 LLM 生成学习路线（不保存）。
func (h *LearningPathHandler) Generate(c *gin.Context) {
	var req GenerateLearningPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	path, err := h.pathService.Generate(c.Request.Context(), req.StartLevel, req.TargetLevel)
	if err != nil {
		log.Errorw("Error generating learning path", "startLevel", req.StartLevel, "targetLevel", req.TargetLevel, "error", err)
		respondLLMError(c, err, "Failed to generate learning path")
		return
	}
	response.OK(c, path, "Learning path generated successfully")
}

// Save 保存学习路线，可同时保存第一节课。
func (h *LearningPathHandler) Save(c *gin.Context) {
	var req service.SaveLearningPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	path, err := h.pathService.Save(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		log.Errorw("保存学习路线失败", "userId", middleware.CurrentUserID(c), "error", err)
		response.FromError(c, err, "Failed to save learning path")
		return
	}
	response.Created(c, path, "Learning path saved successfully")
}

// List 返回当前用户的全部学习路线。
func (h *LearningPathHandler) List(c *gin.Context) {
	paths, err := h.pathService.List(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		log.Errorw("Fetch learning paths error", "error", err)
		response.Internal(c, "Internal server error")
		return
	}
	response.OK(c, paths, "")
}

// Get 返回一条学习路线及其课程。
func (h *LearningPathHandler) Get(c *gin.Context) {
	path, err := h.pathService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err, "Internal server error")
		return
	}
	if path.UserID != middleware.CurrentUserID(c) {
		response.FromError(c, errs.NewNotFound("Learning path", errs.CodeLearningPathNotFound), "")
		return
	}
	response.OK(c, path, "")
}
