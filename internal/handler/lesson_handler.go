package handler

import (
	"github.com/gin-gonic/gin"

	"ielts-tutor-go/internal/middleware"
	"ielts-tutor-go/internal/service"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/response"
)

// LessonHandler 负责处理课程相关的请求。
type LessonHandler struct {
	lessonService service.LessonService
}

// NewLessonHandler 创建一个新的 LessonHandler。
func NewLessonHandler(lessonService service.LessonService) *LessonHandler {
	return &LessonHandler{lessonService: lessonService}
}

// GenerateLessonRequest 定义了生成课程的请求体结构。
type GenerateLessonRequest struct {
	Topic string `json:"topic"`
}

// Generate 调用 LLM 生成课程（不保存）。
func (h *LessonHandler) Generate(c *gin.Context) {
	var req GenerateLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	lesson, err := h.lessonService.Generate(c.Request.Context(), req.Topic)
	if err != nil {
		log.Errorw("Error generating lesson", "topic", req.Topic, "error", err)
		respondLLMError(c, err, "Failed to generate lesson")
		return
	}
	response.OK(c, lesson, "Lesson generated successfully")
}

// SaveLessonRequest 定义了保存课程的请求体结构。
type SaveLessonRequest struct {
	Lesson         *service.LessonInput `json:"lesson"`
	LearningPathID string               `json:"learningPathId"`
}

// Save 将课程保存到学习路线下。
func (h *LessonHandler) Save(c *gin.Context) {
	var req SaveLessonRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Lesson == nil || req.LearningPathID == "" {
		response.BadRequest(c, "Lesson and learningPathId are required")
		return
	}

	lesson, err := h.lessonService.Save(c.Request.Context(), middleware.CurrentUserID(c), req.LearningPathID, req.Lesson)
	if err != nil {
		log.Errorw("Error saving lesson", "learningPathId", req.LearningPathID, "error", err)
		response.FromError(c, err, "Failed to save lesson")
		return
	}
	response.Created(c, lesson, "Lesson saved successfully")
}

// Get 返回一节课及其题目。
func (h *LessonHandler) Get(c *gin.Context) {
	lesson, err := h.lessonService.Get(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		response.FromError(c, err, "Failed to fetch lesson")
		return
	}
	response.OK(c, lesson, "")
}

// ListByPath 返回学习路线下按序号排列的课程。
func (h *LessonHandler) ListByPath(c *gin.Context) {
	lessons, err := h.lessonService.ListByPath(c.Request.Context(), middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		log.Errorw("Error fetching lessons", "learningPathId", c.Param("id"), "error", err)
		response.FromError(c, err, "Failed to fetch lessons")
		return
	}
	response.OK(c, lessons, "")
}

// UpdateStatusRequest 定义了更新课程完成状态的请求体结构。
type UpdateStatusRequest struct {
	LessonID    string `json:"lessonId"`
	IsCompleted *bool  `json:"isCompleted"`
}

// UpdateStatus 更新课程完成状态。
func (h *LessonHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LessonID == "" || req.IsCompleted == nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	lesson, err := h.lessonService.UpdateStatus(c.Request.Context(), middleware.CurrentUserID(c), req.LessonID, *req.IsCompleted)
	if err != nil {
		response.FromError(c, err, "Failed to update lesson status")
		return
	}
	response.OK(c, lesson, "Lesson status updated successfully")
}
