package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"ielts-tutor-go/internal/middleware"
	"ielts-tutor-go/internal/service"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/response"
)

const maxSearchSize = 50

// SearchHandler 负责处理课程检索请求。
type SearchHandler struct {
	lessonService service.LessonService
}

// NewSearchHandler 创建一个新的 SearchHandler。
func NewSearchHandler(lessonService service.LessonService) *SearchHandler {
	return &SearchHandler{lessonService: lessonService}
}

// Lessons 在当前用户保存的课程中检索，参数 q 为关键词，size 为返回条数（默认 10，最大 50）。
func (h *SearchHandler) Lessons(c *gin.Context) {
	query := c.Query("q")
	size, err := strconv.Atoi(c.DefaultQuery("size", "0"))
	if err != nil || size < 0 {
		response.BadRequest(c, "size must be a non-negative integer")
		return
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}

	results, err := h.lessonService.Search(c.Request.Context(), query, middleware.CurrentUserID(c), size)
	if err != nil {
		log.Errorw("课程检索失败", "query", query, "error", err)
		response.FromError(c, err, "Search failed")
		return
	}
	response.OK(c, results, "")
}
