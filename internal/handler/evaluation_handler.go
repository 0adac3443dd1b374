package handler

import (
	"github.com/gin-gonic/gin"

	"ielts-tutor-go/internal/evaluation"
	"ielts-tutor-go/internal/middleware"
	"ielts-tutor-go/internal/service"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/response"
)

// EvaluationFailedMessage 是评估因上游故障失败时返回的通用消息。
const EvaluationFailedMessage = "Evaluation failed due to technical issues. Please try again."

// EvaluationHandler 负责处理答案评估请求。
type EvaluationHandler struct {
	evaluationService service.EvaluationService
}

// NewEvaluationHandler 创建一个新的 EvaluationHandler。
func NewEvaluationHandler(evaluationService service.EvaluationService) *EvaluationHandler {
	return &EvaluationHandler{evaluationService: evaluationService}
}

// Evaluate 对一次作答评分。模型输出无法解析时仍返回 200 与降级结果。
func (h *EvaluationHandler) Evaluate(c *gin.Context) {
	var req evaluation.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Evaluate: Invalid request payload, error: %v", err)
		response.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.evaluationService.Evaluate(c.Request.Context(), middleware.CurrentUserID(c), req)
	if err != nil {
		respondLLMError(c, err, EvaluationFailedMessage)
		return
	}
	response.OK(c, result, "Evaluation completed successfully")
}
