package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ielts-tutor-go/pkg/errs"
	"ielts-tutor-go/pkg/llm"
	"ielts-tutor-go/pkg/response"
)

// ServiceBusyMessage 是上游过载（503）重试耗尽后返回给用户的消息。
const ServiceBusyMessage = "AI service is temporarily busy. Please try again in a moment."

// respondLLMError 处理依赖 LLM 的接口的错误：参数/资源错误按 pkg/errs 映射，
// 上游过载返回 503，模型输出不合法返回 502，其余返回 500。
func respondLLMError(c *gin.Context, err error, fallback string) {
	var (
		validation *errs.ValidationError
		notFound   *errs.NotFoundError
		invalid    *llm.ErrInvalidResponse
	)
	switch {
	case errors.As(err, &validation), errors.As(err, &notFound):
		response.FromError(c, err, fallback)
	case llm.IsServiceBusy(err):
		response.ServiceUnavailable(c, ServiceBusyMessage)
	case errors.As(err, &invalid):
		response.Error(c, http.StatusBadGateway, http.StatusBadGateway, fallback)
	default:
		response.Internal(c, fallback)
	}
}
