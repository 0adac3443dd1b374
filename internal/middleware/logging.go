package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/metrics"
	"ielts-tutor-go/pkg/response"
)

// RequestID 为每个请求确定请求 ID，并写回响应头。
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := response.RequestID(c)
		c.Header(response.RequestIDHeader, id)
		c.Next()
	}
}

// RequestLogger 是一个 Gin 中间件，用于记录请求日志与 HTTP 指标。
// 请求体与响应体可能包含密码、token 和录音，不写入日志。
// path 记录路由模板而不是实际 URL，WebSocket 路由的 :token 参数不会出现在日志中。
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, strconv.Itoa(statusCode)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, path).Observe(latency.Seconds())

		log.Infow("HTTP Request Log",
			"statusCode", statusCode,
			"latency", latency.String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
			"requestId", response.RequestID(c),
			"userId", CurrentUserID(c),
		)
	}
}
