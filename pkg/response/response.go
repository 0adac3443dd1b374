// Package response 提供统一的 JSON 响应信封：
// {status, message, code, data?, errors?, meta:{timestamp, requestId}}。
package response

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"ielts-tutor-go/pkg/errs"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"

	// RequestIDKey 是 gin.Context 中保存请求 ID 的键
	RequestIDKey = "requestId"
	// RequestIDHeader 是透传请求 ID 的请求/响应头
	RequestIDHeader = "X-Request-ID"
)

// Meta 是响应的元数据。
type Meta struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"requestId,omitempty"`
}

// Body 是所有 JSON 接口共用的响应结构。
type Body struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Code    int         `json:"code"`
	Data    interface{} `json:"data,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
	Meta    Meta        `json:"meta"`
}

// RequestID 返回当前请求的 ID：优先使用中间件写入的值，其次是请求头，最后生成一个新的。
func RequestID(c *gin.Context) string {
	if v, ok := c.Get(RequestIDKey); ok {
		if id, ok := v.(string); ok && id != "" {
			return id
		}
	}
	id := c.GetHeader(RequestIDHeader)
	if id == "" {
		id = "req_" + uuid.NewString()
	}
	c.Set(RequestIDKey, id)
	return id
}

func write(c *gin.Context, httpStatus int, status string, code int, message string, data interface{}, errList []string) {
	c.JSON(httpStatus, Body{
		Status:  status,
		Message: message,
		Code:    code,
		Data:    data,
		Errors:  errList,
		Meta: Meta{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			RequestID: RequestID(c),
		},
	})
}

// OK 返回 200。
func OK(c *gin.Context, data interface{}, message string) {
	if message == "" {
		message = "Operation completed successfully"
	}
	write(c, http.StatusOK, StatusSuccess, http.StatusOK, message, data, nil)
}

// Created 返回 201。
func Created(c *gin.Context, data interface{}, message string) {
	if message == "" {
		message = "Resource created successfully"
	}
	write(c, http.StatusCreated, StatusSuccess, http.StatusCreated, message, data, nil)
}

// Error 返回任意错误响应，code 为业务码（没有业务码时与 httpStatus 相同）。
func Error(c *gin.Context, httpStatus, code int, message string, errList ...string) {
	write(c, httpStatus, StatusError, code, message, nil, errList)
}

func BadRequest(c *gin.Context, message string, errList ...string) {
	Error(c, http.StatusBadRequest, http.StatusBadRequest, message, errList...)
}

func Validation(c *gin.Context, message string, errList ...string) {
	Error(c, http.StatusUnprocessableEntity, http.StatusUnprocessableEntity, message, errList...)
}

func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, http.StatusUnauthorized, message)
}

func Forbidden(c *gin.Context, message string) {
	Error(c, http.StatusForbidden, http.StatusForbidden, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, http.StatusNotFound, message)
}

func TooManyRequests(c *gin.Context, message string) {
	Error(c, http.StatusTooManyRequests, http.StatusTooManyRequests, message)
}

func Internal(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, http.StatusInternalServerError, message)
}

func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, http.StatusServiceUnavailable, message)
}

// FromError 把 pkg/errs 中的错误映射成对应的响应，其他错误返回 500 并使用 fallback 作为消息。
func FromError(c *gin.Context, err error, fallback string) {
	var (
		validation   *errs.ValidationError
		notFound     *errs.NotFoundError
		conflict     *errs.ConflictError
		unauthorized *errs.UnauthorizedError
	)
	switch {
	case errors.As(err, &validation):
		Error(c, http.StatusUnprocessableEntity, http.StatusUnprocessableEntity, validation.Message, validation.Fields...)
	case errors.As(err, &notFound):
		Error(c, http.StatusNotFound, codeOr(notFound.Code, http.StatusNotFound), notFound.Error())
	case errors.As(err, &conflict):
		Error(c, http.StatusConflict, codeOr(conflict.Code, http.StatusConflict), conflict.Message)
	case errors.As(err, &unauthorized):
		Error(c, http.StatusUnauthorized, codeOr(unauthorized.Code, http.StatusUnauthorized), unauthorized.Message)
	default:
		Internal(c, fallback)
	}
}

func codeOr(code, fallback int) int {
	if code != 0 {
		return code
	}
	return fallback
}
