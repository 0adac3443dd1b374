// Package errs 定义业务层的错误分类，HTTP 层通过 errors.As 映射到状态码。
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// 业务错误码，与 HTTP 状态码一起出现在响应体的 code 字段中。
const (
	CodeEmailExists          = 1001
	CodeInvalidCredentials   = 1002
	CodeTokenExpired         = 1003
	CodeInvalidToken         = 1004
	CodeUserNotFound         = 1005
	CodeLessonNotFound       = 1006
	CodeLearningPathNotFound = 1007
	CodeInsufficientRole     = 1008
	CodeChatSessionNotFound  = 1009
)

// ValidationError 表示请求参数缺失或格式错误，不应重试。
type ValidationError struct {
	Message string
	Fields  []string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, strings.Join(e.Fields, ", "))
}

// NewValidation 创建一个 ValidationError，fields 为逐条的错误描述。
func NewValidation(message string, fields ...string) error {
	return &ValidationError{Message: message, Fields: fields}
}

// NotFoundError 表示资源不存在。
type NotFoundError struct {
	Resource string
	Code     int
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// NewNotFound 创建 NotFoundError。
func NewNotFound(resource string, code int) error {
	return &NotFoundError{Resource: resource, Code: code}
}

// ConflictError 表示资源冲突，例如邮箱已注册。
type ConflictError struct {
	Message string
	Code    int
}

func (e *ConflictError) Error() string { return e.Message }

// UnauthorizedError 表示认证失败。
type UnauthorizedError struct {
	Message string
	Code    int
}

func (e *UnauthorizedError) Error() string { return e.Message }

// ErrInvalidCredentials 登录时邮箱或密码错误。
var ErrInvalidCredentials = &UnauthorizedError{Message: "Invalid email or password", Code: CodeInvalidCredentials}

// IsValidation 判断错误链中是否包含 ValidationError。
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound 判断错误链中是否包含 NotFoundError。
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
