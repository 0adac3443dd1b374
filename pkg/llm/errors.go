package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError 表示上游返回了非 2xx 状态码。
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, body)
}

// UpstreamError 是调用方看到的终止错误：重试耗尽，或熔断器拒绝了调用。
// StatusCode 为最后一次失败的 HTTP 状态码（网络错误时为 0）。
type UpstreamError struct {
	Attempts   int
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("all retry attempts failed (%d attempts): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("upstream unavailable: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ErrInvalidResponse 表示上游成功返回，但内容不是期望的结构。
type ErrInvalidResponse struct {
	Content string
	Err     error
}

func (e *ErrInvalidResponse) Error() string {
	return fmt.Sprintf("invalid LLM response: %v", e.Err)
}

func (e *ErrInvalidResponse) Unwrap() error { return e.Err }

// StatusCode 从错误链中取出上游 HTTP 状态码，没有则返回 0。
func StatusCode(err error) int {
	var upstream *UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode != 0 {
		return upstream.StatusCode
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.StatusCode
	}
	return 0
}

// IsServiceBusy 判断失败是否由上游过载（503）导致。
func IsServiceBusy(err error) bool {
	return StatusCode(err) == http.StatusServiceUnavailable
}
