package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/response"
)

// WindowCounter 在固定时间窗口内计数。
type WindowCounter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisWindowCounter 使用 INCR + EXPIRE 实现固定窗口计数。
type RedisWindowCounter struct {
	rdb *redis.Client
}

// NewRedisWindowCounter 创建基于 Redis 的计数器。
func NewRedisWindowCounter(rdb *redis.Client) *RedisWindowCounter {
	return &RedisWindowCounter{rdb: rdb}
}

func (r *RedisWindowCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// TooManyRequestsMessage 是超出限流时返回给客户端的提示。
const TooManyRequestsMessage = "Too many requests. Please slow down and try again shortly."

// Quota 是一次限流计数后的额度状态。
type Quota struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	Reset     int64 // 当前窗口结束的 Unix 秒
}

// Allow 在 scope 下为 subject 计一次数。计数器出错时放行。
func Allow(ctx context.Context, counter WindowCounter, scope, subject string, limit int64, window time.Duration) Quota {
	if window < time.Second {
		window = time.Second
	}
	slot := time.Now().Unix() / int64(window.Seconds())
	key := fmt.Sprintf("ratelimit:%s:%s:%d", scope, subject, slot)
	q := Quota{Allowed: true, Limit: limit, Remaining: limit, Reset: (slot + 1) * int64(window.Seconds())}

	count, err := counter.Incr(ctx, key, window)
	if err != nil {
		log.Warnw("限流计数失败，放行请求", "scope", scope, "error", err)
		return q
	}
	q.Remaining = limit - count
	if q.Remaining < 0 {
		q.Remaining = 0
	}
	q.Allowed = count <= limit
	return q
}

// RateLimit 按用户（匿名请求按 IP）限制 scope 下的请求频率，超限返回 429。
func RateLimit(counter WindowCounter, scope string, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		subject := CurrentUserID(c)
		if subject == "" {
			subject = "ip:" + c.ClientIP()
		}
		q := Allow(c.Request.Context(), counter, scope, subject, limit, window)

		c.Header("X-RateLimit-Limit", strconv.FormatInt(q.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(q.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(q.Reset, 10))

		if !q.Allowed {
			c.Header("Retry-After", strconv.FormatInt(q.Reset-time.Now().Unix(), 10))
			response.TooManyRequests(c, TooManyRequestsMessage)
			c.Abort()
			return
		}
		c.Next()
	}
}
