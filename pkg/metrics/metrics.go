// Package metrics 定义服务暴露给 Prometheus 的指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequestsTotal HTTP 请求总数
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ielts_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration HTTP 请求耗时
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ielts_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	// LLMRequestsTotal 上游 LLM 单次请求结果（每次尝试计一次）
	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ielts_llm_requests_total",
			Help: "Total number of upstream LLM attempts by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	// LLMRequestDuration 上游 LLM 单次请求耗时
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ielts_llm_request_duration_seconds",
			Help:    "Upstream LLM attempt duration in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"provider"},
	)

	// LLMRetriesTotal 上游重试次数
	LLMRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ielts_llm_retries_total",
			Help: "Total number of upstream LLM retries by status",
		},
		[]string{"status"},
	)

	// LLMBreakerState 熔断器状态（0 closed，1 half-open，2 open）
	LLMBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ielts_llm_breaker_state",
			Help: "Circuit breaker state for the upstream LLM (0 closed, 1 half-open, 2 open)",
		},
	)

	// EvaluationsTotal 答案评估结果
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ielts_evaluations_total",
			Help: "Total number of answer evaluations by question type and outcome",
		},
		[]string{"question_type", "outcome"},
	)

	// ChatTurnsTotal 聊天轮次
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ielts_chat_turns_total",
			Help: "Total number of chat turns by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	// ActiveSessions 当前会话数
	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ielts_chat_sessions_active",
			Help: "Number of chat sessions held in memory",
		},
	)

	// SessionEvictionsTotal 会话清理数量
	SessionEvictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ielts_chat_session_evictions_total",
			Help: "Total number of evicted chat sessions by reason",
		},
		[]string{"reason"},
	)

	// MemorySummariesTotal 会话记忆压缩次数
	MemorySummariesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ielts_memory_summaries_total",
			Help: "Total number of conversation memory folds by outcome",
		},
		[]string{"outcome"},
	)

	// TasksTotal 异步任务处理结果
	TasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ielts_tasks_total",
			Help: "Total number of processed background tasks by type and outcome",
		},
		[]string{"type", "outcome"},
	)
)
