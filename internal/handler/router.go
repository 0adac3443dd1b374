package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ielts-tutor-go/internal/config"
	"ielts-tutor-go/internal/middleware"
	"ielts-tutor-go/pkg/response"
)

// Handlers 汇总所有需要注册路由的控制器。Upload 为 nil 时不注册录音上传接口。
type Handlers struct {
	User         *UserHandler
	Auth         *AuthHandler
	Chat         *ChatHandler
	Evaluation   *EvaluationHandler
	LearningPath *LearningPathHandler
	Lesson       *LessonHandler
	Search       *SearchHandler
	Upload       *UploadHandler
	Admin        *AdminHandler
}

// RouterOptions 是路由引擎的可选配置。Limiter 为 nil 时不限流。
type RouterOptions struct {
	Authenticator *middleware.Authenticator
	Limiter       middleware.WindowCounter
	RateLimit     config.RateLimitConfig
	Metrics       config.MetricsConfig
}

// NewRouter 创建路由引擎并注册全部路由。
func NewRouter(h Handlers, opts RouterOptions) *gin.Engine {
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestID(), middleware.RequestLogger(), gin.Recovery())

	authRequired := opts.Authenticator.Required()
	authOptional := opts.Authenticator.Optional()
	limit := func(scope string) gin.HandlerFunc {
		if opts.Limiter == nil || !opts.RateLimit.Enabled {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimit(opts.Limiter, scope, opts.RateLimit.Requests, opts.RateLimit.Window)
	}
	if opts.Limiter != nil && opts.RateLimit.Enabled {
		h.Chat.limitMessages(opts.Limiter, opts.RateLimit.Requests, opts.RateLimit.Window)
	}

	r.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{"status": "ok"}, "")
	})
	if opts.Metrics.Enabled {
		r.GET(opts.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组
		auth := apiV1.Group("/auth")
		{
			auth.POST("/register", h.User.Register)
			auth.POST("/login", h.User.Login)
			auth.POST("/refreshToken", h.Auth.RefreshToken)
			auth.GET("/verify", authRequired, h.User.Verify)
			auth.POST("/logout", authRequired, h.Auth.Logout)
		}

		// Chat 路由组，匿名用户也可以使用
		chat := apiV1.Group("/chat")
		{
			chat.POST("", authOptional, limit(chatRateScope), h.Chat.Chat)
			chat.GET("/history", authOptional, h.Chat.History)
			chat.GET("/ws/:token", h.Chat.Handle)
		}

		apiV1.POST("/evaluate", authOptional, limit("evaluate"), h.Evaluation.Evaluate)

		if h.Upload != nil {
			apiV1.POST("/upload-audio", authOptional, limit("upload"), h.Upload.UploadAudio)
		}

		// LearningPath 路由组，需要认证
		paths := apiV1.Group("/learning-path")
		paths.Use(authRequired)
		{
			paths.POST("", limit("generate"), h.LearningPath.Generate)
			paths.GET("", h.LearningPath.List)
			paths.POST("/save", h.LearningPath.Save)
			paths.GET("/:id", h.LearningPath.Get)
		}

		// Lesson 路由组，需要认证
		lessons := apiV1.Group("/lessons")
		lessons.Use(authRequired)
		{
			lessons.POST("", limit("generate"), h.Lesson.Generate)
			lessons.POST("/save", h.Lesson.Save)
			lessons.GET("/search", h.Search.Lessons)
			lessons.GET("/by-path/:id", h.Lesson.ListByPath)
			lessons.PATCH("/updateStatus", h.Lesson.UpdateStatus)
			lessons.GET("/:id", h.Lesson.Get)
		}

		// 管理员路由组，需要同时通过认证和管理员授权两个中间件
		admin := apiV1.Group("/admin")
		admin.Use(authRequired, middleware.AdminRequired())
		{
			admin.GET("/chat/sessions", h.Admin.ListChatSessions)
			admin.POST("/chat/sessions/cleanup", h.Admin.CleanupChatSessions)
			admin.DELETE("/chat/sessions", h.Admin.ClearChatSessions)
		}
	}

	return r
}
