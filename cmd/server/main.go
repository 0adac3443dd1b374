// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"ielts-tutor-go/internal/config"
	"ielts-tutor-go/internal/evaluation"
	"ielts-tutor-go/internal/handler"
	"ielts-tutor-go/internal/middleware"
	"ielts-tutor-go/internal/model"
	"ielts-tutor-go/internal/pipeline"
	"ielts-tutor-go/internal/repository"
	"ielts-tutor-go/internal/service"
	"ielts-tutor-go/internal/session"
	"ielts-tutor-go/pkg/database"
	"ielts-tutor-go/pkg/es"
	"ielts-tutor-go/pkg/kafka"
	"ielts-tutor-go/pkg/llm"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/storage"
	"ielts-tutor-go/pkg/token"
)

// 任务重试计数在 Redis 中的保留时间
const taskAttemptsTTL = 24 * time.Hour

var configPath string

var rootCmd = &cobra.Command{
	Use:   "ielts-server",
	Short: "IELTS tutor backend",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		setup()
		defer log.Sync()
		defer database.Close()

		database.InitMySQL(config.Conf.Database.MySQL.DSN)
		if err := database.AutoMigrate(database.DB, model.All()...); err != nil {
			return fmt.Errorf("数据库迁移失败: %w", err)
		}
		log.Info("数据库迁移完成")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "./configs/config.yaml", "Path to the YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup 初始化配置与日志记录器
func setup() {
	config.Init(configPath)
	cfg := config.Conf
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	log.Info("日志记录器初始化成功")
}

func serve() error {
	// 1. 初始化配置和日志
	setup()
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	cfg := config.Conf

	// 2. 初始化数据库和 Redis
	database.InitMySQL(cfg.Database.MySQL.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	defer database.Close()
	if err := database.AutoMigrate(database.DB, model.All()...); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	// 3. 可选的外部依赖：MinIO、Elasticsearch
	var (
		audioStore *storage.AudioStore
		searcher   service.LessonSearcher
		indexer    pipeline.LessonIndexer
		audioStat  evaluation.AudioStat
	)
	if cfg.MinIO.Enabled {
		if err := storage.InitMinIO(cfg.MinIO); err != nil {
			return err
		}
		audioStore = storage.NewAudioStore(storage.MinioClient, cfg.MinIO.BucketName)
		audioStat = audioStore
	}
	if cfg.Elasticsearch.Enabled {
		if err := es.InitES(cfg.Elasticsearch); err != nil {
			log.Errorf("es 初始化失败 %s", err)
			return err
		}
		index := es.NewLessonIndex(es.ESClient, cfg.Elasticsearch.IndexName)
		searcher = index
		indexer = index
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(database.DB)
	tokenRepo := repository.NewTokenRepository(database.RDB)
	pathRepo := repository.NewLearningPathRepository(database.DB)
	lessonRepo := repository.NewLessonRepository(database.DB)
	responseRepo := repository.NewQuestionResponseRepository(database.DB)
	conversationRepo := repository.NewConversationRepository(database.RDB, cfg.Chat.HistoryLimit)

	// 5. 初始化 LLM 客户端与会话注册表
	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("初始化 LLM 客户端失败: %w", err)
	}
	registry := session.NewRegistry(cfg.Session, service.NewLessonSource(lessonRepo), session.NewLLMSummarizer(llmClient))
	janitor := session.NewJanitor(registry, cfg.Session.CleanupInterval)
	janitor.Start()
	defer janitor.Stop()

	// 6. 初始化后台任务管道：启用 Kafka 时异步消费，否则在进程内同步执行
	processor := pipeline.NewProcessor(lessonRepo, responseRepo, indexer)
	var (
		publisher kafka.Publisher
		producer  *kafka.Producer
		consumer  *kafka.Consumer
	)
	consumerCtx, cancelConsumer := context.WithCancel(context.Background())
	defer cancelConsumer()
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka)
		consumer = kafka.NewConsumer(cfg.Kafka, processor, kafka.NewRedisAttemptCounter(database.RDB, taskAttemptsTTL))
		publisher = producer
		go consumer.Run(consumerCtx)
	} else {
		publisher = kafka.NewInlinePublisher(processor)
	}

	// 7. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	userService := service.NewUserService(userRepo, tokenRepo, jwtManager)
	chatService := service.NewChatService(registry, llmClient, conversationRepo, cfg.Chat)
	evaluationService := service.NewEvaluationService(evaluation.NewEvaluator(llmClient, cfg.Evaluation, audioStat), publisher)
	pathService := service.NewLearningPathService(pathRepo, llmClient)
	lessonService := service.NewLessonService(lessonRepo, pathRepo, llmClient, searcher, publisher)

	// 8. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	auth := middleware.NewAuthenticator(jwtManager, userService, tokenRepo)
	handlers := handler.Handlers{
		User:         handler.NewUserHandler(userService),
		Auth:         handler.NewAuthHandler(userService),
		Chat:         handler.NewChatHandler(chatService, auth),
		Evaluation:   handler.NewEvaluationHandler(evaluationService),
		LearningPath: handler.NewLearningPathHandler(pathService),
		Lesson:       handler.NewLessonHandler(lessonService),
		Search:       handler.NewSearchHandler(lessonService),
		Admin:        handler.NewAdminHandler(registry),
	}
	if audioStore != nil {
		handlers.Upload = handler.NewUploadHandler(service.NewAudioService(audioStore, cfg.MinIO.MaxAudioBytes))
	}
	r := handler.NewRouter(handlers, handler.RouterOptions{
		Authenticator: auth,
		Limiter:       middleware.NewRedisWindowCounter(database.RDB),
		RateLimit:     cfg.RateLimit,
		Metrics:       cfg.Metrics,
	})

	// 9. 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP 服务器关闭失败", err)
	}

	// 停止消费者后再关闭生产者，保证已接收的任务处理完毕
	cancelConsumer()
	if consumer != nil {
		if err := consumer.Close(); err != nil {
			log.Error("关闭 Kafka 消费者失败", err)
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Error("关闭 Kafka 生产者失败", err)
		}
	}
	log.Info("服务已优雅关闭")
	return nil
}
