// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/segmentio/kafka-go"

	"ielts-tutor-go/internal/config"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/tasks"
)

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.Task) error
}

// Publisher 发布一个后台任务。
type Publisher interface {
	Publish(ctx context.Context, task tasks.Task) error
}

// Producer 是基于 kafka.Writer 的 Publisher。
type Producer struct {
	writer *kafka.Writer
}

// NewProducer 初始化 Kafka 生产者。
func NewProducer(cfg config.KafkaConfig) *Producer {
	p := &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(strings.Split(cfg.Brokers, ",")...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
		},
	}
	log.Info("Kafka 生产者初始化成功")
	return p
}

// Publish 发送一个任务到 Kafka，任务 ID 作为消息 key。
func (p *Producer) Publish(ctx context.Context, task tasks.Task) error {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(task.ID),
		Value: taskBytes,
	})
}

// Close 关闭生产者。
func (p *Producer) Close() error {
	return p.writer.Close()
}

// InlinePublisher 在未启用 Kafka 时直接在当前 goroutine 中处理任务。
type InlinePublisher struct {
	processor TaskProcessor
}

// NewInlinePublisher 创建同步执行的 Publisher。
func NewInlinePublisher(processor TaskProcessor) *InlinePublisher {
	return &InlinePublisher{processor: processor}
}

// Publish 同步处理任务。
func (p *InlinePublisher) Publish(ctx context.Context, task tasks.Task) error {
	return p.processor.Process(ctx, task)
}

// AttemptCounter 记录任务失败次数，用于决定何时放弃重试。
type AttemptCounter interface {
	Incr(ctx context.Context, taskID string) (int64, error)
	Reset(ctx context.Context, taskID string) error
}

// RedisAttemptCounter 使用 Redis 计数失败次数。
type RedisAttemptCounter struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisAttemptCounter 创建计数器，计数键在 ttl 后过期。
func NewRedisAttemptCounter(rdb *redis.Client, ttl time.Duration) *RedisAttemptCounter {
	return &RedisAttemptCounter{rdb: rdb, ttl: ttl}
}

func attemptsKey(taskID string) string {
	return fmt.Sprintf("kafka:attempts:%s", taskID)
}

func (c *RedisAttemptCounter) Incr(ctx context.Context, taskID string) (int64, error) {
	key := attemptsKey(taskID)
	attempts, err := c.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	_ = c.rdb.Expire(ctx, key, c.ttl).Err()
	return attempts, nil
}

func (c *RedisAttemptCounter) Reset(ctx context.Context, taskID string) error {
	return c.rdb.Del(ctx, attemptsKey(taskID)).Err()
}

// Consumer 从主题读取任务并交给 TaskProcessor 处理，手动提交 offset。
type Consumer struct {
	reader      *kafka.Reader
	processor   TaskProcessor
	attempts    AttemptCounter
	maxAttempts int64
}

// NewConsumer 创建消费者。
func NewConsumer(cfg config.KafkaConfig, processor TaskProcessor, attempts AttemptCounter) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  strings.Split(cfg.Brokers, ","),
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6, // 10MB
		}),
		processor:   processor,
		attempts:    attempts,
		maxAttempts: 3,
	}
}

// Run 持续消费直到 ctx 结束或读取失败。
func (c *Consumer) Run(ctx context.Context) {
	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", c.reader.Config().Topic)
	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("Kafka 消费者已停止")
			} else {
				log.Error("从 Kafka 读取消息失败", err)
			}
			return
		}

		if c.handle(ctx, m.Value) {
			if err := c.reader.CommitMessages(ctx, m); err != nil {
				log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
			}
		}
	}
}

// handle 处理一条消息并返回是否应该提交 offset。
// 格式错误直接提交；处理失败时未达到上限则不提交，让 Kafka 重新投递。
func (c *Consumer) handle(ctx context.Context, value []byte) bool {
	var task tasks.Task
	if err := json.Unmarshal(value, &task); err != nil {
		log.Errorf("无法解析 Kafka 消息: %v, value: %s", err, string(value))
		return true
	}

	if err := c.processor.Process(ctx, task); err != nil {
		log.Errorw("处理任务失败", "taskId", task.ID, "type", task.Type, "error", err)
		attempts, incErr := c.attempts.Incr(ctx, task.ID)
		if incErr != nil {
			// Redis 异常时保守处理：不提交 offset，让 Kafka 重试
			return false
		}
		if attempts >= c.maxAttempts {
			log.Errorw("任务多次失败，提交 offset 终止重试", "taskId", task.ID, "attempts", attempts)
			return true
		}
		return false
	}

	_ = c.attempts.Reset(ctx, task.ID)
	return true
}

// Close 关闭消费者。
func (c *Consumer) Close() error {
	return c.reader.Close()
}
