// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ielts-tutor-go/internal/model"
)

const transcriptTTL = 7 * 24 * time.Hour

// ConversationRepository 定义了聊天记录的存取接口，记录按会话 ID 存放在 Redis 列表中。
// 登录用户创建的会话同时记录所属用户，匿名会话没有所属用户。
type ConversationRepository interface {
	Append(ctx context.Context, sessionID, ownerID string, messages ...model.ChatMessage) error
	History(ctx context.Context, sessionID string, limit int64) ([]model.ChatMessage, error)
	Owner(ctx context.Context, sessionID string) (string, error)
}

type redisConversationRepository struct {
	redisClient *redis.Client
	maxMessages int64
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例，每个会话最多保留 maxMessages 条。
func NewConversationRepository(redisClient *redis.Client, maxMessages int64) ConversationRepository {
	if maxMessages <= 0 {
		maxMessages = 20
	}
	return &redisConversationRepository{redisClient: redisClient, maxMessages: maxMessages}
}

func transcriptKey(sessionID string) string {
	return fmt.Sprintf("chat:transcript:%s", sessionID)
}

func ownerKey(sessionID string) string {
	return fmt.Sprintf("chat:owner:%s", sessionID)
}

// Append 在会话记录末尾追加消息，并裁剪到最近 maxMessages 条。所属用户只在第一次写入时记录。
func (r *redisConversationRepository) Append(ctx context.Context, sessionID, ownerID string, messages ...model.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		data, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal chat message: %w", err)
		}
		values = append(values, data)
	}

	key := transcriptKey(sessionID)
	pipe := r.redisClient.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.LTrim(ctx, key, -r.maxMessages, -1)
	pipe.Expire(ctx, key, transcriptTTL)
	if ownerID != "" {
		pipe.SetNX(ctx, ownerKey(sessionID), ownerID, transcriptTTL)
		pipe.Expire(ctx, ownerKey(sessionID), transcriptTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append chat transcript: %w", err)
	}
	return nil
}

// History 返回会话最近的 limit 条消息，按时间正序。
func (r *redisConversationRepository) History(ctx context.Context, sessionID string, limit int64) ([]model.ChatMessage, error) {
	if limit <= 0 || limit > r.maxMessages {
		limit = r.maxMessages
	}
	raw, err := r.redisClient.LRange(ctx, transcriptKey(sessionID), -limit, -1).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("failed to get chat transcript: %w", err)
	}
	messages := make([]model.ChatMessage, 0, len(raw))
	for _, item := range raw {
		var m model.ChatMessage
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal chat message: %w", err)
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// Owner 返回会话所属用户，匿名会话或记录不存在时返回空字符串。
func (r *redisConversationRepository) Owner(ctx context.Context, sessionID string) (string, error) {
	owner, err := r.redisClient.Get(ctx, ownerKey(sessionID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get chat session owner: %w", err)
	}
	return owner, nil
}
