package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ielts-tutor-go/pkg/errs"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/storage"
)

const audioURLExpiry = 24 * time.Hour

// AudioStore 是录音对象存储的接口，由 storage.AudioStore 实现。
type AudioStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (*storage.ObjectInfo, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// UploadedAudio 是上传录音后的结果，Key 可以在评估请求中作为 audioKey 使用。
type UploadedAudio struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// AudioService 定义了录音上传的业务操作。
type AudioService interface {
	Upload(ctx context.Context, userID, filename, contentType string, size int64, r io.Reader) (*UploadedAudio, error)
}

type audioService struct {
	store    AudioStore
	maxBytes int64
}

// NewAudioService 创建一个新的 AudioService 实例。
func NewAudioService(store AudioStore, maxBytes int64) AudioService {
	return &audioService{store: store, maxBytes: maxBytes}
}

// Upload 校验并保存一段录音，返回 24 小时有效的访问地址。
func (s *audioService) Upload(ctx context.Context, userID, filename, contentType string, size int64, r io.Reader) (*UploadedAudio, error) {
	// 1. 校验
	if size <= 0 {
		return nil, errs.NewValidation("Audio file is empty")
	}
	if s.maxBytes > 0 && size > s.maxBytes {
		return nil, errs.NewValidation("Audio file is too large", fmt.Sprintf("size must not exceed %d bytes", s.maxBytes))
	}
	if !isAudioContentType(contentType) {
		return nil, errs.NewValidation("Unsupported audio format", fmt.Sprintf("content type %q is not audio", contentType))
	}

	// 2. 生成对象 key
	owner := userID
	if owner == "" {
		owner = "anon"
	}
	ext := strings.ToLower(filepath.Ext(filename))
	key := fmt.Sprintf("audio/%s/%s%s", owner, uuid.NewString(), ext)

	// 3. 上传并生成预签名地址
	info, err := s.store.Put(ctx, key, r, size, contentType)
	if err != nil {
		log.Errorw("上传录音失败", "key", key, "error", err)
		return nil, err
	}
	url, err := s.store.PresignedURL(ctx, key, audioURLExpiry)
	if err != nil {
		return nil, err
	}
	log.Infow("录音已上传", "key", key, "size", info.Size, "userId", userID)
	return &UploadedAudio{Key: key, URL: url, Size: info.Size}, nil
}

func isAudioContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return strings.HasPrefix(ct, "audio/") || ct == "video/webm" || ct == "application/ogg"
}
