// Package model 定义了与数据库表对应的 Go 结构体。
package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base 是所有表共用的主键与时间戳字段，主键为 UUID 字符串。
type Base struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// BeforeCreate 在插入前生成主键。
func (b *Base) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// All 返回需要迁移的全部模型。
func All() []interface{} {
	return []interface{}{
		&User{},
		&LearningPath{},
		&Lesson{},
		&Question{},
		&QuestionResponse{},
	}
}
