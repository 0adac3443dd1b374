package repository

import (
	"context"

	"gorm.io/gorm"

	"ielts-tutor-go/internal/model"
)

// LearningPathRepository 定义了学习路线的持久化操作。
type LearningPathRepository interface {
	Create(ctx context.Context, path *model.LearningPath) error
	FindByUser(ctx context.Context, userID string) ([]model.LearningPath, error)
	FindByID(ctx context.Context, id string) (*model.LearningPath, error)
}

type learningPathRepository struct {
	db *gorm.DB
}

// NewLearningPathRepository 创建一个新的 LearningPathRepository 实例。
func NewLearningPathRepository(db *gorm.DB) LearningPathRepository {
	return &learningPathRepository{db: db}
}

// Create 保存学习路线，连同其中的课程与题目一起写入。
func (r *learningPathRepository) Create(ctx context.Context, path *model.LearningPath) error {
	return r.db.WithContext(ctx).Create(path).Error
}

// FindByUser 返回用户的全部学习路线（最新的在前），附带课程列表。
func (r *learningPathRepository) FindByUser(ctx context.Context, userID string) ([]model.LearningPath, error) {
	var paths []model.LearningPath
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Preload("Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("lesson_number ASC") }).
		Find(&paths).Error
	return paths, err
}

// FindByID 根据 ID 查找学习路线，附带课程与题目。
func (r *learningPathRepository) FindByID(ctx context.Context, id string) (*model.LearningPath, error) {
	var path model.LearningPath
	err := r.db.WithContext(ctx).
		Preload("Lessons", func(db *gorm.DB) *gorm.DB { return db.Order("lesson_number ASC") }).
		Preload("Lessons.Questions").
		Where("id = ?", id).
		First(&path).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &path, nil
}
