package repository

import (
	"context"

	"gorm.io/gorm"

	"ielts-tutor-go/internal/model"
)

// LessonRepository 定义了课程与题目的持久化操作。
type LessonRepository interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	FindByID(ctx context.Context, id string) (*model.Lesson, error)
	FindByPath(ctx context.Context, learningPathID string) ([]model.Lesson, error)
	UpdateStatus(ctx context.Context, id string, completed bool) (*model.Lesson, error)
	SearchLike(ctx context.Context, query, userID string, limit int) ([]model.Lesson, error)
	FindQuestion(ctx context.Context, questionID string) (*model.Question, error)
	OwnerOf(ctx context.Context, lessonID string) (string, error)
}

type lessonRepository struct {
	db *gorm.DB
}

// NewLessonRepository 创建一个新的 LessonRepository 实例。
func NewLessonRepository(db *gorm.DB) LessonRepository {
	return &lessonRepository{db: db}
}

// Create 保存课程及其题目。
func (r *lessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	return r.db.WithContext(ctx).Create(lesson).Error
}

// FindByID 根据 ID 查找课程，附带题目。
func (r *lessonRepository) FindByID(ctx context.Context, id string) (*model.Lesson, error) {
	var lesson model.Lesson
	err := r.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Where("id = ?", id).
		First(&lesson).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &lesson, nil
}

// FindByPath 返回学习路线下的全部课程，按 lessonNumber 升序，附带题目与作答记录。
func (r *lessonRepository) FindByPath(ctx context.Context, learningPathID string) ([]model.Lesson, error) {
	var lessons []model.Lesson
	err := r.db.WithContext(ctx).
		Where("learning_path_id = ?", learningPathID).
		Order("lesson_number ASC").
		Preload("Questions", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Questions.Responses", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Find(&lessons).Error
	return lessons, err
}

// UpdateStatus 更新课程的完成状态，课程不存在时返回 ErrNotFound。
func (r *lessonRepository) UpdateStatus(ctx context.Context, id string, completed bool) (*model.Lesson, error) {
	if err := r.db.WithContext(ctx).Model(&model.Lesson{}).Where("id = ?", id).Update("is_completed", completed).Error; err != nil {
		return nil, err
	}
	var lesson model.Lesson
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&lesson).Error; err != nil {
		return nil, notFound(err)
	}
	return &lesson, nil
}

// SearchLike 在未启用 Elasticsearch 时，用 LIKE 在用户自己的课程中检索标题与理论。
func (r *lessonRepository) SearchLike(ctx context.Context, query, userID string, limit int) ([]model.Lesson, error) {
	var lessons []model.Lesson
	pattern := "%" + query + "%"
	db := r.db.WithContext(ctx).
		Model(&model.Lesson{}).
		Joins("JOIN learning_paths ON learning_paths.id = lessons.learning_path_id").
		Where("(lessons.title LIKE ? OR lessons.theory LIKE ?)", pattern, pattern)
	if userID != "" {
		db = db.Where("learning_paths.user_id = ?", userID)
	}
	err := db.Order("lessons.created_at DESC").Limit(limit).Find(&lessons).Error
	return lessons, err
}

// FindQuestion 根据 ID 查找题目。
func (r *lessonRepository) FindQuestion(ctx context.Context, questionID string) (*model.Question, error) {
	var q model.Question
	if err := r.db.WithContext(ctx).Where("id = ?", questionID).First(&q).Error; err != nil {
		return nil, notFound(err)
	}
	return &q, nil
}

// OwnerOf 返回课程所属学习路线的用户 ID。
func (r *lessonRepository) OwnerOf(ctx context.Context, lessonID string) (string, error) {
	var owner struct{ UserID string }
	err := r.db.WithContext(ctx).
		Table("lessons").
		Select("learning_paths.user_id AS user_id").
		Joins("JOIN learning_paths ON learning_paths.id = lessons.learning_path_id").
		Where("lessons.id = ?", lessonID).
		Take(&owner).Error
	if err != nil {
		return "", notFound(err)
	}
	return owner.UserID, nil
}
