package repository

import (
	"context"

	"gorm.io/gorm"

	"ielts-tutor-go/internal/model"
)

// QuestionResponseRepository 保存用户的作答记录。
type QuestionResponseRepository interface {
	Create(ctx context.Context, resp *model.QuestionResponse) error
	FindByQuestion(ctx context.Context, questionID, userID string) ([]model.QuestionResponse, error)
}

type questionResponseRepository struct {
	db *gorm.DB
}

// NewQuestionResponseRepository 创建一个新的 QuestionResponseRepository 实例。
func NewQuestionResponseRepository(db *gorm.DB) QuestionResponseRepository {
	return &questionResponseRepository{db: db}
}

func (r *questionResponseRepository) Create(ctx context.Context, resp *model.QuestionResponse) error {
	return r.db.WithContext(ctx).Create(resp).Error
}

func (r *questionResponseRepository) FindByQuestion(ctx context.Context, questionID, userID string) ([]model.QuestionResponse, error) {
	var responses []model.QuestionResponse
	err := r.db.WithContext(ctx).
		Where("question_id = ? AND user_id = ?", questionID, userID).
		Order("created_at DESC").
		Find(&responses).Error
	return responses, err
}
