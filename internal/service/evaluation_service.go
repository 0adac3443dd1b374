package service

import (
	"context"

	"ielts-tutor-go/internal/evaluation"
	"ielts-tutor-go/pkg/kafka"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/tasks"
)

// Evaluator 是答案评估器的接口，由 evaluation.Evaluator 实现。
type Evaluator interface {
	Evaluate(ctx context.Context, req evaluation.Request) (*evaluation.Result, error)
}

// EvaluationService 定义了答案评估的业务操作。
type EvaluationService interface {
	Evaluate(ctx context.Context, userID string, req evaluation.Request) (*evaluation.Result, error)
}

type evaluationService struct {
	evaluator Evaluator
	publisher kafka.Publisher
}

// NewEvaluationService 创建一个新的 EvaluationService 实例。
func NewEvaluationService(evaluator Evaluator, publisher kafka.Publisher) EvaluationService {
	return &evaluationService{evaluator: evaluator, publisher: publisher}
}

// Evaluate 评估一次作答；登录用户针对已保存题目的有效评估会异步记录为作答历史。
func (s *evaluationService) Evaluate(ctx context.Context, userID string, req evaluation.Request) (*evaluation.Result, error) {
	result, err := s.evaluator.Evaluate(ctx, req)
	if err != nil {
		return nil, err
	}

	if userID == "" || req.QuestionID == "" || result.Error != "" || s.publisher == nil {
		return result, nil
	}

	task, err := tasks.New(tasks.TypeEvaluationRecorded, tasks.EvaluationRecorded{
		QuestionID: req.QuestionID,
		UserID:     userID,
		Answer:     req.Answer,
		AudioKey:   req.AudioKey,
		Score:      result.Score,
		Feedback:   result.Feedback,
	})
	if err == nil {
		err = s.publisher.Publish(context.WithoutCancel(ctx), task)
	}
	if err != nil {
		log.Warnw("投递作答记录任务失败", "questionId", req.QuestionID, "userId", userID, "error", err)
	}
	return result, nil
}
