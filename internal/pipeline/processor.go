// Package pipeline 定义了后台任务的处理流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"ielts-tutor-go/internal/model"
	"ielts-tutor-go/internal/repository"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/metrics"
	"ielts-tutor-go/pkg/tasks"
)

// LessonIndexer 将课程文档写入检索索引，由 es.LessonIndex 实现。
type LessonIndexer interface {
	IndexLesson(ctx context.Context, doc model.LessonDocument) error
}

// Processor 封装了后台任务处理的所有依赖和逻辑。
type Processor struct {
	lessonRepo   repository.LessonRepository
	responseRepo repository.QuestionResponseRepository
	indexer      LessonIndexer
}

// NewProcessor 创建一个新的 Processor 实例。indexer 为 nil 时跳过索引任务。
func NewProcessor(
	lessonRepo repository.LessonRepository,
	responseRepo repository.QuestionResponseRepository,
	indexer LessonIndexer,
) *Processor {
	return &Processor{
		lessonRepo:   lessonRepo,
		responseRepo: responseRepo,
		indexer:      indexer,
	}
}

// Process 是任务处理的主函数，按任务类型分发。返回错误时消费者会让 Kafka 重新投递。
func (p *Processor) Process(ctx context.Context, task tasks.Task) error {
	var err error
	switch task.Type {
	case tasks.TypeEvaluationRecorded:
		err = p.recordEvaluation(ctx, task)
	case tasks.TypeLessonIndex:
		err = p.indexLesson(ctx, task)
	default:
		log.Warnf("[Processor] 未知的任务类型 %s, TaskID: %s, 已忽略", task.Type, task.ID)
		metrics.TasksTotal.WithLabelValues(task.Type, "ignored").Inc()
		return nil
	}

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.TasksTotal.WithLabelValues(task.Type, outcome).Inc()
	return err
}

func (p *Processor) recordEvaluation(ctx context.Context, task tasks.Task) error {
	var payload tasks.EvaluationRecorded
	if err := task.Decode(&payload); err != nil {
		// 负载损坏无法通过重试修复
		log.Errorf("[Processor] 作答记录负载无法解析, TaskID: %s, Error: %v", task.ID, err)
		return nil
	}
	log.Infof("[Processor] 开始保存作答记录, QuestionID: %s, UserID: %s", payload.QuestionID, payload.UserID)

	// 1. 题目必须存在，避免为临时生成、未保存的题目写入记录
	if _, err := p.lessonRepo.FindQuestion(ctx, payload.QuestionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Infof("[Processor] 题目 %s 未保存, 跳过作答记录", payload.QuestionID)
			return nil
		}
		return fmt.Errorf("查询题目失败: %w", err)
	}

	// 2. 保存作答
	resp := &model.QuestionResponse{
		QuestionID: payload.QuestionID,
		UserID:     payload.UserID,
		Answer:     payload.Answer,
		AudioKey:   payload.AudioKey,
		Score:      payload.Score,
		Feedback:   payload.Feedback,
	}
	if err := p.responseRepo.Create(ctx, resp); err != nil {
		return fmt.Errorf("保存作答记录失败: %w", err)
	}
	log.Infof("[Processor] 作答记录已保存, ResponseID: %s, Score: %.2f", resp.ID, resp.Score)
	return nil
}

func (p *Processor) indexLesson(ctx context.Context, task tasks.Task) error {
	if p.indexer == nil {
		return nil
	}
	var payload tasks.LessonIndex
	if err := task.Decode(&payload); err != nil {
		log.Errorf("[Processor] 课程索引负载无法解析, TaskID: %s, Error: %v", task.ID, err)
		return nil
	}

	// 1. 读取课程与所属用户
	lesson, err := p.lessonRepo.FindByID(ctx, payload.LessonID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warnf("[Processor] 课程 %s 不存在, 跳过索引", payload.LessonID)
			return nil
		}
		return fmt.Errorf("查询课程失败: %w", err)
	}
	owner, err := p.lessonRepo.OwnerOf(ctx, lesson.ID)
	if err != nil {
		return fmt.Errorf("查询课程所属用户失败: %w", err)
	}

	// 2. 构建文档并写入索引
	doc := model.LessonDocument{
		LessonID:       lesson.ID,
		LearningPathID: lesson.LearningPathID,
		UserID:         owner,
		Title:          lesson.Title,
		Theory:         lesson.Theory,
		Questions:      make([]string, 0, len(lesson.Questions)),
		LessonNumber:   lesson.LessonNumber,
	}
	for _, q := range lesson.Questions {
		doc.Questions = append(doc.Questions, q.Question)
	}
	if err := p.indexer.IndexLesson(ctx, doc); err != nil {
		return fmt.Errorf("写入课程索引失败: %w", err)
	}
	log.Infof("[Processor] 课程已写入索引, LessonID: %s, Questions: %d", lesson.ID, len(doc.Questions))
	return nil
}
