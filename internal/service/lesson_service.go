package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ielts-tutor-go/internal/model"
	"ielts-tutor-go/internal/repository"
	"ielts-tutor-go/internal/session"
	"ielts-tutor-go/pkg/errs"
	"ielts-tutor-go/pkg/es"
	"ielts-tutor-go/pkg/kafka"
	"ielts-tutor-go/pkg/llm"
	"ielts-tutor-go/pkg/log"
	"ielts-tutor-go/pkg/tasks"
)

const lessonPrompt = `You are a JSON API. You must respond with valid JSON only, no other text.
Generate a comprehensive English lesson for topic: "%s".

The lesson should include:
1. A clear and detailed title.
2. A theory section structured as follows:
   - start with **Definition:**.
   - **Definition**: Provide a concise definition of the topic.
   - **Usage**: Explain when and how the topic is used, with examples.
   - **Formulas/Rules**: If applicable, include formulas or grammatical rules.
   - **Examples**: Provide multiple examples to illustrate the topic.
   - **Common Mistakes**: Highlight common errors and how to avoid them.
   - **Tips**: Offer practical tips for mastering the topic.
   - **Real-world Applications**: Explain how the topic can be applied in everyday situations or professional contexts.
3. Practice questions appropriate for the skill being taught.

Requirements for practice questions:
- Include 15+ practice questions, covering all 4 skills: Listening, Speaking, Reading, Writing.
- Listening: 4+ questions with "audioText" (simulate listening, at least 5 sentences).
- Speaking: 4+ speaking questions with evaluationCriteria (ignore Pronunciation and Intonation criteria).
- Reading: 4+ reading comprehension questions.
- Writing: 4+ essay questions with evaluationCriteria.
- For multiple-choice questions, options use keys like "A", "B", "C", "D" and correctAnswer matches the key (e.g., "A").
- Speaking and writing questions must present a specific real-life situation that requires at least 5 sentences.

You must respond with a JSON object in this exact format:
{
  "title": string,
  "theory": string,
  "questions": [
    {
      "question": string,
      "type": "multiple_choice" | "essay" | "speaking" | "categorization",
      "options": object (for multiple_choice and categorization only),
      "correctAnswer": string,
      "explanation": string,
      "evaluationCriteria": string[] (for essay and speaking),
      "audioText": string (optional),
      "timeLimit": number (optional)
    }
  ]
}

Do not include any text before or after the JSON object.`

const defaultSearchSize = 10

// LessonSearcher 是课程全文检索的接口，由 Elasticsearch 实现。
type LessonSearcher interface {
	SearchLessons(ctx context.Context, query, userID string, size int) ([]model.LessonSearchResult, error)
}

// LessonService 定义了课程相关的业务操作。
type LessonService interface {
	Generate(ctx context.Context, topic string) (*LessonInput, error)
	Save(ctx context.Context, userID, learningPathID string, lesson *LessonInput) (*model.Lesson, error)
	Get(ctx context.Context, userID, id string) (*model.Lesson, error)
	ListByPath(ctx context.Context, userID, learningPathID string) ([]model.Lesson, error)
	UpdateStatus(ctx context.Context, userID, id string, completed bool) (*model.Lesson, error)
	Search(ctx context.Context, query, userID string, size int) ([]model.LessonSearchResult, error)
}

type lessonService struct {
	lessonRepo repository.LessonRepository
	pathRepo   repository.LearningPathRepository
	llmClient  llm.Client
	searcher   LessonSearcher
	publisher  kafka.Publisher
}

// NewLessonService 创建一个新的 LessonService 实例。searcher 为 nil 时检索退化为 LIKE 查询。
func NewLessonService(lessonRepo repository.LessonRepository, pathRepo repository.LearningPathRepository, llmClient llm.Client, searcher LessonSearcher, publisher kafka.Publisher) LessonService {
	return &lessonService{
		lessonRepo: lessonRepo,
		pathRepo:   pathRepo,
		llmClient:  llmClient,
		searcher:   searcher,
		publisher:  publisher,
	}
}

// Generate 调用 LLM 生成课程。
func (s *lessonService) Generate(ctx context.Context, topic string) (*LessonInput, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errs.NewValidation("Validation failed", "topic is required")
	}

	completion, err := s.llmClient.Complete(ctx, fmt.Sprintf(lessonPrompt, topic))
	if err != nil {
		return nil, err
	}

	var lesson LessonInput
	if err := llm.DecodeStructured(completion.Text, lessonSchema, &lesson); err != nil {
		log.Warnw("课程输出无法解析", "topic", topic, "error", err)
		return nil, err
	}
	return &lesson, nil
}

// Save 将课程保存到用户的学习路线下，并异步写入检索索引。
func (s *lessonService) Save(ctx context.Context, userID, learningPathID string, in *LessonInput) (*model.Lesson, error) {
	// 1. 校验学习路线归属
	path, err := s.pathRepo.FindByID(ctx, learningPathID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NewNotFound("Learning path", errs.CodeLearningPathNotFound)
		}
		return nil, err
	}
	if userID != "" && path.UserID != userID {
		return nil, errs.NewNotFound("Learning path", errs.CodeLearningPathNotFound)
	}

	// 2. 保存课程与题目
	lesson := in.toModel(learningPathID)
	if lesson.LessonNumber == 0 {
		lesson.LessonNumber = len(path.Lessons) + 1
	}
	if err := s.lessonRepo.Create(ctx, lesson); err != nil {
		return nil, err
	}

	// 3. 投递索引任务，失败不影响保存结果
	task, err := tasks.New(tasks.TypeLessonIndex, tasks.LessonIndex{LessonID: lesson.ID})
	if err == nil {
		err = s.publisher.Publish(ctx, task)
	}
	if err != nil {
		log.Warnw("投递课程索引任务失败", "lessonId", lesson.ID, "error", err)
	}
	return lesson, nil
}

// Get 根据 ID 返回课程。其他用户的课程视为不存在。
func (s *lessonService) Get(ctx context.Context, userID, id string) (*model.Lesson, error) {
	if err := s.checkLessonOwner(ctx, userID, id); err != nil {
		return nil, err
	}
	lesson, err := s.lessonRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NewNotFound("Lesson", errs.CodeLessonNotFound)
		}
		return nil, err
	}
	return lesson, nil
}

// ListByPath 返回学习路线下的课程，只能查看自己的学习路线。
func (s *lessonService) ListByPath(ctx context.Context, userID, learningPathID string) ([]model.Lesson, error) {
	path, err := s.pathRepo.FindByID(ctx, learningPathID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NewNotFound("Learning path", errs.CodeLearningPathNotFound)
		}
		return nil, err
	}
	if path.UserID != userID {
		return nil, errs.NewNotFound("Learning path", errs.CodeLearningPathNotFound)
	}
	return s.lessonRepo.FindByPath(ctx, learningPathID)
}

// UpdateStatus 更新课程完成状态。
func (s *lessonService) UpdateStatus(ctx context.Context, userID, id string, completed bool) (*model.Lesson, error) {
	if err := s.checkLessonOwner(ctx, userID, id); err != nil {
		return nil, err
	}
	lesson, err := s.lessonRepo.UpdateStatus(ctx, id, completed)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NewNotFound("Lesson", errs.CodeLessonNotFound)
		}
		return nil, err
	}
	return lesson, nil
}

// checkLessonOwner 校验课程所属学习路线的用户。
func (s *lessonService) checkLessonOwner(ctx context.Context, userID, lessonID string) error {
	owner, err := s.lessonRepo.OwnerOf(ctx, lessonID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errs.NewNotFound("Lesson", errs.CodeLessonNotFound)
		}
		return err
	}
	if owner != userID {
		return errs.NewNotFound("Lesson", errs.CodeLessonNotFound)
	}
	return nil
}

// Search 检索用户自己的课程：优先使用 Elasticsearch，未启用时使用 LIKE 查询。
func (s *lessonService) Search(ctx context.Context, query, userID string, size int) ([]model.LessonSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.NewValidation("Validation failed", "q is required")
	}
	if size <= 0 {
		size = defaultSearchSize
	}

	if s.searcher != nil {
		return s.searcher.SearchLessons(ctx, query, userID, size)
	}

	lessons, err := s.lessonRepo.SearchLike(ctx, query, userID, size)
	if err != nil {
		return nil, err
	}
	results := make([]model.LessonSearchResult, 0, len(lessons))
	for _, l := range lessons {
		results = append(results, model.LessonSearchResult{
			LessonID:       l.ID,
			LearningPathID: l.LearningPathID,
			Title:          l.Title,
			Snippet:        es.Snippet(l.Theory, 200),
			LessonNumber:   l.LessonNumber,
		})
	}
	return results, nil
}

// lessonSource 将课程仓库适配为会话的 LessonSource。
type lessonSource struct {
	lessonRepo repository.LessonRepository
}

// NewLessonSource 创建会话使用的课程快照加载器。
func NewLessonSource(lessonRepo repository.LessonRepository) session.LessonSource {
	return &lessonSource{lessonRepo: lessonRepo}
}

// FindLesson 实现 session.LessonSource，课程不存在时返回 (nil, nil)。
func (s *lessonSource) FindLesson(ctx context.Context, lessonID string) (*session.LessonContext, error) {
	lesson, err := s.lessonRepo.FindByID(ctx, lessonID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	lc := &session.LessonContext{
		ID:        lesson.ID,
		Title:     lesson.Title,
		Theory:    lesson.Theory,
		Questions: make([]session.QuestionSummary, 0, len(lesson.Questions)),
	}
	for _, q := range lesson.Questions {
		lc.Questions = append(lc.Questions, session.QuestionSummary{
			ID:            q.ID,
			Question:      q.Question,
			Type:          q.Type,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}
	return lc, nil
}
