package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ielts-tutor-go/internal/model"
	"ielts-tutor-go/internal/repository"
	"ielts-tutor-go/pkg/errs"
	"ielts-tutor-go/pkg/llm"
	"ielts-tutor-go/pkg/log"
)

const learningPathPrompt = `You are a JSON API. You must respond with valid JSON only, no other text.
Generate a detailed English learning path from level %s to %s.
Focus on essential English language skills and practical communication abilities.

For each main topic, create specific lesson parts. For example:
- If a topic has 5 lessons, create 5 specific parts
- If a topic has 10 lessons, create 10 specific parts

Include the following information:
1. Total number of lessons needed
2. Main topics with specific lesson parts (each part should be a complete lesson topic)
3. Estimated time for each topic
4. Key skills to develop

You must respond with a JSON object in this exact format:
{
  "title": string,
  "description": string,
  "totalLessons": number,
  "topics": string[],
  "estimatedTime": string,
  "keySkills": string[]
}

Example of how to structure topics with parts:
[
  "Expanding Vocabulary: Everyday situations, work, travel (Part 1/10) - Basic workplace vocabulary",
  "Grammar Fundamentals: Tenses, articles, prepositions (Part 1/5) - Present Simple and Continuous",
  "Speaking Skills: Role-playing and discussions (Part 1/10) - Self-introduction and greetings"
]

Each topic part should be specific and focused on a particular aspect of the main topic.
Make sure to include the part number and total parts in each topic name (e.g., "Part 1/10").

Do not include any text before or after the JSON object.`

// SaveLearningPathRequest 是保存学习路线的请求，CurrentLesson 可选。
type SaveLearningPathRequest struct {
	LearningPath  *LearningPathInput `json:"learningPath"`
	CurrentLesson *LessonInput       `json:"currentLesson,omitempty"`
}

// LearningPathService 定义了学习路线相关的业务操作。
type LearningPathService interface {
	Generate(ctx context.Context, startLevel, targetLevel string) (*LearningPathInput, error)
	Save(ctx context.Context, userID string, req SaveLearningPathRequest) (*model.LearningPath, error)
	List(ctx context.Context, userID string) ([]model.LearningPath, error)
	Get(ctx context.Context, id string) (*model.LearningPath, error)
}

type learningPathService struct {
	pathRepo  repository.LearningPathRepository
	llmClient llm.Client
}

// NewLearningPathService 创建一个新的 LearningPathService 实例。
func NewLearningPathService(pathRepo repository.LearningPathRepository, llmClient llm.Client) LearningPathService {
	return &learningPathService{pathRepo: pathRepo, llmClient: llmClient}
}

// Generate 调用 LLM 生成学习路线，输出需通过 schema 校验。
func (s *learningPathService) Generate(ctx context.Context, startLevel, targetLevel string) (*LearningPathInput, error) {
	startLevel, targetLevel = strings.TrimSpace(startLevel), strings.TrimSpace(targetLevel)
	var problems []string
	if startLevel == "" {
		problems = append(problems, "startLevel is required")
	}
	if targetLevel == "" {
		problems = append(problems, "targetLevel is required")
	}
	if len(problems) > 0 {
		return nil, errs.NewValidation("Validation failed", problems...)
	}

	completion, err := s.llmClient.Complete(ctx, fmt.Sprintf(learningPathPrompt, startLevel, targetLevel))
	if err != nil {
		return nil, err
	}

	var path LearningPathInput
	if err := llm.DecodeStructured(completion.Text, learningPathSchema, &path); err != nil {
		log.Warnw("学习路线输出无法解析", "raw", completion.Text, "error", err)
		return nil, err
	}
	return &path, nil
}

// Save 保存学习路线，CurrentLesson 不为空时一并创建第一节课。
func (s *learningPathService) Save(ctx context.Context, userID string, req SaveLearningPathRequest) (*model.LearningPath, error) {
	if req.LearningPath == nil || strings.TrimSpace(req.LearningPath.Title) == "" {
		return nil, errs.NewValidation("learningPath is required", "learningPath.title is required")
	}
	in := req.LearningPath
	path := &model.LearningPath{
		UserID:        userID,
		Title:         in.Title,
		Description:   in.Description,
		Topics:        in.Topics,
		TotalLessons:  in.TotalLessons,
		EstimatedTime: in.EstimatedTime,
		KeySkills:     in.KeySkills,
	}
	if req.CurrentLesson != nil {
		lesson := req.CurrentLesson.toModel("")
		if lesson.LessonNumber == 0 {
			lesson.LessonNumber = 1
		}
		path.Lessons = []model.Lesson{*lesson}
	}

	if err := s.pathRepo.Create(ctx, path); err != nil {
		return nil, err
	}
	log.Infow("学习路线已保存", "userId", userID, "learningPathId", path.ID, "lessons", len(path.Lessons))
	return path, nil
}

// List 返回用户的全部学习路线。
func (s *learningPathService) List(ctx context.Context, userID string) ([]model.LearningPath, error) {
	return s.pathRepo.FindByUser(ctx, userID)
}

// Get 根据 ID 返回学习路线。
func (s *learningPathService) Get(ctx context.Context, id string) (*model.LearningPath, error) {
	path, err := s.pathRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errs.NewNotFound("Learning path", errs.CodeLearningPathNotFound)
		}
		return nil, err
	}
	return path, nil
}
