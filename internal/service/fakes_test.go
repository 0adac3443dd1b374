package service

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"ielts-tutor-go/internal/model"
	"ielts-tutor-go/internal/repository"
	"ielts-tutor-go/pkg/storage"
	"ielts-tutor-go/pkg/tasks"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[string]*model.User{}}
}

func (r *fakeUserRepo) Create(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) Update(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

type fakeTokenRepo struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{revoked: map[string]time.Duration{}}
}

func (r *fakeTokenRepo) Revoke(_ context.Context, id string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[id] = ttl
	return nil
}

func (r *fakeTokenRepo) IsRevoked(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[id]
	return ok, nil
}

// fakeContentRepo 同时实现学习路线与课程仓库。
type fakeContentRepo struct {
	mu      sync.Mutex
	paths   map[string]*model.LearningPath
	lessons map[string]*model.Lesson
}

func newFakeContentRepo() *fakeContentRepo {
	return &fakeContentRepo{paths: map[string]*model.LearningPath{}, lessons: map[string]*model.Lesson{}}
}

func (r *fakeContentRepo) Create(_ context.Context, path *model.LearningPath) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if path.ID == "" {
		path.ID = uuid.NewString()
	}
	for i := range path.Lessons {
		path.Lessons[i].ID = uuid.NewString()
		path.Lessons[i].LearningPathID = path.ID
		l := path.Lessons[i]
		r.lessons[l.ID] = &l
	}
	r.paths[path.ID] = path
	return nil
}

func (r *fakeContentRepo) FindByUser(_ context.Context, userID string) ([]model.LearningPath, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.LearningPath{}
	for _, p := range r.paths {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *fakeContentRepo) FindByID(_ context.Context, id string) (*model.LearningPath, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.paths[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

type fakeLessonRepo struct {
	*fakeContentRepo
}

func (r fakeLessonRepo) Create(_ context.Context, lesson *model.Lesson) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if lesson.ID == "" {
		lesson.ID = uuid.NewString()
	}
	r.lessons[lesson.ID] = lesson
	return nil
}

func (r fakeLessonRepo) FindByID(_ context.Context, id string) (*model.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.lessons[id]; ok {
		return l, nil
	}
	return nil, repository.ErrNotFound
}

func (r fakeLessonRepo) FindByPath(_ context.Context, pathID string) ([]model.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Lesson{}
	for _, l := range r.lessons {
		if l.LearningPathID == pathID {
			out = append(out, *l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessonNumber < out[j].LessonNumber })
	return out, nil
}

func (r fakeLessonRepo) UpdateStatus(_ context.Context, id string, completed bool) (*model.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lessons[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	l.IsCompleted = completed
	return l, nil
}

func (r fakeLessonRepo) SearchLike(_ context.Context, query, userID string, limit int) ([]model.Lesson, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []model.Lesson{}
	for _, l := range r.lessons {
		p, ok := r.paths[l.LearningPathID]
		if !ok || p.UserID != userID {
			continue
		}
		if strings.Contains(l.Title, query) || strings.Contains(l.Theory, query) {
			out = append(out, *l)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r fakeLessonRepo) FindQuestion(_ context.Context, questionID string) (*model.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lessons {
		for i := range l.Questions {
			if l.Questions[i].ID == questionID {
				return &l.Questions[i], nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (r fakeLessonRepo) OwnerOf(_ context.Context, lessonID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.lessons[lessonID]
	if !ok {
		return "", repository.ErrNotFound
	}
	return r.paths[l.LearningPathID].UserID, nil
}

type fakePublisher struct {
	mu    sync.Mutex
	tasks []tasks.Task
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, task tasks.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.tasks = append(p.tasks, task)
	return nil
}

func (p *fakePublisher) Published() []tasks.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]tasks.Task(nil), p.tasks...)
}

type fakeConversationRepo struct {
	mu       sync.Mutex
	messages map[string][]model.ChatMessage
	owners   map[string]string
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{messages: map[string][]model.ChatMessage{}, owners: map[string]string{}}
}

func (r *fakeConversationRepo) Append(_ context.Context, sessionID, ownerID string, msgs ...model.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[sessionID] = append(r.messages[sessionID], msgs...)
	if _, ok := r.owners[sessionID]; !ok && ownerID != "" {
		r.owners[sessionID] = ownerID
	}
	return nil
}

func (r *fakeConversationRepo) Owner(_ context.Context, sessionID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.owners[sessionID], nil
}

func (r *fakeConversationRepo) History(_ context.Context, sessionID string, limit int64) ([]model.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msgs := r.messages[sessionID]
	if limit > 0 && int64(len(msgs)) > limit {
		msgs = msgs[int64(len(msgs))-limit:]
	}
	return append([]model.ChatMessage{}, msgs...), nil
}

type fakeAudioStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newFakeAudioStore() *fakeAudioStore {
	return &fakeAudioStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (s *fakeAudioStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) (*storage.ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	s.types[key] = contentType
	return &storage.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: contentType}, nil
}

func (s *fakeAudioStore) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "http://minio.local/ielts-audio/" + key + "?X-Amz-Signature=test", nil
}
