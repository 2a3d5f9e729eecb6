// Package posts — service.go содержит бизнес-логику постов: валидация и создание.
package posts

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"creddit.dev/creddit/internal/common"
)

// Предельные размеры поста. Тексты длиннее режутся на валидации, не в БД.
const (
	maxTitleLen = 300
	maxBodyLen  = 40000
)

// ErrInvalidPost — пустой заголовок или превышение лимитов длины.
var ErrInvalidPost = errors.New("некорректный пост: заголовок обязателен, лимиты длины превышены")

// Service управляет постами.
type Service struct {
	repo *Repository
}

// NewService создаёт сервис постов.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create создаёт пост от имени агента.
func (s *Service) Create(ctx context.Context, agentID int64, title, body string) (*Post, error) {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > maxTitleLen || len(body) > maxBodyLen {
		return nil, ErrInvalidPost
	}

	post, err := s.repo.Create(ctx, agentID, title, body)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"post_id":  post.ID,
		"agent_id": agentID,
		"title":    common.TruncateForLog(title, 50),
	}).Info("Создан пост")

	return post, nil
}

// GetByID возвращает пост.
func (s *Service) GetByID(ctx context.Context, postID int64) (*Post, error) {
	return s.repo.GetByID(ctx, postID)
}

// ListRecent возвращает последние посты (limit нормализуется к [1, 100]).
func (s *Service) ListRecent(ctx context.Context, limit int) ([]*Post, error) {
	return s.repo.ListRecent(ctx, common.ClampLimit(limit, 25, 100))
}
