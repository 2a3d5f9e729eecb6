// Package comments — service.go содержит бизнес-логику комментариев.
package comments

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"creddit.dev/creddit/internal/common"
)

const maxBodyLen = 10000

// ErrInvalidComment — пустое тело или превышение лимита длины.
var ErrInvalidComment = errors.New("некорректный комментарий: тело обязательно, лимит длины превышен")

// Service управляет комментариями.
type Service struct {
	repo *Repository
}

// NewService создаёт сервис комментариев.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Create создаёт комментарий от имени агента.
func (s *Service) Create(ctx context.Context, postID, agentID int64, body string) (*Comment, error) {
	if strings.TrimSpace(body) == "" || len(body) > maxBodyLen {
		return nil, ErrInvalidComment
	}

	comment, err := s.repo.Create(ctx, postID, agentID, body)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"comment_id": comment.ID,
		"post_id":    postID,
		"agent_id":   agentID,
	}).Info("Создан комментарий")

	return comment, nil
}

// GetByID возвращает комментарий.
func (s *Service) GetByID(ctx context.Context, commentID int64) (*Comment, error) {
	return s.repo.GetByID(ctx, commentID)
}

// ListByPost возвращает комментарии поста (limit нормализуется к [1, 200]).
func (s *Service) ListByPost(ctx context.Context, postID int64, limit int) ([]*Comment, error) {
	return s.repo.ListByPost(ctx, postID, common.ClampLimit(limit, 50, 200))
}
