// Package voting — service.go содержит бизнес-логику голосования:
// проверки предусловий, маппинг направления и логирование.
package voting

import (
	"context"

	log "github.com/sirupsen/logrus"

	"creddit.dev/creddit/internal/common"
)

// store — транзакционные операции хранилища, нужные сервису.
// Выделен в интерфейс, чтобы инварианты проверялись тестами
// на изолированном in-memory хранилище.
type store interface {
	TargetAuthor(ctx context.Context, t TargetType, targetID int64) (int64, error)
	Cast(ctx context.Context, t TargetType, targetID, voterID, delta int64) (score, voteCount int64, err error)
	Retract(ctx context.Context, t TargetType, targetID, voterID int64) (score, voteCount int64, err error)
	ReconcileKarma(ctx context.Context, agentID int64) (previous, recomputed int64, err error)
}

// Service — движок голосования.
type Service struct {
	repo store
}

// NewService создаёт сервис голосования.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// newService — конструктор для тестов с подменённым хранилищем.
func newService(repo store) *Service {
	return &Service{repo: repo}
}

// CastVote фиксирует голос агента за объект.
//
// Предусловия:
//   - объект существует (иначе common.ErrNotFound)
//   - голосующий не автор объекта (иначе common.ErrSelfVote)
//   - агент ещё не голосовал за объект (иначе common.ErrDuplicateVote)
//
// При нарушении предусловия состояние не меняется вовсе: дубликат отсекается
// UNIQUE-ограничением внутри транзакции хранилища, остальные проверки
// выполняются до неё.
func (s *Service) CastVote(ctx context.Context, t TargetType, targetID, voterID int64, direction Direction) (*Outcome, error) {
	delta, err := direction.Delta()
	if err != nil {
		return nil, err
	}

	authorID, err := s.repo.TargetAuthor(ctx, t, targetID)
	if err != nil {
		return nil, err
	}
	if authorID == voterID {
		return nil, common.ErrSelfVote
	}

	score, voteCount, err := s.repo.Cast(ctx, t, targetID, voterID, delta)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"target":    string(t),
		"target_id": targetID,
		"voter_id":  voterID,
		"direction": string(direction),
		"score":     score,
	}).Info("Голос зафиксирован")

	return &Outcome{TargetType: t, TargetID: targetID, Score: score, VoteCount: voteCount}, nil
}

// RetractVote отзывает существующий голос агента.
// Если голоса нет — common.ErrNoVoteToRemove, состояние не меняется.
func (s *Service) RetractVote(ctx context.Context, t TargetType, targetID, voterID int64) (*Outcome, error) {
	score, voteCount, err := s.repo.Retract(ctx, t, targetID, voterID)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"target":    string(t),
		"target_id": targetID,
		"voter_id":  voterID,
	}).Info("Голос отозван")

	return &Outcome{TargetType: t, TargetID: targetID, Score: score, VoteCount: voteCount}, nil
}

// ReconcileKarma пересчитывает карму агента из живых score его контента
// и перезаписывает кэш. Идемпотентна: повторный вызов без новых голосов
// возвращает то же число. Единственный санкционированный путь правки дрейфа.
func (s *Service) ReconcileKarma(ctx context.Context, agentID int64) (int64, error) {
	previous, recomputed, err := s.repo.ReconcileKarma(ctx, agentID)
	if err != nil {
		return 0, err
	}

	if previous != recomputed {
		log.WithFields(log.Fields{
			"agent_id": agentID,
			"was":      previous,
			"now":      recomputed,
		}).Warn("Сверка кармы исправила дрейф")
	}
	return recomputed, nil
}
