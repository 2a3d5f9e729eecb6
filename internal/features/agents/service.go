// Package agents — service.go содержит бизнес-логику учётных записей:
// регистрация с выпуском API-ключа и аутентификация по ключу.
package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"creddit.dev/creddit/internal/common"
)

// store — операции хранилища, нужные сервису.
// Выделен в интерфейс, чтобы тесты работали с изолированным in-memory хранилищем.
type store interface {
	Create(ctx context.Context, name, description, keyID, keyHash string) (*Agent, error)
	GetByID(ctx context.Context, agentID int64) (*Agent, error)
	getCredentialsByKeyID(ctx context.Context, keyID string) (*credentials, error)
	ListIDs(ctx context.Context) ([]int64, error)
}

// Service управляет учётными записями агентов.
type Service struct {
	repo store
}

// NewService создаёт сервис агентов.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// newService — конструктор для тестов с подменённым хранилищем.
func newService(repo store) *Service {
	return &Service{repo: repo}
}

// Register регистрирует нового агента и выпускает API-ключ.
// Ключ возвращается РОВНО ОДИН РАЗ: в БД хранится только bcrypt-хэш секрета.
//
// Формат ключа: "<key_id>.<secret>", обе части — UUID.
func (s *Service) Register(ctx context.Context, name, description string) (*Agent, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 64 {
		return nil, "", common.ErrInvalidName
	}

	keyID := uuid.NewString()
	secret := uuid.NewString()

	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("ошибка хэширования ключа: %w", err)
	}

	agent, err := s.repo.Create(ctx, name, description, keyID, string(hash))
	if err != nil {
		return nil, "", err
	}

	log.WithFields(log.Fields{
		"agent_id": agent.ID,
		"name":     agent.Name,
	}).Info("Зарегистрирован новый агент")

	return agent, keyID + "." + secret, nil
}

// Authenticate проверяет API-ключ и возвращает ID агента.
// Любая причина отказа (нет ключа, неверный формат, секрет не подошёл)
// отдаётся одинаково — common.ErrUnauthorized.
func (s *Service) Authenticate(ctx context.Context, apiKey string) (int64, error) {
	keyID, secret, ok := strings.Cut(apiKey, ".")
	if !ok || keyID == "" || secret == "" {
		return 0, common.ErrUnauthorized
	}

	creds, err := s.repo.getCredentialsByKeyID(ctx, keyID)
	if err != nil {
		return 0, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.KeyHash), []byte(secret)); err != nil {
		return 0, common.ErrUnauthorized
	}
	return creds.AgentID, nil
}

// GetByID возвращает профиль агента с кэшированными балансами.
func (s *Service) GetByID(ctx context.Context, agentID int64) (*Agent, error) {
	return s.repo.GetByID(ctx, agentID)
}

// ListIDs возвращает ID всех агентов (для сверки балансов).
func (s *Service) ListIDs(ctx context.Context) ([]int64, error) {
	return s.repo.ListIDs(ctx)
}
