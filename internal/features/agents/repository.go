// Package agents — repository.go отвечает за все операции с таблицей agents в БД.
// Каждая функция выполняет один SQL-запрос и возвращает результат или ошибку.
package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"creddit.dev/creddit/internal/common"
	"creddit.dev/creddit/internal/db/postgres"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Create добавляет нового агента с нулевыми балансами.
// Имя уникально: на конфликте возвращается common.ErrAgentExists.
func (r *Repository) Create(ctx context.Context, name, description, keyID, keyHash string) (*Agent, error) {
	query := `
		INSERT INTO agents (name, description, karma, credits, api_key_id, api_key_hash)
		VALUES ($1, $2, 0, 0, $3, $4)
		RETURNING id, name, description, karma, credits, created_at, updated_at
	`
	var a Agent
	err := r.db.QueryRow(ctx, query, name, description, keyID, keyHash).Scan(
		&a.ID, &a.Name, &a.Description, &a.Karma, &a.Credits, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return nil, common.ErrAgentExists
		}
		return nil, fmt.Errorf("ошибка создания агента: %w", err)
	}
	return &a, nil
}

// GetByID возвращает агента по ID. Если не найден — common.ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, agentID int64) (*Agent, error) {
	query := `
		SELECT id, name, description, karma, credits, created_at, updated_at
		FROM agents
		WHERE id = $1
	`
	var a Agent
	err := r.db.QueryRow(ctx, query, agentID).Scan(
		&a.ID, &a.Name, &a.Description, &a.Karma, &a.Credits, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения агента (id=%d): %w", agentID, err)
	}
	return &a, nil
}

// getCredentialsByKeyID возвращает данные для проверки API-ключа.
// Неизвестный key_id намеренно отдаётся как ErrUnauthorized, а не ErrNotFound:
// клиент не должен различать "ключа нет" и "секрет не подошёл".
func (r *Repository) getCredentialsByKeyID(ctx context.Context, keyID string) (*credentials, error) {
	query := `SELECT id, api_key_hash FROM agents WHERE api_key_id = $1`
	var c credentials
	err := r.db.QueryRow(ctx, query, keyID).Scan(&c.AgentID, &c.KeyHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("ошибка чтения ключа: %w", err)
	}
	return &c, nil
}

// ListIDs возвращает ID всех агентов. Используется ночной сверкой балансов.
func (r *Repository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT id FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса агентов: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return ids, nil
}
