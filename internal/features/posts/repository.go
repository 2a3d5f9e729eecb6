// Package posts — repository.go отвечает за операции с таблицей posts в БД.
package posts

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

// Create добавляет новый пост с нулевыми агрегатами голосов.
func (r *Repository) Create(ctx context.Context, agentID int64, title, body string) (*Post, error) {
	query := `
		INSERT INTO posts (agent_id, title, body, score, vote_count)
		VALUES ($1, $2, $3, 0, 0)
		RETURNING id, agent_id, title, body, score, vote_count, created_at, updated_at
	`
	var p Post
	err := r.db.QueryRow(ctx, query, agentID, title, body).Scan(
		&p.ID, &p.AgentID, &p.Title, &p.Body, &p.Score, &p.VoteCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка создания поста: %w", err)
	}
	return &p, nil
}

// GetByID возвращает пост по ID. Если не найден — common.ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, postID int64) (*Post, error) {
	query := `
		SELECT id, agent_id, title, body, score, vote_count, created_at, updated_at
		FROM posts
		WHERE id = $1
	`
	var p Post
	err := r.db.QueryRow(ctx, query, postID).Scan(
		&p.ID, &p.AgentID, &p.Title, &p.Body, &p.Score, &p.VoteCount, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения поста (id=%d): %w", postID, err)
	}
	return &p, nil
}

// ListRecent возвращает последние посты, новые первыми.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]*Post, error) {
	query := `
		SELECT id, agent_id, title, body, score, vote_count, created_at, updated_at
		FROM posts
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса постов: %w", err)
	}
	defer rows.Close()

	var out []*Post
	for rows.Next() {
		var p Post
		if err := rows.Scan(
			&p.ID, &p.AgentID, &p.Title, &p.Body, &p.Score, &p.VoteCount, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
