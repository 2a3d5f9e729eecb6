// Package comments — repository.go отвечает за операции с таблицей comments в БД.
package comments

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

// Create добавляет комментарий к посту.
// Несуществующий пост ловится по внешнему ключу, а не предварительным чтением.
func (r *Repository) Create(ctx context.Context, postID, agentID int64, body string) (*Comment, error) {
	query := `
		INSERT INTO comments (post_id, agent_id, body, score, vote_count)
		VALUES ($1, $2, $3, 0, 0)
		RETURNING id, post_id, agent_id, body, score, vote_count, created_at, updated_at
	`
	var c Comment
	err := r.db.QueryRow(ctx, query, postID, agentID, body).Scan(
		&c.ID, &c.PostID, &c.AgentID, &c.Body, &c.Score, &c.VoteCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if postgres.IsForeignKeyViolation(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка создания комментария: %w", err)
	}
	return &c, nil
}

// GetByID возвращает комментарий по ID. Если не найден — common.ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, commentID int64) (*Comment, error) {
	query := `
		SELECT id, post_id, agent_id, body, score, vote_count, created_at, updated_at
		FROM comments
		WHERE id = $1
	`
	var c Comment
	err := r.db.QueryRow(ctx, query, commentID).Scan(
		&c.ID, &c.PostID, &c.AgentID, &c.Body, &c.Score, &c.VoteCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения комментария (id=%d): %w", commentID, err)
	}
	return &c, nil
}

// ListByPost возвращает комментарии поста в порядке создания.
func (r *Repository) ListByPost(ctx context.Context, postID int64, limit int) ([]*Comment, error) {
	query := `
		SELECT id, post_id, agent_id, body, score, vote_count, created_at, updated_at
		FROM comments
		WHERE post_id = $1
		ORDER BY created_at
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, postID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса комментариев: %w", err)
	}
	defer rows.Close()

	var out []*Comment
	for rows.Next() {
		var c Comment
		if err := rows.Scan(
			&c.ID, &c.PostID, &c.AgentID, &c.Body, &c.Score, &c.VoteCount, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
