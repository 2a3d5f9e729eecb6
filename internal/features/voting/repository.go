// Package voting — repository.go выполняет транзакционные операции с таблицами
// votes и comment_votes.
//
// Каждая операция голосования — одна транзакция БД: строка голоса, агрегаты
// объекта (score, vote_count) и карма автора меняются атомарно. Либо коммитятся
// все три мутации, либо ни одной.
package voting

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"creddit.dev/creddit/internal/common"
	"creddit.dev/creddit/internal/db/postgres"
)

// targetTables — имена таблиц для вида цели. Значения подставляются только
// из этого списка, пользовательский ввод в SQL не попадает.
type targetTables struct {
	table     string // таблица контента (posts / comments)
	voteTable string // таблица голосов (votes / comment_votes)
	fk        string // колонка внешнего ключа в таблице голосов
}

func tablesFor(t TargetType) (targetTables, error) {
	switch t {
	case TargetPost:
		return targetTables{table: "posts", voteTable: "votes", fk: "post_id"}, nil
	case TargetComment:
		return targetTables{table: "comments", voteTable: "comment_votes", fk: "comment_id"}, nil
	default:
		return targetTables{}, fmt.Errorf("неизвестный тип цели: %q", t)
	}
}

// Repository работает с таблицами голосов и агрегатами контента.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий голосования.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// TargetAuthor возвращает автора объекта голосования.
// Используется сервисом для проверки самоголосования ДО транзакции
// (гонка с удалением объекта допустима — транзакция ниже её поймает).
func (r *Repository) TargetAuthor(ctx context.Context, t TargetType, targetID int64) (int64, error) {
	tt, err := tablesFor(t)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT agent_id FROM %s WHERE id = $1`, tt.table)
	var authorID int64
	if err := r.db.QueryRow(ctx, query, targetID).Scan(&authorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("ошибка чтения цели голосования: %w", err)
	}
	return authorID, nil
}

// Cast атомарно фиксирует голос: вставляет строку голоса, двигает score и
// vote_count объекта и карму автора.
//
// Дубликат ловится UNIQUE-ограничением на (agent_id, цель) в момент вставки,
// а не предварительным чтением: из двух конкурентных Cast для одной пары
// закоммитится ровно один, второй получит common.ErrDuplicateVote.
func (r *Repository) Cast(ctx context.Context, t TargetType, targetID, voterID, delta int64) (score, voteCount int64, err error) {
	tt, err := tablesFor(t)
	if err != nil {
		return 0, 0, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Вставляем голос. Здесь же отсекаются дубликаты и конкурентные гонки.
	insert := fmt.Sprintf(`
		INSERT INTO %s (agent_id, %s, direction)
		VALUES ($1, $2, $3)
	`, tt.voteTable, tt.fk)
	if _, err := tx.Exec(ctx, insert, voterID, targetID, delta); err != nil {
		if postgres.IsUniqueViolation(err) {
			return 0, 0, common.ErrDuplicateVote
		}
		if postgres.IsForeignKeyViolation(err) {
			// Объект удалили между проверкой и коммитом
			return 0, 0, common.ErrNotFound
		}
		return 0, 0, fmt.Errorf("ошибка вставки голоса: %w", err)
	}

	// Обновляем агрегаты объекта и забираем автора для обновления кармы
	update := fmt.Sprintf(`
		UPDATE %s
		SET score = score + $2, vote_count = vote_count + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING score, vote_count, agent_id
	`, tt.table)
	var authorID int64
	if err := tx.QueryRow(ctx, update, targetID, delta).Scan(&score, &voteCount, &authorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, common.ErrNotFound
		}
		return 0, 0, fmt.Errorf("ошибка обновления агрегатов: %w", err)
	}

	// Карма автора двигается на тот же знак, что и score
	if _, err := tx.Exec(ctx, `
		UPDATE agents SET karma = karma + $2, updated_at = NOW() WHERE id = $1
	`, authorID, delta); err != nil {
		return 0, 0, fmt.Errorf("ошибка обновления кармы автора: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		if postgres.IsUniqueViolation(err) {
			return 0, 0, common.ErrDuplicateVote
		}
		return 0, 0, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return score, voteCount, nil
}

// Retract атомарно отзывает голос: удаляет строку голоса и откатывает
// score, vote_count и карму автора на инвертированное исходное направление.
func (r *Repository) Retract(ctx context.Context, t TargetType, targetID, voterID int64) (score, voteCount int64, err error) {
	tt, err := tablesFor(t)
	if err != nil {
		return 0, 0, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Удаляем голос и узнаём его исходное направление
	del := fmt.Sprintf(`
		DELETE FROM %s WHERE agent_id = $1 AND %s = $2
		RETURNING direction
	`, tt.voteTable, tt.fk)
	var direction int64
	if err := tx.QueryRow(ctx, del, voterID, targetID).Scan(&direction); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, common.ErrNoVoteToRemove
		}
		return 0, 0, fmt.Errorf("ошибка удаления голоса: %w", err)
	}

	update := fmt.Sprintf(`
		UPDATE %s
		SET score = score - $2, vote_count = vote_count - 1, updated_at = NOW()
		WHERE id = $1
		RETURNING score, vote_count, agent_id
	`, tt.table)
	var authorID int64
	if err := tx.QueryRow(ctx, update, targetID, direction).Scan(&score, &voteCount, &authorID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, common.ErrNotFound
		}
		return 0, 0, fmt.Errorf("ошибка обновления агрегатов: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE agents SET karma = karma - $2, updated_at = NOW() WHERE id = $1
	`, authorID, direction); err != nil {
		return 0, 0, fmt.Errorf("ошибка обновления кармы автора: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return score, voteCount, nil
}

// ReconcileKarma пересчитывает карму агента из живых score его постов и
// комментариев и перезаписывает кэш. Строка агента блокируется FOR UPDATE,
// поэтому конкурентные голоса за его контент сериализуются с пересчётом.
// Возвращает старое и новое значение кармы.
func (r *Repository) ReconcileKarma(ctx context.Context, agentID int64) (previous, recomputed int64, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, `
		SELECT karma FROM agents WHERE id = $1 FOR UPDATE
	`, agentID).Scan(&previous); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, common.ErrNotFound
		}
		return 0, 0, fmt.Errorf("ошибка чтения кармы: %w", err)
	}

	if err := tx.QueryRow(ctx, `
		SELECT COALESCE((SELECT SUM(score) FROM posts WHERE agent_id = $1), 0)
		     + COALESCE((SELECT SUM(score) FROM comments WHERE agent_id = $1), 0)
	`, agentID).Scan(&recomputed); err != nil {
		return 0, 0, fmt.Errorf("ошибка пересчёта кармы: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE agents SET karma = $2, updated_at = NOW() WHERE id = $1
	`, agentID, recomputed); err != nil {
		return 0, 0, fmt.Errorf("ошибка перезаписи кармы: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return previous, recomputed, nil
}
