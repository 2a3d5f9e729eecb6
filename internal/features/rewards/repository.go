// Package rewards — repository.go выполняет все операции с таблицами
// rewards, transactions и redemptions.
//
// Все денежные операции выполняются в транзакциях БД: проверка баланса и
// списание защищены блокировкой строки агента (SELECT ... FOR UPDATE),
// поэтому два конкурентных списания сериализуются и баланс не уходит в минус.
package rewards

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"creddit.dev/creddit/internal/common"
)

// Repository предоставляет методы для работы с леджером кредитов.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт новый репозиторий леджера.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// GetReward возвращает награду по ID. Если не найдена — common.ErrRewardNotFound.
func (r *Repository) GetReward(ctx context.Context, rewardID int64) (*Reward, error) {
	query := `
		SELECT id, name, description, credit_cost, reward_type, active, created_at
		FROM rewards
		WHERE id = $1
	`
	var rw Reward
	err := r.db.QueryRow(ctx, query, rewardID).Scan(
		&rw.ID, &rw.Name, &rw.Description, &rw.CreditCost, &rw.Type, &rw.Active, &rw.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrRewardNotFound
		}
		return nil, fmt.Errorf("ошибка чтения награды (id=%d): %w", rewardID, err)
	}
	return &rw, nil
}

// ListActiveRewards возвращает активные позиции каталога.
func (r *Repository) ListActiveRewards(ctx context.Context) ([]*Reward, error) {
	query := `
		SELECT id, name, description, credit_cost, reward_type, active, created_at
		FROM rewards
		WHERE active = TRUE
		ORDER BY credit_cost, id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса каталога: %w", err)
	}
	defer rows.Close()

	var out []*Reward
	for rows.Next() {
		var rw Reward
		if err := rows.Scan(
			&rw.ID, &rw.Name, &rw.Description, &rw.CreditCost, &rw.Type, &rw.Active, &rw.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования строки: %w", err)
		}
		out = append(out, &rw)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// CreateReward добавляет позицию в каталог (админская операция).
func (r *Repository) CreateReward(ctx context.Context, name, description string, creditCost int64, rewardType string) (*Reward, error) {
	query := `
		INSERT INTO rewards (name, description, credit_cost, reward_type, active)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, name, description, credit_cost, reward_type, active, created_at
	`
	var rw Reward
	err := r.db.QueryRow(ctx, query, name, description, creditCost, rewardType).Scan(
		&rw.ID, &rw.Name, &rw.Description, &rw.CreditCost, &rw.Type, &rw.Active, &rw.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания награды: %w", err)
	}
	return &rw, nil
}

// DeactivateReward снимает награду с публикации.
// Прошлые покупки не трогаются: деактивация не ретроактивна.
func (r *Repository) DeactivateReward(ctx context.Context, rewardID int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE rewards SET active = FALSE WHERE id = $1`, rewardID)
	if err != nil {
		return fmt.Errorf("ошибка деактивации награды: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrRewardNotFound
	}
	return nil
}

// Convert атомарно конвертирует карму в кредиты:
// списывает карму, зачисляет кредиты и добавляет запись в transactions.
// Проверка баланса кармы выполняется под блокировкой строки агента.
func (r *Repository) Convert(ctx context.Context, agentID, karmaAmount, credits int64) (*ConversionResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	// Блокируем строку агента и проверяем карму
	var karma int64
	if err := tx.QueryRow(ctx, `
		SELECT karma FROM agents WHERE id = $1 FOR UPDATE
	`, agentID).Scan(&karma); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения баланса кармы: %w", err)
	}
	if karma < karmaAmount {
		return nil, common.ErrInsufficientKarma
	}

	// Списываем карму, зачисляем кредиты
	var result ConversionResult
	result.KarmaSpent = karmaAmount
	result.CreditsEarned = credits
	if err := tx.QueryRow(ctx, `
		UPDATE agents
		SET karma = karma - $2, credits = credits + $3, updated_at = NOW()
		WHERE id = $1
		RETURNING karma, credits
	`, agentID, karmaAmount, credits).Scan(&result.KarmaRemaining, &result.CreditBalance); err != nil {
		return nil, fmt.Errorf("ошибка обновления балансов: %w", err)
	}

	// Записываем транзакцию в историю
	if _, err := tx.Exec(ctx, `
		INSERT INTO transactions (agent_id, karma_spent, credits_earned)
		VALUES ($1, $2, $3)
	`, agentID, karmaAmount, credits); err != nil {
		return nil, fmt.Errorf("ошибка записи транзакции: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return &result, nil
}

/// Redeem атомарно покупает награду: списывает кредиты и создаёт покупку
// со статусом pending. Баланс проверяется под блокировкой строки агента.
func (r *Repository) Redeem(ctx context.Context, agentID, rewardID, creditCost int64) (*RedemptionResult, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var credits int64
	if err := tx.QueryRow(ctx, `
		SELECT credits FROM agents WHERE id = $1 FOR UPDATE
	`, agentID).Scan(&credits); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения баланса кредитов: %w", err)
	}
	if credits < creditCost {
		return nil, common.ErrInsufficientCredits
	}

	result := RedemptionResult{
		RewardID:     rewardID,
		CreditsSpent: creditCost,
		Status:       StatusPending,
	}
	if err := tx.QueryRow(ctx, `
		UPDATE agents SET credits = credits - $2, updated_at = NOW()
		WHERE id = $1
		RETURNING credits
	`, agentID, creditCost).Scan(&result.CreditBalance); err != nil {
		return nil, fmt.Errorf("ошибка списания кредитов: %w", err)
	}

	if err := tx.QueryRow(ctx, `
		INSERT INTO redemptions (agent_id, reward_id, credits_spent, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id
	`, agentID, rewardID, creditCost).Scan(&result.RedemptionID); err != nil {
		return nil, fmt.Errorf("ошибка записи покупки: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return &result, nil
}

// Fulfill помечает покупку выданной. Выдать можно только pending-покупку:
// fulfilled — терминальный статус, по failed возврат уже сделан.
func (r *Repository) Fulfill(ctx context.Context, redemptionID int64) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, _, err := lockRedemption(ctx, tx, redemptionID)
	if err != nil {
		return err
	}
	switch status {
	case StatusFulfilled:
		return common.ErrAlreadyFulfilled
	case StatusFailed:
		return common.ErrAlreadyRefunded
	}

	if _, err := tx.Exec(ctx, `
		UPDATE redemptions SET status = 'fulfilled', fulfilled_at = NOW()
		WHERE id = $1
	`, redemptionID); err != nil {
		return fmt.Errorf("ошибка обновления статуса: %w", err)
	}

	return tx.Commit(ctx)
}

// Refund атомарно возвращает кредиты за несостоявшуюся покупку и помечает
// её failed. Возврат возможен РОВНО ОДИН РАЗ и только из статуса pending:
// по fulfilled — common.ErrAlreadyFulfilled, по failed — common.ErrAlreadyRefunded.
func (r *Repository) Refund(ctx context.Context, redemptionID int64) (*Redemption, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	status, agentID, creditsSpent, err := lockRedemption(ctx, tx, redemptionID)
	if err != nil {
		return nil, err
	}
	switch status {
	case StatusFulfilled:
		return nil, common.ErrAlreadyFulfilled
	case StatusFailed:
		return nil, common.ErrAlreadyRefunded
	}

	var red Redemption
	if err := tx.QueryRow(ctx, `
		UPDATE redemptions SET status = 'failed'
		WHERE id = $1
		RETURNING id, agent_id, reward_id, credits_spent, status, created_at, fulfilled_at
	`, redemptionID).Scan(
		&red.ID, &red.AgentID, &red.RewardID, &red.CreditsSpent, &red.Status, &red.CreatedAt, &red.FulfilledAt,
	); err != nil {
		return nil, fmt.Errorf("ошибка обновления статуса: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE agents SET credits = credits + $2, updated_at = NOW() WHERE id = $1
	`, agentID, creditsSpent); err != nil {
		return nil, fmt.Errorf("ошибка возврата кредитов: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return &red, nil
}

// lockRedemption блокирует строку покупки и возвращает её статус и сумму.
func lockRedemption(ctx context.Context, tx pgx.Tx, redemptionID int64) (status string, agentID, creditsSpent int64, err error) {
	err = tx.QueryRow(ctx, `
		SELECT status, agent_id, credits_spent FROM redemptions WHERE id = $1 FOR UPDATE
	`, redemptionID).Scan(&status, &agentID, &creditsSpent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, 0, common.ErrNotFound
		}
		return "", 0, 0, fmt.Errorf("ошибка чтения покупки: %w", err)
	}
	return status, agentID, creditsSpent, nil
}

// GetCreditBalance возвращает кэшированный баланс и агрегаты из истории.
// Агрегаты считаются по источникам истины (transactions и fulfilled-покупки),
// чтобы кэш можно было сверить на дрейф.
func (r *Repository) GetCreditBalance(ctx context.Context, agentID int64) (*CreditBalance, error) {
	var b CreditBalance
	err := r.db.QueryRow(ctx, `
		SELECT a.credits,
		       COALESCE((SELECT SUM(t.credits_earned) FROM transactions t WHERE t.agent_id = a.id), 0),
		       COALESCE((SELECT SUM(rd.credits_spent) FROM redemptions rd
		                 WHERE rd.agent_id = a.id AND rd.status = 'fulfilled'), 0)
		FROM agents a
		WHERE a.id = $1
	`, agentID).Scan(&b.Available, &b.TotalEarned, &b.TotalSpent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка чтения баланса: %w", err)
	}
	return &b, nil
}

// ReconcileCredits пересчитывает кэш кредитов строго из истории:
// сумма заработанного по transactions минус сумма потраченного по
// fulfilled-покупкам. Строка агента блокируется FOR UPDATE, поэтому
// конкурентные конвертации и покупки сериализуются со сверкой.
// Возвращает старое и новое значение.
func (r *Repository) ReconcileCredits(ctx context.Context, agentID int64) (previous, recomputed int64, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.QueryRow(ctx, `
		SELECT credits FROM agents WHERE id = $1 FOR UPDATE
	`, agentID).Scan(&previous); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, common.ErrNotFound
		}
		return 0, 0, fmt.Errorf("ошибка чтения баланса: %w", err)
	}

	if err := tx.QueryRow(ctx, `
		SELECT COALESCE((SELECT SUM(credits_earned) FROM transactions WHERE agent_id = $1), 0)
		     - COALESCE((SELECT SUM(credits_spent) FROM redemptions
		                 WHERE agent_id = $1 AND status = 'fulfilled'), 0)
	`, agentID).Scan(&recomputed); err != nil {
		return 0, 0, fmt.Errorf("ошибка пересчёта баланса: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE agents SET credits = $2, updated_at = NOW() WHERE id = $1
	`, agentID, recomputed); err != nil {
		return 0, 0, fmt.Errorf("ошибка перезаписи баланса: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, fmt.Errorf("ошибка фиксации транзакции: %w", err)
	}
	return previous, recomputed, nil
}

// ListTransactions возвращает последние N конвертаций агента.
func (r *Repository) ListTransactions(ctx context.Context, agentID int64, limit int) ([]*Transaction, error) {
	query := `
		SELECT id, agent_id, karma_spent, credits_earned, created_at
		FROM transactions
		WHERE agent_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса транзакций: %w", err)
	}
	defer rows.Close()

	var out []*Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.AgentID, &t.KarmaSpent, &t.CreditsEarned, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("ошибка сканирования транзакции: %w", err)
		}
		out = append(out, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}

// ListRedemptions возвращает последние N покупок агента.
func (r *Repository) ListRedemptions(ctx context.Context, agentID int64, limit int) ([]*Redemption, error) {
	query := `
		SELECT id, agent_id, reward_id, credits_spent, status, created_at, fulfilled_at
		FROM redemptions
		WHERE agent_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, query, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса покупок: %w", err)
	}
	defer rows.Close()

	var out []*Redemption
	for rows.Next() {
		var red Redemption
		if err := rows.Scan(
			&red.ID, &red.AgentID, &red.RewardID, &red.CreditsSpent, &red.Status, &red.CreatedAt, &red.FulfilledAt,
		); err != nil {
			return nil, fmt.Errorf("ошибка сканирования покупки: %w", err)
		}
		out = append(out, &red)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения строк: %w", err)
	}
	return out, nil
}
