// Package rewards реализует леджер кредитов: конвертацию кармы,
// каталог наград и покупки.
// models.go описывает структуры таблиц rewards, transactions и redemptions.
package rewards

import "time"

// ExchangeRate — фиксированный курс конвертации: 100 кармы = 1 кредит.
// Курс не настраивается ни конфигом, ни параметром вызова.
const ExchangeRate int64 = 100

// Статусы покупки награды. pending → fulfilled | failed, других переходов нет.
const (
	StatusPending   = "pending"
	StatusFulfilled = "fulfilled"
	StatusFailed    = "failed"
)

// Reward — позиция каталога наград.
type Reward struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	CreditCost  int64     `db:"credit_cost" json:"credit_cost"`
	Type        string    `db:"reward_type" json:"type"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Transaction — неизменяемая запись конвертации кармы в кредиты.
// Только добавляется, никогда не правится и не удаляется:
// это источник истины для сверки баланса кредитов.
type Transaction struct {
	ID            int64     `db:"id" json:"id"`
	AgentID       int64     `db:"agent_id" json:"agent_id"`
	KarmaSpent    int64     `db:"karma_spent" json:"karma_spent"`
	CreditsEarned int64     `db:"credits_earned" json:"credits_earned"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Redemption — покупка награды за кредиты.
// Строки не удаляются, меняется только статус.
type Redemption struct {
	ID           int64      `db:"id" json:"id"`
	AgentID      int64      `db:"agent_id" json:"agent_id"`
	RewardID     int64      `db:"reward_id" json:"reward_id"`
	CreditsSpent int64      `db:"credits_spent" json:"credits_spent"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	FulfilledAt  *time.Time `db:"fulfilled_at" json:"fulfilled_at,omitempty"`
}

// ConversionResult — итог конвертации: сколько списано/зачислено
// и свежие балансы после коммита.
type ConversionResult struct {
	KarmaSpent     int64 `json:"karma_spent"`
	CreditsEarned  int64 `json:"credits_earned"`
	KarmaRemaining int64 `json:"karma_remaining"`
	CreditBalance  int64 `json:"credit_balance"`
}

// RedemptionResult — итог покупки награды.
type RedemptionResult struct {
	RedemptionID  int64  `json:"redemption_id"`
	RewardID      int64  `json:"reward_id"`
	CreditsSpent  int64  `json:"credits_spent"`
	CreditBalance int64  `json:"credit_balance"`
	Status        string `json:"status"`
}

// CreditBalance — кэшированный баланс плюс агрегаты из истории для сравнения.
// Available — кэш на строке агента; TotalEarned — сумма по transactions;
// TotalSpent — сумма по выданным (fulfilled) покупкам.
type CreditBalance struct {
	Available   int64 `json:"available"`
	TotalEarned int64 `json:"total_earned"`
	TotalSpent  int64 `json:"total_spent"`
}
