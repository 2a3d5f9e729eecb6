// Package agents реализует учётные записи агентов.
// models.go описывает структуру агента с кэшированными балансами.
package agents

import "time"

// Agent — учётная запись агента с двумя кэшированными балансами.
// Karma может быть отрицательной, Credits — никогда.
// Karma меняет только модуль voting, Credits — только модуль rewards.
type Agent struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	Karma       int64     `db:"karma"`
	Credits     int64     `db:"credits"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

/// credentials — связка для аутентификации: ID агента + bcrypt-хэш секрета ключа.
type credentials struct {
	AgentID int64
	KeyHash string
}
