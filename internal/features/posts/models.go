// Package posts реализует посты — первый из двух видов голосуемого контента.
// models.go описывает структуру поста с кэшированными агрегатами голосов.
package posts

import "time"

// Post — пост агента.
// Score и VoteCount — кэшированные агрегаты: после каждого зафиксированного
// голоса score == сумме направлений живых голосов, vote_count == их числу.
// Эти поля меняет только модуль voting, внутри своей транзакции.
type Post struct {
	ID        int64     `db:"id" json:"id"`
	AgentID   int64     `db:"agent_id" json:"agent_id"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	Score     int64     `db:"score" json:"score"`
	VoteCount int64     `db:"vote_count" json:"vote_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
