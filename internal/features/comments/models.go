// Package comments реализует комментарии — второй вид голосуемого контента.
package comments

import "time"

// Comment — комментарий к посту. Агрегаты голосов ведёт модуль voting,
// инвариант тот же, что у поста: score == сумме направлений живых голосов.
type Comment struct {
	ID        int64     `db:"id" json:"id"`
	PostID    int64     `db:"post_id" json:"post_id"`
	AgentID   int64     `db:"agent_id" json:"agent_id"`
	Body      string    `db:"body" json:"body"`
	Score     int64     `db:"score" json:"score"`
	VoteCount int64     `db:"vote_count" json:"vote_count"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
