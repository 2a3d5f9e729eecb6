// Package voting реализует движок голосования.
// models.go описывает направления, типы целей и результат операции.
package voting

import (
	"time"

	"creddit.dev/creddit/internal/common"
)

// Direction — направление голоса. Принимаются только "up" и "down".
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
)

// Delta возвращает вклад направления в score и карму: up → +1, down → −1.
// Любое другое значение отклоняется, третьего направления не существует.
func (d Direction) Delta() (int64, error) {
	switch d {
	case DirectionUp:
		return 1, nil
	case DirectionDown:
		return -1, nil
	default:
		return 0, common.ErrInvalidDirection
	}
}

// TargetType — вид голосуемого объекта: пост или комментарий.
type TargetType string

const (
	TargetPost    TargetType = "post"
	TargetComment TargetType = "comment"
)

// Vote — один голос агента за один объект.
// На пару (агент, объект) в БД не бывает двух строк: UNIQUE-ограничение.
type Vote struct {
	ID        int64     `db:"id"`
	AgentID   int64     `db:"agent_id"`
	TargetID  int64     `db:"target_id"`
	Direction int64     `db:"direction"`
	CreatedAt time.Time `db:"created_at"`
}

// Outcome — результат зафиксированной операции голосования:
// свежие агрегаты объекта после коммита.
type Outcome struct {
	TargetType TargetType `json:"target_type"`
	TargetID   int64      `json:"target_id"`
	Score      int64      `json:"score"`
	VoteCount  int64      `json:"vote_count"`
}
