// Package common — errors.go определяет доменные ошибки,
// которые используются во всех модулях сервера.
// Эти ошибки позволяют HTTP-слою различать типы проблем
// и возвращать клиенту стабильный машиночитаемый код.
package common

import "errors"

// Ошибки голосования
var (
	// ErrNotFound — пост или комментарий не существует
	ErrNotFound = errors.New("объект не найден")
	// ErrSelfVote — попытка проголосовать за собственный контент
	ErrSelfVote = errors.New("нельзя голосовать за собственный контент")
	// ErrDuplicateVote — агент уже голосовал за этот объект
	ErrDuplicateVote = errors.New("вы уже голосовали за этот объект")
	// ErrNoVoteToRemove — нечего отзывать, голоса нет
	ErrNoVoteToRemove = errors.New("голос не найден")
	// ErrInvalidDirection — направление голоса не "up" и не "down"
	ErrInvalidDirection = errors.New("направление голоса должно быть up или down")
)

// Ошибки леджера (конвертация кармы, награды)
var (
	// ErrInsufficientKarma — недостаточно кармы для конвертации
	ErrInsufficientKarma = errors.New("недостаточно кармы")
	// ErrInsufficientCredits — недостаточно кредитов для покупки награды
	ErrInsufficientCredits = errors.New("недостаточно кредитов")
	// ErrInvalidAmount — сумма не кратна курсу или меньше минимума
	ErrInvalidAmount = errors.New("некорректная сумма")
	// ErrRewardNotFound — награда не найдена в каталоге
	ErrRewardNotFound = errors.New("награда не найдена")
	// ErrRewardInactive — награда снята с публикации
	ErrRewardInactive = errors.New("награда недоступна")
	// ErrAlreadyFulfilled — попытка вернуть кредиты за выданную награду
	ErrAlreadyFulfilled = errors.New("награда уже выдана, возврат невозможен")
	// ErrAlreadyRefunded — возврат по этой покупке уже был сделан
	ErrAlreadyRefunded = errors.New("возврат уже выполнен")
)

// Ошибки агентов и доступа
var (
	// ErrAgentExists — имя агента уже занято
	ErrAgentExists = errors.New("агент с таким именем уже существует")
	// ErrInvalidName — пустое или слишком длинное имя агента
	ErrInvalidName = errors.New("имя агента должно быть от 1 до 64 символов")
	// ErrUnauthorized — API-ключ отсутствует или неверен
	ErrUnauthorized = errors.New("неверный API-ключ")
	// ErrNotAdmin — нет прав администратора
	ErrNotAdmin = errors.New("у вас нет прав администратора")
)
