// Package httpx — общие утилиты HTTP-слоя: запись JSON-ответов,
// маппинг доменных ошибок на статусы и коды, доступ к агенту из контекста.
//
// Ядро леджера про транспорт ничего не знает: оно возвращает доменные
// ошибки как данные, а сюда вынесено единственное место, где ошибка
// превращается в HTTP-статус и машиночитаемый код.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"creddit.dev/creddit/internal/common"
)

type contextKey string

// agentIDKey — ключ контекста, под которым auth-middleware кладёт ID агента.
const agentIDKey contextKey = "agent_id"

// WithAgentID кладёт ID аутентифицированного агента в контекст запроса.
func WithAgentID(ctx context.Context, agentID int64) context.Context {
	return context.WithValue(ctx, agentIDKey, agentID)
}

// AgentIDFromContext достаёт ID агента из контекста.
// Второе значение false, если запрос не прошёл аутентификацию.
func AgentIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(agentIDKey).(int64)
	return id, ok
}

// errorBody — тело ответа с ошибкой: стабильный код + человекочитаемое сообщение.
type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// errorMapping описывает, во что превращается доменная ошибка на HTTP-слое.
type errorMapping struct {
	status int
	code   string
}

// Таблица маппинга: доменная ошибка → статус и код.
// Порядок не важен, ошибки различаются через errors.Is.
var errorMappings = []struct {
	err     error
	mapping errorMapping
}{
	{common.ErrNotFound, errorMapping{http.StatusNotFound, "not_found"}},
	{common.ErrSelfVote, errorMapping{http.StatusForbidden, "self_vote"}},
	{common.ErrDuplicateVote, errorMapping{http.StatusConflict, "duplicate_vote"}},
	{common.ErrNoVoteToRemove, errorMapping{http.StatusNotFound, "no_vote_to_remove"}},
	{common.ErrInvalidDirection, errorMapping{http.StatusBadRequest, "invalid_direction"}},
	{common.ErrInsufficientKarma, errorMapping{http.StatusBadRequest, "insufficient_karma"}},
	{common.ErrInsufficientCredits, errorMapping{http.StatusBadRequest, "insufficient_credits"}},
	{common.ErrInvalidAmount, errorMapping{http.StatusBadRequest, "invalid_amount"}},
	{common.ErrRewardNotFound, errorMapping{http.StatusNotFound, "reward_not_found"}},
	{common.ErrRewardInactive, errorMapping{http.StatusBadRequest, "reward_inactive"}},
	{common.ErrAlreadyFulfilled, errorMapping{http.StatusConflict, "already_fulfilled"}},
	{common.ErrAlreadyRefunded, errorMapping{http.StatusConflict, "already_refunded"}},
	{common.ErrAgentExists, errorMapping{http.StatusConflict, "agent_exists"}},
	{common.ErrInvalidName, errorMapping{http.StatusBadRequest, "invalid_name"}},
	{common.ErrUnauthorized, errorMapping{http.StatusUnauthorized, "unauthorized"}},
	{common.ErrNotAdmin, errorMapping{http.StatusForbidden, "not_admin"}},
}

// WriteJSON пишет v как JSON с указанным статусом.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Ошибка сериализации ответа")
	}
}

// WriteError превращает доменную ошибку в HTTP-ответ.
// Неизвестные ошибки (обрыв соединения с БД и т.п.) НЕ интерпретируются
// как доменные: клиент получает 500 и код internal_error, детали уходят в лог.
func WriteError(w http.ResponseWriter, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			writeErrorBody(w, m.mapping.status, m.mapping.code, m.err.Error())
			return
		}
	}

	log.WithError(err).Error("Необработанная ошибка в HTTP-слое")
	writeErrorBody(w, http.StatusInternalServerError, "internal_error", "внутренняя ошибка сервера")
}

// WriteBadRequest отвечает 400 с кодом bad_request (ошибки парсинга тела/параметров).
func WriteBadRequest(w http.ResponseWriter, message string) {
	writeErrorBody(w, http.StatusBadRequest, "bad_request", message)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	WriteJSON(w, status, body)
}

// URLParamInt64 читает числовой URL-параметр chi (например, {postID}).
func URLParamInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
