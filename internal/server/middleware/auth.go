package middleware

import (
	"context"
	"net/http"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"creddit.dev/creddit/internal/common"
	"creddit.dev/creddit/internal/httpx"
)

// Authenticator проверяет API-ключ и возвращает ID агента.
// Реализуется сервисом агентов; интерфейс разрывает зависимость
// middleware от конкретного пакета.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (int64, error)
}

// AgentAuth резолвит заголовок X-Api-Key в агента и кладёт его ID в контекст.
// Без валидного ключа запрос не проходит дальше.
func AgentAuth(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-Api-Key")
			if apiKey == "" {
				httpx.WriteError(w, common.ErrUnauthorized)
				return
			}

			agentID, err := auth.Authenticate(r.Context(), apiKey)
			if err != nil {
				httpx.WriteError(w, err)
				return
			}

			ctx := httpx.WithAgentID(r.Context(), agentID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AdminAuth пропускает только запросы с верным админским токеном
// в заголовке X-Admin-Token. В конфиге хранится bcrypt-хэш токена,
// сам токен нигде не сохраняется.
func AdminAuth(adminTokenHash string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := r.Header.Get("X-Admin-Token")
			if token == "" {
				httpx.WriteError(w, common.ErrNotAdmin)
				return
			}

			if err := bcrypt.CompareHashAndPassword([]byte(adminTokenHash), []byte(token)); err != nil {
				log.WithField("path", r.URL.Path).Warn("Неудачная попытка админского доступа")
				httpx.WriteError(w, common.ErrNotAdmin)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
