package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"creddit.dev/creddit/internal/httpx"
)

// Recovery перехватывает панику в обработчике, логирует стек
// и отвечает клиенту 500 вместо обрыва соединения.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.WithFields(log.Fields{
					"component": "panic_recovery",
					"panic":     fmt.Sprintf("%v", rec),
					"stack":     string(debug.Stack()),
					"path":      r.URL.Path,
				}).Error("ПАНИКА в обработчике — восстановлено")

				httpx.WriteJSON(w, http.StatusInternalServerError, map[string]string{
					"error": "internal_error",
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}
