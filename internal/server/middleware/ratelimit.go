// Package middleware содержит промежуточные HTTP-обработчики: логирование,
// восстановление после паники, аутентификация и rate-limiting.
package middleware

import (
	"net/http"
	"sync"
	"time"

	"creddit.dev/creddit/internal/common"
	"creddit.dev/creddit/internal/httpx"
)

// RateLimiter ограничивает количество запросов на агента.
// Использует алгоритм скользящего окна. Живёт целиком в HTTP-слое
// и внедряется при сборке роутера: ядро леджера о нём не знает.
type RateLimiter struct {
	mu       sync.Mutex
	requests map[int64][]time.Time
	limit    int
	window   time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[int64][]time.Time),
		limit:    limit,
		window:   window,
		stopCh:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Close останавливает фоновую горутину очистки.
// Его надо вызывать на shutdown (иначе cleanup будет жить вечно).
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

// Allow возвращает true, если агенту ещё можно выполнить запрос в текущем окне.
func (rl *RateLimiter) Allow(agentID int64) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.window)

	var recent []time.Time
	for _, t := range rl.requests[agentID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rl.limit {
		rl.requests[agentID] = recent
		return false
	}

	recent = append(recent, now)
	rl.requests[agentID] = recent
	return true
}

// Middleware отклоняет запросы сверх лимита со статусом 429.
// Вешается ПОСЛЕ аутентификации: ключ окна — ID агента из контекста.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agentID, ok := httpx.AgentIDFromContext(r.Context())
		if !ok {
			httpx.WriteError(w, common.ErrUnauthorized)
			return
		}
		if !rl.Allow(agentID) {
			httpx.WriteJSON(w, http.StatusTooManyRequests, map[string]string{
				"error": "rate_limited",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			cutoff := time.Now().Add(-rl.window)
			for agentID, times := range rl.requests {
				var recent []time.Time
				for _, t := range times {
					if t.After(cutoff) {
						recent = append(recent, t)
					}
				}
				if len(recent) == 0 {
					delete(rl.requests, agentID)
				} else {
					rl.requests[agentID] = recent
				}
			}
			rl.mu.Unlock()
		}
	}
}
