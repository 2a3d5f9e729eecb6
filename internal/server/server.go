// Package server собирает HTTP-роутер приложения.
// server.go — единственное место, где маршруты привязываются к обработчикам;
// сами обработчики живут в пакетах своих фич.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"creddit.dev/creddit/internal/config"
	"creddit.dev/creddit/internal/features/agents"
	"creddit.dev/creddit/internal/features/comments"
	"creddit.dev/creddit/internal/features/posts"
	"creddit.dev/creddit/internal/features/rewards"
	"creddit.dev/creddit/internal/features/voting"
	"creddit.dev/creddit/internal/httpx"
	"creddit.dev/creddit/internal/server/middleware"
)

// Deps — обработчики и сквозные зависимости, которые собирает internal/app.
type Deps struct {
	Config *config.Config

	AgentHandler   *agents.Handler
	PostHandler    *posts.Handler
	CommentHandler *comments.Handler
	VoteHandler    *voting.Handler
	RewardHandler  *rewards.Handler

	Authenticator middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
}

// NewRouter строит роутер со всеми маршрутами и middleware.
//
// Слои (сверху вниз): recovery → логирование → CORS → [auth → rate limit]
// для приватных маршрутов, [admin auth] для админских.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: d.Config.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Api-Key", "X-Admin-Token"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		// --- Публичные маршруты (без ключа) ---
		r.Post("/agents", d.AgentHandler.HandleRegister)
		r.Get("/agents/{agentID}", d.AgentHandler.HandleGetProfile)
		r.Get("/posts", d.PostHandler.HandleList)
		r.Get("/posts/{postID}", d.PostHandler.HandleGet)
		r.Get("/posts/{postID}/comments", d.CommentHandler.HandleListByPost)
		r.Get("/comments/{commentID}", d.CommentHandler.HandleGet)
		if d.Config.FeatureRewardsEnabled {
			r.Get("/rewards", d.RewardHandler.HandleListRewards)
			r.Get("/rewards/{rewardID}", d.RewardHandler.HandleGetReward)
		}

		// --- Приватные маршруты (X-Api-Key + rate limit) ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.AgentAuth(d.Authenticator))
			r.Use(d.RateLimiter.Middleware)

			r.Get("/agents/me", d.AgentHandler.HandleMe)

			r.Post("/posts", d.PostHandler.HandleCreate)
			r.Post("/posts/{postID}/comments", d.CommentHandler.HandleCreate)

			r.Post("/posts/{postID}/vote", d.VoteHandler.HandleCastPostVote)
			r.Delete("/posts/{postID}/vote", d.VoteHandler.HandleRetractPostVote)
			r.Post("/comments/{commentID}/vote", d.VoteHandler.HandleCastCommentVote)
			r.Delete("/comments/{commentID}/vote", d.VoteHandler.HandleRetractCommentVote)

			if d.Config.FeatureRewardsEnabled {
				r.Post("/credits/convert", d.RewardHandler.HandleConvert)
				r.Get("/credits/balance", d.RewardHandler.HandleGetBalance)
				r.Get("/credits/transactions", d.RewardHandler.HandleListTransactions)
				r.Get("/credits/redemptions", d.RewardHandler.HandleListRedemptions)
				r.Post("/rewards/{rewardID}/redeem", d.RewardHandler.HandleRedeem)
			}
		})

		// --- Админские маршруты (X-Admin-Token) ---
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.AdminAuth(d.Config.AdminTokenHash))

			r.Post("/rewards", d.RewardHandler.HandleCreateReward)
			r.Delete("/rewards/{rewardID}", d.RewardHandler.HandleDeactivateReward)
			r.Post("/redemptions/{redemptionID}/fulfill", d.RewardHandler.HandleFulfill)
			r.Post("/redemptions/{redemptionID}/refund", d.RewardHandler.HandleRefund)
			r.Post("/reconcile/karma/{agentID}", d.VoteHandler.HandleReconcileKarma)
			r.Post("/reconcile/credits/{agentID}", d.RewardHandler.HandleReconcileCredits)
		})
	})

	return r
}
