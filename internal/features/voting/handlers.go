// Package voting — handlers.go обрабатывает HTTP-запросы голосования:
// голос за пост/комментарий, отзыв голоса, админская сверка кармы.
package voting

import (
	"encoding/json"
	"net/http"

	"creddit.dev/creddit/internal/common"
	"creddit.dev/creddit/internal/httpx"
)

// Handler обрабатывает запросы голосования.
type Handler struct {
	service *Service
}

// NewHandler создаёт новый обработчик голосования.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type voteRequest struct {
	Direction string `json:"direction"`
}

// HandleCastPostVote обрабатывает POST /api/posts/{postID}/vote.
func (h *Handler) HandleCastPostVote(w http.ResponseWriter, r *http.Request) {
	h.castVote(w, r, TargetPost, "postID")
}

// HandleCastCommentVote обрабатывает POST /api/comments/{commentID}/vote.
func (h *Handler) HandleCastCommentVote(w http.ResponseWriter, r *http.Request) {
	h.castVote(w, r, TargetComment, "commentID")
}

// HandleRetractPostVote обрабатывает DELETE /api/posts/{postID}/vote.
func (h *Handler) HandleRetractPostVote(w http.ResponseWriter, r *http.Request) {
	h.retractVote(w, r, TargetPost, "postID")
}

// HandleRetractCommentVote обрабатывает DELETE /api/comments/{commentID}/vote.
func (h *Handler) HandleRetractCommentVote(w http.ResponseWriter, r *http.Request) {
	h.retractVote(w, r, TargetComment, "commentID")
}

func (h *Handler) castVote(w http.ResponseWriter, r *http.Request, t TargetType, param string) {
	voterID, ok := httpx.AgentIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, common.ErrUnauthorized)
		return
	}

	targetID, err := httpx.URLParamInt64(r, param)
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID объекта")
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteBadRequest(w, "некорректное тело запроса")
		return
	}

	outcome, err := h.service.CastVote(r.Context(), t, targetID, voterID, Direction(req.Direction))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, outcome)
}

func (h *Handler) retractVote(w http.ResponseWriter, r *http.Request, t TargetType, param string) {
	voterID, ok := httpx.AgentIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, common.ErrUnauthorized)
		return
	}

	targetID, err := httpx.URLParamInt64(r, param)
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID объекта")
		return
	}

	outcome, err := h.service.RetractVote(r.Context(), t, targetID, voterID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, outcome)
}

// HandleReconcileKarma обрабатывает POST /api/admin/reconcile/karma/{agentID}.
func (h *Handler) HandleReconcileKarma(w http.ResponseWriter, r *http.Request) {
	agentID, err := httpx.URLParamInt64(r, "agentID")
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID агента")
		return
	}

	karma, err := h.service.ReconcileKarma(r.Context(), agentID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"karma": karma})
}
