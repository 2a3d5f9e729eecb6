// Package comments — handlers.go обрабатывает HTTP-запросы к комментариям.
package comments

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"creddit.dev/creddit/internal/common"
	"creddit.dev/creddit/internal/httpx"
)

// Handler обрабатывает запросы к комментариям.
type Handler struct {
	service *Service
}

// NewHandler создаёт новый обработчик комментариев.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Body string `json:"body"`
}

// HandleCreate обрабатывает POST /api/posts/{postID}/comments.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	agentID, ok := httpx.AgentIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, common.ErrUnauthorized)
		return
	}

	postID, err := httpx.URLParamInt64(r, "postID")
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID поста")
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteBadRequest(w, "некорректное тело запроса")
		return
	}

	comment, err := h.service.Create(r.Context(), postID, agentID, req.Body)
	if err != nil {
		if errors.Is(err, ErrInvalidComment) {
			httpx.WriteBadRequest(w, err.Error())
			return
		}
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, comment)
}

// HandleGet обрабатывает GET /api/comments/{commentID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	commentID, err := httpx.URLParamInt64(r, "commentID")
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID комментария")
		return
	}

	comment, err := h.service.GetByID(r.Context(), commentID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, comment)
}

// HandleListByPost обрабатывает GET /api/posts/{postID}/comments?limit=N.
func (h *Handler) HandleListByPost(w http.ResponseWriter, r *http.Request) {
	postID, err := httpx.URLParamInt64(r, "postID")
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID поста")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.service.ListByPost(r.Context(), postID, limit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}
