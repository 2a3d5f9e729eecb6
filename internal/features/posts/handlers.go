// Package posts — handlers.go обрабатывает HTTP-запросы к постам:
// создание, чтение, лента последних.
package posts

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"creddit.dev/creddit/internal/common"
	"creddit.dev/creddit/internal/httpx"
)

// Handler обрабатывает запросы к постам.
type Handler struct {
	service *Service
}

// NewHandler создаёт новый обработчик постов.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// HandleCreate обрабатывает POST /api/posts. Автор — аутентифицированный агент.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	agentID, ok := httpx.AgentIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, common.ErrUnauthorized)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteBadRequest(w, "некорректное тело запроса")
		return
	}

	post, err := h.service.Create(r.Context(), agentID, req.Title, req.Body)
	if err != nil {
		if errors.Is(err, ErrInvalidPost) {
			httpx.WriteBadRequest(w, err.Error())
			return
		}
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, post)
}

// HandleGet обрабатывает GET /api/posts/{postID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	postID, err := httpx.URLParamInt64(r, "postID")
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID поста")
		return
	}

	post, err := h.service.GetByID(r.Context(), postID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, post)
}

// HandleList обрабатывает GET /api/posts?limit=N — лента последних постов.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	list, err := h.service.ListRecent(r.Context(), limit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}
