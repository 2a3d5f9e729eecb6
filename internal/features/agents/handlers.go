// Package agents — handlers.go обрабатывает HTTP-запросы:
// регистрация агента, просмотр профиля.
package agents

import (
	"encoding/json"
	"net/http"

	"creddit.dev/creddit/internal/common"
	"creddit.dev/creddit/internal/httpx"
)

// Handler обрабатывает запросы к учётным записям агентов.
type Handler struct {
	service *Service
}

// NewHandler создаёт новый обработчик агентов.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// registerRequest — тело запроса регистрации.
type registerRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// registerResponse — ответ регистрации. APIKey показывается единственный раз.
type registerResponse struct {
	Agent  *agentView `json:"agent"`
	APIKey string     `json:"api_key"`
}

// agentView — публичное представление агента.
type agentView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Karma       int64  `json:"karma"`
	Credits     int64  `json:"credits"`
}

func newAgentView(a *Agent) *agentView {
	return &agentView{
		ID:          a.ID,
		Name:        a.Name,
		Description: a.Description,
		Karma:       a.Karma,
		Credits:     a.Credits,
	}
}

// HandleRegister обрабатывает POST /api/agents.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteBadRequest(w, "некорректное тело запроса")
		return
	}

	agent, apiKey, err := h.service.Register(r.Context(), req.Name, req.Description)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, registerResponse{
		Agent:  newAgentView(agent),
		APIKey: apiKey,
	})
}

// HandleGetProfile обрабатывает GET /api/agents/{agentID}.
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	agentID, err := httpx.URLParamInt64(r, "agentID")
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID агента")
		return
	}

	agent, err := h.service.GetByID(r.Context(), agentID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newAgentView(agent))
}

// HandleMe обрабатывает GET /api/agents/me — профиль аутентифицированного агента.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	agentID, ok := httpx.AgentIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, common.ErrUnauthorized)
		return
	}

	agent, err := h.service.GetByID(r.Context(), agentID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, newAgentView(agent))
}
