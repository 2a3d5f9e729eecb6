// Package rewards — handlers.go обрабатывает HTTP-запросы леджера:
// каталог наград, конвертация кармы, покупки, балансы, админские операции.
package rewards

import (
	"encoding/json"
	"net/http"
	"strconv"

	"creddit.dev/creddit/internal/common"
	"creddit.dev/creddit/internal/httpx"
)

// Handler обрабатывает запросы леджера.
type Handler struct {
	service *Service
}

// NewHandler создаёт новый обработчик леджера.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleListRewards обрабатывает GET /api/rewards — каталог активных наград.
func (h *Handler) HandleListRewards(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListActiveRewards(r.Context())
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// HandleGetReward обрабатывает GET /api/rewards/{rewardID}.
func (h *Handler) HandleGetReward(w http.ResponseWriter, r *http.Request) {
	rewardID, err := httpx.URLParamInt64(r, "rewardID")
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID награды")
		return
	}

	reward, err := h.service.GetReward(r.Context(), rewardID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, reward)
}

type convertRequest struct {
	KarmaAmount int64 `json:"karma_amount"`
}

// HandleConvert обрабатывает POST /api/credits/convert.
func (h *Handler) HandleConvert(w http.ResponseWriter, r *http.Request) {
	agentID, ok := httpx.AgentIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, common.ErrUnauthorized)
		return
	}

	var req convertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteBadRequest(w, "некорректное тело запроса")
		return
	}

	result, err := h.service.ConvertKarmaToCredits(r.Context(), agentID, req.KarmaAmount)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, result)
}

// HandleRedeem обрабатывает POST /api/rewards/{rewardID}/redeem.
func (h *Handler) HandleRedeem(w http.ResponseWriter, r *http.Request) {
	agentID, ok := httpx.AgentIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, common.ErrUnauthorized)
		return
	}

	rewardID, err := httpx.URLParamInt64(r, "rewardID")
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID награды")
		return
	}

	result, err := h.service.RedeemReward(r.Context(), agentID, rewardID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, result)
}

// HandleGetBalance обрабатывает GET /api/credits/balance.
func (h *Handler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	agentID, ok := httpx.AgentIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, common.ErrUnauthorized)
		return
	}

	balance, err := h.service.GetCreditBalance(r.Context(), agentID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, balance)
}

// HandleListTransactions обрабатывает GET /api/credits/transactions?limit=N.
func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	agentID, ok := httpx.AgentIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, common.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.ListTransactions(r.Context(), agentID, limit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// HandleListRedemptions обрабатывает GET /api/credits/redemptions?limit=N.
func (h *Handler) HandleListRedemptions(w http.ResponseWriter, r *http.Request) {
	agentID, ok := httpx.AgentIDFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, common.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.ListRedemptions(r.Context(), agentID, limit)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, list)
}

// HandleFulfill обрабатывает POST /api/admin/redemptions/{redemptionID}/fulfill.
func (h *Handler) HandleFulfill(w http.ResponseWriter, r *http.Request) {
	redemptionID, err := httpx.URLParamInt64(r, "redemptionID")
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID покупки")
		return
	}

	if err := h.service.FulfillRedemption(r.Context(), redemptionID); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": StatusFulfilled})
}

// HandleRefund обрабатывает POST /api/admin/redemptions/{redemptionID}/refund.
func (h *Handler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	redemptionID, err := httpx.URLParamInt64(r, "redemptionID")
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID покупки")
		return
	}

	red, err := h.service.RefundRedemption(r.Context(), redemptionID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, red)
}

type createRewardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	CreditCost  int64  `json:"credit_cost"`
	Type        string `json:"type"`
}

// HandleCreateReward обрабатывает POST /api/admin/rewards.
func (h *Handler) HandleCreateReward(w http.ResponseWriter, r *http.Request) {
	var req createRewardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteBadRequest(w, "некорректное тело запроса")
		return
	}

	reward, err := h.service.CreateReward(r.Context(), req.Name, req.Description, req.CreditCost, req.Type)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, reward)
}

// HandleDeactivateReward обрабатывает DELETE /api/admin/rewards/{rewardID}.
func (h *Handler) HandleDeactivateReward(w http.ResponseWriter, r *http.Request) {
	rewardID, err := httpx.URLParamInt64(r, "rewardID")
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID награды")
		return
	}

	if err := h.service.DeactivateReward(r.Context(), rewardID); err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"active": false})
}

// HandleReconcileCredits обрабатывает POST /api/admin/reconcile/credits/{agentID}.
func (h *Handler) HandleReconcileCredits(w http.ResponseWriter, r *http.Request) {
	agentID, err := httpx.URLParamInt64(r, "agentID")
	if err != nil {
		httpx.WriteBadRequest(w, "некорректный ID агента")
		return
	}

	credits, err := h.service.ReconcileCreditBalance(r.Context(), agentID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int64{"credits": credits})
}
