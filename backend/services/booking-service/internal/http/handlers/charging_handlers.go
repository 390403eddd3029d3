package handlers

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smartpark/backend/services/booking-service/internal/service"
)

// ChargingHandlers serves the charging session steps.
type ChargingHandlers struct {
	charging *service.ChargingService
	logger   *zap.Logger
}

// NewChargingHandlers returns handler.
func NewChargingHandlers(charging *service.ChargingService, logger *zap.Logger) *ChargingHandlers {
	return &ChargingHandlers{charging: charging, logger: logger}
}

// RequestSlots handles GET /slots/charging?location=.
func (h *ChargingHandlers) RequestSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.charging.RequestSlots(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		h.logger.Error("list charging slots failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list slots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"slots": slots})
}

// ModeTypes handles GET /charging/modes.
func (h *ChargingHandlers) ModeTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.charging.ModeTypes(r.Context())
	if err != nil {
		h.logger.Error("list mode types failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list modes")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"modes": types})
}

// SelectMode handles GET /charging/modes/{mode}.
func (h *ChargingHandlers) SelectMode(w http.ResponseWriter, r *http.Request) {
	res, err := h.charging.SelectMode(r.Context(), mux.Vars(r)["mode"])
	if err != nil {
		h.logger.Error("select mode failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to select mode")
		return
	}
	if res.Failure != nil {
		writeFailure(w, res.Failure)
		return
	}
	writeJSON(w, http.StatusOK, res.Details)
}

// StartCharging handles POST /charging/sessions.
func (h *ChargingHandlers) StartCharging(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	res, err := h.charging.StartCharging(r.Context(), userID)
	if err != nil {
		h.logger.Error("start charging failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to start charging")
		return
	}
	if res.Failure != nil {
		writeFailure(w, res.Failure)
		return
	}
	writeJSON(w, http.StatusCreated, res.Session)
}

// MySessions handles GET /charging/sessions/me.
func (h *ChargingHandlers) MySessions(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.charging.SessionsForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list sessions failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"sessions": list})
}

// ProcessPayment handles POST /charging/sessions/{id}/payment.
func (h *ChargingHandlers) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	var req struct {
		PaymentMethod string          `json:"payment_method"`
		Amount        decimal.Decimal `json:"amount"`
		SlotID        string          `json:"slot_id"`
		ModeType      string          `json:"mode_type"`
		PricePerUnit  decimal.Decimal `json:"price_per_unit"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.charging.ProcessPayment(r.Context(), service.ProcessPaymentInput{
		Method:       req.PaymentMethod,
		Amount:       req.Amount,
		SessionID:    id,
		SlotID:       strings.TrimSpace(req.SlotID),
		ModeType:     strings.TrimSpace(req.ModeType),
		PricePerUnit: req.PricePerUnit,
	})
	if err != nil {
		h.logger.Error("process payment failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process payment")
		return
	}
	if res.Failure != nil {
		writeFailure(w, res.Failure)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// StopCharging handles POST /charging/sessions/{id}/stop.
func (h *ChargingHandlers) StopCharging(w http.ResponseWriter, r *http.Request) {
	id, ok := h.ownedSession(w, r)
	if !ok {
		return
	}
	res, err := h.charging.StopCharging(r.Context(), id)
	if err != nil {
		h.logger.Error("stop charging failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to stop charging")
		return
	}
	if res.Failure != nil {
		writeFailure(w, res.Failure)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ownedSession resolves {id} and answers 404 for sessions of other users.
func (h *ChargingHandlers) ownedSession(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := currentUser(w, r)
	if !ok {
		return "", false
	}
	id := mux.Vars(r)["id"]
	session, err := h.charging.FindSession(r.Context(), id)
	if err != nil {
		h.logger.Error("load session failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return "", false
	}
	if session == nil || session.UserID != userID {
		writeFailure(w, &service.Failure{Kind: service.KindNotFound, Code: service.CodeSessionNotFound, Message: "charging session " + id + " not found"})
		return "", false
	}
	return id, true
}
