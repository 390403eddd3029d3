package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"smartpark/backend/services/booking-service/internal/service"
)

// ParkingHandlers serves slot search, reservations and refunds.
type ParkingHandlers struct {
	reservations *service.ReservationService
	charging     *service.ChargingService
	logger       *zap.Logger
}

// NewParkingHandlers returns handler.
func NewParkingHandlers(reservations *service.ReservationService, charging *service.ChargingService, logger *zap.Logger) *ParkingHandlers {
	return &ParkingHandlers{reservations: reservations, charging: charging, logger: logger}
}

// AvailableSlots handles GET /slots/parking?type=.
func (h *ParkingHandlers) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := h.reservations.AvailableSlots(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		h.logger.Error("list parking slots failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list slots")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"slots":           slots,
		"payment_methods": h.reservations.PaymentMethodNames(),
	})
}

// MakeReservation handles POST /reservations.
func (h *ParkingHandlers) MakeReservation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req struct {
		SlotID        string    `json:"slot_id"`
		StartTime     time.Time `json:"start_time"`
		EndTime       time.Time `json:"end_time"`
		PaymentMethod string    `json:"payment_method"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.SlotID) == "" {
		writeError(w, http.StatusBadRequest, "slot_id is required")
		return
	}

	res, err := h.reservations.MakeReservation(r.Context(), service.MakeReservationInput{
		UserID: userID,
		SlotID: strings.TrimSpace(req.SlotID),
		Start:  req.StartTime,
		End:    req.EndTime,
		Method: req.PaymentMethod,
	})
	if err != nil {
		h.logger.Error("make reservation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to make reservation")
		return
	}
	if res.Failure != nil {
		writeFailure(w, res.Failure)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// MyReservations handles GET /reservations/me.
func (h *ParkingHandlers) MyReservations(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.reservations.ReservationsForUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list reservations failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list reservations")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"reservations": list})
}

// CancelReservation handles DELETE /reservations/{id}.
func (h *ParkingHandlers) CancelReservation(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	existing, err := h.reservations.FindReservation(r.Context(), id)
	if err != nil {
		h.logger.Error("load reservation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to cancel reservation")
		return
	}
	if existing == nil || existing.UserID != userID {
		writeFailure(w, &service.Failure{Kind: service.KindNotFound, Code: service.CodeReservationNotFound, Message: "reservation " + id + " not found"})
		return
	}

	res, err := h.reservations.CancelReservation(r.Context(), id)
	if err != nil {
		h.logger.Error("cancel reservation failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to cancel reservation")
		return
	}
	if res.Failure != nil {
		writeFailure(w, res.Failure)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// RefundPayment handles POST /payments/{id}/refund.
func (h *ParkingHandlers) RefundPayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	owned, err := h.paymentOwnedBy(r.Context(), id, userID)
	if err != nil {
		h.logger.Error("load payment failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to refund payment")
		return
	}
	if !owned {
		writeFailure(w, &service.Failure{Kind: service.KindNotFound, Code: service.CodePaymentNotFound, Message: "payment " + id + " not found"})
		return
	}

	res, err := h.reservations.RefundPayment(r.Context(), id)
	if err != nil {
		h.logger.Error("refund payment failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to refund payment")
		return
	}
	if res.Failure != nil {
		writeFailure(w, res.Failure)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *ParkingHandlers) paymentOwnedBy(ctx context.Context, paymentID, userID string) (bool, error) {
	p, err := h.reservations.FindPayment(ctx, paymentID)
	if err != nil || p == nil {
		return false, err
	}
	if p.ReservationID != "" {
		res, err := h.reservations.FindReservation(ctx, p.ReservationID)
		if err != nil || res == nil {
			return false, err
		}
		return res.UserID == userID, nil
	}
	if p.SessionID != "" {
		cs, err := h.charging.FindSession(ctx, p.SessionID)
		if err != nil || cs == nil {
			return false, err
		}
		return cs.UserID == userID, nil
	}
	return false, nil
}
