package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"smartpark/backend/services/booking-service/internal/service"
)

// AdminHandlers exposes operational endpoints.
type AdminHandlers struct {
	sweeper *service.Sweeper
	logger  *zap.Logger
}

// NewAdminHandlers returns handler.
func NewAdminHandlers(sweeper *service.Sweeper, logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{sweeper: sweeper, logger: logger}
}

// Sweep handles POST /admin/sweep.
func (h *AdminHandlers) Sweep(w http.ResponseWriter, r *http.Request) {
	report, err := h.sweeper.Sweep(r.Context())
	if err != nil {
		h.logger.Error("manual sweep failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
