package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"smartpark/backend/services/booking-service/internal/models"
	"smartpark/backend/services/booking-service/internal/service"
)

// AuthHandlers serves registration and login.
type AuthHandlers struct {
	auth   *service.AuthService
	logger *zap.Logger
}

// NewAuthHandlers returns handler.
func NewAuthHandlers(auth *service.AuthService, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{auth: auth, logger: logger}
}

type authResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	User      *models.User `json:"user"`
}

// Register handles POST /auth/register.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.auth.Register(r.Context(), req.Name, req.Email, req.Phone, req.Password)
	if err != nil {
		h.logger.Error("register failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	if res.Failure != nil {
		writeFailure(w, res.Failure)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: res.Token, TokenType: "Bearer", User: res.User})
}

// Login handles POST /auth/login.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Error("login failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to login")
		return
	}
	if res.Failure != nil {
		writeFailure(w, res.Failure)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: res.Token, TokenType: "Bearer", User: res.User})
}
