package handlers

import (
	"encoding/json"
	"net/http"

	"smartpark/backend/services/booking-service/internal/http/middleware"
	"smartpark/backend/services/booking-service/internal/service"
)

type failureBody struct {
	Error string       `json:"error"`
	Code  service.Code `json:"code"`
	Kind  service.Kind `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeFailure(w http.ResponseWriter, f *service.Failure) {
	writeJSON(w, statusFor(f), failureBody{Error: f.Message, Code: f.Code, Kind: f.Kind})
}

func statusFor(f *service.Failure) int {
	if f.Code == service.CodeInvalidCredentials {
		return http.StatusUnauthorized
	}
	switch f.Kind {
	case service.KindNotFound:
		return http.StatusNotFound
	case service.KindInvalidInput:
		return http.StatusBadRequest
	case service.KindConflict:
		return http.StatusConflict
	case service.KindPaymentRejected:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

// currentUser writes 401 and returns false when the request carries no user.
func currentUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
	}
	return userID, ok
}
