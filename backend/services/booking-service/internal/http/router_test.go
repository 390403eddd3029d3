package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"go.uber.org/zap"

	"smartpark/backend/services/booking-service/internal/clock"
	"smartpark/backend/services/booking-service/internal/http/handlers"
	"smartpark/backend/services/booking-service/internal/http/middleware"
	"smartpark/backend/services/booking-service/internal/password"
	"smartpark/backend/services/booking-service/internal/payment"
	"smartpark/backend/services/booking-service/internal/repository"
	"smartpark/backend/services/booking-service/internal/seed"
	"smartpark/backend/services/booking-service/internal/service"
	"smartpark/backend/services/booking-service/internal/token"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type harness struct {
	handler http.Handler
	clock   *clock.Manual
	tokens  *token.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()
	clk := clock.NewManual(t0)
	store := repository.NewMemoryStore()
	hasher := password.NewBcryptHasher(bcrypt.MinCost)
	_, err := seed.Load(context.Background(), store, hasher, clk, logger)
	require.NoError(t, err)

	tokens := token.NewService("test-secret", 24*time.Hour, clk)
	deps := service.Deps{
		Store:    store,
		Payments: payment.NewSet(payment.Options{Default: payment.MethodCreditCard}, logger, payment.NewCreditCard(payment.NewSimulatedGateway(store)), payment.PayPal{}),
		Clock:    clk,
		Policy:   service.DefaultPolicy(),
		Logger:   logger,
	}
	reservations := service.NewReservationService(deps)
	charging := service.NewChargingService(deps)
	sweeper := service.NewSweeper(deps)

	router := NewRouter(RouterDeps{
		Auth:         handlers.NewAuthHandlers(service.NewAuthService(store, hasher, tokens, clk, logger), logger),
		Parking:      handlers.NewParkingHandlers(reservations, charging, logger),
		Charging:     handlers.NewChargingHandlers(charging, logger),
		Admin:        handlers.NewAdminHandlers(sweeper, logger),
		Health:       handlers.NewHealthHandler(),
		Authenticate: middleware.AuthMiddleware(tokens),
	})
	return &harness{handler: router, clock: clk, tokens: tokens}
}

func (h *harness) do(t *testing.T, method, path, bearer string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func (h *harness) login(t *testing.T) string {
	t.Helper()
	status, body := h.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": seed.DemoEmail, "password": seed.DemoPassword})
	require.Equal(t, http.StatusOK, status, body)
	return body["token"].(string)
}

func TestHealthIsPublic(t *testing.T) {
	h := newHarness(t)
	status, body := h.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestEngineRoutesRequireToken(t *testing.T) {
	h := newHarness(t)
	status, _ := h.do(t, http.MethodGet, "/slots/parking", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = h.do(t, http.MethodGet, "/slots/parking", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	h := newHarness(t)
	status, body := h.do(t, http.MethodPost, "/auth/login", "", map[string]string{"email": seed.DemoEmail, "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, string(service.CodeInvalidCredentials), body["code"])
}

func TestReservationOverHTTP(t *testing.T) {
	h := newHarness(t)
	tok := h.login(t)

	booking := map[string]string{
		"slot_id":        "S001",
		"start_time":     t0.Format(time.RFC3339),
		"end_time":       t0.Add(90 * time.Minute).Format(time.RFC3339),
		"payment_method": "Credit Card",
	}
	status, body := h.do(t, http.MethodPost, "/reservations", tok, booking)
	require.Equal(t, http.StatusCreated, status, body)
	reservation := body["reservation"].(map[string]interface{})
	assert.Equal(t, "Confirmed", reservation["status"])
	assert.Equal(t, "10", reservation["total_cost"])

	status, body = h.do(t, http.MethodPost, "/reservations", tok, booking)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(service.CodeSlotUnavailable), body["code"])

	booking["slot_id"] = "S002"
	booking["payment_method"] = "PayPal"
	status, body = h.do(t, http.MethodPost, "/reservations", tok, booking)
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, string(service.CodePaymentFailed), body["code"])

	status, body = h.do(t, http.MethodGet, "/slots/parking", tok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["slots"], 2)

	id := reservation["id"].(string)
	status, _ = h.do(t, http.MethodDelete, "/reservations/"+id, tok, nil)
	assert.Equal(t, http.StatusOK, status)
	status, body = h.do(t, http.MethodDelete, "/reservations/"+id, tok, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(service.CodeAlreadyCancelled), body["code"])
}

func TestOtherUsersReservationIsHidden(t *testing.T) {
	h := newHarness(t)
	tok := h.login(t)

	status, body := h.do(t, http.MethodPost, "/reservations", tok, map[string]string{
		"slot_id":        "S003",
		"start_time":     t0.Format(time.RFC3339),
		"end_time":       t0.Add(time.Hour).Format(time.RFC3339),
		"payment_method": "Credit Card",
	})
	require.Equal(t, http.StatusCreated, status, body)
	id := body["reservation"].(map[string]interface{})["id"].(string)

	status, body = h.do(t, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Eve", "email": "eve@example.com", "password": "pw",
	})
	require.Equal(t, http.StatusCreated, status, body)
	other := body["token"].(string)

	status, body = h.do(t, http.MethodDelete, "/reservations/"+id, other, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(service.CodeReservationNotFound), body["code"])
}

func TestChargingOverHTTP(t *testing.T) {
	h := newHarness(t)
	tok := h.login(t)

	status, body := h.do(t, http.MethodPost, "/charging/sessions", tok, nil)
	require.Equal(t, http.StatusCreated, status, body)
	id := body["id"].(string)

	status, body = h.do(t, http.MethodGet, "/charging/modes/fast", tok, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.Equal(t, "CS1", body["slot_id"])

	status, body = h.do(t, http.MethodGet, "/charging/modes/turbo", tok, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, string(service.CodeModeNotAvailable), body["code"])

	status, body = h.do(t, http.MethodPost, "/charging/sessions/"+id+"/payment", tok, map[string]string{
		"payment_method": "Credit Card",
		"amount":         "8.00",
		"slot_id":        "CS1",
		"mode_type":      "fast",
		"price_per_unit": "0.40",
	})
	require.Equal(t, http.StatusOK, status, body)
	assert.NotEmpty(t, body["receipt"])

	status, body = h.do(t, http.MethodPost, "/charging/sessions/"+id+"/payment", tok, map[string]string{
		"payment_method": "Credit Card",
		"amount":         "0",
		"slot_id":        "CS2",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, string(service.CodeInvalidAmount), body["code"])

	h.clock.Advance(3 * time.Hour)
	status, body = h.do(t, http.MethodPost, "/admin/sweep", tok, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["sessions_ended"])

	status, body = h.do(t, http.MethodPost, "/charging/sessions/"+id+"/stop", tok, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, string(service.CodeAlreadyEnded), body["code"])
}
