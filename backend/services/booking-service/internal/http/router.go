package httpserver

import (
	"net/http"

	"github.com/gorilla/mux"

	"smartpark/backend/services/booking-service/internal/http/handlers"
)

// RouterDeps collects handler dependencies.
type RouterDeps struct {
	Auth     *handlers.AuthHandlers
	Parking  *handlers.ParkingHandlers
	Charging *handlers.ChargingHandlers
	Admin    *handlers.AdminHandlers
	Health   http.HandlerFunc
	Metrics  http.Handler
	Events   http.HandlerFunc

	// Authenticate guards every engine route.
	Authenticate func(http.Handler) http.Handler
	// BeforeEngine runs ahead of engine routes, after authentication.
	BeforeEngine []mux.MiddlewareFunc
}

// NewRouter wires HTTP routes with middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/health", deps.Health).Methods(http.MethodGet)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics).Methods(http.MethodGet)
	}
	if deps.Events != nil {
		r.HandleFunc("/ws/events", deps.Events).Methods(http.MethodGet)
	}

	r.HandleFunc("/auth/register", deps.Auth.Register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", deps.Auth.Login).Methods(http.MethodPost)

	api := r.NewRoute().Subrouter()
	if deps.Authenticate != nil {
		api.Use(mux.MiddlewareFunc(deps.Authenticate))
	}
	api.Use(deps.BeforeEngine...)

	api.HandleFunc("/slots/parking", deps.Parking.AvailableSlots).Methods(http.MethodGet)
	api.HandleFunc("/slots/charging", deps.Charging.RequestSlots).Methods(http.MethodGet)

	api.HandleFunc("/reservations", deps.Parking.MakeReservation).Methods(http.MethodPost)
	api.HandleFunc("/reservations/me", deps.Parking.MyReservations).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id}", deps.Parking.CancelReservation).Methods(http.MethodDelete)
	api.HandleFunc("/payments/{id}/refund", deps.Parking.RefundPayment).Methods(http.MethodPost)

	api.HandleFunc("/charging/modes", deps.Charging.ModeTypes).Methods(http.MethodGet)
	api.HandleFunc("/charging/modes/{mode}", deps.Charging.SelectMode).Methods(http.MethodGet)
	api.HandleFunc("/charging/sessions", deps.Charging.StartCharging).Methods(http.MethodPost)
	api.HandleFunc("/charging/sessions/me", deps.Charging.MySessions).Methods(http.MethodGet)
	api.HandleFunc("/charging/sessions/{id}/payment", deps.Charging.ProcessPayment).Methods(http.MethodPost)
	api.HandleFunc("/charging/sessions/{id}/stop", deps.Charging.StopCharging).Methods(http.MethodPost)

	api.HandleFunc("/admin/sweep", deps.Admin.Sweep).Methods(http.MethodPost)

	return r
}
