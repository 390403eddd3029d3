package repository

import (
	"context"

	"smartpark/backend/services/booking-service/internal/models"
)

// Store is the persistence gateway the engines read and write through.
// Find methods return nil (or an empty slice) and a nil error when nothing matches;
// Save methods upsert by id. Any returned error is a persistence fault.
type Store interface {
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindAllUsers(ctx context.Context) ([]models.User, error)
	SaveUser(ctx context.Context, user *models.User) error

	FindAllLots(ctx context.Context) ([]models.ParkingLot, error)
	SaveLot(ctx context.Context, lot *models.ParkingLot) error
	DeleteLot(ctx context.Context, id string) error

	FindAllStations(ctx context.Context) ([]models.ChargingStation, error)
	SaveStation(ctx context.Context, station *models.ChargingStation) error
	DeleteStation(ctx context.Context, id string) error

	FindAllSlots(ctx context.Context) ([]models.Slot, error)
	FindSlotByID(ctx context.Context, id string) (*models.Slot, error)
	SaveSlot(ctx context.Context, slot *models.Slot) error

	FindAllChargingModes(ctx context.Context) ([]models.ChargingMode, error)
	SaveChargingMode(ctx context.Context, mode *models.ChargingMode) error

	FindReservationByID(ctx context.Context, id string) (*models.Reservation, error)
	FindAllReservations(ctx context.Context) ([]models.Reservation, error)
	FindReservationsByUser(ctx context.Context, userID string) ([]models.Reservation, error)
	SaveReservation(ctx context.Context, reservation *models.Reservation) error

	FindPaymentByID(ctx context.Context, id string) (*models.Payment, error)
	FindAllPayments(ctx context.Context) ([]models.Payment, error)
	SavePayment(ctx context.Context, payment *models.Payment) error

	FindSessionByID(ctx context.Context, id string) (*models.ChargingSession, error)
	FindAllSessions(ctx context.Context) ([]models.ChargingSession, error)
	FindSessionsByUser(ctx context.Context, userID string) ([]models.ChargingSession, error)
	SaveSession(ctx context.Context, session *models.ChargingSession) error

	DefaultPaymentGateway(ctx context.Context) (*models.PaymentGateway, error)
	SavePaymentGateway(ctx context.Context, gateway *models.PaymentGateway) error
}
