package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"smartpark/backend/services/booking-service/internal/clock"
	"smartpark/backend/services/booking-service/internal/events"
	"smartpark/backend/services/booking-service/internal/models"
	"smartpark/backend/services/booking-service/internal/payment"
	redisstore "smartpark/backend/services/booking-service/internal/redis"
	"smartpark/backend/services/booking-service/internal/repository"
)

var (
	t0      = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	errBoom = errors.New("boom")
)

type env struct {
	store  *repository.MemoryStore
	clock  *clock.Manual
	events *events.Recorder
	cache  *recordingCache
	deps   Deps
}

func seededStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()

	require.NoError(t, store.SaveUser(ctx, &models.User{ID: "U001", Name: "Alice", Email: "alice@example.com", CreatedAt: t0}))
	require.NoError(t, store.SaveUser(ctx, &models.User{ID: "U002", Name: "Bob", Email: "bob@example.com", CreatedAt: t0}))

	slots := []models.Slot{
		{ID: "S001", Kind: models.SlotKindParking, OwnerID: "L001", Label: "A1", SlotType: "Standard", PricePerUnit: decimal.RequireFromString("5.00"), Status: models.SlotStatusAvailable},
		{ID: "S002", Kind: models.SlotKindParking, OwnerID: "L001", Label: "A2", SlotType: "EV", PricePerUnit: decimal.RequireFromString("7.50"), Status: models.SlotStatusAvailable},
		{ID: "S003", Kind: models.SlotKindParking, OwnerID: "L001", Label: "A3", SlotType: "Compact", PricePerUnit: decimal.RequireFromString("4.00"), Status: models.SlotStatusAvailable},
		{ID: "CS1", Kind: models.SlotKindCharging, OwnerID: "ST1", Label: "1", ModeIDs: []string{"M1", "M2"}, Status: models.SlotStatusAvailable},
		{ID: "CS2", Kind: models.SlotKindCharging, OwnerID: "ST1", Label: "2", ModeIDs: []string{"M1"}, Status: models.SlotStatusAvailable},
	}
	for i := range slots {
		require.NoError(t, store.SaveSlot(ctx, &slots[i]))
	}
	require.NoError(t, store.SaveLot(ctx, &models.ParkingLot{ID: "L001", Name: "Central Lot", Address: "123 Main St", SlotIDs: []string{"S001", "S002", "S003"}}))
	require.NoError(t, store.SaveChargingMode(ctx, &models.ChargingMode{ID: "M1", ModeType: "normal", PricePerUnit: decimal.RequireFromString("0.25"), ChargingSpeedKW: 7}))
	require.NoError(t, store.SaveChargingMode(ctx, &models.ChargingMode{ID: "M2", ModeType: "fast", PricePerUnit: decimal.RequireFromString("0.40"), ChargingSpeedKW: 22}))
	require.NoError(t, store.SaveStation(ctx, &models.ChargingStation{ID: "ST1", Name: "Central EV", Location: "123 Main St", Status: models.StationStatusActive, SlotIDs: []string{"CS1", "CS2"}}))
	require.NoError(t, store.SavePaymentGateway(ctx, &models.PaymentGateway{ID: "GW1", Name: "Simulated", Provider: "sim", Status: models.GatewayActive}))
	return store
}

func newEnv(t *testing.T) *env {
	return newEnvWithStore(t, seededStore(t), payment.Options{Default: payment.MethodCreditCard})
}

func newEnvWithStore(t *testing.T, mem *repository.MemoryStore, opts payment.Options) *env {
	t.Helper()
	e := &env{
		store:  mem,
		clock:  clock.NewManual(t0),
		events: &events.Recorder{},
		cache:  &recordingCache{saved: map[string]redisstore.ActiveSession{}},
	}
	e.deps = Deps{
		Store:     mem,
		Payments:  payment.NewSet(opts, nil, payment.NewCreditCard(payment.NewSimulatedGateway(mem)), payment.PayPal{}),
		Clock:     e.clock,
		Policy:    DefaultPolicy(),
		Publisher: e.events,
		Cache:     e.cache,
	}
	return e
}

func (e *env) reservations() *ReservationService { return NewReservationService(e.deps) }
func (e *env) charging() *ChargingService         { return NewChargingService(e.deps) }
func (e *env) sweeper() *Sweeper                  { return NewSweeper(e.deps) }

func (e *env) slotStatus(t *testing.T, id string) models.SlotStatus {
	t.Helper()
	slot, err := e.store.FindSlotByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, slot)
	return slot.Status
}

// failingStore injects faults into selected Store calls.
type failingStore struct {
	repository.Store
	saveReservation error
	savePayment     error
	saveSession     error
	findSessions    error
	findUser        error
}

func (f *failingStore) SaveReservation(ctx context.Context, r *models.Reservation) error {
	if f.saveReservation != nil {
		return f.saveReservation
	}
	return f.Store.SaveReservation(ctx, r)
}

func (f *failingStore) SavePayment(ctx context.Context, p *models.Payment) error {
	if f.savePayment != nil {
		return f.savePayment
	}
	return f.Store.SavePayment(ctx, p)
}

func (f *failingStore) SaveSession(ctx context.Context, s *models.ChargingSession) error {
	if f.saveSession != nil {
		return f.saveSession
	}
	return f.Store.SaveSession(ctx, s)
}

func (f *failingStore) FindAllSessions(ctx context.Context) ([]models.ChargingSession, error) {
	if f.findSessions != nil {
		return nil, f.findSessions
	}
	return f.Store.FindAllSessions(ctx)
}

func (f *failingStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	if f.findUser != nil {
		return nil, f.findUser
	}
	return f.Store.FindUserByID(ctx, id)
}

type recordingCache struct {
	mu      sync.Mutex
	saved   map[string]redisstore.ActiveSession
	deleted []string
	err     error
}

func (c *recordingCache) Save(_ context.Context, s redisstore.ActiveSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.saved[s.SessionID] = s
	return nil
}

func (c *recordingCache) Delete(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, id)
	delete(c.saved, id)
	return c.err
}
