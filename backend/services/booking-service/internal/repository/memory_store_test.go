package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartpark/backend/services/booking-service/internal/models"
)

func TestMemoryStoreFindReturnsNilWhenMissing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	u, err := s.FindUserByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, u)

	r, err := s.FindReservationByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, r)

	gw, err := s.DefaultPaymentGateway(ctx)
	require.NoError(t, err)
	assert.Nil(t, gw)

	all, err := s.FindAllSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestMemoryStoreUpsertKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, id := range []string{"S3", "S1", "S2"} {
		require.NoError(t, s.SaveSlot(ctx, &models.Slot{ID: id, Status: models.SlotStatusAvailable}))
	}
	require.NoError(t, s.SaveSlot(ctx, &models.Slot{ID: "S1", Status: models.SlotStatusOccupied}))

	slots, err := s.FindAllSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, []string{"S3", "S1", "S2"}, []string{slots[0].ID, slots[1].ID, slots[2].ID})
	assert.Equal(t, models.SlotStatusOccupied, slots[1].Status)
}

func TestMemoryStoreCopiesOnReadAndWrite(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	slot := &models.Slot{ID: "CS1", ModeIDs: []string{"M1"}, Status: models.SlotStatusAvailable}
	require.NoError(t, s.SaveSlot(ctx, slot))
	slot.ModeIDs[0] = "changed"
	slot.Status = models.SlotStatusFaulty

	got, err := s.FindSlotByID(ctx, "CS1")
	require.NoError(t, err)
	assert.Equal(t, []string{"M1"}, got.ModeIDs)
	assert.Equal(t, models.SlotStatusAvailable, got.Status)

	end := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	session := &models.ChargingSession{ID: "CHG-1", UserID: "U1", Status: models.SessionActive, ScheduledEndTime: &end}
	require.NoError(t, s.SaveSession(ctx, session))
	*session.ScheduledEndTime = end.Add(time.Hour)

	stored, err := s.FindSessionByID(ctx, "CHG-1")
	require.NoError(t, err)
	assert.True(t, stored.ScheduledEndTime.Equal(end))
}

func TestMemoryStoreDeleteLotCascadesToSlots(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SaveSlot(ctx, &models.Slot{ID: "S1", OwnerID: "L1"}))
	require.NoError(t, s.SaveSlot(ctx, &models.Slot{ID: "S2", OwnerID: "L1"}))
	require.NoError(t, s.SaveSlot(ctx, &models.Slot{ID: "CS1", OwnerID: "ST1"}))
	require.NoError(t, s.SaveLot(ctx, &models.ParkingLot{ID: "L1", SlotIDs: []string{"S1", "S2"}}))
	require.NoError(t, s.SaveStation(ctx, &models.ChargingStation{ID: "ST1", SlotIDs: []string{"CS1"}}))

	require.NoError(t, s.DeleteLot(ctx, "L1"))
	require.NoError(t, s.DeleteLot(ctx, "L1"))

	lots, err := s.FindAllLots(ctx)
	require.NoError(t, err)
	assert.Empty(t, lots)

	slots, err := s.FindAllSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, "CS1", slots[0].ID)

	require.NoError(t, s.DeleteStation(ctx, "ST1"))
	slots, err = s.FindAllSlots(ctx)
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestMemoryStoreQueriesByUserAndEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SaveUser(ctx, &models.User{ID: "U1", Email: "Driver@Example.com"}))
	require.NoError(t, s.SaveReservation(ctx, &models.Reservation{ID: "R1", UserID: "U1", TotalCost: decimal.NewFromInt(5)}))
	require.NoError(t, s.SaveReservation(ctx, &models.Reservation{ID: "R2", UserID: "U2"}))
	require.NoError(t, s.SaveSession(ctx, &models.ChargingSession{ID: "C1", UserID: "U1"}))

	u, err := s.FindUserByEmail(ctx, " driver@example.com ")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "U1", u.ID)

	res, err := s.FindReservationsByUser(ctx, "U1")
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "R1", res[0].ID)

	sessions, err := s.FindSessionsByUser(ctx, "U2")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestMemoryStoreDefaultGatewayIsFirstSaved(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.SavePaymentGateway(ctx, &models.PaymentGateway{ID: "GW1", Status: models.GatewayActive}))
	require.NoError(t, s.SavePaymentGateway(ctx, &models.PaymentGateway{ID: "GW2", Status: models.GatewayInactive}))

	gw, err := s.DefaultPaymentGateway(ctx)
	require.NoError(t, err)
	require.NotNil(t, gw)
	assert.Equal(t, "GW1", gw.ID)
}
