package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartpark/backend/services/booking-service/internal/events"
	"smartpark/backend/services/booking-service/internal/models"
)

func TestSweepEndsOverdueSessionOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.charging()

	session := startSession(t, svc, "U001")
	paid, err := svc.ProcessPayment(ctx, pay(session.ID, "CS1", "Credit Card", "8.00"))
	require.NoError(t, err)
	require.Nil(t, paid.Failure)

	// scheduled end is ten minutes in the past
	e.clock.Advance(2*time.Hour + 10*time.Minute)

	report, err := e.sweeper().Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{SessionsEnded: 1, Released: 1}, report)

	stored, err := svc.FindSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionCompleted, stored.Status)
	require.NotNil(t, stored.EndTime)
	assert.Equal(t, e.clock.Now(), *stored.EndTime)
	assert.InDelta(t, 65.0, stored.EnergyUsedKWh, 0.001)
	assert.Equal(t, "8.00", stored.TotalAmount.StringFixed(2))
	assert.Equal(t, models.SlotStatusAvailable, e.slotStatus(t, "CS1"))
	assert.Equal(t, []string{session.ID}, e.cache.deleted)

	again, err := e.sweeper().Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Released)
}

func TestSweepLeavesSessionsWithoutScheduledEnd(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	session := startSession(t, e.charging(), "U001")

	e.clock.Advance(48 * time.Hour)
	report, err := e.sweeper().Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Released)

	stored, err := e.store.FindSessionByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SessionActive, stored.Status)
}

func TestSweepExpiresPastReservations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.reservations()

	past, err := svc.MakeReservation(ctx, book("S001", "Credit Card", t0, time.Hour))
	require.NoError(t, err)
	require.True(t, past.OK())
	boundary, err := svc.MakeReservation(ctx, book("S002", "Credit Card", t0, 2*time.Hour))
	require.NoError(t, err)
	require.True(t, boundary.OK())

	e.clock.Advance(2 * time.Hour)
	report, err := e.sweeper().Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, SweepReport{ReservationsExpired: 1, Released: 1}, report)

	stored, err := svc.FindReservation(ctx, past.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationExpired, stored.Status)
	assert.Equal(t, models.SlotStatusAvailable, e.slotStatus(t, "S001"))

	// ends exactly now, so still running
	kept, err := svc.FindReservation(ctx, boundary.Reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, kept.Status)
	assert.Equal(t, models.SlotStatusOccupied, e.slotStatus(t, "S002"))

	types := e.events.Types()
	assert.Equal(t, events.ReservationExpired, types[len(types)-1])

	e.clock.Advance(time.Second)
	report, err = e.sweeper().Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ReservationsExpired)
}

func TestSweepSkipsCancelledReservations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	svc := e.reservations()

	made, err := svc.MakeReservation(ctx, book("S001", "Credit Card", t0, time.Hour))
	require.NoError(t, err)
	_, err = svc.CancelReservation(ctx, made.Reservation.ID)
	require.NoError(t, err)

	e.clock.Advance(3 * time.Hour)
	report, err := e.sweeper().Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Released)
}

func TestSweepPropagatesStoreFault(t *testing.T) {
	e := newEnv(t)
	e.deps.Store = &failingStore{Store: e.store, findSessions: errBoom}

	_, err := e.sweeper().Sweep(context.Background())
	assert.ErrorIs(t, err, errBoom)
}
