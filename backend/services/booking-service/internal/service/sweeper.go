package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smartpark/backend/services/booking-service/internal/events"
	"smartpark/backend/services/booking-service/internal/locks"
	"smartpark/backend/services/booking-service/internal/models"
)

// SweepReport counts what a sweep terminated.
type SweepReport struct {
	SessionsEnded       int `json:"sessions_ended"`
	ReservationsExpired int `json:"reservations_expired"`
	Released            int `json:"released"`
}

// Sweeper force-ends overdue sessions and expires past reservations.
// It does not schedule itself.
type Sweeper struct {
	deps Deps
}

// NewSweeper builds the expiration sweeper.
func NewSweeper(deps Deps) *Sweeper {
	return &Sweeper{deps: deps.normalized()}
}

// Sweep ends every active session whose scheduled end has passed and
// expires every confirmed reservation whose end lies strictly before now.
// Running it again right away releases nothing.
func (s *Sweeper) Sweep(ctx context.Context) (SweepReport, error) {
	defer s.deps.Metrics.Observe("sweep", time.Now())

	var report SweepReport
	now := s.deps.Clock.Now()

	sessions, err := s.deps.Store.FindAllSessions(ctx)
	if err != nil {
		return report, fmt.Errorf("sweep sessions: %w", err)
	}
	for _, cs := range sessions {
		if !cs.Overdue(now) {
			continue
		}
		ended, err := s.endOverdueSession(ctx, cs.ID)
		if err != nil {
			return report, fmt.Errorf("sweep session %s: %w", cs.ID, err)
		}
		if ended {
			report.SessionsEnded++
		}
	}

	reservations, err := s.deps.Store.FindAllReservations(ctx)
	if err != nil {
		return report, fmt.Errorf("sweep reservations: %w", err)
	}
	for _, r := range reservations {
		if r.Status != models.ReservationConfirmed || !r.EndTime.Before(now) {
			continue
		}
		expired, err := s.expireReservation(ctx, r.ID)
		if err != nil {
			return report, fmt.Errorf("sweep reservation %s: %w", r.ID, err)
		}
		if expired {
			report.ReservationsExpired++
		}
	}

	report.Released = report.SessionsEnded + report.ReservationsExpired
	s.deps.Metrics.SweepReleased(report.Released)
	if report.Released > 0 {
		s.deps.Logger.Info("sweep released resources",
			zap.Int("sessions_ended", report.SessionsEnded),
			zap.Int("reservations_expired", report.ReservationsExpired),
		)
	}
	return report, nil
}

func (s *Sweeper) endOverdueSession(ctx context.Context, sessionID string) (bool, error) {
	unlock, err := s.deps.Locker.Lock(ctx, locks.SessionKey(sessionID))
	if err != nil {
		return false, err
	}
	defer unlock()

	session, err := s.deps.Store.FindSessionByID(ctx, sessionID)
	if err != nil {
		return false, err
	}
	// Re-checked under the lock: a manual stop may have won the race.
	if session == nil || !session.Overdue(s.deps.Clock.Now()) {
		return false, nil
	}
	if err := finishSession(ctx, s.deps, session); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Sweeper) expireReservation(ctx context.Context, reservationID string) (bool, error) {
	unlock, err := s.deps.Locker.Lock(ctx, locks.ReservationKey(reservationID))
	if err != nil {
		return false, err
	}
	defer unlock()

	reservation, err := s.deps.Store.FindReservationByID(ctx, reservationID)
	if err != nil {
		return false, err
	}
	now := s.deps.Clock.Now()
	if reservation == nil || !reservation.EndTime.Before(now) || !reservation.Expire() {
		return false, nil
	}

	unlockSlot, err := s.deps.Locker.Lock(ctx, locks.SlotKey(reservation.SlotID))
	if err != nil {
		return false, err
	}
	defer unlockSlot()

	if err := s.deps.Store.SaveReservation(ctx, reservation); err != nil {
		return false, err
	}
	if _, err := s.deps.Registry.Release(ctx, reservation.SlotID); err != nil {
		return false, err
	}
	s.deps.Metrics.Reservation("expired")
	s.deps.Publisher.Publish(ctx, events.Event{
		Type:          events.ReservationExpired,
		SlotID:        reservation.SlotID,
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		At:            now,
	})
	return true, nil
}
