package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"smartpark/backend/services/booking-service/internal/events"
	"smartpark/backend/services/booking-service/internal/locks"
	"smartpark/backend/services/booking-service/internal/models"
	"smartpark/backend/services/booking-service/internal/payment"
	"smartpark/backend/services/booking-service/internal/registry"
)

// MakeReservationInput is a parking booking request.
type MakeReservationInput struct {
	UserID string
	SlotID string
	Start  time.Time
	End    time.Time
	Method string
}

// ReservationResult carries either the booking or the reason it was refused.
type ReservationResult struct {
	Reservation *models.Reservation `json:"reservation,omitempty"`
	Payment     *models.Payment     `json:"payment,omitempty"`
	Failure     *Failure            `json:"failure,omitempty"`
}

// OK reports whether the operation succeeded.
func (r ReservationResult) OK() bool { return r.Failure == nil }

// RefundResult is the outcome of a refund request.
type RefundResult struct {
	Payment *models.Payment `json:"payment,omitempty"`
	Failure *Failure        `json:"failure,omitempty"`
}

// ReservationService books and cancels parking slots.
type ReservationService struct {
	deps Deps
}

// NewReservationService builds the reservation engine.
func NewReservationService(deps Deps) *ReservationService {
	return &ReservationService{deps: deps.normalized()}
}

// MakeReservation books a parking slot for [Start, End) and charges for it.
// Nothing is persisted unless payment is approved.
func (s *ReservationService) MakeReservation(ctx context.Context, in MakeReservationInput) (ReservationResult, error) {
	defer s.deps.Metrics.Observe("make_reservation", time.Now())

	user, err := s.deps.Store.FindUserByID(ctx, in.UserID)
	if err != nil {
		return ReservationResult{}, fmt.Errorf("make reservation: %w", err)
	}
	if user == nil {
		return s.refuse(fail(CodeUserNotFound, "user %s not found", in.UserID)), nil
	}

	slot, err := s.deps.Registry.Get(ctx, in.SlotID)
	if errors.Is(err, registry.ErrSlotNotFound) || (err == nil && slot.Kind != models.SlotKindParking) {
		return s.refuse(fail(CodeSlotNotFound, "parking slot %s not found", in.SlotID)), nil
	}
	if err != nil {
		return ReservationResult{}, fmt.Errorf("make reservation: %w", err)
	}

	unlock, err := s.deps.Locker.Lock(ctx, locks.SlotKey(slot.ID))
	if err != nil {
		return ReservationResult{}, fmt.Errorf("make reservation: %w", err)
	}
	defer unlock()

	// Re-read under the lock; a concurrent booking may have taken it.
	slot, err = s.deps.Registry.Get(ctx, slot.ID)
	if err != nil {
		return ReservationResult{}, fmt.Errorf("make reservation: %w", err)
	}
	if !slot.Available() {
		return s.refuse(fail(CodeSlotUnavailable, "slot %s is not available, pick another slot", slot.ID)), nil
	}

	reservation := &models.Reservation{
		ID:        newID("RES-"),
		UserID:    user.ID,
		SlotID:    slot.ID,
		StartTime: in.Start.UTC(),
		EndTime:   in.End.UTC(),
		Status:    models.ReservationPending,
	}
	if !reservation.ValidWindow() {
		return s.refuse(fail(CodeInvalidWindow, "end time must be after start time")), nil
	}
	reservation.TotalCost = models.ReservationCost(reservation.StartTime, reservation.EndTime, s.deps.Policy.BillingUnit, slot.PricePerUnit)

	strategy, err := s.deps.Payments.Resolve(in.Method)
	if errors.Is(err, payment.ErrUnknownMethod) {
		return s.refuse(fail(CodeUnknownPaymentMethod, "payment method %q is not supported", in.Method)), nil
	}
	if err != nil {
		return ReservationResult{}, fmt.Errorf("make reservation: %w", err)
	}

	approved, err := strategy.Authorize(ctx, reservation.TotalCost)
	if err != nil {
		return ReservationResult{}, fmt.Errorf("make reservation: authorize: %w", err)
	}
	if !approved {
		s.deps.Metrics.Payment(strategy.Name(), "declined")
		s.deps.Logger.Warn("reservation payment declined",
			zap.String("user_id", user.ID),
			zap.String("slot_id", slot.ID),
			zap.String("method", strategy.Name()),
			zap.String("amount", reservation.TotalCost.StringFixed(2)),
		)
		return s.refuse(fail(CodePaymentFailed, "payment of %s by %s failed, try another method",
			reservation.TotalCost.StringFixed(2), strategy.Name())), nil
	}
	s.deps.Metrics.Payment(strategy.Name(), "approved")

	if _, err := s.deps.Registry.Lock(ctx, slot.ID); err != nil {
		if errors.Is(err, registry.ErrSlotUnavailable) {
			return s.refuse(fail(CodeSlotUnavailable, "slot %s is not available, pick another slot", slot.ID)), nil
		}
		return ReservationResult{}, fmt.Errorf("make reservation: %w", err)
	}

	now := s.deps.Clock.Now()
	paid := &models.Payment{
		ID:            newID("PAY-"),
		Amount:        reservation.TotalCost,
		Method:        strategy.Name(),
		Status:        models.PaymentSuccess,
		PaidAt:        now,
		ReservationID: reservation.ID,
	}
	reservation.PaymentID = paid.ID
	reservation.Status = models.ReservationConfirmed

	if err := s.deps.Store.SavePayment(ctx, paid); err != nil {
		s.undoLock(ctx, slot.ID)
		return ReservationResult{}, fmt.Errorf("make reservation: %w", err)
	}
	if err := s.deps.Store.SaveReservation(ctx, reservation); err != nil {
		voidPayment(ctx, s.deps, paid)
		s.undoLock(ctx, slot.ID)
		return ReservationResult{}, fmt.Errorf("make reservation: %w", err)
	}

	s.deps.Metrics.Reservation("confirmed")
	s.deps.Publisher.Publish(ctx, events.Event{
		Type:          events.ReservationConfirmed,
		SlotID:        slot.ID,
		ReservationID: reservation.ID,
		UserID:        user.ID,
		At:            now,
	})
	s.deps.Logger.Info("reservation confirmed",
		zap.String("reservation_id", reservation.ID),
		zap.String("user_id", user.ID),
		zap.String("slot_id", slot.ID),
		zap.String("total_cost", reservation.TotalCost.StringFixed(2)),
	)
	return ReservationResult{Reservation: reservation, Payment: paid}, nil
}

func (s *ReservationService) refuse(f *Failure) ReservationResult {
	s.deps.Metrics.Reservation(string(f.Code))
	return ReservationResult{Failure: f}
}

func (s *ReservationService) undoLock(ctx context.Context, slotID string) {
	undoLock(ctx, s.deps, slotID)
}

func undoLock(ctx context.Context, deps Deps, slotID string) {
	if _, err := deps.Registry.Release(ctx, slotID); err != nil {
		deps.Logger.Error("failed to release slot after persistence fault", zap.String("slot_id", slotID), zap.Error(err))
	}
}

// voidPayment marks a saved payment Failed once the record it pays for could
// not be written.
func voidPayment(ctx context.Context, deps Deps, paid *models.Payment) {
	paid.Status = models.PaymentFailed
	if err := deps.Store.SavePayment(ctx, paid); err != nil {
		deps.Logger.Error("failed to void payment after persistence fault", zap.String("payment_id", paid.ID), zap.Error(err))
	}
}

// CancelReservation cancels a pending or confirmed reservation and frees its slot.
func (s *ReservationService) CancelReservation(ctx context.Context, reservationID string) (ReservationResult, error) {
	defer s.deps.Metrics.Observe("cancel_reservation", time.Now())

	unlock, err := s.deps.Locker.Lock(ctx, locks.ReservationKey(reservationID))
	if err != nil {
		return ReservationResult{}, fmt.Errorf("cancel reservation: %w", err)
	}
	defer unlock()

	reservation, err := s.deps.Store.FindReservationByID(ctx, reservationID)
	if err != nil {
		return ReservationResult{}, fmt.Errorf("cancel reservation: %w", err)
	}
	if reservation == nil {
		return ReservationResult{Failure: fail(CodeReservationNotFound, "reservation %s not found", reservationID)}, nil
	}
	switch reservation.Status {
	case models.ReservationCancelled:
		return ReservationResult{Reservation: reservation, Failure: fail(CodeAlreadyCancelled, "reservation %s is already cancelled", reservationID)}, nil
	case models.ReservationExpired:
		return ReservationResult{Reservation: reservation, Failure: fail(CodeReservationExpired, "reservation %s has already expired", reservationID)}, nil
	}

	releaseSlot, err := s.deps.Locker.Lock(ctx, locks.SlotKey(reservation.SlotID))
	if err != nil {
		return ReservationResult{}, fmt.Errorf("cancel reservation: %w", err)
	}
	defer releaseSlot()

	reservation.Cancel()
	if err := s.deps.Store.SaveReservation(ctx, reservation); err != nil {
		return ReservationResult{}, fmt.Errorf("cancel reservation: %w", err)
	}
	if _, err := s.deps.Registry.Release(ctx, reservation.SlotID); err != nil {
		return ReservationResult{}, fmt.Errorf("cancel reservation: %w", err)
	}

	s.deps.Metrics.Reservation("cancelled")
	s.deps.Publisher.Publish(ctx, events.Event{
		Type:          events.ReservationCancelled,
		SlotID:        reservation.SlotID,
		ReservationID: reservation.ID,
		UserID:        reservation.UserID,
		At:            s.deps.Clock.Now(),
	})
	s.deps.Logger.Info("reservation cancelled",
		zap.String("reservation_id", reservation.ID),
		zap.String("slot_id", reservation.SlotID),
	)
	return ReservationResult{Reservation: reservation}, nil
}

// RefundPayment moves a successful payment to Refunded.
func (s *ReservationService) RefundPayment(ctx context.Context, paymentID string) (RefundResult, error) {
	unlock, err := s.deps.Locker.Lock(ctx, locks.PaymentKey(paymentID))
	if err != nil {
		return RefundResult{}, fmt.Errorf("refund payment: %w", err)
	}
	defer unlock()

	paid, err := s.deps.Store.FindPaymentByID(ctx, paymentID)
	if err != nil {
		return RefundResult{}, fmt.Errorf("refund payment: %w", err)
	}
	if paid == nil {
		return RefundResult{Failure: fail(CodePaymentNotFound, "payment %s not found", paymentID)}, nil
	}
	if !paid.Refund() {
		return RefundResult{Payment: paid, Failure: fail(CodeNotRefundable, "payment %s is %s and cannot be refunded", paymentID, paid.Status)}, nil
	}
	if err := s.deps.Store.SavePayment(ctx, paid); err != nil {
		return RefundResult{}, fmt.Errorf("refund payment: %w", err)
	}
	s.deps.Metrics.Payment(paid.Method, "refunded")
	s.deps.Logger.Info("payment refunded", zap.String("payment_id", paid.ID), zap.String("amount", paid.Amount.StringFixed(2)))
	return RefundResult{Payment: paid}, nil
}

// FindReservation returns the reservation or nil.
func (s *ReservationService) FindReservation(ctx context.Context, reservationID string) (*models.Reservation, error) {
	return s.deps.Store.FindReservationByID(ctx, reservationID)
}

// FindPayment returns the payment or nil.
func (s *ReservationService) FindPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	return s.deps.Store.FindPaymentByID(ctx, paymentID)
}

// ReservationsForUser lists a user's reservations in booking order.
func (s *ReservationService) ReservationsForUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	return s.deps.Store.FindReservationsByUser(ctx, userID)
}

// AvailableSlots lists bookable parking slots, optionally of one type.
func (s *ReservationService) AvailableSlots(ctx context.Context, slotType string) ([]models.Slot, error) {
	return s.deps.Registry.FindAvailable(ctx, registry.Filter{Kind: models.SlotKindParking, SlotType: slotType})
}

// PaymentMethodNames lists the accepted payment methods.
func (s *ReservationService) PaymentMethodNames() []string {
	return s.deps.Payments.Names()
}
