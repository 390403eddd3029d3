package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smartpark/backend/services/booking-service/internal/events"
	"smartpark/backend/services/booking-service/internal/locks"
	"smartpark/backend/services/booking-service/internal/models"
	"smartpark/backend/services/booking-service/internal/payment"
	redisstore "smartpark/backend/services/booking-service/internal/redis"
	"smartpark/backend/services/booking-service/internal/registry"
)

// SessionResult carries a session or the reason it could not be produced.
type SessionResult struct {
	Session *models.ChargingSession `json:"session,omitempty"`
	Failure *Failure                `json:"failure,omitempty"`
}

// ChargingDetails is the price and speed quoted for a mode at a specific slot.
type ChargingDetails struct {
	ModeType        string          `json:"mode_type"`
	PricePerUnit    decimal.Decimal `json:"price_per_unit"`
	ChargingSpeedKW float64         `json:"charging_speed_kw"`
	SlotID          string          `json:"slot_id"`
	SlotLabel       string          `json:"slot_label"`
	StationID       string          `json:"station_id"`
}

// ModeResult is the outcome of SelectMode.
type ModeResult struct {
	Details *ChargingDetails `json:"details,omitempty"`
	Failure *Failure         `json:"failure,omitempty"`
}

// ProcessPaymentInput pays for a session at a chosen slot and mode.
type ProcessPaymentInput struct {
	Method       string
	Amount       decimal.Decimal
	SessionID    string
	SlotID       string
	ModeType     string
	PricePerUnit decimal.Decimal
}

// PaymentResult is the outcome of ProcessPayment.
type PaymentResult struct {
	Payment *models.Payment         `json:"payment,omitempty"`
	Session *models.ChargingSession `json:"session,omitempty"`
	Receipt string                  `json:"receipt,omitempty"`
	Reward  string                  `json:"reward,omitempty"`
	Failure *Failure                `json:"failure,omitempty"`
}

// StopResult is the outcome of StopCharging.
type StopResult struct {
	Session       *models.ChargingSession `json:"session,omitempty"`
	EndTime       time.Time               `json:"end_time"`
	EnergyUsedKWh float64                 `json:"energy_used_kwh"`
	Failure       *Failure                `json:"failure,omitempty"`
}

var fallbackModeTypes = []string{"fast", "normal"}

// ChargingService runs the five-step charging interaction. Each step stands
// on its own; a caller may stop between any two.
type ChargingService struct {
	deps Deps
}

// NewChargingService builds the charging engine.
func NewChargingService(deps Deps) *ChargingService {
	return &ChargingService{deps: deps.normalized()}
}

// StartCharging opens an active session with no slot attached yet.
func (s *ChargingService) StartCharging(ctx context.Context, userID string) (SessionResult, error) {
	user, err := s.deps.Store.FindUserByID(ctx, userID)
	if err != nil {
		return SessionResult{}, fmt.Errorf("start charging: %w", err)
	}
	if user == nil {
		return SessionResult{Failure: fail(CodeUserNotFound, "user %s not found", userID)}, nil
	}

	session := &models.ChargingSession{
		ID:        newID("CHG-"),
		UserID:    user.ID,
		StartTime: s.deps.Clock.Now(),
		Status:    models.SessionActive,
	}
	if err := s.deps.Store.SaveSession(ctx, session); err != nil {
		return SessionResult{}, fmt.Errorf("start charging: %w", err)
	}

	s.deps.Metrics.ChargingSession("started")
	s.deps.Publisher.Publish(ctx, events.Event{Type: events.SessionStarted, SessionID: session.ID, UserID: user.ID, At: session.StartTime})
	s.deps.Logger.Info("charging session started", zap.String("session_id", session.ID), zap.String("user_id", user.ID))
	return SessionResult{Session: session}, nil
}

// RequestSlots lists available charging slots at active stations whose
// location contains the filter. A blank filter matches every station.
func (s *ChargingService) RequestSlots(ctx context.Context, location string) ([]models.Slot, error) {
	return s.deps.Registry.FindAvailable(ctx, registry.Filter{Kind: models.SlotKindCharging, Location: location})
}

// SelectMode quotes the first slot, in station order, that offers modeType.
func (s *ChargingService) SelectMode(ctx context.Context, modeType string) (ModeResult, error) {
	modes, err := s.deps.Store.FindAllChargingModes(ctx)
	if err != nil {
		return ModeResult{}, fmt.Errorf("select mode: %w", err)
	}
	byID := make(map[string]models.ChargingMode, len(modes))
	for _, m := range modes {
		byID[m.ID] = m
	}

	stations, err := s.deps.Store.FindAllStations(ctx)
	if err != nil {
		return ModeResult{}, fmt.Errorf("select mode: %w", err)
	}
	slots, err := s.deps.Store.FindAllSlots(ctx)
	if err != nil {
		return ModeResult{}, fmt.Errorf("select mode: %w", err)
	}
	arena := make(map[string]models.Slot, len(slots))
	for _, slot := range slots {
		arena[slot.ID] = slot
	}

	wanted := strings.TrimSpace(modeType)
	for _, st := range stations {
		if !st.Active() {
			continue
		}
		for _, slotID := range st.SlotIDs {
			slot, ok := arena[slotID]
			if !ok || slot.Kind != models.SlotKindCharging {
				continue
			}
			for _, modeID := range slot.ModeIDs {
				mode, ok := byID[modeID]
				if !ok || !strings.EqualFold(mode.ModeType, wanted) {
					continue
				}
				return ModeResult{Details: &ChargingDetails{
					ModeType:        mode.ModeType,
					PricePerUnit:    mode.PricePerUnit,
					ChargingSpeedKW: mode.ChargingSpeedKW,
					SlotID:          slot.ID,
					SlotLabel:       slot.Label,
					StationID:       st.ID,
				}}, nil
			}
		}
	}
	return ModeResult{Failure: fail(CodeModeNotAvailable, "charging mode %q is not available at any station", modeType)}, nil
}

// ProcessPayment authorizes the amount and, once approved, attaches the slot,
// mode and price to the session and occupies the slot. A declined payment
// changes nothing.
func (s *ChargingService) ProcessPayment(ctx context.Context, in ProcessPaymentInput) (PaymentResult, error) {
	defer s.deps.Metrics.Observe("process_payment", time.Now())

	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return PaymentResult{Failure: fail(CodeInvalidAmount, "amount must be greater than zero")}, nil
	}

	unlock, err := s.deps.Locker.Lock(ctx, locks.SessionKey(in.SessionID))
	if err != nil {
		return PaymentResult{}, fmt.Errorf("process payment: %w", err)
	}
	defer unlock()

	session, err := s.deps.Store.FindSessionByID(ctx, in.SessionID)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("process payment: %w", err)
	}
	if session == nil {
		return PaymentResult{Failure: fail(CodeSessionNotFound, "charging session %s not found", in.SessionID)}, nil
	}
	if !session.Active() {
		return PaymentResult{Session: session, Failure: fail(CodeAlreadyEnded, "charging session %s has already ended", session.ID)}, nil
	}
	if session.SlotID != "" {
		return PaymentResult{Session: session, Failure: fail(CodeAlreadyPaid, "charging session %s is already paid for slot %s", session.ID, session.SlotID)}, nil
	}

	slot, err := s.deps.Registry.Get(ctx, in.SlotID)
	if errors.Is(err, registry.ErrSlotNotFound) || (err == nil && slot.Kind != models.SlotKindCharging) {
		return PaymentResult{Failure: fail(CodeSlotNotFound, "charging slot %s not found", in.SlotID)}, nil
	}
	if err != nil {
		return PaymentResult{}, fmt.Errorf("process payment: %w", err)
	}

	unlockSlot, err := s.deps.Locker.Lock(ctx, locks.SlotKey(slot.ID))
	if err != nil {
		return PaymentResult{}, fmt.Errorf("process payment: %w", err)
	}
	defer unlockSlot()

	slot, err = s.deps.Registry.Get(ctx, slot.ID)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("process payment: %w", err)
	}
	if !slot.Available() {
		return PaymentResult{Failure: fail(CodeSlotUnavailable, "charging slot %s is not available, request slots again", slot.ID)}, nil
	}

	strategy, err := s.deps.Payments.Resolve(in.Method)
	if errors.Is(err, payment.ErrUnknownMethod) {
		return PaymentResult{Failure: fail(CodeUnknownPaymentMethod, "payment method %q is not supported", in.Method)}, nil
	}
	if err != nil {
		return PaymentResult{}, fmt.Errorf("process payment: %w", err)
	}
	approved, err := strategy.Authorize(ctx, amount)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("process payment: authorize: %w", err)
	}
	if !approved {
		s.deps.Metrics.Payment(strategy.Name(), "declined")
		s.deps.Logger.Warn("charging payment declined",
			zap.String("session_id", session.ID),
			zap.String("method", strategy.Name()),
			zap.String("amount", amount.StringFixed(2)),
		)
		return PaymentResult{Failure: fail(CodePaymentDenied, "payment denied by gateway, try another method")}, nil
	}
	s.deps.Metrics.Payment(strategy.Name(), "approved")

	reward, err := s.rewardMessage(ctx, session.UserID)
	if err != nil {
		return PaymentResult{}, fmt.Errorf("process payment: %w", err)
	}

	if _, err := s.deps.Registry.Lock(ctx, slot.ID); err != nil {
		if errors.Is(err, registry.ErrSlotUnavailable) {
			return PaymentResult{Failure: fail(CodeSlotUnavailable, "charging slot %s is not available, request slots again", slot.ID)}, nil
		}
		return PaymentResult{}, fmt.Errorf("process payment: %w", err)
	}

	now := s.deps.Clock.Now()
	paid := &models.Payment{
		ID:        newID("PAY-"),
		Amount:    amount,
		Method:    strategy.Name(),
		Status:    models.PaymentSuccess,
		PaidAt:    now,
		SessionID: session.ID,
	}
	if err := s.deps.Store.SavePayment(ctx, paid); err != nil {
		undoLock(ctx, s.deps, slot.ID)
		return PaymentResult{}, fmt.Errorf("process payment: %w", err)
	}

	session.SlotID = slot.ID
	session.ModeType = in.ModeType
	session.PricePerUnit = in.PricePerUnit
	session.TotalAmount = paid.Amount
	if session.ScheduledEndTime == nil {
		end := session.StartTime.Add(s.deps.Policy.DefaultChargingDuration)
		session.ScheduledEndTime = &end
	}
	if err := s.deps.Store.SaveSession(ctx, session); err != nil {
		voidPayment(ctx, s.deps, paid)
		undoLock(ctx, s.deps, slot.ID)
		return PaymentResult{}, fmt.Errorf("process payment: %w", err)
	}

	s.cacheActive(ctx, session)
	s.deps.Metrics.ChargingSession("paid")
	s.deps.Publisher.Publish(ctx, events.Event{Type: events.SessionPaid, SessionID: session.ID, SlotID: slot.ID, UserID: session.UserID, At: now})
	s.deps.Logger.Info("charging payment approved",
		zap.String("session_id", session.ID),
		zap.String("slot_id", slot.ID),
		zap.String("payment_id", paid.ID),
		zap.String("amount", paid.Amount.StringFixed(2)),
	)
	return PaymentResult{Payment: paid, Session: session, Receipt: paid.Receipt(), Reward: reward}, nil
}

// StopCharging completes an active session and frees its slot.
func (s *ChargingService) StopCharging(ctx context.Context, sessionID string) (StopResult, error) {
	defer s.deps.Metrics.Observe("stop_charging", time.Now())

	unlock, err := s.deps.Locker.Lock(ctx, locks.SessionKey(sessionID))
	if err != nil {
		return StopResult{}, fmt.Errorf("stop charging: %w", err)
	}
	defer unlock()

	session, err := s.deps.Store.FindSessionByID(ctx, sessionID)
	if err != nil {
		return StopResult{}, fmt.Errorf("stop charging: %w", err)
	}
	if session == nil {
		return StopResult{Failure: fail(CodeSessionNotFound, "charging session %s not found", sessionID)}, nil
	}
	if !session.Active() {
		return StopResult{Session: session, Failure: fail(CodeAlreadyEnded, "charging session %s has already ended", sessionID)}, nil
	}

	if err := finishSession(ctx, s.deps, session); err != nil {
		return StopResult{}, fmt.Errorf("stop charging: %w", err)
	}
	s.deps.Logger.Info("charging stopped",
		zap.String("session_id", session.ID),
		zap.Float64("energy_kwh", session.EnergyUsedKWh),
		zap.String("amount", session.TotalAmount.StringFixed(2)),
	)
	return StopResult{Session: session, EndTime: *session.EndTime, EnergyUsedKWh: session.EnergyUsedKWh}, nil
}

// ModeTypes lists the distinct charging mode types on offer.
func (s *ChargingService) ModeTypes(ctx context.Context) ([]string, error) {
	modes, err := s.deps.Store.FindAllChargingModes(ctx)
	if err != nil {
		return nil, fmt.Errorf("mode types: %w", err)
	}
	var types []string
	seen := make(map[string]bool)
	for _, m := range modes {
		if m.ModeType == "" || seen[m.ModeType] {
			continue
		}
		seen[m.ModeType] = true
		types = append(types, m.ModeType)
	}
	if len(types) == 0 {
		return append([]string(nil), fallbackModeTypes...), nil
	}
	return types, nil
}

// FindSession returns the session or nil.
func (s *ChargingService) FindSession(ctx context.Context, sessionID string) (*models.ChargingSession, error) {
	return s.deps.Store.FindSessionByID(ctx, sessionID)
}

// SessionsForUser lists a user's sessions.
func (s *ChargingService) SessionsForUser(ctx context.Context, userID string) ([]models.ChargingSession, error) {
	return s.deps.Store.FindSessionsByUser(ctx, userID)
}

// IsLoyal reports whether completed sessions plus confirmed reservations
// reach the loyalty threshold. It only reads history.
func (s *ChargingService) IsLoyal(ctx context.Context, userID string) (bool, error) {
	if userID == "" {
		return false, nil
	}
	sessions, err := s.deps.Store.FindSessionsByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	reservations, err := s.deps.Store.FindReservationsByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	count := 0
	for _, cs := range sessions {
		if cs.Status == models.SessionCompleted {
			count++
		}
	}
	for _, r := range reservations {
		if r.Status == models.ReservationConfirmed {
			count++
		}
	}
	return count >= s.deps.Policy.LoyaltyThreshold, nil
}

func (s *ChargingService) rewardMessage(ctx context.Context, userID string) (string, error) {
	loyal, err := s.IsLoyal(ctx, userID)
	if err != nil {
		return "", err
	}
	points := s.deps.Policy.RewardBasePoints
	if loyal {
		points += s.deps.Policy.RewardLoyalBonus
		return fmt.Sprintf("%d reward points added (%d bonus for loyal customer).", points, s.deps.Policy.RewardLoyalBonus), nil
	}
	return fmt.Sprintf("%d reward points added for this charge.", points), nil
}

func (s *ChargingService) cacheActive(ctx context.Context, session *models.ChargingSession) {
	if s.deps.Cache == nil {
		return
	}
	err := s.deps.Cache.Save(ctx, redisstore.ActiveSession{
		SessionID:    session.ID,
		UserID:       session.UserID,
		SlotID:       session.SlotID,
		ModeType:     session.ModeType,
		StartTime:    session.StartTime,
		ScheduledEnd: session.ScheduledEndTime,
	})
	if err != nil {
		s.deps.Logger.Warn("failed to cache active session", zap.String("session_id", session.ID), zap.Error(err))
	}
}

// finishSession ends an active session at the clock's now, persists it and
// releases its slot. Callers hold the session lock.
func finishSession(ctx context.Context, d Deps, session *models.ChargingSession) error {
	if session.SlotID != "" {
		unlock, err := d.Locker.Lock(ctx, locks.SlotKey(session.SlotID))
		if err != nil {
			return err
		}
		defer unlock()
	}

	now := d.Clock.Now()
	if !session.End(now, d.Policy.KWhPerMinute) {
		return nil
	}
	if err := d.Store.SaveSession(ctx, session); err != nil {
		return err
	}
	if _, err := d.Registry.Release(ctx, session.SlotID); err != nil {
		return err
	}
	if d.Cache != nil {
		if err := d.Cache.Delete(ctx, session.ID); err != nil {
			d.Logger.Warn("failed to delete active session cache", zap.String("session_id", session.ID), zap.Error(err))
		}
	}
	d.Metrics.ChargingSession("stopped")
	d.Publisher.Publish(ctx, events.Event{Type: events.SessionStopped, SessionID: session.ID, SlotID: session.SlotID, UserID: session.UserID, At: now})
	return nil
}
