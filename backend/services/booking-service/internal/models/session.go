package models

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the lifecycle state of a charging session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionCancelled SessionStatus = "cancelled"
)

// ChargingSession is a claim on a charging slot, billed by energy.
// Slot, mode and price stay empty until the session is paid for.
type ChargingSession struct {
	ID               string          `db:"id" json:"id"`
	UserID           string          `db:"user_id" json:"user_id"`
	SlotID           string          `db:"slot_id" json:"slot_id,omitempty"`
	ModeType         string          `db:"mode_type" json:"mode_type,omitempty"`
	PricePerUnit     decimal.Decimal `db:"price_per_unit" json:"price_per_unit"`
	StartTime        time.Time       `db:"start_time" json:"start_time"`
	EndTime          *time.Time      `db:"end_time" json:"end_time,omitempty"`
	ScheduledEndTime *time.Time      `db:"scheduled_end_time" json:"scheduled_end_time,omitempty"`
	EnergyUsedKWh    float64         `db:"energy_used_kwh" json:"energy_used_kwh"`
	TotalAmount      decimal.Decimal `db:"total_amount" json:"total_amount"`
	Status           SessionStatus   `db:"status" json:"status"`
}

// Active reports whether the session can still be paid for or stopped.
func (s *ChargingSession) Active() bool {
	return s.Status == SessionActive
}

// Overdue reports whether the scheduled end lies strictly before now.
// Sessions without a scheduled end are never overdue.
func (s *ChargingSession) Overdue(now time.Time) bool {
	return s.Active() && s.ScheduledEndTime != nil && s.ScheduledEndTime.Before(now)
}

// End completes the session at now. Energy is derived from elapsed whole minutes at
// kwhPerMinute only when none was recorded, and the amount only when it is still zero.
// It returns false if the session had already ended.
func (s *ChargingSession) End(now time.Time, kwhPerMinute float64) bool {
	if !s.Active() {
		return false
	}
	end := now
	s.EndTime = &end
	s.Status = SessionCompleted

	if s.EnergyUsedKWh <= 0 {
		minutes := math.Floor(end.Sub(s.StartTime).Minutes())
		if minutes < 0 {
			minutes = 0
		}
		s.EnergyUsedKWh = math.Round(minutes*kwhPerMinute*100) / 100
	}
	if s.TotalAmount.IsZero() && s.PricePerUnit.IsPositive() && s.EnergyUsedKWh > 0 {
		s.TotalAmount = s.PricePerUnit.Mul(decimal.NewFromFloat(s.EnergyUsedKWh)).Round(2)
	}
	return true
}
