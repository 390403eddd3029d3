package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a parking reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "Pending"
	ReservationConfirmed ReservationStatus = "Confirmed"
	ReservationCancelled ReservationStatus = "Cancelled"
	ReservationExpired   ReservationStatus = "Expired"
)

// Terminal reports whether no further transition is allowed.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationCancelled || s == ReservationExpired
}

// Reservation is a claim on a parking slot for a time window.
type Reservation struct {
	ID        string            `db:"id" json:"id"`
	UserID    string            `db:"user_id" json:"user_id"`
	SlotID    string            `db:"slot_id" json:"slot_id"`
	StartTime time.Time         `db:"start_time" json:"start_time"`
	EndTime   time.Time         `db:"end_time" json:"end_time"`
	Status    ReservationStatus `db:"status" json:"status"`
	TotalCost decimal.Decimal   `db:"total_cost" json:"total_cost"`
	PaymentID string            `db:"payment_id" json:"payment_id,omitempty"`
}

// ValidWindow reports whether the end is strictly after the start.
func (r *Reservation) ValidWindow() bool {
	return !r.StartTime.IsZero() && !r.EndTime.IsZero() && r.EndTime.After(r.StartTime)
}

// Cancel moves the reservation to Cancelled. It returns false for terminal reservations.
func (r *Reservation) Cancel() bool {
	if r.Status.Terminal() {
		return false
	}
	r.Status = ReservationCancelled
	return true
}

// Expire moves a confirmed reservation to Expired.
func (r *Reservation) Expire() bool {
	if r.Status != ReservationConfirmed {
		return false
	}
	r.Status = ReservationExpired
	return true
}

// BillingUnits is the number of started billing units in [start, end), at least one.
// Only whole elapsed minutes count.
func BillingUnits(start, end time.Time, unit time.Duration) int64 {
	unitMinutes := int64(unit / time.Minute)
	if unitMinutes <= 0 {
		unitMinutes = 60
	}
	minutes := int64(end.Sub(start) / time.Minute)
	units := (minutes + unitMinutes - 1) / unitMinutes
	if units < 1 {
		units = 1
	}
	return units
}

// ReservationCost is BillingUnits × rate.
func ReservationCost(start, end time.Time, unit time.Duration, rate decimal.Decimal) decimal.Decimal {
	return rate.Mul(decimal.NewFromInt(BillingUnits(start, end, unit))).Round(2)
}
