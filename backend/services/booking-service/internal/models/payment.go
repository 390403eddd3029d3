package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentSuccess  PaymentStatus = "Success"
	PaymentFailed   PaymentStatus = "Failed"
	PaymentRefunded PaymentStatus = "Refunded"
)

// Payment settles either a reservation or a charging session.
type Payment struct {
	ID            string          `db:"id" json:"id"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Method        string          `db:"method" json:"method"`
	Status        PaymentStatus   `db:"status" json:"status"`
	PaidAt        time.Time       `db:"paid_at" json:"paid_at"`
	ReservationID string          `db:"reservation_id" json:"reservation_id,omitempty"`
	SessionID     string          `db:"session_id" json:"session_id,omitempty"`
}

// Refund moves a successful payment to Refunded. Any other status is left untouched.
func (p *Payment) Refund() bool {
	if p.Status != PaymentSuccess {
		return false
	}
	p.Status = PaymentRefunded
	return true
}

// Receipt is the one-line receipt shown to the payer.
func (p *Payment) Receipt() string {
	return fmt.Sprintf("Receipt --- PaymentId: %s | Amount: %s | Method: %s | Time: %s | Status: %s",
		p.ID, p.Amount.StringFixed(2), p.Method, p.PaidAt.Format(time.RFC3339), p.Status)
}

// GatewayStatus reports whether a gateway accepts transactions.
type GatewayStatus string

const (
	GatewayActive   GatewayStatus = "Active"
	GatewayInactive GatewayStatus = "Inactive"
)

// PaymentGateway is the transaction authority record used by card payments.
type PaymentGateway struct {
	ID       string        `db:"id" json:"id"`
	Name     string        `db:"name" json:"name"`
	Provider string        `db:"provider" json:"provider"`
	Status   GatewayStatus `db:"status" json:"status"`
}

// Active reports whether the gateway is connected.
func (g *PaymentGateway) Active() bool {
	return strings.EqualFold(string(g.Status), string(GatewayActive))
}
