package events

import (
	"context"
	"sync"
	"time"
)

// Type names a domain event.
type Type string

const (
	SlotLocked           Type = "slot.locked"
	SlotReleased         Type = "slot.released"
	ReservationConfirmed Type = "reservation.confirmed"
	ReservationCancelled Type = "reservation.cancelled"
	ReservationExpired   Type = "reservation.expired"
	SessionStarted       Type = "session.started"
	SessionPaid          Type = "session.paid"
	SessionStopped       Type = "session.stopped"
)

// Event is a state change worth telling subscribers about.
type Event struct {
	Type          Type      `json:"type"`
	SlotID        string    `json:"slot_id,omitempty"`
	ReservationID string    `json:"reservation_id,omitempty"`
	SessionID     string    `json:"session_id,omitempty"`
	UserID        string    `json:"user_id,omitempty"`
	At            time.Time `json:"at"`
}

// Publisher receives events after the state change is persisted.
// Implementations must not block the caller for long.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}

// Multi fans an event out to several publishers.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) {
	for _, p := range m {
		if p != nil {
			p.Publish(ctx, event)
		}
	}
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

// Events returns a copy of what has been published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Types lists the recorded event types in order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Type, len(r.events))
	for i, e := range r.events {
		out[i] = e.Type
	}
	return out
}
