package registry

import (
	"context"
	"errors"
	"fmt"

	"smartpark/backend/services/booking-service/internal/clock"
	"smartpark/backend/services/booking-service/internal/events"
	"smartpark/backend/services/booking-service/internal/models"
	"smartpark/backend/services/booking-service/internal/repository"
)

var (
	// ErrSlotNotFound is returned when no slot has the requested id.
	ErrSlotNotFound = errors.New("slot not found")
	// ErrSlotUnavailable is returned when locking a slot that is not available.
	ErrSlotUnavailable = errors.New("slot not available")
)

// Filter narrows FindAvailable. Zero fields match everything.
type Filter struct {
	Kind     models.SlotKind
	SlotType string
	Location string
	ModeID   string
}

// Owner describes the lot or station a slot belongs to.
type Owner struct {
	ID       string          `json:"id"`
	Kind     models.SlotKind `json:"kind"`
	Name     string          `json:"name"`
	Location string          `json:"location"`
	Active   bool            `json:"active"`
}

// Registry resolves slots through the store's slot arena. It holds no state
// of its own, so every lookup sees the latest persisted status.
// Callers serialize Lock and Release on a slot with locks.SlotKey.
type Registry struct {
	store     repository.Store
	clock     clock.Clock
	publisher events.Publisher
}

// New builds a registry. A nil publisher discards events.
func New(store repository.Store, clk clock.Clock, publisher events.Publisher) *Registry {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Registry{store: store, clock: clk, publisher: publisher}
}

// FindAvailable returns available slots in registry order: parking lots
// first, then charging stations, each in stored order with their slots in
// the owner's order. Slots of out-of-service stations are skipped.
func (r *Registry) FindAvailable(ctx context.Context, f Filter) ([]models.Slot, error) {
	slots, err := r.store.FindAllSlots(ctx)
	if err != nil {
		return nil, fmt.Errorf("find available slots: %w", err)
	}
	arena := make(map[string]models.Slot, len(slots))
	for _, s := range slots {
		arena[s.ID] = s
	}

	out := []models.Slot{}
	collect := func(ids []string, kind models.SlotKind) {
		for _, id := range ids {
			slot, ok := arena[id]
			if !ok || slot.Kind != kind || !slot.Available() {
				continue
			}
			if !slot.MatchesType(f.SlotType) {
				continue
			}
			if f.ModeID != "" && !slot.SupportsMode(f.ModeID) {
				continue
			}
			out = append(out, slot)
		}
	}

	if f.Kind == "" || f.Kind == models.SlotKindParking {
		lots, err := r.store.FindAllLots(ctx)
		if err != nil {
			return nil, fmt.Errorf("find available slots: %w", err)
		}
		for _, lot := range lots {
			if !lot.MatchesLocation(f.Location) {
				continue
			}
			collect(lot.SlotIDs, models.SlotKindParking)
		}
	}

	if f.Kind == "" || f.Kind == models.SlotKindCharging {
		stations, err := r.store.FindAllStations(ctx)
		if err != nil {
			return nil, fmt.Errorf("find available slots: %w", err)
		}
		for _, st := range stations {
			if !st.Active() || !st.MatchesLocation(f.Location) {
				continue
			}
			collect(st.SlotIDs, models.SlotKindCharging)
		}
	}
	return out, nil
}

// Get returns the slot or ErrSlotNotFound.
func (r *Registry) Get(ctx context.Context, slotID string) (*models.Slot, error) {
	slot, err := r.store.FindSlotByID(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot %s: %w", slotID, err)
	}
	if slot == nil {
		return nil, ErrSlotNotFound
	}
	return slot, nil
}

// Owner resolves the lot or station that owns slotID.
func (r *Registry) Owner(ctx context.Context, slotID string) (*Owner, error) {
	slot, err := r.Get(ctx, slotID)
	if err != nil {
		return nil, err
	}
	switch slot.Kind {
	case models.SlotKindParking:
		lots, err := r.store.FindAllLots(ctx)
		if err != nil {
			return nil, fmt.Errorf("owner of %s: %w", slotID, err)
		}
		for _, lot := range lots {
			if lot.ID == slot.OwnerID {
				return &Owner{ID: lot.ID, Kind: slot.Kind, Name: lot.Name, Location: lot.Address, Active: true}, nil
			}
		}
	case models.SlotKindCharging:
		stations, err := r.store.FindAllStations(ctx)
		if err != nil {
			return nil, fmt.Errorf("owner of %s: %w", slotID, err)
		}
		for _, st := range stations {
			if st.ID == slot.OwnerID {
				return &Owner{ID: st.ID, Kind: slot.Kind, Name: st.Name, Location: st.Location, Active: st.Active()}, nil
			}
		}
	}
	return nil, ErrSlotNotFound
}

// Lock moves an available slot to occupied. An unknown slot is unavailable;
// the error matches both ErrSlotUnavailable and ErrSlotNotFound.
func (r *Registry) Lock(ctx context.Context, slotID string) (*models.Slot, error) {
	slot, err := r.Get(ctx, slotID)
	if errors.Is(err, ErrSlotNotFound) {
		return nil, fmt.Errorf("lock slot %s: %w: %w", slotID, ErrSlotUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	if !slot.Occupy() {
		return nil, ErrSlotUnavailable
	}
	if err := r.store.SaveSlot(ctx, slot); err != nil {
		return nil, fmt.Errorf("lock slot %s: %w", slotID, err)
	}
	r.publisher.Publish(ctx, events.Event{Type: events.SlotLocked, SlotID: slotID, At: r.clock.Now()})
	return slot, nil
}

// Release makes the slot available again. Releasing an unknown, available or
// faulty slot is a no-op. It reports whether the status changed.
func (r *Registry) Release(ctx context.Context, slotID string) (bool, error) {
	if slotID == "" {
		return false, nil
	}
	slot, err := r.store.FindSlotByID(ctx, slotID)
	if err != nil {
		return false, fmt.Errorf("release slot %s: %w", slotID, err)
	}
	if slot == nil || !slot.Release() {
		return false, nil
	}
	if err := r.store.SaveSlot(ctx, slot); err != nil {
		return false, fmt.Errorf("release slot %s: %w", slotID, err)
	}
	r.publisher.Publish(ctx, events.Event{Type: events.SlotReleased, SlotID: slotID, At: r.clock.Now()})
	return true, nil
}
