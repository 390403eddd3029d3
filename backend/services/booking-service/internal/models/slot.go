package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SlotKind separates parking bays from charging points.
type SlotKind string

const (
	SlotKindParking  SlotKind = "parking"
	SlotKindCharging SlotKind = "charging"
)

// SlotStatus is the availability state of a slot.
type SlotStatus string

const (
	SlotStatusAvailable SlotStatus = "available"
	SlotStatusOccupied  SlotStatus = "occupied"
	SlotStatusReserved  SlotStatus = "reserved"
	SlotStatusFaulty    SlotStatus = "faulty"
)

// Slot is a single bookable unit. Lots and stations own slots by id.
type Slot struct {
	ID           string          `db:"id" json:"id"`
	Kind         SlotKind        `db:"kind" json:"kind"`
	OwnerID      string          `db:"owner_id" json:"owner_id"`
	Label        string          `db:"label" json:"label"`
	SlotType     string          `db:"slot_type" json:"slot_type,omitempty"`
	ModeIDs      []string        `db:"mode_ids" json:"mode_ids,omitempty"`
	PricePerUnit decimal.Decimal `db:"price_per_unit" json:"price_per_unit"`
	Status       SlotStatus      `db:"status" json:"status"`
}

// Available reports whether the slot can be locked.
func (s *Slot) Available() bool {
	return s.Status == SlotStatusAvailable
}

// Occupy marks the slot as taken. It returns false when the slot was not available.
func (s *Slot) Occupy() bool {
	if !s.Available() {
		return false
	}
	s.Status = SlotStatusOccupied
	return true
}

// Release makes the slot bookable again. Faulty slots stay out of service.
// It returns true when the status changed.
func (s *Slot) Release() bool {
	switch s.Status {
	case SlotStatusOccupied, SlotStatusReserved:
		s.Status = SlotStatusAvailable
		return true
	default:
		return false
	}
}

// SupportsMode reports whether modeID is in the slot's mode set.
func (s *Slot) SupportsMode(modeID string) bool {
	for _, id := range s.ModeIDs {
		if id == modeID {
			return true
		}
	}
	return false
}

// MatchesType compares slot types case-insensitively; a blank filter matches everything.
func (s *Slot) MatchesType(slotType string) bool {
	slotType = strings.TrimSpace(slotType)
	return slotType == "" || strings.EqualFold(s.SlotType, slotType)
}

// Clone returns a deep copy.
func (s Slot) Clone() Slot {
	if s.ModeIDs != nil {
		s.ModeIDs = append([]string(nil), s.ModeIDs...)
	}
	return s
}

// ParkingLot groups parking slots at one address.
type ParkingLot struct {
	ID      string   `db:"id" json:"id"`
	Name    string   `db:"name" json:"name"`
	Address string   `db:"address" json:"address"`
	SlotIDs []string `db:"slot_ids" json:"slot_ids"`
}

// MatchesLocation compares the filter against the lot address.
func (l *ParkingLot) MatchesLocation(filter string) bool {
	return matchesLocation(l.Address, filter)
}

// Clone returns a deep copy.
func (l ParkingLot) Clone() ParkingLot {
	l.SlotIDs = append([]string(nil), l.SlotIDs...)
	return l
}

// StationStatus describes whether a station accepts new sessions.
type StationStatus string

const (
	StationStatusActive       StationStatus = "active"
	StationStatusOutOfService StationStatus = "out_of_service"
)

// ChargingStation groups charging slots at one location.
type ChargingStation struct {
	ID       string        `db:"id" json:"id"`
	Name     string        `db:"name" json:"name"`
	Location string        `db:"location" json:"location"`
	Status   StationStatus `db:"status" json:"status"`
	SlotIDs  []string      `db:"slot_ids" json:"slot_ids"`
}

// Active reports whether the station is in service.
func (s *ChargingStation) Active() bool {
	return strings.EqualFold(string(s.Status), string(StationStatusActive))
}

// MatchesLocation is a case-insensitive substring match; a blank filter matches all.
func (s *ChargingStation) MatchesLocation(filter string) bool {
	return matchesLocation(s.Location, filter)
}

// Clone returns a deep copy.
func (s ChargingStation) Clone() ChargingStation {
	s.SlotIDs = append([]string(nil), s.SlotIDs...)
	return s
}

// ChargingMode is a charging tariff with its speed.
type ChargingMode struct {
	ID              string          `db:"id" json:"id"`
	ModeType        string          `db:"mode_type" json:"mode_type"`
	PricePerUnit    decimal.Decimal `db:"price_per_unit" json:"price_per_unit"`
	ChargingSpeedKW float64         `db:"charging_speed_kw" json:"charging_speed_kw"`
}

func matchesLocation(location, filter string) bool {
	filter = strings.ToLower(strings.TrimSpace(filter))
	if filter == "" {
		return true
	}
	location = strings.ToLower(strings.TrimSpace(location))
	return location != "" && strings.Contains(location, filter)
}
