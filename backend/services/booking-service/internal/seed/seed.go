// Package seed loads the demo lot, station and driver into an empty store.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"smartpark/backend/services/booking-service/internal/clock"
	"smartpark/backend/services/booking-service/internal/models"
	"smartpark/backend/services/booking-service/internal/password"
	"smartpark/backend/services/booking-service/internal/repository"
)

// Demo driver credentials.
const (
	DemoUserID   = "U001"
	DemoEmail    = "demo@example.com"
	DemoPassword = "pass1"
)

// Report lists which groups were written.
type Report struct {
	Users    bool
	Modes    bool
	Stations bool
	Gateway  bool
}

// Any reports whether anything was seeded.
func (r Report) Any() bool {
	return r.Users || r.Modes || r.Stations || r.Gateway
}

// Load fills each empty group independently: driver and parking lot when
// there are no users, modes when there are none, the station when there is
// none, and the default gateway when the store has no gateway record.
func Load(ctx context.Context, store repository.Store, hasher password.Hasher, clk clock.Clock, logger *zap.Logger) (Report, error) {
	var report Report
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	users, err := store.FindAllUsers(ctx)
	if err != nil {
		return report, fmt.Errorf("seed users: %w", err)
	}
	if len(users) == 0 {
		if err := seedDriverAndLot(ctx, store, hasher, clk); err != nil {
			return report, err
		}
		report.Users = true
	}

	modes, err := store.FindAllChargingModes(ctx)
	if err != nil {
		return report, fmt.Errorf("seed modes: %w", err)
	}
	if len(modes) == 0 {
		for _, m := range demoModes() {
			mode := m
			if err := store.SaveChargingMode(ctx, &mode); err != nil {
				return report, fmt.Errorf("seed mode %s: %w", mode.ID, err)
			}
		}
		report.Modes = true
	}

	stations, err := store.FindAllStations(ctx)
	if err != nil {
		return report, fmt.Errorf("seed stations: %w", err)
	}
	if len(stations) == 0 {
		if err := seedStation(ctx, store); err != nil {
			return report, err
		}
		report.Stations = true
	}

	gw, err := store.DefaultPaymentGateway(ctx)
	if err != nil {
		return report, fmt.Errorf("seed gateway: %w", err)
	}
	if gw == nil {
		gateway := &models.PaymentGateway{ID: "GW-001", Name: "Default Gateway", Provider: "Stripe", Status: models.GatewayActive}
		if err := store.SavePaymentGateway(ctx, gateway); err != nil {
			return report, fmt.Errorf("seed gateway: %w", err)
		}
		report.Gateway = true
	}

	if report.Any() {
		logger.Info("demo data seeded",
			zap.Bool("users", report.Users),
			zap.Bool("modes", report.Modes),
			zap.Bool("stations", report.Stations),
			zap.Bool("gateway", report.Gateway),
		)
	}
	return report, nil
}

func seedDriverAndLot(ctx context.Context, store repository.Store, hasher password.Hasher, clk clock.Clock) error {
	hash, err := hasher.Hash(DemoPassword)
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	user := &models.User{
		ID:           DemoUserID,
		Name:         "Junaid",
		Email:        DemoEmail,
		Phone:        "+393277766533",
		PasswordHash: hash,
		CreatedAt:    clk.Now(),
	}
	if err := store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("seed user: %w", err)
	}

	lot := &models.ParkingLot{ID: "L001", Name: "Central Lot", Address: "123 Main St"}
	for _, s := range []struct{ id, label, kind, price string }{
		{"S001", "A-01", "Standard", "5.00"},
		{"S002", "A-02", "EV", "7.50"},
		{"S003", "B-01", "Handicap", "4.00"},
	} {
		slot := &models.Slot{
			ID:           s.id,
			Kind:         models.SlotKindParking,
			OwnerID:      lot.ID,
			Label:        s.label,
			SlotType:     s.kind,
			PricePerUnit: decimal.RequireFromString(s.price),
			Status:       models.SlotStatusAvailable,
		}
		if err := store.SaveSlot(ctx, slot); err != nil {
			return fmt.Errorf("seed slot %s: %w", slot.ID, err)
		}
		lot.SlotIDs = append(lot.SlotIDs, slot.ID)
	}
	if err := store.SaveLot(ctx, lot); err != nil {
		return fmt.Errorf("seed lot: %w", err)
	}
	return nil
}

func demoModes() []models.ChargingMode {
	return []models.ChargingMode{
		{ID: "M1", ModeType: "normal", PricePerUnit: decimal.RequireFromString("0.25"), ChargingSpeedKW: 7},
		{ID: "M2", ModeType: "fast", PricePerUnit: decimal.RequireFromString("0.40"), ChargingSpeedKW: 22},
	}
}

// seedStation attaches whichever of the normal and fast modes exist.
func seedStation(ctx context.Context, store repository.Store) error {
	modes, err := store.FindAllChargingModes(ctx)
	if err != nil {
		return fmt.Errorf("seed station: %w", err)
	}
	var normal, fast string
	for _, m := range modes {
		switch {
		case normal == "" && m.ModeType == "normal":
			normal = m.ID
		case fast == "" && m.ModeType == "fast":
			fast = m.ID
		}
	}

	station := &models.ChargingStation{ID: "ST1", Name: "Central EV Station", Location: "123 Main St", Status: models.StationStatusActive}
	cs1 := &models.Slot{ID: "CS1", Kind: models.SlotKindCharging, OwnerID: station.ID, Label: "1", Status: models.SlotStatusAvailable}
	cs2 := &models.Slot{ID: "CS2", Kind: models.SlotKindCharging, OwnerID: station.ID, Label: "2", Status: models.SlotStatusAvailable}
	if normal != "" {
		cs1.ModeIDs = append(cs1.ModeIDs, normal)
		cs2.ModeIDs = append(cs2.ModeIDs, normal)
	}
	if fast != "" {
		cs1.ModeIDs = append(cs1.ModeIDs, fast)
	}
	for _, slot := range []*models.Slot{cs1, cs2} {
		if err := store.SaveSlot(ctx, slot); err != nil {
			return fmt.Errorf("seed slot %s: %w", slot.ID, err)
		}
		station.SlotIDs = append(station.SlotIDs, slot.ID)
	}
	if err := store.SaveStation(ctx, station); err != nil {
		return fmt.Errorf("seed station: %w", err)
	}
	return nil
}
