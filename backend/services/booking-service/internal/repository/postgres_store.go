package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartpark/backend/services/booking-service/internal/models"
)

//go:embed schema.sql
var schemaSQL string

// PostgresStore persists the booking domain in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore returns a store over an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// EnsureSchema creates missing tables and indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func queryAll[T any](ctx context.Context, db *sql.DB, scan func(rowScanner) (T, error), query string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []T{}
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func queryOne[T any](ctx context.Context, db *sql.DB, scan func(rowScanner) (T, error), query string, args ...any) (*T, error) {
	item, err := scan(db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func encodeIDs(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	raw, err := json.Marshal(ids)
	return string(raw), err
}

func decodeIDs(raw string) ([]string, error) {
	var ids []string
	if raw == "" {
		return ids, nil
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, fmt.Errorf("decode id list: %w", err)
	}
	return ids, nil
}

// users

const userColumns = `id, name, email, phone, password_hash, created_at`

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

func (s *PostgresStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	u, err := queryOne(ctx, s.db, scanUser, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("find user %s: %w", id, err)
	}
	return u, nil
}

func (s *PostgresStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := queryOne(ctx, s.db, scanUser, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER(TRIM($1))`, email)
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, nil
}

func (s *PostgresStore) FindAllUsers(ctx context.Context) ([]models.User, error) {
	users, err := queryAll(ctx, s.db, scanUser, `SELECT `+userColumns+` FROM users ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *PostgresStore) SaveUser(ctx context.Context, user *models.User) error {
	const query = `
		INSERT INTO users (id, name, email, phone, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			phone = EXCLUDED.phone,
			password_hash = EXCLUDED.password_hash
	`
	if _, err := s.db.ExecContext(ctx, query, user.ID, user.Name, user.Email, user.Phone, user.PasswordHash, user.CreatedAt); err != nil {
		return fmt.Errorf("save user %s: %w", user.ID, err)
	}
	return nil
}

// lots and stations

func scanLot(row rowScanner) (models.ParkingLot, error) {
	var (
		lot models.ParkingLot
		raw string
	)
	if err := row.Scan(&lot.ID, &lot.Name, &lot.Address, &raw); err != nil {
		return lot, err
	}
	ids, err := decodeIDs(raw)
	lot.SlotIDs = ids
	return lot, err
}

func (s *PostgresStore) FindAllLots(ctx context.Context) ([]models.ParkingLot, error) {
	lots, err := queryAll(ctx, s.db, scanLot, `SELECT id, name, address, slot_ids FROM parking_lots ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	return lots, nil
}

func (s *PostgresStore) SaveLot(ctx context.Context, lot *models.ParkingLot) error {
	raw, err := encodeIDs(lot.SlotIDs)
	if err != nil {
		return fmt.Errorf("save lot %s: %w", lot.ID, err)
	}
	const query = `
		INSERT INTO parking_lots (id, name, address, slot_ids)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			address = EXCLUDED.address,
			slot_ids = EXCLUDED.slot_ids
	`
	if _, err := s.db.ExecContext(ctx, query, lot.ID, lot.Name, lot.Address, raw); err != nil {
		return fmt.Errorf("save lot %s: %w", lot.ID, err)
	}
	return nil
}

// DeleteLot removes the lot and every slot it owns.
func (s *PostgresStore) DeleteLot(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE owner_id = $1`, id); err != nil {
		return fmt.Errorf("delete slots of lot %s: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM parking_lots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete lot %s: %w", id, err)
	}
	return nil
}

func scanStation(row rowScanner) (models.ChargingStation, error) {
	var (
		st  models.ChargingStation
		raw string
	)
	if err := row.Scan(&st.ID, &st.Name, &st.Location, &st.Status, &raw); err != nil {
		return st, err
	}
	ids, err := decodeIDs(raw)
	st.SlotIDs = ids
	return st, err
}

func (s *PostgresStore) FindAllStations(ctx context.Context) ([]models.ChargingStation, error) {
	stations, err := queryAll(ctx, s.db, scanStation, `SELECT id, name, location, status, slot_ids FROM charging_stations ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list stations: %w", err)
	}
	return stations, nil
}

func (s *PostgresStore) SaveStation(ctx context.Context, station *models.ChargingStation) error {
	raw, err := encodeIDs(station.SlotIDs)
	if err != nil {
		return fmt.Errorf("save station %s: %w", station.ID, err)
	}
	const query = `
		INSERT INTO charging_stations (id, name, location, status, slot_ids)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			location = EXCLUDED.location,
			status = EXCLUDED.status,
			slot_ids = EXCLUDED.slot_ids
	`
	if _, err := s.db.ExecContext(ctx, query, station.ID, station.Name, station.Location, station.Status, raw); err != nil {
		return fmt.Errorf("save station %s: %w", station.ID, err)
	}
	return nil
}

// DeleteStation removes the station and every slot it owns.
func (s *PostgresStore) DeleteStation(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM slots WHERE owner_id = $1`, id); err != nil {
		return fmt.Errorf("delete slots of station %s: %w", id, err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM charging_stations WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete station %s: %w", id, err)
	}
	return nil
}

// slots

const slotColumns = `id, kind, owner_id, label, slot_type, mode_ids, price_per_unit, status`

func scanSlot(row rowScanner) (models.Slot, error) {
	var (
		slot models.Slot
		raw  string
	)
	if err := row.Scan(&slot.ID, &slot.Kind, &slot.OwnerID, &slot.Label, &slot.SlotType, &raw, &slot.PricePerUnit, &slot.Status); err != nil {
		return slot, err
	}
	ids, err := decodeIDs(raw)
	if len(ids) > 0 {
		slot.ModeIDs = ids
	}
	return slot, err
}

func (s *PostgresStore) FindAllSlots(ctx context.Context) ([]models.Slot, error) {
	slots, err := queryAll(ctx, s.db, scanSlot, `SELECT `+slotColumns+` FROM slots ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

func (s *PostgresStore) FindSlotByID(ctx context.Context, id string) (*models.Slot, error) {
	slot, err := queryOne(ctx, s.db, scanSlot, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("find slot %s: %w", id, err)
	}
	return slot, nil
}

func (s *PostgresStore) SaveSlot(ctx context.Context, slot *models.Slot) error {
	raw, err := encodeIDs(slot.ModeIDs)
	if err != nil {
		return fmt.Errorf("save slot %s: %w", slot.ID, err)
	}
	const query = `
		INSERT INTO slots (id, kind, owner_id, label, slot_type, mode_ids, price_per_unit, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			owner_id = EXCLUDED.owner_id,
			label = EXCLUDED.label,
			slot_type = EXCLUDED.slot_type,
			mode_ids = EXCLUDED.mode_ids,
			price_per_unit = EXCLUDED.price_per_unit,
			status = EXCLUDED.status
	`
	_, err = s.db.ExecContext(ctx, query,
		slot.ID, slot.Kind, slot.OwnerID, slot.Label, slot.SlotType, raw, slot.PricePerUnit, slot.Status)
	if err != nil {
		return fmt.Errorf("save slot %s: %w", slot.ID, err)
	}
	return nil
}

// charging modes

func scanMode(row rowScanner) (models.ChargingMode, error) {
	var m models.ChargingMode
	err := row.Scan(&m.ID, &m.ModeType, &m.PricePerUnit, &m.ChargingSpeedKW)
	return m, err
}

func (s *PostgresStore) FindAllChargingModes(ctx context.Context) ([]models.ChargingMode, error) {
	modes, err := queryAll(ctx, s.db, scanMode, `SELECT id, mode_type, price_per_unit, charging_speed_kw FROM charging_modes ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list charging modes: %w", err)
	}
	return modes, nil
}

func (s *PostgresStore) SaveChargingMode(ctx context.Context, mode *models.ChargingMode) error {
	const query = `
		INSERT INTO charging_modes (id, mode_type, price_per_unit, charging_speed_kw)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			mode_type = EXCLUDED.mode_type,
			price_per_unit = EXCLUDED.price_per_unit,
			charging_speed_kw = EXCLUDED.charging_speed_kw
	`
	if _, err := s.db.ExecContext(ctx, query, mode.ID, mode.ModeType, mode.PricePerUnit, mode.ChargingSpeedKW); err != nil {
		return fmt.Errorf("save charging mode %s: %w", mode.ID, err)
	}
	return nil
}

// reservations

const reservationColumns = `id, user_id, slot_id, start_time, end_time, status, total_cost, payment_id`

func scanReservation(row rowScanner) (models.Reservation, error) {
	var r models.Reservation
	err := row.Scan(&r.ID, &r.UserID, &r.SlotID, &r.StartTime, &r.EndTime, &r.Status, &r.TotalCost, &r.PaymentID)
	return r, err
}

func (s *PostgresStore) FindReservationByID(ctx context.Context, id string) (*models.Reservation, error) {
	r, err := queryOne(ctx, s.db, scanReservation, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("find reservation %s: %w", id, err)
	}
	return r, nil
}

func (s *PostgresStore) FindAllReservations(ctx context.Context) ([]models.Reservation, error) {
	list, err := queryAll(ctx, s.db, scanReservation, `SELECT `+reservationColumns+` FROM reservations ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) FindReservationsByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	list, err := queryAll(ctx, s.db, scanReservation,
		`SELECT `+reservationColumns+` FROM reservations WHERE user_id = $1 ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reservations of %s: %w", userID, err)
	}
	return list, nil
}

func (s *PostgresStore) SaveReservation(ctx context.Context, r *models.Reservation) error {
	const query = `
		INSERT INTO reservations (id, user_id, slot_id, start_time, end_time, status, total_cost, payment_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			slot_id = EXCLUDED.slot_id,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			status = EXCLUDED.status,
			total_cost = EXCLUDED.total_cost,
			payment_id = EXCLUDED.payment_id
	`
	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.UserID, r.SlotID, r.StartTime, r.EndTime, r.Status, r.TotalCost, r.PaymentID)
	if err != nil {
		return fmt.Errorf("save reservation %s: %w", r.ID, err)
	}
	return nil
}

// payments

const paymentColumns = `id, amount, method, status, paid_at, reservation_id, session_id`

func scanPayment(row rowScanner) (models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.Amount, &p.Method, &p.Status, &p.PaidAt, &p.ReservationID, &p.SessionID)
	return p, err
}

func (s *PostgresStore) FindPaymentByID(ctx context.Context, id string) (*models.Payment, error) {
	p, err := queryOne(ctx, s.db, scanPayment, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("find payment %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) FindAllPayments(ctx context.Context) ([]models.Payment, error) {
	list, err := queryAll(ctx, s.db, scanPayment, `SELECT `+paymentColumns+` FROM payments ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) SavePayment(ctx context.Context, p *models.Payment) error {
	const query = `
		INSERT INTO payments (id, amount, method, status, paid_at, reservation_id, session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			amount = EXCLUDED.amount,
			method = EXCLUDED.method,
			status = EXCLUDED.status,
			paid_at = EXCLUDED.paid_at,
			reservation_id = EXCLUDED.reservation_id,
			session_id = EXCLUDED.session_id
	`
	_, err := s.db.ExecContext(ctx, query, p.ID, p.Amount, p.Method, p.Status, p.PaidAt, p.ReservationID, p.SessionID)
	if err != nil {
		return fmt.Errorf("save payment %s: %w", p.ID, err)
	}
	return nil
}

// charging sessions

const sessionColumns = `id, user_id, slot_id, mode_type, price_per_unit, start_time, end_time,
	scheduled_end_time, energy_used_kwh, total_amount, status`

func scanSession(row rowScanner) (models.ChargingSession, error) {
	var (
		cs        models.ChargingSession
		end       sql.NullTime
		scheduled sql.NullTime
	)
	err := row.Scan(&cs.ID, &cs.UserID, &cs.SlotID, &cs.ModeType, &cs.PricePerUnit, &cs.StartTime,
		&end, &scheduled, &cs.EnergyUsedKWh, &cs.TotalAmount, &cs.Status)
	if err != nil {
		return cs, err
	}
	if end.Valid {
		cs.EndTime = &end.Time
	}
	if scheduled.Valid {
		cs.ScheduledEndTime = &scheduled.Time
	}
	return cs, nil
}

func (s *PostgresStore) FindSessionByID(ctx context.Context, id string) (*models.ChargingSession, error) {
	cs, err := queryOne(ctx, s.db, scanSession, `SELECT `+sessionColumns+` FROM charging_sessions WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("find session %s: %w", id, err)
	}
	return cs, nil
}

func (s *PostgresStore) FindAllSessions(ctx context.Context) ([]models.ChargingSession, error) {
	list, err := queryAll(ctx, s.db, scanSession, `SELECT `+sessionColumns+` FROM charging_sessions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return list, nil
}

func (s *PostgresStore) FindSessionsByUser(ctx context.Context, userID string) ([]models.ChargingSession, error) {
	list, err := queryAll(ctx, s.db, scanSession,
		`SELECT `+sessionColumns+` FROM charging_sessions WHERE user_id = $1 ORDER BY position`, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions of %s: %w", userID, err)
	}
	return list, nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, cs *models.ChargingSession) error {
	const query = `
		INSERT INTO charging_sessions (id, user_id, slot_id, mode_type, price_per_unit, start_time, end_time,
			scheduled_end_time, energy_used_kwh, total_amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			slot_id = EXCLUDED.slot_id,
			mode_type = EXCLUDED.mode_type,
			price_per_unit = EXCLUDED.price_per_unit,
			start_time = EXCLUDED.start_time,
			end_time = EXCLUDED.end_time,
			scheduled_end_time = EXCLUDED.scheduled_end_time,
			energy_used_kwh = EXCLUDED.energy_used_kwh,
			total_amount = EXCLUDED.total_amount,
			status = EXCLUDED.status
	`
	_, err := s.db.ExecContext(ctx, query,
		cs.ID, cs.UserID, cs.SlotID, cs.ModeType, cs.PricePerUnit, cs.StartTime,
		nullTime(cs.EndTime), nullTime(cs.ScheduledEndTime), cs.EnergyUsedKWh, cs.TotalAmount, cs.Status)
	if err != nil {
		return fmt.Errorf("save session %s: %w", cs.ID, err)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// gateways

// DefaultPaymentGateway returns the earliest registered gateway.
func (s *PostgresStore) DefaultPaymentGateway(ctx context.Context) (*models.PaymentGateway, error) {
	gw, err := queryOne(ctx, s.db, func(row rowScanner) (models.PaymentGateway, error) {
		var g models.PaymentGateway
		err := row.Scan(&g.ID, &g.Name, &g.Provider, &g.Status)
		return g, err
	}, `SELECT id, name, provider, status FROM payment_gateways ORDER BY position LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("default payment gateway: %w", err)
	}
	return gw, nil
}

func (s *PostgresStore) SavePaymentGateway(ctx context.Context, gw *models.PaymentGateway) error {
	const query = `
		INSERT INTO payment_gateways (id, name, provider, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			provider = EXCLUDED.provider,
			status = EXCLUDED.status
	`
	if _, err := s.db.ExecContext(ctx, query, gw.ID, gw.Name, gw.Provider, gw.Status); err != nil {
		return fmt.Errorf("save payment gateway %s: %w", gw.ID, err)
	}
	return nil
}
