package repository

import (
	"context"
	"strings"
	"sync"

	"smartpark/backend/services/booking-service/internal/models"
)

// table keeps rows in insertion order so listings are stable.
type table[T any] struct {
	order []string
	rows  map[string]T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) get(id string) (T, bool) {
	row, ok := t.rows[id]
	return row, ok
}

func (t *table[T]) put(id string, row T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
}

func (t *table[T]) remove(id string) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *table[T]) list(keep func(T) bool) []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		row := t.rows[id]
		if keep == nil || keep(row) {
			out = append(out, row)
		}
	}
	return out
}

// MemoryStore is an in-process Store. Rows are copied on the way in and out,
// so callers never share memory with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	users        *table[models.User]
	lots         *table[models.ParkingLot]
	stations     *table[models.ChargingStation]
	slots        *table[models.Slot]
	modes        *table[models.ChargingMode]
	reservations *table[models.Reservation]
	payments     *table[models.Payment]
	sessions     *table[models.ChargingSession]
	gateways     *table[models.PaymentGateway]
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        newTable[models.User](),
		lots:         newTable[models.ParkingLot](),
		stations:     newTable[models.ChargingStation](),
		slots:        newTable[models.Slot](),
		modes:        newTable[models.ChargingMode](),
		reservations: newTable[models.Reservation](),
		payments:     newTable[models.Payment](),
		sessions:     newTable[models.ChargingSession](),
		gateways:     newTable[models.PaymentGateway](),
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.users.get(id); ok {
		return &u, nil
	}
	return nil, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users.list(nil) {
		if strings.ToLower(u.Email) == email {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindAllUsers(_ context.Context) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.list(nil), nil
}

func (s *MemoryStore) SaveUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users.put(user.ID, *user)
	return nil
}

func (s *MemoryStore) FindAllLots(_ context.Context) ([]models.ParkingLot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lots := s.lots.list(nil)
	for i := range lots {
		lots[i] = lots[i].Clone()
	}
	return lots, nil
}

func (s *MemoryStore) SaveLot(_ context.Context, lot *models.ParkingLot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lots.put(lot.ID, lot.Clone())
	return nil
}

// DeleteLot removes the lot together with the slots it owns.
func (s *MemoryStore) DeleteLot(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lot, ok := s.lots.get(id)
	if !ok {
		return nil
	}
	for _, slotID := range lot.SlotIDs {
		s.slots.remove(slotID)
	}
	s.lots.remove(id)
	return nil
}

func (s *MemoryStore) FindAllStations(_ context.Context) ([]models.ChargingStation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stations := s.stations.list(nil)
	for i := range stations {
		stations[i] = stations[i].Clone()
	}
	return stations, nil
}

func (s *MemoryStore) SaveStation(_ context.Context, station *models.ChargingStation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stations.put(station.ID, station.Clone())
	return nil
}

// DeleteStation removes the station together with the slots it owns.
func (s *MemoryStore) DeleteStation(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	station, ok := s.stations.get(id)
	if !ok {
		return nil
	}
	for _, slotID := range station.SlotIDs {
		s.slots.remove(slotID)
	}
	s.stations.remove(id)
	return nil
}

func (s *MemoryStore) FindAllSlots(_ context.Context) ([]models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slots := s.slots.list(nil)
	for i := range slots {
		slots[i] = slots[i].Clone()
	}
	return slots, nil
}

func (s *MemoryStore) FindSlotByID(_ context.Context, id string) (*models.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if slot, ok := s.slots.get(id); ok {
		c := slot.Clone()
		return &c, nil
	}
	return nil, nil
}

func (s *MemoryStore) SaveSlot(_ context.Context, slot *models.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots.put(slot.ID, slot.Clone())
	return nil
}

func (s *MemoryStore) FindAllChargingModes(_ context.Context) ([]models.ChargingMode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modes.list(nil), nil
}

func (s *MemoryStore) SaveChargingMode(_ context.Context, mode *models.ChargingMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes.put(mode.ID, *mode)
	return nil
}

func (s *MemoryStore) FindReservationByID(_ context.Context, id string) (*models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.reservations.get(id); ok {
		return &r, nil
	}
	return nil, nil
}

func (s *MemoryStore) FindAllReservations(_ context.Context) ([]models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reservations.list(nil), nil
}

func (s *MemoryStore) FindReservationsByUser(_ context.Context, userID string) ([]models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reservations.list(func(r models.Reservation) bool { return r.UserID == userID }), nil
}

func (s *MemoryStore) SaveReservation(_ context.Context, reservation *models.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations.put(reservation.ID, *reservation)
	return nil
}

func (s *MemoryStore) FindPaymentByID(_ context.Context, id string) (*models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.payments.get(id); ok {
		return &p, nil
	}
	return nil, nil
}

func (s *MemoryStore) FindAllPayments(_ context.Context) ([]models.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.payments.list(nil), nil
}

func (s *MemoryStore) SavePayment(_ context.Context, payment *models.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payments.put(payment.ID, *payment)
	return nil
}

func (s *MemoryStore) FindSessionByID(_ context.Context, id string) (*models.ChargingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if session, ok := s.sessions.get(id); ok {
		return copySession(session), nil
	}
	return nil, nil
}

func (s *MemoryStore) FindAllSessions(_ context.Context) ([]models.ChargingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := s.sessions.list(nil)
	for i := range sessions {
		sessions[i] = *copySession(sessions[i])
	}
	return sessions, nil
}

func (s *MemoryStore) FindSessionsByUser(_ context.Context, userID string) ([]models.ChargingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessions := s.sessions.list(func(cs models.ChargingSession) bool { return cs.UserID == userID })
	for i := range sessions {
		sessions[i] = *copySession(sessions[i])
	}
	return sessions, nil
}

func (s *MemoryStore) SaveSession(_ context.Context, session *models.ChargingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions.put(session.ID, *copySession(*session))
	return nil
}

// DefaultPaymentGateway returns the first registered gateway.
func (s *MemoryStore) DefaultPaymentGateway(_ context.Context) (*models.PaymentGateway, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	gateways := s.gateways.list(nil)
	if len(gateways) == 0 {
		return nil, nil
	}
	return &gateways[0], nil
}

func (s *MemoryStore) SavePaymentGateway(_ context.Context, gateway *models.PaymentGateway) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gateways.put(gateway.ID, *gateway)
	return nil
}

func copySession(cs models.ChargingSession) *models.ChargingSession {
	if cs.EndTime != nil {
		end := *cs.EndTime
		cs.EndTime = &end
	}
	if cs.ScheduledEndTime != nil {
		scheduled := *cs.ScheduledEndTime
		cs.ScheduledEndTime = &scheduled
	}
	return &cs
}
