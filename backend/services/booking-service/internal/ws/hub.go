package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"smartpark/backend/services/booking-service/internal/events"
)

// Hub tracks subscriber connections and fans events out to them.
type Hub struct {
	mu           sync.RWMutex
	connections  map[string]*Connection
	pingInterval time.Duration
	logger       *zap.Logger
}

// NewHub builds the subscriber hub.
func NewHub(pingInterval time.Duration, logger *zap.Logger) *Hub {
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		connections:  make(map[string]*Connection),
		pingInterval: pingInterval,
		logger:       logger,
	}
}

// Add registers new connection.
func (h *Hub) Add(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[conn.ID()] = conn
}

// Remove removes connection.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.connections, id)
}

// Count reports how many subscribers are connected.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// Publish sends the event as JSON to every subscriber. It never blocks on a
// slow subscriber.
func (h *Hub) Publish(_ context.Context, event events.Event) {
	msg, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("type", string(event.Type)), zap.Error(err))
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.connections {
		conn.Send(msg)
	}
}

// Start begins ping loop to keep connections active.
func (h *Hub) Start(ctx context.Context) {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.mu.RLock()
			for _, conn := range h.connections {
				if err := conn.Ping(); err != nil {
					h.logger.Debug("subscriber ping failed", zap.String("subscriber_id", conn.ID()), zap.Error(err))
				}
			}
			h.mu.RUnlock()
		}
	}
}

var _ events.Publisher = (*Hub)(nil)
