package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ActiveSession is the paid, running charging session kept in redis for quick lookup.
type ActiveSession struct {
	SessionID    string     `json:"session_id"`
	UserID       string     `json:"user_id"`
	SlotID       string     `json:"slot_id"`
	ModeType     string     `json:"mode_type"`
	StartTime    time.Time  `json:"start_time"`
	ScheduledEnd *time.Time `json:"scheduled_end,omitempty"`
}

// Store manages the active session cache.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStore returns redis-backed store.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) key(sessionID string) string {
	return fmt.Sprintf("sessions:active:%s", sessionID)
}

// Save caches session. The entry expires with the scheduled end when that
// comes before the configured ttl.
func (s *Store) Save(ctx context.Context, session ActiveSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	ttl := s.ttl
	if session.ScheduledEnd != nil {
		if left := time.Until(*session.ScheduledEnd); left > 0 && (ttl <= 0 || left < ttl) {
			ttl = left
		}
	}
	return s.client.Set(ctx, s.key(session.SessionID), data, ttl).Err()
}

// Get returns cached session, or nil when nothing is cached.
func (s *Store) Get(ctx context.Context, sessionID string) (*ActiveSession, error) {
	result, err := s.client.Get(ctx, s.key(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var session ActiveSession
	if err := json.Unmarshal([]byte(result), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Delete removes cached session.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.key(sessionID)).Err()
}
