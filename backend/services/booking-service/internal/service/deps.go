package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"smartpark/backend/services/booking-service/internal/clock"
	"smartpark/backend/services/booking-service/internal/events"
	"smartpark/backend/services/booking-service/internal/locks"
	"smartpark/backend/services/booking-service/internal/metrics"
	"smartpark/backend/services/booking-service/internal/payment"
	redisstore "smartpark/backend/services/booking-service/internal/redis"
	"smartpark/backend/services/booking-service/internal/registry"
	"smartpark/backend/services/booking-service/internal/repository"
)

// SessionCache keeps paid, running sessions outside the store.
// Failures are logged, never returned to the caller.
type SessionCache interface {
	Save(ctx context.Context, session redisstore.ActiveSession) error
	Delete(ctx context.Context, sessionID string) error
}

// Deps are the collaborators shared by the engines. Nil optional fields are
// replaced by no-op implementations.
type Deps struct {
	Store     repository.Store
	Registry  *registry.Registry
	Payments  *payment.Set
	Locker    locks.Locker
	Clock     clock.Clock
	Policy    Policy
	Publisher events.Publisher
	Metrics   metrics.Recorder
	Cache     SessionCache
	Logger    *zap.Logger
}

func (d Deps) normalized() Deps {
	if d.Clock == nil {
		d.Clock = clock.Real{}
	}
	if d.Locker == nil {
		d.Locker = locks.NewKeyedMutex()
	}
	if d.Publisher == nil {
		d.Publisher = events.Nop{}
	}
	if d.Metrics == nil {
		d.Metrics = (*metrics.Metrics)(nil)
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Registry == nil {
		d.Registry = registry.New(d.Store, d.Clock, d.Publisher)
	}
	d.Policy = d.Policy.withDefaults()
	return d
}

// newID returns prefix plus eight random hex characters, e.g. RES-1a2b3c4d.
func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
