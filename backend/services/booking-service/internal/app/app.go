package app

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	libdb "smartpark/backend/libs/db"
	libredis "smartpark/backend/libs/redis"
	"smartpark/backend/services/booking-service/internal/clock"
	"smartpark/backend/services/booking-service/internal/config"
	httpserver "smartpark/backend/services/booking-service/internal/http"
	"smartpark/backend/services/booking-service/internal/http/handlers"
	"smartpark/backend/services/booking-service/internal/http/middleware"
	"smartpark/backend/services/booking-service/internal/locks"
	"smartpark/backend/services/booking-service/internal/metrics"
	"smartpark/backend/services/booking-service/internal/password"
	"smartpark/backend/services/booking-service/internal/payment"
	redisstore "smartpark/backend/services/booking-service/internal/redis"
	"smartpark/backend/services/booking-service/internal/repository"
	"smartpark/backend/services/booking-service/internal/seed"
	"smartpark/backend/services/booking-service/internal/service"
	"smartpark/backend/services/booking-service/internal/token"
	"smartpark/backend/services/booking-service/internal/ws"
)

const wsPingInterval = 30 * time.Second

// App wires booking-service dependencies.
type App struct {
	server      *httpserver.Server
	handler     http.Handler
	hub         *ws.Hub
	scheduler   *cron.Cron
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger
}

// New constructs the application graph.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{logger: logger}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var (
		locker locks.Locker = locks.NewKeyedMutex()
		cache  service.SessionCache
	)
	if cfg.RedisEnabled() {
		a.redisClient, err = libredis.NewRedisClient(ctx, libredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		cache = redisstore.NewStore(a.redisClient, cfg.RedisTTL())
		if cfg.Locks.Backend == config.LocksRedis {
			locker = locks.NewRedisLocker(a.redisClient, cfg.LockTTL(), 0)
		}
	}

	clk := clock.Real{}
	hasher := password.NewBcryptHasher(0)
	tokens := token.NewService(cfg.JWT.Secret, cfg.JWTExpiration(), clk)
	recorder := metrics.New()
	a.hub = ws.NewHub(wsPingInterval, logger)

	if cfg.Seed {
		if _, err := seed.Load(ctx, store, hasher, clk, logger); err != nil {
			a.Close()
			return nil, fmt.Errorf("seed: %w", err)
		}
	}

	payments := payment.NewSet(cfg.PaymentOptions(), logger,
		payment.NewCreditCard(payment.NewSimulatedGateway(store)),
		payment.PayPal{},
	)
	deps := service.Deps{
		Store:     store,
		Payments:  payments,
		Locker:    locker,
		Clock:     clk,
		Policy:    cfg.ServicePolicy(),
		Publisher: a.hub,
		Metrics:   recorder,
		Cache:     cache,
		Logger:    logger,
	}
	reservations := service.NewReservationService(deps)
	charging := service.NewChargingService(deps)
	sweeper := service.NewSweeper(deps)
	auth := service.NewAuthService(store, hasher, tokens, clk, logger)

	a.scheduler = cron.New()
	if cfg.Sweeper.Schedule != "" {
		_, err := a.scheduler.AddFunc(cfg.Sweeper.Schedule, func() {
			if _, err := sweeper.Sweep(context.Background()); err != nil {
				logger.Error("scheduled sweep failed", zap.Error(err))
			}
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("schedule sweeper: %w", err)
		}
	}

	var beforeEngine []mux.MiddlewareFunc
	if cfg.Sweeper.OnRequest {
		beforeEngine = append(beforeEngine, middleware.SweepMiddleware(middleware.SweepFunc(func(ctx context.Context) error {
			_, err := sweeper.Sweep(ctx)
			return err
		}), logger))
	}

	a.handler = httpserver.NewRouter(httpserver.RouterDeps{
		Auth:         handlers.NewAuthHandlers(auth, logger),
		Parking:      handlers.NewParkingHandlers(reservations, charging, logger),
		Charging:     handlers.NewChargingHandlers(charging, logger),
		Admin:        handlers.NewAdminHandlers(sweeper, logger),
		Health:       handlers.NewHealthHandler(),
		Metrics:      recorder.Handler(),
		Events:       ws.NewServer(a.hub, 10*time.Second, logger).HandleWS,
		Authenticate: middleware.AuthMiddleware(tokens),
		BeforeEngine: beforeEngine,
	})
	a.server = httpserver.NewServer(cfg.HTTPAddress(), a.handler, logger,
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	if cfg.Storage.Backend != config.StoragePostgres {
		return repository.NewMemoryStore(), nil
	}
	sqlDB, err := libdb.NewPostgresDB(ctx, cfg.Storage.DSN)
	if err != nil {
		return nil, err
	}
	a.db = sqlDB
	store := repository.NewPostgresStore(sqlDB)
	if err := store.EnsureSchema(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return store, nil
}

// Handler exposes the routed handler without the outer middlewares.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the sweeper schedule, the subscriber ping loop and the HTTP
// server, and blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.scheduler.Start()
	defer func() { <-a.scheduler.Stop().Done() }()

	go a.hub.Start(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
}
