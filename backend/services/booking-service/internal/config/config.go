package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	libconfig "smartpark/backend/libs/config"
	"smartpark/backend/services/booking-service/internal/payment"
	"smartpark/backend/services/booking-service/internal/service"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// Lock backends.
const (
	LocksLocal = "local"
	LocksRedis = "redis"
)

type HTTPConfig struct {
	Port string `yaml:"port" env:"BOOKING_HTTP_PORT"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" env:"BOOKING_STORAGE_BACKEND"`
	DSN     string `yaml:"dsn" env:"BOOKING_POSTGRES_DSN"`
}

type RedisConfig struct {
	Addr       string `yaml:"addr" env:"BOOKING_REDIS_ADDR"`
	Password   string `yaml:"password" env:"BOOKING_REDIS_PASSWORD"`
	DB         int    `yaml:"db" env:"BOOKING_REDIS_DB"`
	TTLSeconds int    `yaml:"ttlSeconds" env:"BOOKING_REDIS_TTL_SECONDS"`
}

type LocksConfig struct {
	Backend    string `yaml:"backend" env:"BOOKING_LOCKS_BACKEND"`
	TTLSeconds int    `yaml:"ttlSeconds" env:"BOOKING_LOCKS_TTL_SECONDS"`
}

type JWTConfig struct {
	Secret           string `yaml:"secret" env:"BOOKING_JWT_SECRET"`
	ExpiresInMinutes int    `yaml:"expiresInMinutes" env:"BOOKING_JWT_EXPIRES_MINUTES"`
}

type PolicyConfig struct {
	LoyaltyThreshold               int     `yaml:"loyaltyThreshold" env:"BOOKING_LOYALTY_THRESHOLD"`
	RewardBasePoints               int     `yaml:"rewardBasePoints" env:"BOOKING_REWARD_BASE_POINTS"`
	RewardLoyalBonus               int     `yaml:"rewardLoyalBonus" env:"BOOKING_REWARD_LOYAL_BONUS"`
	DefaultChargingDurationMinutes int     `yaml:"defaultChargingDurationMinutes" env:"BOOKING_DEFAULT_CHARGING_MINUTES"`
	KWhPerMinute                   float64 `yaml:"kwhPerMinute" env:"BOOKING_KWH_PER_MINUTE"`
	BillingUnitMinutes             int     `yaml:"billingUnitMinutes" env:"BOOKING_BILLING_UNIT_MINUTES"`
}

type PaymentsConfig struct {
	DefaultMethod     string `yaml:"defaultMethod" env:"BOOKING_PAYMENT_DEFAULT_METHOD"`
	FallbackToDefault bool   `yaml:"fallbackToDefault" env:"BOOKING_PAYMENT_FALLBACK"`
}

type SweeperConfig struct {
	Schedule  string `yaml:"schedule" env:"BOOKING_SWEEP_SCHEDULE"`
	OnRequest bool   `yaml:"onRequest" env:"BOOKING_SWEEP_ON_REQUEST"`
}

// Config represents service configuration loaded from YAML/env.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Storage  StorageConfig  `yaml:"storage"`
	Redis    RedisConfig    `yaml:"redis"`
	Locks    LocksConfig    `yaml:"locks"`
	JWT      JWTConfig      `yaml:"jwt"`
	Policy   PolicyConfig   `yaml:"policy"`
	Payments PaymentsConfig `yaml:"payments"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	Seed     bool           `yaml:"seed" env:"BOOKING_SEED"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	p := service.DefaultPolicy()
	return &Config{
		HTTP:    HTTPConfig{Port: "8080"},
		Storage: StorageConfig{Backend: StorageMemory},
		Redis:   RedisConfig{TTLSeconds: 7200},
		Locks:   LocksConfig{Backend: LocksLocal, TTLSeconds: 10},
		JWT:     JWTConfig{ExpiresInMinutes: 60},
		Policy: PolicyConfig{
			LoyaltyThreshold:               p.LoyaltyThreshold,
			RewardBasePoints:               p.RewardBasePoints,
			RewardLoyalBonus:               p.RewardLoyalBonus,
			DefaultChargingDurationMinutes: int(p.DefaultChargingDuration / time.Minute),
			KWhPerMinute:                   p.KWhPerMinute,
			BillingUnitMinutes:             int(p.BillingUnit / time.Minute),
		},
		Payments: PaymentsConfig{DefaultMethod: payment.MethodCreditCard.String()},
		Sweeper:  SweeperConfig{Schedule: "@every 1m", OnRequest: true},
		Seed:     true,
	}
}

// Load reads configuration using the shared config loader.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes backends and rejects inconsistent settings.
func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Locks.Backend = strings.ToLower(strings.TrimSpace(c.Locks.Backend))

	switch c.Storage.Backend {
	case StorageMemory:
	case StoragePostgres:
		if strings.TrimSpace(c.Storage.DSN) == "" {
			return errors.New("config: postgres DSN is required for the postgres storage backend")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Locks.Backend {
	case LocksLocal:
	case LocksRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return errors.New("config: redis addr is required for the redis lock backend")
		}
	default:
		return fmt.Errorf("config: unknown locks backend %q", c.Locks.Backend)
	}

	if c.JWT.Secret == "" {
		return errors.New("config: jwt secret is required")
	}
	if c.JWT.ExpiresInMinutes <= 0 {
		c.JWT.ExpiresInMinutes = 60
	}

	if _, err := payment.ParseMethod(c.Payments.DefaultMethod); err != nil {
		return fmt.Errorf("config: payments.defaultMethod: %w", err)
	}
	if c.Policy.KWhPerMinute < 0 {
		return errors.New("config: policy.kwhPerMinute must not be negative")
	}

	if strings.TrimSpace(c.Sweeper.Schedule) != "" {
		if _, err := cron.ParseStandard(c.Sweeper.Schedule); err != nil {
			return fmt.Errorf("config: sweeper.schedule: %w", err)
		}
	}
	return nil
}

// HTTPAddress ensures we always return host:port formatted string.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// JWTExpiration converts configured expiry to duration.
func (c *Config) JWTExpiration() time.Duration {
	if c.JWT.ExpiresInMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(c.JWT.ExpiresInMinutes) * time.Minute
}

// RedisEnabled reports whether a redis endpoint is configured.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}

// RedisTTL is the active-session cache TTL.
func (c *Config) RedisTTL() time.Duration {
	return time.Duration(c.Redis.TTLSeconds) * time.Second
}

// LockTTL bounds how long a redis lock may be held.
func (c *Config) LockTTL() time.Duration {
	return time.Duration(c.Locks.TTLSeconds) * time.Second
}

// ServicePolicy converts the policy section. Zero values fall back to the
// stock constants inside the engines.
func (c *Config) ServicePolicy() service.Policy {
	return service.Policy{
		LoyaltyThreshold:        c.Policy.LoyaltyThreshold,
		RewardBasePoints:        c.Policy.RewardBasePoints,
		RewardLoyalBonus:        c.Policy.RewardLoyalBonus,
		DefaultChargingDuration: time.Duration(c.Policy.DefaultChargingDurationMinutes) * time.Minute,
		KWhPerMinute:            c.Policy.KWhPerMinute,
		BillingUnit:             time.Duration(c.Policy.BillingUnitMinutes) * time.Minute,
	}
}

// PaymentOptions converts the payments section. Validate has already
// checked the method name.
func (c *Config) PaymentOptions() payment.Options {
	m, err := payment.ParseMethod(c.Payments.DefaultMethod)
	if err != nil {
		m = payment.MethodCreditCard
	}
	return payment.Options{Default: m, FallbackToDefault: c.Payments.FallbackToDefault}
}
