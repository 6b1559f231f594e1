package config

import (
	"errors"
	"time"
)

// Config represents the escrowd service configuration
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Store       StoreConfig       `mapstructure:"store"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Events      EventsConfig      `mapstructure:"events"`
	Escrow      EscrowConfig      `mapstructure:"escrow"`
	Roles       RolesConfig       `mapstructure:"roles"`
	Automation  AutomationConfig  `mapstructure:"automation"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects and configures the ledger store backend
type StoreConfig struct {
	Backend  string         `mapstructure:"backend"` // memory or postgres
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// PostgresConfig represents PostgreSQL ledger store configuration
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	MaxConnections  int           `mapstructure:"max_connections"`
	MinConnections  int           `mapstructure:"min_connections"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig represents Redis idempotency store configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// EventsConfig represents NATS change-event publishing configuration
type EventsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// EscrowConfig represents the economic parameters of the protocol
type EscrowConfig struct {
	RegistrationFee int64         `mapstructure:"registration_fee"`
	FeeToken        string        `mapstructure:"fee_token"`
	BaselineStake   int64         `mapstructure:"baseline_stake"`
	MaxBatchSize    int           `mapstructure:"max_batch_size"`
	IdempotencyTTL  time.Duration `mapstructure:"idempotency_ttl"`
}

// RolesConfig represents the initial role assignments. Subsequent
// rotations happen at runtime through owner-authorized calls.
type RolesConfig struct {
	Owner      string `mapstructure:"owner"`
	Arbitrator string `mapstructure:"arbitrator"`
	Relayer    string `mapstructure:"relayer"`
	Executor   string `mapstructure:"executor"`
}

// AutomationConfig represents the background settlement runner
type AutomationConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// RateLimiterConfig represents HTTP rate limiting configuration
type RateLimiterConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	BurstSize         int     `mapstructure:"burst_size"`
}

// MetricsConfig represents Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	if c.Store.Backend != "memory" && c.Store.Backend != "postgres" {
		return errors.New("store.backend must be one of: memory, postgres")
	}
	if c.Store.Backend == "postgres" {
		if c.Store.Postgres.Host == "" {
			return errors.New("store.postgres.host is required")
		}
		if c.Store.Postgres.Database == "" {
			return errors.New("store.postgres.database is required")
		}
		if c.Store.Postgres.User == "" {
			return errors.New("store.postgres.user is required")
		}
	}
	if c.Redis.Enabled && c.Redis.Host == "" {
		return errors.New("redis.host is required when redis is enabled")
	}
	if c.Events.Enabled && c.Events.URL == "" {
		return errors.New("events.url is required when events are enabled")
	}
	if c.Escrow.RegistrationFee < 0 {
		return errors.New("escrow.registration_fee must not be negative")
	}
	if c.Escrow.BaselineStake <= 0 {
		return errors.New("escrow.baseline_stake must be positive")
	}
	if c.Escrow.MaxBatchSize <= 0 {
		return errors.New("escrow.max_batch_size must be positive")
	}
	if c.Roles.Owner == "" {
		return errors.New("roles.owner is required")
	}
	if c.Roles.Arbitrator == "" {
		return errors.New("roles.arbitrator is required")
	}
	if c.Roles.Relayer == "" {
		return errors.New("roles.relayer is required")
	}
	if c.Roles.Executor == "" {
		return errors.New("roles.executor is required")
	}
	if c.Automation.Enabled && c.Automation.PollInterval <= 0 {
		return errors.New("automation.poll_interval must be positive when automation is enabled")
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	return nil
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Backend: "memory",
			Postgres: PostgresConfig{
				Host:            "localhost",
				Port:            5432,
				Database:        "escrowd_ledger",
				User:            "escrowd",
				Password:        "",
				MaxConnections:  50,
				MinConnections:  10,
				ConnMaxLifetime: 30 * time.Minute,
			},
		},
		Redis: RedisConfig{
			Enabled:  false,
			Host:     "localhost",
			Port:     6379,
			Password: "",
			DB:       0,
			PoolSize: 100,
		},
		Events: EventsConfig{
			Enabled:       false,
			URL:           "nats://localhost:4222",
			SubjectPrefix: "escrow.event",
		},
		Escrow: EscrowConfig{
			RegistrationFee: 100,
			FeeToken:        "USDC",
			BaselineStake:   50,
			MaxBatchSize:    50,
			IdempotencyTTL:  24 * time.Hour,
		},
		Roles: RolesConfig{
			Owner:      "owner-1",
			Arbitrator: "arbitrator-1",
			Relayer:    "relayer-1",
			Executor:   "executor-1",
		},
		Automation: AutomationConfig{
			Enabled:      true,
			PollInterval: 30 * time.Second,
		},
		RateLimiter: RateLimiterConfig{
			Enabled:           true,
			RequestsPerSecond: 1000.0,
			BurstSize:         100,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
