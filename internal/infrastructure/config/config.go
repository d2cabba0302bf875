// Package config loads service configuration from config.yaml, .env and
// SUPPLY_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. SUPPLY_DATABASE_DSN.
const EnvPrefix = "SUPPLY"

// Config is the full service configuration.
type Config struct {
	App         AppConfig
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	RateLimit   RateLimitConfig
	Idempotency IdempotencyConfig
	Worker      WorkerConfig
	Numerator   NumeratorConfig
}

type AppConfig struct {
	Name     string
	Env      string
	LogLevel string
	Version  string
}

// IsDevelopment reports whether the service runs in development mode.
func (a AppConfig) IsDevelopment() bool {
	return a.Env == "development"
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	StatementTimeout time.Duration
	LockTimeout      time.Duration
}

// RedisConfig is optional: an empty Addr disables the discount settings cache
// and keeps rate limit counters in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Enabled reports whether Redis is configured.
func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// JWTConfig validates tokens issued by the auth service.
type JWTConfig struct {
	Secret string
	Issuer string
}

type RateLimitConfig struct {
	Enabled bool
	// Rate in ulule/limiter format, e.g. "60-M".
	Rate string
}

type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

type WorkerConfig struct {
	PollInterval     time.Duration
	BatchSize        int
	MaxRetries       int
	BaseBackoff      time.Duration
	CleanupInterval  time.Duration
	OutboxRetention  time.Duration
	NotifierEndpoint string
}

// NumeratorConfig selects how order and return numbers are reserved.
// Payment numbers are always strict.
type NumeratorConfig struct {
	Strategy  string // strict or cached
	RangeSize int64
}

// Load reads configuration. Priority, highest first:
// environment, .env, config.yaml, built-in defaults.
func Load() (*Config, error) {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/supplyhub")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name:     v.GetString("app.name"),
			Env:      v.GetString("app.env"),
			LogLevel: v.GetString("app.log_level"),
			Version:  v.GetString("app.version"),
		},
		Server: ServerConfig{
			Port:            v.GetString("server.port"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			IdleTimeout:     v.GetDuration("server.idle_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Database: DatabaseConfig{
			DSN:              v.GetString("database.dsn"),
			MaxConns:         v.GetInt32("database.max_conns"),
			MinConns:         v.GetInt32("database.min_conns"),
			MaxConnLifetime:  v.GetDuration("database.max_conn_lifetime"),
			MaxConnIdleTime:  v.GetDuration("database.max_conn_idle_time"),
			StatementTimeout: v.GetDuration("database.statement_timeout"),
			LockTimeout:      v.GetDuration("database.lock_timeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			CacheTTL: v.GetDuration("redis.cache_ttl"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		RateLimit: RateLimitConfig{
			Enabled: v.GetBool("rate_limit.enabled"),
			Rate:    v.GetString("rate_limit.rate"),
		},
		Idempotency: IdempotencyConfig{
			Enabled: v.GetBool("idempotency.enabled"),
			TTL:     v.GetDuration("idempotency.ttl"),
		},
		Worker: WorkerConfig{
			PollInterval:     v.GetDuration("worker.poll_interval"),
			BatchSize:        v.GetInt("worker.batch_size"),
			MaxRetries:       v.GetInt("worker.max_retries"),
			BaseBackoff:      v.GetDuration("worker.base_backoff"),
			CleanupInterval:  v.GetDuration("worker.cleanup_interval"),
			OutboxRetention:  v.GetDuration("worker.outbox_retention"),
			NotifierEndpoint: v.GetString("worker.notifier_endpoint"),
		},
		Numerator: NumeratorConfig{
			Strategy:  v.GetString("numerator.strategy"),
			RangeSize: v.GetInt64("numerator.range_size"),
		},
	}
}

// applyDefaults fills zero values.
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "supplyhub"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}

	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}

	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 20
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 2
	}
	if cfg.Database.MaxConnLifetime == 0 {
		cfg.Database.MaxConnLifetime = time.Hour
	}
	if cfg.Database.MaxConnIdleTime == 0 {
		cfg.Database.MaxConnIdleTime = 30 * time.Minute
	}
	if cfg.Database.StatementTimeout == 0 {
		cfg.Database.StatementTimeout = 30 * time.Second
	}
	if cfg.Database.LockTimeout == 0 {
		cfg.Database.LockTimeout = 10 * time.Second
	}

	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = 5 * time.Minute
	}

	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "pos-auth"
	}

	if cfg.RateLimit.Rate == "" {
		cfg.RateLimit.Rate = "120-M"
	}

	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}

	if cfg.Worker.PollInterval == 0 {
		cfg.Worker.PollInterval = 2 * time.Second
	}
	if cfg.Worker.BatchSize == 0 {
		cfg.Worker.BatchSize = 100
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 5
	}
	if cfg.Worker.BaseBackoff == 0 {
		cfg.Worker.BaseBackoff = 30 * time.Second
	}
	if cfg.Worker.CleanupInterval == 0 {
		cfg.Worker.CleanupInterval = time.Hour
	}
	if cfg.Worker.OutboxRetention == 0 {
		cfg.Worker.OutboxRetention = 7 * 24 * time.Hour
	}

	if cfg.Numerator.Strategy == "" {
		cfg.Numerator.Strategy = "strict"
	}
	if cfg.Numerator.RangeSize == 0 {
		cfg.Numerator.RangeSize = 50
	}
}

// Validate checks required values and production constraints.
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}
	if c.Database.MaxConns <= 0 {
		return errors.New("database.max_conns must be positive")
	}
	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) cannot exceed database.max_conns (%d)",
			c.Database.MinConns, c.Database.MaxConns)
	}
	if c.JWT.Secret == "" {
		return errors.New("jwt.secret is required")
	}

	switch c.Numerator.Strategy {
	case "strict", "cached":
	default:
		return fmt.Errorf("numerator.strategy must be strict or cached, got %q", c.Numerator.Strategy)
	}
	if c.Numerator.RangeSize <= 0 {
		return errors.New("numerator.range_size must be positive")
	}

	if c.App.Env == "production" {
		if len(c.JWT.Secret) < 32 {
			return errors.New("jwt.secret must be at least 32 characters in production")
		}
		if strings.Contains(c.Database.DSN, "sslmode=disable") {
			return errors.New("database.dsn cannot use sslmode=disable in production")
		}
	}
	return nil
}
