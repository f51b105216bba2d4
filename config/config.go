package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Lifecycle  LifecycleConfig  `yaml:"lifecycle"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size      int `yaml:"size" validate:"gte=1"`
	QueueSize int `yaml:"queue_size" validate:"gte=1"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Enabled reports whether both VAPID keys are configured.
func (p PushConfig) Enabled() bool {
	return p.PublicKey != "" && p.PrivateKey != ""
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port" validate:"gte=1,lte=65535"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec" validate:"gt=0"`
	RateLimitBurst  int     `yaml:"rate_limit_burst" validate:"gte=1"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN                    string `yaml:"dsn" validate:"required"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	LogSQL                 bool   `yaml:"log_sql"`
}

// LifecycleConfig holds the reservation, pricing and settlement policy.
type LifecycleConfig struct {
	SweeperEnabled       bool          `yaml:"sweeper_enabled"`
	SweepIntervalSeconds int           `yaml:"sweep_interval_seconds"`
	SweepInterval        time.Duration `yaml:"-"` // Ignored by YAML parser
	GraceMinutes         int           `yaml:"grace_minutes"`
	Grace                time.Duration `yaml:"-"`
	DefaultHourlyRate    float64       `yaml:"default_hourly_rate" validate:"gt=0"`
	InvoiceSeries        string        `yaml:"invoice_series" validate:"required,max=8"`
	ReceiptSeries        string        `yaml:"receipt_series" validate:"required,max=8,nefield=InvoiceSeries"`
}

// AuthConfig holds the bearer token settings.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret" validate:"required,min=16"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

// Load reads the configuration from the given path. Values from a .env file and the
// process environment override the secrets in the file.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnv(&cfg)
	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		cfg.Push.PublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		cfg.Push.PrivateKey = v
	}
}

// ApplyDefaults fills every unset field with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Lifecycle.SweepIntervalSeconds <= 0 {
		cfg.Lifecycle.SweepIntervalSeconds = 300
	}
	cfg.Lifecycle.SweepInterval = time.Duration(cfg.Lifecycle.SweepIntervalSeconds) * time.Second
	if cfg.Lifecycle.GraceMinutes <= 0 {
		cfg.Lifecycle.GraceMinutes = 15
	}
	cfg.Lifecycle.Grace = time.Duration(cfg.Lifecycle.GraceMinutes) * time.Minute
	if cfg.Lifecycle.DefaultHourlyRate <= 0 {
		cfg.Lifecycle.DefaultHourlyRate = 5
	}
	if cfg.Lifecycle.InvoiceSeries == "" {
		cfg.Lifecycle.InvoiceSeries = "F001"
	}
	if cfg.Lifecycle.ReceiptSeries == "" {
		cfg.Lifecycle.ReceiptSeries = "B001"
	}

	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 24
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		cfg.WorkerPool.QueueSize = 64
	}
}

var validate = validator.New()

// Validate checks the configuration against its validate tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
