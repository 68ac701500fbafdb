package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"
	"golang.org/x/crypto/bcrypt"
)

// Config holds the application configuration.
type Config struct {
	ServerPort   int    `env:"PORT" envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"./taskboard.db"`

	// JWTSecret signs every issued token. Changing it invalidates all tokens.
	JWTSecret    string        `env:"JWT_SECRET"`
	JWTExpiresIn time.Duration `env:"JWT_EXPIRES_IN" envDefault:"168h"`
	BcryptCost   int           `env:"BCRYPT_COST" envDefault:"10"`

	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogPretty bool   `env:"LOG_PRETTY" envDefault:"false"`

	// Activity events older than EventRetention are pruned on EventRetentionSchedule.
	EventRetention         time.Duration `env:"EVENT_RETENTION" envDefault:"720h"`
	EventRetentionSchedule string        `env:"EVENT_RETENTION_SCHEDULE" envDefault:"@daily"`
}

// Load loads configuration from environment variables, applying defaults.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that would prevent the server from starting.
func (c *Config) Validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.ServerPort)
	}
	if c.DatabasePath == "" {
		return errors.New("DATABASE_PATH must not be empty")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.JWTExpiresIn <= 0 {
		return fmt.Errorf("JWT_EXPIRES_IN must be positive, got %s", c.JWTExpiresIn)
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.BcryptCost)
	}
	if c.EventRetention <= 0 {
		return fmt.Errorf("EVENT_RETENTION must be positive, got %s", c.EventRetention)
	}
	if _, err := cron.ParseStandard(c.EventRetentionSchedule); err != nil {
		return fmt.Errorf("invalid EVENT_RETENTION_SCHEDULE: %w", err)
	}
	return nil
}
