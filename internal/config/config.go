// Package config loads process configuration from STEPWISE_* environment
// variables, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the runtime configuration shared by the CLI commands.
type Config struct {
	LogLevel     string `env:"STEPWISE_LOG_LEVEL" envDefault:"info"`
	Store        string `env:"STEPWISE_STORE" envDefault:"file"`
	DataDir      string `env:"STEPWISE_DATA_DIR" envDefault:".stepwise"`
	Port         int    `env:"STEPWISE_PORT" envDefault:"8080"`
	MaxInputSize int    `env:"STEPWISE_MAX_INPUT_SIZE" envDefault:"4096"`

	RedisAddr     string        `env:"STEPWISE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"STEPWISE_REDIS_PASSWORD"`
	RedisDB       int           `env:"STEPWISE_REDIS_DB" envDefault:"0"`
	RedisTTL      time.Duration `env:"STEPWISE_REDIS_TTL" envDefault:"0s"`

	SQLitePath string `env:"STEPWISE_SQLITE_PATH"`

	LockTTL time.Duration `env:"STEPWISE_LOCK_TTL" envDefault:"30s"`

	// EncryptionKey is a base64 AES-256 key sealing stored sessions.
	EncryptionKey      string   `env:"STEPWISE_ENCRYPTION_KEY"`
	EncryptionFallback []string `env:"STEPWISE_ENCRYPTION_FALLBACK_KEYS"`

	// PIIPatterns mask the stored answers of matching question IDs.
	PIIPatterns []string `env:"STEPWISE_PII_PATTERNS"`
}

// Load reads dotenv (if it exists) and then the environment.
// Variables already set in the environment win over the file.
func Load(dotenv string) (*Config, error) {
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and the store backend name.
func (c *Config) Validate() error {
	switch c.Store {
	case BackendMemory, BackendFile, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("unknown store backend %q (want memory, file, redis or sqlite)", c.Store)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.MaxInputSize <= 0 {
		return fmt.Errorf("max input size must be positive, got %d", c.MaxInputSize)
	}
	if c.RedisTTL < 0 || c.LockTTL < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}

// SessionsDir is where the file backend keeps sessions.
func (c *Config) SessionsDir() string {
	return filepath.Join(c.DataDir, "sessions")
}

// SQLiteFile is the database path of the sqlite backend.
func (c *Config) SQLiteFile() string {
	if c.SQLitePath != "" {
		return c.SQLitePath
	}
	return filepath.Join(c.DataDir, "stepwise.db")
}
