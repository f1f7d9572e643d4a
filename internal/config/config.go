package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Storage backend names.
const (
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Storage selects the persistence backend: redis or sqlite.
	Storage    string `env:"STORAGE" envDefault:"redis"`
	RedisURL   string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"novel.db"`

	// DataDir holds story documents under <DataDir>/stories.
	DataDir string `env:"DATA_DIR" envDefault:"./data"`

	// TextSpeed is the default reveal tier for new sessions.
	TextSpeed string `env:"TEXT_SPEED" envDefault:"medium"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	switch cfg.Storage {
	case StorageRedis, StorageSQLite:
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage)
	}
	return cfg, nil
}

// SlogLevel maps the configured level string to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
