// Package config loads server and client settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultAddr is the listen and dial address used when URL is unset.
const DefaultAddr = "127.0.0.1:8080"

// Config holds every tunable of the server.
type Config struct {
	DatabaseURL   string        `env:"DATABASE_URL"`
	Addr          string        `env:"URL" envDefault:"127.0.0.1:8080"`
	ShelfLife     time.Duration `env:"HEXSTORE_SHELF_LIFE" envDefault:"1h"`
	PruneInterval time.Duration `env:"HEXSTORE_PRUNE_INTERVAL" envDefault:"10m"`
	LogLevel      string        `env:"HEXSTORE_LOG_LEVEL" envDefault:"info"`
}

// LoadDotEnv loads variables from the given files (".env" when none are
// named) without overriding variables already set. Missing files are
// not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings the server cannot start without.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("DATABASE_URL env var not set or in .env, please set it")
	}
	if c.Addr == "" {
		return errors.New("listen address is empty")
	}
	if c.ShelfLife <= 0 {
		return fmt.Errorf("shelf life must be positive, got %s", c.ShelfLife)
	}
	if c.PruneInterval <= 0 {
		return fmt.Errorf("prune interval must be positive, got %s", c.PruneInterval)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(name))); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}
