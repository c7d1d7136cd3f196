package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATABASE_URL", "URL", "HEXSTORE_SHELF_LIFE", "HEXSTORE_PRUNE_INTERVAL", "HEXSTORE_LOG_LEVEL"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "", cfg.DatabaseURL)
	assert.Equal(t, DefaultAddr, cfg.Addr)
	assert.Equal(t, time.Hour, cfg.ShelfLife)
	assert.Equal(t, 10*time.Minute, cfg.PruneInterval)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "/tmp/hex.db")
	t.Setenv("URL", "0.0.0.0:9000")
	t.Setenv("HEXSTORE_SHELF_LIFE", "30m")
	t.Setenv("HEXSTORE_PRUNE_INTERVAL", "1m")
	t.Setenv("HEXSTORE_LOG_LEVEL", "debug")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "/tmp/hex.db", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9000", cfg.Addr)
	assert.Equal(t, 30*time.Minute, cfg.ShelfLife)
	assert.Equal(t, time.Minute, cfg.PruneInterval)
	assert.NoError(t, cfg.Validate())
}

func TestLoadInvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("HEXSTORE_SHELF_LIFE", "forever")

	_, err := Load()

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		DatabaseURL:   "x.db",
		Addr:          DefaultAddr,
		ShelfLife:     time.Hour,
		PruneInterval: time.Minute,
		LogLevel:      "info",
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing database", func(c *Config) { c.DatabaseURL = "" }},
		{"missing address", func(c *Config) { c.Addr = "" }},
		{"zero shelf life", func(c *Config) { c.ShelfLife = 0 }},
		{"negative prune interval", func(c *Config) { c.PruneInterval = -time.Second }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DATABASE_URL=from-file.db\nURL=127.0.0.1:9999\n"), 0o600))
	t.Setenv("URL", "127.0.0.1:7000")

	require.NoError(t, LoadDotEnv(path))
	t.Cleanup(func() { os.Unsetenv("DATABASE_URL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file.db", cfg.DatabaseURL)
	assert.Equal(t, "127.0.0.1:7000", cfg.Addr, "existing variables win over the file")
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	level, err = ParseLevel(" warn ")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)

	_, err = ParseLevel("chatty")
	assert.Error(t, err)
}
