package cli

import (
	"io"
	"log/slog"

	"github.com/roach88/hexstore/internal/config"
)

// loadConfig reads .env (if present) and then the environment.
func loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load .env", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// newLogger builds the process logger. --verbose forces debug level.
func newLogger(w io.Writer, level string, verbose bool) (*slog.Logger, error) {
	logLevel, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	})
	return slog.New(handler), nil
}
