package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/hexstore/internal/server"
	"github.com/roach88/hexstore/internal/store"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string
	Listen   string

	// Listener overrides the TCP listener (for testing).
	// If nil, serve listens on the configured address.
	Listener net.Listener

	// Clock overrides the wall clock (for testing).
	// If nil, defaults to server.SystemClock.
	Clock server.Clock
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the storage server",
		Long: `Run the hexstore TCP server.

The database is taken from --db or DATABASE_URL and created if it does
not exist. The listen address is taken from --listen or URL. Both may
also be set in a .env file in the working directory.

Example:
  hexstore serve --db ./hex.db
  DATABASE_URL=/var/lib/hexstore.db URL=0.0.0.0:8080 hexstore serve`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (overrides DATABASE_URL)")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "listen address (overrides URL)")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.Database != "" {
		cfg.DatabaseURL = opts.Database
	}
	if opts.Listen != "" {
		cfg.Addr = opts.Listen
	}
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel, opts.Verbose)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	slog.SetDefault(logger)

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}

	logger.Info("opening database", "path", cfg.DatabaseURL)
	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	if err := st.Ping(parentCtx); err != nil {
		return WrapExitError(ExitCommandError, "database unreachable", err)
	}
	logger.Info("database ready")

	clock := opts.Clock
	if clock == nil {
		clock = server.SystemClock{}
	}

	ln := opts.Listener
	if ln == nil {
		ln, err = net.Listen("tcp", cfg.Addr)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to listen", err)
		}
	}

	// Setup signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	handler := server.NewHandler(st, clock, server.RandomCapabilities{}, cfg.ShelfLife, logger)
	srv := server.New(handler, logger)
	pruner := server.NewPruner(st, clock, cfg.PruneInterval, logger)

	pruneDone := make(chan struct{})
	go func() {
		defer close(pruneDone)
		pruner.Run(ctx)
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "hexstore listening on %s\n", ln.Addr())
	logger.Info("server starting",
		"shelf_life", cfg.ShelfLife,
		"prune_interval", cfg.PruneInterval,
	)

	serveErr := srv.Serve(ctx, ln)
	cancel()
	<-pruneDone

	if serveErr != nil {
		return WrapExitError(ExitFailure, "server error", serveErr)
	}

	stats := srv.Stats()
	logger.Info("server stopped gracefully",
		"connections", stats.Connections,
		"requests", stats.Requests,
		"prune_runs", pruner.Runs(),
		"pruned", pruner.Removed(),
	)
	return nil
}
