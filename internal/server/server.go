package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
)

// Stats counts server activity since start.
type Stats struct {
	Connections uint64
	Requests    uint64
}

type counters struct {
	connections atomic.Uint64
	requests    atomic.Uint64
}

// Server accepts connections and hands each to its own goroutine.
type Server struct {
	handler *Handler
	logger  *slog.Logger
	stats   counters
	wg      sync.WaitGroup
}

// New creates a server that answers requests with handler.
func New(handler *Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{handler: handler, logger: logger}
}

// Serve accepts connections on ln until ctx is cancelled or Accept fails.
// It closes ln and waits for open connections to finish before
// returning. Cancellation returns nil.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer s.wg.Wait()
	defer ln.Close()

	s.logger.Info("listening", "addr", ln.Addr().String())
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.stats.connections.Add(1)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(ctx, conn)
		}()
	}
}

// Stats returns a snapshot of the activity counters.
func (s *Server) Stats() Stats {
	return Stats{
		Connections: s.stats.connections.Load(),
		Requests:    s.stats.requests.Load(),
	}
}
