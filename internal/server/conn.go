package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"

	"github.com/google/uuid"

	"github.com/roach88/hexstore/internal/protocol"
)

// readChunk is the size of each read from a connection.
const readChunk = 4096

// ServeConn runs the request loop for one connection until the peer
// disconnects, a transport error occurs, or ctx is cancelled. It closes
// conn before returning.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	id := newConnID()
	logger := s.logger.With("conn", id, "remote", conn.RemoteAddr().String())
	logger.Debug("connection opened")

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		stop()
		conn.Close()
		logger.Debug("connection closed")
	}()

	var (
		buf   []byte
		chunk = make([]byte, readChunk)
	)
	for {
		n, err := conn.Read(chunk)
		buf = append(buf, chunk[:n]...)

		if n > 0 {
			var ok bool
			if buf, ok = s.drain(ctx, conn, buf, logger); !ok {
				return
			}
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				logger.Warn("read failed", "error", err)
			}
			return
		}
	}
}

// drain answers every complete frame at the front of buf and returns the
// unconsumed tail. It reports false when the connection must close.
func (s *Server) drain(ctx context.Context, conn net.Conn, buf []byte, logger *slog.Logger) ([]byte, bool) {
	for {
		msg, n, err := protocol.Decode(buf)
		switch {
		case errors.Is(err, protocol.ErrIncomplete):
			return buf, true

		case errors.Is(err, protocol.ErrFrameTooLarge):
			logger.Warn("closing connection", "error", err)
			return buf, false

		case errors.Is(err, protocol.ErrInvalid):
			logger.Debug("rejecting frame", "error", err, "size", n)
			reply := protocol.Message{
				Version: protocol.CurrentVersion,
				Packets: []protocol.Packet{protocol.Error(StatusBadRequest, MsgInvalidMessage)},
			}
			if !s.write(conn, reply, logger) {
				return buf, false
			}

		case err != nil:
			logger.Error("decode failed", "error", err)
			return buf, false

		case msg.Version == 0:
			logger.Debug("skipping version 0 message", "size", n)

		default:
			s.stats.requests.Add(1)
			reply := s.handler.Dispatch(ctx, msg)
			if !s.write(conn, reply, logger) {
				return buf, false
			}
		}

		buf = append(buf[:0], buf[n:]...)
	}
}

func (s *Server) write(conn net.Conn, reply protocol.Message, logger *slog.Logger) bool {
	if _, err := conn.Write(protocol.Encode(reply)); err != nil {
		logger.Warn("write failed", "error", err)
		return false
	}
	return true
}

func newConnID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
