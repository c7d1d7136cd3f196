package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/hexstore/internal/document"
	"github.com/roach88/hexstore/internal/pattern"
	"github.com/roach88/hexstore/internal/protocol"
	"github.com/roach88/hexstore/internal/store"
)

// Status codes carried in ErrorResponse.
const (
	StatusBadRequest  uint16 = 400
	StatusServerError uint16 = 500
)

// Error messages returned to clients.
const (
	MsgInvalidMessage  = "invalid message"
	MsgResponsePacket  = "do not send response packets to the server"
	MsgMissingField    = "please fill all required fields"
	MsgUnsupportedType = "unsupported request type"
)

// DefaultShelfLife is how long a record lives after insertion.
const DefaultShelfLife = time.Hour

// Backend is the subset of the store the handler needs.
type Backend interface {
	Put(ctx context.Context, rec store.Record) error
	Get(ctx context.Context, pattern string) ([]byte, error)
	DeleteIf(ctx context.Context, pattern string, capability []byte) (bool, error)
}

// CapabilitySource issues capabilities for new records.
type CapabilitySource interface {
	Generate() ([]byte, error)
}

// RandomCapabilities issues store.CapabilityLen random bytes per call.
//
// Thread-safety: RandomCapabilities is stateless and safe for concurrent use.
type RandomCapabilities struct{}

// Generate returns a fresh capability.
func (RandomCapabilities) Generate() ([]byte, error) {
	return store.NewCapability()
}

// Handler executes request packets against a Backend.
//
// Thread-safety: Handler holds no per-request state and is shared by
// every connection.
type Handler struct {
	backend      Backend
	clock        Clock
	capabilities CapabilitySource
	shelfLife    time.Duration
	logger       *slog.Logger
}

// NewHandler creates a handler. Nil clock, capabilities and logger fall
// back to SystemClock, RandomCapabilities and slog.Default(); a
// non-positive shelfLife falls back to DefaultShelfLife.
func NewHandler(backend Backend, clock Clock, capabilities CapabilitySource, shelfLife time.Duration, logger *slog.Logger) *Handler {
	if clock == nil {
		clock = SystemClock{}
	}
	if capabilities == nil {
		capabilities = RandomCapabilities{}
	}
	if shelfLife <= 0 {
		shelfLife = DefaultShelfLife
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		backend:      backend,
		clock:        clock,
		capabilities: capabilities,
		shelfLife:    shelfLife,
		logger:       logger,
	}
}

// Dispatch handles every packet of msg in order and returns the reply.
// The reply has one packet per request packet, in the same order.
func (h *Handler) Dispatch(ctx context.Context, msg protocol.Message) protocol.Message {
	responses := make([]protocol.Packet, 0, len(msg.Packets))
	for _, p := range msg.Packets {
		resp := h.Handle(ctx, p)
		h.logger.Debug("packet handled", "request", p.Type(), "response", resp.Type())
		responses = append(responses, resp)
	}
	return protocol.Message{Version: protocol.CurrentVersion, Packets: responses}
}

// Handle executes a single packet.
func (h *Handler) Handle(ctx context.Context, p protocol.Packet) protocol.Packet {
	if p != nil && p.Type().IsResponse() {
		return protocol.Error(StatusBadRequest, MsgResponsePacket)
	}

	switch pkt := p.(type) {
	case protocol.TryPut:
		return h.tryPut(ctx, pkt)
	case protocol.TryGet:
		return h.tryGet(ctx, pkt)
	case protocol.TryDelete:
		return h.tryDelete(ctx, pkt)
	case protocol.Unsupported:
		if pkt.RawType == byte(protocol.TypeNone) {
			return protocol.Error(StatusBadRequest, MsgMissingField)
		}
		h.logger.Warn("client sent unknown packet type", "type", pkt.RawType)
		return protocol.Error(StatusBadRequest, MsgUnsupportedType)
	default:
		return protocol.Error(StatusBadRequest, MsgMissingField)
	}
}

func (h *Handler) tryPut(ctx context.Context, p protocol.TryPut) protocol.Packet {
	if p.Pattern == nil || p.Payload == nil {
		return protocol.Error(StatusBadRequest, MsgMissingField)
	}

	root, err := document.UnmarshalDocument(p.Payload)
	if err != nil {
		return protocol.Error(StatusBadRequest, fmt.Sprintf("payload is not an iota: %v", err))
	}
	clean := document.Marshal(document.Sanitize(root))

	capability, err := h.capabilities.Generate()
	if err != nil {
		h.logger.Error("capability generation failed", "error", err)
		return protocol.Error(StatusServerError, err.Error())
	}

	rec := store.Record{
		Pattern:    pattern.Restrict(*p.Pattern),
		Data:       clean,
		Capability: capability,
		ExpiresAt:  h.clock.Now().Add(h.shelfLife),
	}
	if err := h.backend.Put(ctx, rec); err != nil {
		h.logger.Error("put failed", "pattern", rec.Pattern, "error", err)
		return protocol.Error(StatusServerError, err.Error())
	}

	resp := protocol.PutSuccess{Capability: capability}
	if doc, _ := document.As(root); doc.Kind() == document.KindEntity {
		resp.SanitizedEntity = clean
	}
	return resp
}

// tryGet answers 500 for a miss as well as for a backend failure.
func (h *Handler) tryGet(ctx context.Context, p protocol.TryGet) protocol.Packet {
	if p.Pattern == nil {
		return protocol.Error(StatusBadRequest, MsgMissingField)
	}

	key := pattern.Restrict(*p.Pattern)
	data, err := h.backend.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			h.logger.Error("get failed", "pattern", key, "error", err)
		}
		return protocol.Error(StatusServerError, err.Error())
	}
	return protocol.GetSuccess{Payload: data}
}

// tryDelete reports success whether or not a record was removed, so a
// wrong capability is indistinguishable from a real deletion.
func (h *Handler) tryDelete(ctx context.Context, p protocol.TryDelete) protocol.Packet {
	if p.Pattern == nil || p.Capability == nil {
		return protocol.Error(StatusBadRequest, MsgMissingField)
	}

	key := pattern.Restrict(*p.Pattern)
	deleted, err := h.backend.DeleteIf(ctx, key, p.Capability)
	if err != nil {
		h.logger.Error("delete failed", "pattern", key, "error", err)
		return protocol.Error(StatusServerError, err.Error())
	}
	h.logger.Debug("delete handled", "pattern", key, "deleted", deleted)
	return protocol.DeleteSuccess{}
}
