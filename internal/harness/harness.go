package harness

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/hexstore/internal/document"
	"github.com/roach88/hexstore/internal/pattern"
	"github.com/roach88/hexstore/internal/protocol"
	"github.com/roach88/hexstore/internal/server"
	"github.com/roach88/hexstore/internal/store"
	"github.com/roach88/hexstore/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a fake clock and sequential capabilities.
type Harness struct {
	store   *store.Store
	handler *server.Handler
	pruner  *server.Pruner
	clock   *testutil.FakeClock
	issued  map[string][]byte // restricted pattern -> last capability
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// An error is returned only when the scenario cannot run at all; failed
// expectations are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	shelfLife := server.DefaultShelfLife
	if scenario.ShelfLife != "" {
		if shelfLife, err = time.ParseDuration(scenario.ShelfLife); err != nil {
			return nil, fmt.Errorf("shelf_life: %w", err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	clock := testutil.NewFakeClock(time.Time{})
	h := &Harness{
		store:   st,
		handler: server.NewHandler(st, clock, &sequentialCapabilities{}, shelfLife, logger),
		pruner:  server.NewPruner(st, clock, time.Minute, logger),
		clock:   clock,
		issued:  make(map[string][]byte),
		logger:  logger,
	}

	ctx := context.Background()
	result := NewResult(scenario.Name)
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	count, err := st.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count records: %w", err)
	}
	result.FinalCount = count
	if scenario.FinalCount != nil && *scenario.FinalCount != count {
		result.AddError("final_count: expected %d, got %d", *scenario.FinalCount, count)
	}
	return result, nil
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	ev := TraceEvent{Step: index, Op: step.Op}

	switch step.Op {
	case OpAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
		ev.Line = "advance " + d.String()

	case OpPrune:
		n, err := h.pruner.PruneOnce(ctx)
		if err != nil {
			return fmt.Errorf("prune: %w", err)
		}
		ev.Line = "prune"
		ev.Outcome = fmt.Sprintf("removed %d", n)
		if step.Expect != nil && step.Expect.Removed != nil && *step.Expect.Removed != n {
			result.AddError("step %d (prune): expected %d removed, got %d", index, *step.Expect.Removed, n)
		}

	default:
		req, line, err := h.buildRequest(step)
		if err != nil {
			return err
		}
		resp := h.handler.Handle(ctx, req)
		h.remember(step, resp)
		ev.Line = line
		ev.Outcome = describe(resp)
		if step.Expect != nil {
			checkExpect(index, step, resp, result)
		}
	}

	result.Trace = append(result.Trace, ev)
	return nil
}

func (h *Harness) buildRequest(step Step) (protocol.Packet, string, error) {
	line := step.Op + " " + showPattern(step.Pattern)

	switch step.Op {
	case OpPut:
		var payload []byte
		switch {
		case step.Iota != nil:
			payload = document.Marshal(step.Iota.Document())
		case step.RawHex != "":
			raw, err := hex.DecodeString(step.RawHex)
			if err != nil {
				return nil, "", fmt.Errorf("raw_hex: %w", err)
			}
			payload = raw
		}
		return protocol.TryPut{Pattern: step.Pattern, Payload: payload}, line, nil

	case OpGet:
		return protocol.TryGet{Pattern: step.Pattern}, line, nil

	case OpDelete:
		var capability []byte
		switch step.Capability {
		case CapabilityIssued:
			capability = []byte{}
			if step.Pattern != nil {
				if c, ok := h.issued[pattern.Restrict(*step.Pattern)]; ok {
					capability = c
				}
			}
		case CapabilityWrong:
			capability = []byte("wrong")
		}
		capName := step.Capability
		if capName == "" {
			capName = "none"
		}
		return protocol.TryDelete{Pattern: step.Pattern, Capability: capability}, line + " cap=" + capName, nil
	}
	return nil, "", fmt.Errorf("unknown op %q", step.Op)
}

// remember records the capability issued by a successful put.
func (h *Harness) remember(step Step, resp protocol.Packet) {
	put, ok := resp.(protocol.PutSuccess)
	if !ok || step.Op != OpPut || step.Pattern == nil {
		return
	}
	h.issued[pattern.Restrict(*step.Pattern)] = put.Capability
}

func showPattern(p *string) string {
	if p == nil {
		return "<none>"
	}
	return fmt.Sprintf("%q", *p)
}

// rootTag returns the tag of an encoded document, or "?".
func rootTag(data []byte) string {
	root, err := document.UnmarshalDocument(data)
	if err != nil {
		return "?"
	}
	doc, _ := document.As(root)
	return doc.Tag
}

func describe(p protocol.Packet) string {
	switch resp := p.(type) {
	case protocol.PutSuccess:
		if resp.SanitizedEntity != nil {
			return "PutSuccess sanitized=" + rootTag(resp.SanitizedEntity)
		}
		return "PutSuccess"
	case protocol.GetSuccess:
		return "GetSuccess tag=" + rootTag(resp.Payload)
	case protocol.ErrorResponse:
		return fmt.Sprintf("ErrorResponse %d %s", resp.Code, resp.Message)
	default:
		return p.Type().String()
	}
}

func checkExpect(index int, step Step, resp protocol.Packet, result *Result) {
	want := step.Expect
	prefix := fmt.Sprintf("step %d (%s %s)", index, step.Op, showPattern(step.Pattern))

	if want.Packet != "" && want.Packet != resp.Type().String() {
		result.AddError("%s: expected %s, got %s", prefix, want.Packet, describe(resp))
		return
	}

	switch r := resp.(type) {
	case protocol.ErrorResponse:
		if want.Code != 0 && want.Code != r.Code {
			result.AddError("%s: expected code %d, got %d", prefix, want.Code, r.Code)
		}
		if want.Message != "" && want.Message != r.Message {
			result.AddError("%s: expected message %q, got %q", prefix, want.Message, r.Message)
		}
	case protocol.PutSuccess:
		sanitized := r.SanitizedEntity != nil
		if want.Sanitized != nil && *want.Sanitized != sanitized {
			result.AddError("%s: expected sanitized=%t, got %t", prefix, *want.Sanitized, sanitized)
		}
		if want.Tag != "" && sanitized && want.Tag != rootTag(r.SanitizedEntity) {
			result.AddError("%s: expected sanitized tag %q, got %q", prefix, want.Tag, rootTag(r.SanitizedEntity))
		}
	case protocol.GetSuccess:
		if want.Tag != "" && want.Tag != rootTag(r.Payload) {
			result.AddError("%s: expected tag %q, got %q", prefix, want.Tag, rootTag(r.Payload))
		}
	}
}

// sequentialCapabilities issues store.CapabilityLen-byte capabilities
// holding a big-endian counter, so every put gets a distinct one.
type sequentialCapabilities struct {
	mu   sync.Mutex
	next uint64
}

func (s *sequentialCapabilities) Generate() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	c := make([]byte, store.CapabilityLen)
	binary.BigEndian.PutUint64(c[store.CapabilityLen-8:], s.next)
	return c, nil
}
