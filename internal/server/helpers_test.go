package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roach88/hexstore/internal/document"
	"github.com/roach88/hexstore/internal/protocol"
	"github.com/roach88/hexstore/internal/store"
	"github.com/roach88/hexstore/internal/testutil"
)

const testShelfLife = time.Hour

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func createTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "hex.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

type testEnv struct {
	handler    *Handler
	store      *store.Store
	clock      *testutil.FakeClock
	capability []byte
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := createTestStore(t)
	clock := testutil.NewFakeClock(time.Time{})
	caps := testutil.NewFixedCapability(nil)
	capability, _ := caps.Generate()
	return &testEnv{
		handler:    NewHandler(s, clock, caps, testShelfLife, discardLogger()),
		store:      s,
		clock:      clock,
		capability: capability,
	}
}

func (e *testEnv) do(t *testing.T, packets ...protocol.Packet) []protocol.Packet {
	t.Helper()
	reply := e.handler.Dispatch(context.Background(), protocol.Message{
		Version: protocol.CurrentVersion,
		Packets: packets,
	})
	require.Equal(t, protocol.CurrentVersion, reply.Version)
	require.Len(t, reply.Packets, len(packets))
	return reply.Packets
}

func entityDoc() document.Compound {
	return document.New("hexcasting:entity", document.Compound{
		document.C("uuid", document.IntArray{1, 2, 3, 4}),
		document.C("name", document.String("Steve")),
	})
}

func numberDoc(n float64) document.Compound {
	return document.New("hexcasting:double", document.Double(n))
}

func decodeDoc(t *testing.T, data []byte) document.Document {
	t.Helper()
	c, err := document.UnmarshalDocument(data)
	require.NoError(t, err)
	doc, ok := document.As(c)
	require.True(t, ok)
	return doc
}

type failingBackend struct {
	err error
}

func (b failingBackend) Put(context.Context, store.Record) error { return b.err }
func (b failingBackend) Get(context.Context, string) ([]byte, error) {
	return nil, b.err
}
func (b failingBackend) DeleteIf(context.Context, string, []byte) (bool, error) {
	return false, b.err
}

type failingCapabilities struct{}

func (failingCapabilities) Generate() ([]byte, error) {
	return nil, errors.New("entropy unavailable")
}
