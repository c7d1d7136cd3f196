package server

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hexstore/internal/document"
	"github.com/roach88/hexstore/internal/protocol"
	"github.com/roach88/hexstore/internal/store"
)

func TestHandler_PutEntityIsRedacted(t *testing.T) {
	env := newTestEnv(t)
	payload := document.Marshal(entityDoc())

	replies := env.do(t, protocol.TryPut{Pattern: protocol.Str("zzz"), Payload: payload})
	put, ok := replies[0].(protocol.PutSuccess)
	require.True(t, ok, "got %#v", replies[0])
	assert.Equal(t, env.capability, put.Capability)
	require.NotNil(t, put.SanitizedEntity)
	assert.Equal(t, "hexcasting:garbage", decodeDoc(t, put.SanitizedEntity).Tag)

	// "zzz" restricts to the empty key, as does the lookup
	replies = env.do(t, protocol.TryGet{Pattern: protocol.Str("zzz")})
	get, ok := replies[0].(protocol.GetSuccess)
	require.True(t, ok, "got %#v", replies[0])
	assert.Equal(t, "hexcasting:garbage", decodeDoc(t, get.Payload).Tag)
	assert.Equal(t, put.SanitizedEntity, get.Payload)
}

func TestHandler_PutPlainDocumentStoredVerbatim(t *testing.T) {
	env := newTestEnv(t)
	payload := document.Marshal(document.NewList("hexcasting", numberDoc(1), numberDoc(2)))

	replies := env.do(t, protocol.TryPut{Pattern: protocol.Str("qwe"), Payload: payload})
	put, ok := replies[0].(protocol.PutSuccess)
	require.True(t, ok, "got %#v", replies[0])
	assert.Nil(t, put.SanitizedEntity)

	replies = env.do(t, protocol.TryGet{Pattern: protocol.Str("qwe")})
	assert.Equal(t, protocol.GetSuccess{Payload: payload}, replies[0])
}

func TestHandler_PutNestedEntityRedactedWithoutEcho(t *testing.T) {
	env := newTestEnv(t)
	payload := document.Marshal(document.NewList("hexcasting", numberDoc(7), entityDoc()))

	replies := env.do(t, protocol.TryPut{Pattern: protocol.Str("aqa"), Payload: payload})
	put, ok := replies[0].(protocol.PutSuccess)
	require.True(t, ok, "got %#v", replies[0])
	assert.Nil(t, put.SanitizedEntity, "only a root entity is echoed")

	replies = env.do(t, protocol.TryGet{Pattern: protocol.Str("aqa")})
	get := replies[0].(protocol.GetSuccess)
	list := decodeDoc(t, get.Payload)
	items, ok := list.Data.(document.List)
	require.True(t, ok)
	require.Len(t, items, 2)
	second, ok := document.As(items[1])
	require.True(t, ok)
	assert.Equal(t, "hexcasting:garbage", second.Tag)
}

func TestHandler_PutRestrictsPattern(t *testing.T) {
	env := newTestEnv(t)
	payload := document.Marshal(numberDoc(3))

	env.do(t, protocol.TryPut{Pattern: protocol.Str("q-w-e!"), Payload: payload})

	replies := env.do(t, protocol.TryGet{Pattern: protocol.Str("qwe")})
	assert.Equal(t, protocol.GetSuccess{Payload: payload}, replies[0])
}

func TestHandler_PutSetsExpiryFromClock(t *testing.T) {
	env := newTestEnv(t)
	now := env.clock.Now()

	env.do(t, protocol.TryPut{Pattern: protocol.Str("dd"), Payload: document.Marshal(numberDoc(1))})

	records, err := env.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].ExpiresAt.Equal(now.Add(testShelfLife)))
}

func TestHandler_PutOverwritesSamePattern(t *testing.T) {
	env := newTestEnv(t)
	first := document.Marshal(numberDoc(1))
	second := document.Marshal(numberDoc(2))

	env.do(t, protocol.TryPut{Pattern: protocol.Str("ss"), Payload: first})
	env.do(t, protocol.TryPut{Pattern: protocol.Str("ss"), Payload: second})

	replies := env.do(t, protocol.TryGet{Pattern: protocol.Str("ss")})
	assert.Equal(t, protocol.GetSuccess{Payload: second}, replies[0])
}

func TestHandler_DeleteWrongCapabilityStillSucceeds(t *testing.T) {
	env := newTestEnv(t)
	payload := document.Marshal(numberDoc(4))
	env.do(t, protocol.TryPut{Pattern: protocol.Str("we"), Payload: payload})

	replies := env.do(t, protocol.TryDelete{Pattern: protocol.Str("we"), Capability: []byte("wrong")})
	assert.Equal(t, protocol.DeleteSuccess{}, replies[0])

	replies = env.do(t, protocol.TryGet{Pattern: protocol.Str("we")})
	assert.Equal(t, protocol.GetSuccess{Payload: payload}, replies[0])
}

func TestHandler_DeleteWithCapabilityRemovesRecord(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, protocol.TryPut{Pattern: protocol.Str("we"), Payload: document.Marshal(numberDoc(4))})

	replies := env.do(t, protocol.TryDelete{Pattern: protocol.Str("we"), Capability: env.capability})
	assert.Equal(t, protocol.DeleteSuccess{}, replies[0])

	replies = env.do(t, protocol.TryGet{Pattern: protocol.Str("we")})
	resp, ok := replies[0].(protocol.ErrorResponse)
	require.True(t, ok, "got %#v", replies[0])
	assert.Equal(t, StatusServerError, resp.Code)
}

func TestHandler_GetMissIsServerError(t *testing.T) {
	env := newTestEnv(t)

	replies := env.do(t, protocol.TryGet{Pattern: protocol.Str("qqqq")})
	resp, ok := replies[0].(protocol.ErrorResponse)
	require.True(t, ok, "got %#v", replies[0])
	assert.Equal(t, StatusServerError, resp.Code)
	assert.Equal(t, store.ErrNotFound.Error(), resp.Message)
}

func TestHandler_MissingFields(t *testing.T) {
	env := newTestEnv(t)
	payload := document.Marshal(numberDoc(1))

	tests := []struct {
		name   string
		packet protocol.Packet
	}{
		{"put without pattern", protocol.TryPut{Payload: payload}},
		{"put without payload", protocol.TryPut{Pattern: protocol.Str("q")}},
		{"get without pattern", protocol.TryGet{}},
		{"delete without pattern", protocol.TryDelete{Capability: env.capability}},
		{"delete without capability", protocol.TryDelete{Pattern: protocol.Str("q")}},
		{"type zero", protocol.Unsupported{RawType: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replies := env.do(t, tt.packet)
			assert.Equal(t, protocol.Error(StatusBadRequest, MsgMissingField), replies[0])
		})
	}
}

func TestHandler_RejectsResponsePackets(t *testing.T) {
	env := newTestEnv(t)

	packets := []protocol.Packet{
		protocol.PutSuccess{Capability: []byte{1}},
		protocol.GetSuccess{Payload: []byte{1}},
		protocol.DeleteSuccess{},
		protocol.Error(418, "teapot"),
	}
	for _, resp := range env.do(t, packets...) {
		assert.Equal(t, protocol.Error(StatusBadRequest, MsgResponsePacket), resp)
	}
}

func TestHandler_UnknownPacketType(t *testing.T) {
	env := newTestEnv(t)

	replies := env.do(t, protocol.Unsupported{RawType: 42, Raw: []byte{1, 2}})
	assert.Equal(t, protocol.Error(StatusBadRequest, MsgUnsupportedType), replies[0])
}

func TestHandler_BadPayload(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name    string
		payload []byte
	}{
		{"empty", []byte{}},
		{"garbage", []byte{0xff, 0x00, 0x13}},
		{"not a document", document.Marshal(document.Compound{document.C("x", document.Int(1))})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			replies := env.do(t, protocol.TryPut{Pattern: protocol.Str("q"), Payload: tt.payload})
			resp, ok := replies[0].(protocol.ErrorResponse)
			require.True(t, ok, "got %#v", replies[0])
			assert.Equal(t, StatusBadRequest, resp.Code)
		})
	}

	count, err := env.store.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestHandler_BackendFailureIsServerError(t *testing.T) {
	h := NewHandler(failingBackend{err: errors.New("disk on fire")}, nil, nil, 0, discardLogger())
	payload := document.Marshal(numberDoc(1))

	reply := h.Dispatch(context.Background(), protocol.Message{
		Version: protocol.CurrentVersion,
		Packets: []protocol.Packet{
			protocol.TryPut{Pattern: protocol.Str("q"), Payload: payload},
			protocol.TryGet{Pattern: protocol.Str("q")},
			protocol.TryDelete{Pattern: protocol.Str("q"), Capability: []byte{1}},
		},
	})

	require.Len(t, reply.Packets, 3)
	for _, p := range reply.Packets {
		assert.Equal(t, protocol.Error(StatusServerError, "disk on fire"), p)
	}
}

func TestHandler_ClosedStoreIsServerError(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Close())

	replies := env.do(t, protocol.TryGet{Pattern: protocol.Str("q")})
	resp, ok := replies[0].(protocol.ErrorResponse)
	require.True(t, ok, "got %#v", replies[0])
	assert.Equal(t, StatusServerError, resp.Code)
	assert.NotEqual(t, store.ErrNotFound.Error(), resp.Message)
}

func TestHandler_CapabilityFailureIsServerError(t *testing.T) {
	h := NewHandler(createTestStore(t), nil, failingCapabilities{}, 0, discardLogger())

	resp := h.Handle(context.Background(), protocol.TryPut{
		Pattern: protocol.Str("q"),
		Payload: document.Marshal(numberDoc(1)),
	})
	assert.Equal(t, protocol.Error(StatusServerError, "entropy unavailable"), resp)
}

func TestHandler_DispatchPreservesOrder(t *testing.T) {
	env := newTestEnv(t)
	payload := document.Marshal(numberDoc(9))

	replies := env.do(t,
		protocol.TryGet{Pattern: protocol.Str("e")},
		protocol.TryPut{Pattern: protocol.Str("e"), Payload: payload},
		protocol.TryGet{Pattern: protocol.Str("e")},
		protocol.DeleteSuccess{},
	)

	assert.Equal(t, protocol.TypeErrorResponse, replies[0].Type())
	assert.Equal(t, protocol.TypePutSuccess, replies[1].Type())
	assert.Equal(t, protocol.GetSuccess{Payload: payload}, replies[2])
	assert.Equal(t, protocol.Error(StatusBadRequest, MsgResponsePacket), replies[3])
}

func TestHandler_EmptyMessageGetsEmptyReply(t *testing.T) {
	env := newTestEnv(t)

	reply := env.handler.Dispatch(context.Background(), protocol.Message{Version: protocol.CurrentVersion})
	assert.Equal(t, protocol.CurrentVersion, reply.Version)
	assert.NotNil(t, reply.Packets)
	assert.Empty(t, reply.Packets)
}

func TestHandler_DefaultsCapabilitySource(t *testing.T) {
	h := NewHandler(createTestStore(t), nil, nil, 0, discardLogger())

	resp := h.Handle(context.Background(), protocol.TryPut{
		Pattern: protocol.Str("q"),
		Payload: document.Marshal(numberDoc(1)),
	})
	put, ok := resp.(protocol.PutSuccess)
	require.True(t, ok, "got %#v", resp)
	assert.Len(t, put.Capability, store.CapabilityLen)
}
