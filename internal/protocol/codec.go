package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/roach88/hexstore/internal/codec"
)

// Frame constants.
const (
	// FrameHeaderSize is the size of the body length prefix.
	FrameHeaderSize = 4

	// MaxMessageSize bounds a frame body. Payloads are stored in a
	// MEDIUMBLOB-sized column, so 4 MiB leaves room for the envelope.
	MaxMessageSize = 4 * 1024 * 1024
)

var (
	// ErrIncomplete means the buffer holds only part of a frame.
	ErrIncomplete = errors.New("protocol: incomplete frame")

	// ErrInvalid means a complete frame's body is malformed.
	ErrInvalid = errors.New("protocol: invalid message")

	// ErrFrameTooLarge means the header announces a body over
	// MaxMessageSize. The stream cannot be resynchronised after it.
	ErrFrameTooLarge = errors.New("protocol: frame too large")
)

// Encode serialises m into a complete frame.
func Encode(m Message) []byte {
	e := codec.NewEncoder()
	e.WriteUint32(0) // patched below
	e.WriteUvarint(uint64(m.Version))
	e.WriteUvarint(uint64(len(m.Packets)))

	body := codec.NewEncoder()
	for _, p := range m.Packets {
		body.Reset()
		raw := encodePacket(body, p)
		e.WriteByte(raw)
		e.WriteLenBytes(body.Bytes())
	}

	out := e.Bytes()
	binary.BigEndian.PutUint32(out, uint32(len(out)-FrameHeaderSize))
	return out
}

func encodePacket(e *codec.Encoder, p Packet) byte {
	switch pkt := p.(type) {
	case TryPut:
		writeOptString(e, pkt.Pattern)
		writeOptBytes(e, pkt.Payload)
	case TryGet:
		writeOptString(e, pkt.Pattern)
	case TryDelete:
		writeOptString(e, pkt.Pattern)
		writeOptBytes(e, pkt.Capability)
	case PutSuccess:
		e.WriteLenBytes(pkt.Capability)
		writeOptBytes(e, pkt.SanitizedEntity)
	case GetSuccess:
		e.WriteLenBytes(pkt.Payload)
	case DeleteSuccess:
	case ErrorResponse:
		e.WriteUvarint(uint64(pkt.Code))
		e.WriteString(pkt.Message)
	case Unsupported:
		e.WriteBytes(pkt.Raw)
		return pkt.RawType
	default:
		return byte(TypeNone)
	}
	return byte(p.Type())
}

func writeOptString(e *codec.Encoder, s *string) {
	e.WriteBool(s != nil)
	if s != nil {
		e.WriteString(*s)
	}
}

func writeOptBytes(e *codec.Encoder, b []byte) {
	e.WriteBool(b != nil)
	if b != nil {
		e.WriteLenBytes(b)
	}
}

// Decode reads one frame from the front of buf.
//
// On success it returns the message and the number of bytes consumed.
// ErrIncomplete means buf must grow before a frame can be read.
// ErrInvalid comes with the size of the rejected frame, so the caller can
// skip it. ErrFrameTooLarge is fatal for the stream.
func Decode(buf []byte) (Message, int, error) {
	if len(buf) < FrameHeaderSize {
		return Message{}, 0, ErrIncomplete
	}
	length := binary.BigEndian.Uint32(buf)
	if length > MaxMessageSize {
		return Message{}, 0, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}
	n := FrameHeaderSize + int(length)
	if len(buf) < n {
		return Message{}, 0, ErrIncomplete
	}

	m, err := decodeBody(buf[FrameHeaderSize:n])
	if err != nil {
		return Message{}, n, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return m, n, nil
}

// ReadMessage reads exactly one frame from r.
func ReadMessage(r io.Reader) (Message, error) {
	var header [FrameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Message{}, err
	}
	length := binary.BigEndian.Uint32(header[:])
	if length > MaxMessageSize {
		return Message{}, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}
	frame := make([]byte, FrameHeaderSize+int(length))
	copy(frame, header[:])
	if _, err := io.ReadFull(r, frame[FrameHeaderSize:]); err != nil {
		return Message{}, err
	}
	m, _, err := Decode(frame)
	return m, err
}

func decodeBody(body []byte) (Message, error) {
	d := codec.NewDecoder(body)

	version, err := d.ReadUvarint()
	if err != nil {
		return Message{}, err
	}
	if version > math.MaxUint32 {
		return Message{}, fmt.Errorf("version %d out of range", version)
	}

	count, err := d.ReadCollectionCount()
	if err != nil {
		return Message{}, err
	}

	var packets []Packet
	if count > 0 {
		packets = make([]Packet, 0, count)
	}
	for i := 0; i < count; i++ {
		raw, err := d.ReadByte()
		if err != nil {
			return Message{}, err
		}
		pbody, err := d.ReadLenBytes()
		if err != nil {
			return Message{}, fmt.Errorf("packet %d: %w", i, err)
		}
		p, err := decodePacket(raw, pbody)
		if err != nil {
			return Message{}, fmt.Errorf("packet %d (%s): %w", i, PacketType(raw), err)
		}
		packets = append(packets, p)
	}

	if !d.EOF() {
		return Message{}, fmt.Errorf("%d trailing bytes", d.Remaining())
	}
	return Message{Version: uint32(version), Packets: packets}, nil
}

func decodePacket(raw byte, body []byte) (Packet, error) {
	d := codec.NewDecoder(body)
	var (
		p   Packet
		err error
	)

	switch PacketType(raw) {
	case TypeTryPut:
		var pkt TryPut
		if pkt.Pattern, err = readOptString(d); err == nil {
			pkt.Payload, err = readOptBytes(d)
		}
		p = pkt
	case TypeTryGet:
		var pkt TryGet
		pkt.Pattern, err = readOptString(d)
		p = pkt
	case TypeTryDelete:
		var pkt TryDelete
		if pkt.Pattern, err = readOptString(d); err == nil {
			pkt.Capability, err = readOptBytes(d)
		}
		p = pkt
	case TypePutSuccess:
		var pkt PutSuccess
		if pkt.Capability, err = d.ReadLenBytes(); err == nil {
			pkt.SanitizedEntity, err = readOptBytes(d)
		}
		p = pkt
	case TypeGetSuccess:
		var pkt GetSuccess
		pkt.Payload, err = d.ReadLenBytes()
		p = pkt
	case TypeDeleteSuccess:
		p = DeleteSuccess{}
	case TypeErrorResponse:
		p, err = readErrorResponse(d)
	default:
		return Unsupported{RawType: raw, Raw: body}, nil
	}

	if err != nil {
		return nil, err
	}
	if !d.EOF() {
		return nil, fmt.Errorf("%d trailing bytes", d.Remaining())
	}
	return p, nil
}

func readErrorResponse(d *codec.Decoder) (ErrorResponse, error) {
	code, err := d.ReadUvarint()
	if err != nil {
		return ErrorResponse{}, err
	}
	if code > math.MaxUint16 {
		return ErrorResponse{}, fmt.Errorf("error code %d out of range", code)
	}
	msg, err := d.ReadString()
	if err != nil {
		return ErrorResponse{}, err
	}
	return ErrorResponse{Code: uint16(code), Message: msg}, nil
}

func readOptString(d *codec.Decoder) (*string, error) {
	present, err := d.ReadBool()
	if err != nil || !present {
		return nil, err
	}
	s, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func readOptBytes(d *codec.Decoder) ([]byte, error) {
	present, err := d.ReadBool()
	if err != nil || !present {
		return nil, err
	}
	return d.ReadLenBytes()
}
