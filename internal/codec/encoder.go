package codec

import "math"

// Encoder appends binary data to an internal buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder creates an encoder with a small initial capacity.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 128)}
}

// Reset empties the encoder, keeping the underlying buffer.
func (e *Encoder) Reset() {
	e.buf = e.buf[:0]
}

// Bytes returns the encoded bytes. The slice is valid until the next
// write or Reset.
func (e *Encoder) Bytes() []byte {
	return e.buf
}

// WriteByte appends a single byte.
// The buffer is unbounded, so unlike io.ByteWriter no error is returned.
func (e *Encoder) WriteByte(b byte) {
	e.buf = append(e.buf, b)
}

// WriteBytes appends raw bytes without a length prefix.
func (e *Encoder) WriteBytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// WriteUvarint appends an unsigned varint.
func (e *Encoder) WriteUvarint(v uint64) {
	for v >= 0x80 {
		e.buf = append(e.buf, byte(v)|0x80)
		v >>= 7
	}
	e.buf = append(e.buf, byte(v))
}

// WriteSvarint appends a ZigZag encoded signed varint.
func (e *Encoder) WriteSvarint(v int64) {
	e.WriteUvarint(uint64((v << 1) ^ (v >> 63)))
}

// WriteString appends a length-prefixed string.
func (e *Encoder) WriteString(s string) {
	e.WriteUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteLenBytes appends length-prefixed bytes.
func (e *Encoder) WriteLenBytes(b []byte) {
	e.WriteUvarint(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// WriteBool appends 0x01 for true and 0x00 for false.
func (e *Encoder) WriteBool(b bool) {
	if b {
		e.buf = append(e.buf, 0x01)
		return
	}
	e.buf = append(e.buf, 0x00)
}

// WriteUint32 appends a big-endian uint32.
func (e *Encoder) WriteUint32(v uint32) {
	e.buf = append(e.buf, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// WriteUint64 appends a big-endian uint64.
func (e *Encoder) WriteUint64(v uint64) {
	e.buf = append(e.buf,
		byte(v>>56), byte(v>>48), byte(v>>40), byte(v>>32),
		byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// WriteFloat64 appends an IEEE 754 float64 in big-endian order.
func (e *Encoder) WriteFloat64(v float64) {
	e.WriteUint64(math.Float64bits(v))
}
