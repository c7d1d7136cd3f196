package codec

import (
	"errors"
	"io"
	"math"
)

// Allocation limits applied while decoding untrusted input.
const (
	// MaxAllocation caps a single length-prefixed string or byte slice.
	MaxAllocation = 4 * 1024 * 1024

	// MaxCollectionCount caps the element count of any list or map.
	MaxCollectionCount = 100_000
)

var (
	ErrVarintOverflow     = errors.New("codec: varint overflow")
	ErrAllocationTooLarge = errors.New("codec: allocation size exceeds limit")
	ErrCollectionTooLarge = errors.New("codec: collection count exceeds limit")
	ErrInvalidBool        = errors.New("codec: invalid boolean value")
)

// Decoder reads binary data from a byte slice.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder creates a decoder over buf.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}

// EOF reports whether every byte has been read.
func (d *Decoder) EOF() bool {
	return d.pos >= len(d.buf)
}

// ReadByte reads a single byte.
func (d *Decoder) ReadByte() (byte, error) {
	if d.pos >= len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos]
	d.pos++
	return b, nil
}

// ReadUvarint reads an unsigned varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	var v uint64
	var shift uint
	for {
		if d.pos >= len(d.buf) {
			return 0, io.ErrUnexpectedEOF
		}
		b := d.buf[d.pos]
		d.pos++
		v |= uint64(b&0x7F) << shift
		if b < 0x80 {
			return v, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, ErrVarintOverflow
		}
	}
}

// ReadSvarint reads a ZigZag encoded signed varint.
func (d *Decoder) ReadSvarint() (int64, error) {
	uv, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	v := int64(uv >> 1)
	if uv&1 != 0 {
		v = ^v
	}
	return v, nil
}

// readLength reads a varint length and checks it against the remaining
// buffer and MaxAllocation.
func (d *Decoder) readLength() (int, error) {
	length, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if length > MaxAllocation {
		return 0, ErrAllocationTooLarge
	}
	if length > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(length), nil
}

// ReadString reads a length-prefixed string.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.readLength()
	if err != nil {
		return "", err
	}
	s := string(d.buf[d.pos : d.pos+n])
	d.pos += n
	return s, nil
}

// ReadLenBytes reads length-prefixed bytes and returns a copy.
func (d *Decoder) ReadLenBytes() ([]byte, error) {
	n, err := d.readLength()
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	copy(b, d.buf[d.pos:d.pos+n])
	d.pos += n
	return b, nil
}

// ReadBool reads a strict boolean byte.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0x00:
		return false, nil
	case 0x01:
		return true, nil
	default:
		return false, ErrInvalidBool
	}
}

// ReadUint32 reads a big-endian uint32.
func (d *Decoder) ReadUint32() (uint32, error) {
	if d.pos+4 > len(d.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := uint32(d.buf[d.pos])<<24 | uint32(d.buf[d.pos+1])<<16 |
		uint32(d.buf[d.pos+2])<<8 | uint32(d.buf[d.pos+3])
	d.pos += 4
	return v, nil
}

// ReadUint64 reads a big-endian uint64.
func (d *Decoder) ReadUint64() (uint64, error) {
	hi, err := d.ReadUint32()
	if err != nil {
		return 0, err
	}
	lo, err := d.ReadUint32()
	if err != nil {
		return 0, err
	}
	return uint64(hi)<<32 | uint64(lo), nil
}

// ReadFloat64 reads a big-endian IEEE 754 float64.
func (d *Decoder) ReadFloat64() (float64, error) {
	v, err := d.ReadUint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadCollectionCount reads a varint element count. Every element takes
// at least one byte, so a count larger than the remaining buffer is
// reported as truncation.
func (d *Decoder) ReadCollectionCount() (int, error) {
	count, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if count > MaxCollectionCount {
		return 0, ErrCollectionTooLarge
	}
	if count > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(count), nil
}
