package testutil

import "bytes"

// FixedCapability issues the same capability on every call.
//
// This makes PutSuccess replies byte-identical across runs so they can be
// compared against golden files.
//
// Thread-safety: FixedCapability is immutable and safe for concurrent use.
type FixedCapability struct {
	value []byte
}

// NewFixedCapability creates a generator returning value. A nil value
// means 32 bytes of 0xAB.
func NewFixedCapability(value []byte) *FixedCapability {
	if value == nil {
		value = bytes.Repeat([]byte{0xAB}, 32)
	}
	return &FixedCapability{value: bytes.Clone(value)}
}

// Generate returns a copy of the fixed capability.
func (g *FixedCapability) Generate() ([]byte, error) {
	return bytes.Clone(g.value), nil
}
