// Package protocol implements the hexstore wire format.
//
// A connection carries a sequence of frames in each direction. Every
// frame holds exactly one Message:
//
//	┌──────────────────────────┬───────────────────────────────────┐
//	│ Body length              │ Body                              │
//	│ (4 bytes, big-endian)    │ (length bytes)                    │
//	└──────────────────────────┴───────────────────────────────────┘
//
// Body layout:
//
//	version   uvarint
//	count     uvarint
//	packets   count × (type byte, varint-length-prefixed packet body)
//
// Packet bodies are length-prefixed so a decoder can step over packet
// types it does not know; they decode to Unsupported instead of failing
// the whole message. Optional fields carry a one-byte presence flag.
//
// The length prefix lets a reader tell an incomplete frame (wait for more
// bytes) from a corrupt one (reject it and move on) without re-parsing
// the buffer on every read.
package protocol
