// Package codec provides the binary primitives shared by the document
// format and the wire protocol.
//
// Integers are unsigned LEB128 varints (signed values are ZigZag
// encoded first), fixed-width integers and floats are big-endian, and
// strings and byte slices are prefixed with their varint length.
//
// Decoding never panics on hostile input: every read is bounds-checked
// and returns io.ErrUnexpectedEOF when the buffer ends early. Lengths
// and collection counts are capped so a forged prefix cannot force a
// large allocation.
package codec
