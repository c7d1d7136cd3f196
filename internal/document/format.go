package document

import (
	"errors"
	"fmt"
	"math"

	"github.com/roach88/hexstore/internal/codec"
)

// Type bytes of the binary format. The numbering follows the tag ids of
// the game's native tree format so dumps are easy to cross-reference.
const (
	typeInt      byte = 3
	typeDouble   byte = 6
	typeBytes    byte = 7
	typeString   byte = 8
	typeList     byte = 9
	typeCompound byte = 10
	typeIntArray byte = 11
)

// MaxDepth bounds container nesting while decoding.
const MaxDepth = 512

var (
	// ErrInvalidFormat reports bytes that are not a well-formed value.
	ErrInvalidFormat = errors.New("document: invalid format")

	// ErrNotDocument reports a well-formed value that is not a document.
	ErrNotDocument = errors.New("document: value is not a document")

	// ErrMaxDepthExceeded reports nesting deeper than MaxDepth.
	ErrMaxDepthExceeded = errors.New("document: maximum depth exceeded")
)

// Marshal encodes v in the binary format.
func Marshal(v Value) []byte {
	e := codec.NewEncoder()
	writeValue(e, v)
	return e.Bytes()
}

func writeValue(e *codec.Encoder, v Value) {
	switch val := v.(type) {
	case Int:
		e.WriteByte(typeInt)
		e.WriteSvarint(int64(val))
	case Double:
		e.WriteByte(typeDouble)
		e.WriteFloat64(float64(val))
	case Bytes:
		e.WriteByte(typeBytes)
		e.WriteLenBytes(val)
	case String:
		e.WriteByte(typeString)
		e.WriteString(string(val))
	case IntArray:
		e.WriteByte(typeIntArray)
		e.WriteUvarint(uint64(len(val)))
		for _, n := range val {
			e.WriteSvarint(int64(n))
		}
	case List:
		e.WriteByte(typeList)
		e.WriteUvarint(uint64(len(val)))
		for _, item := range val {
			writeValue(e, item)
		}
	case Compound:
		e.WriteByte(typeCompound)
		e.WriteUvarint(uint64(len(val)))
		for _, f := range val {
			e.WriteString(f.Name)
			writeValue(e, f.Value)
		}
	default:
		// nil and foreign implementations encode as an empty compound
		e.WriteByte(typeCompound)
		e.WriteUvarint(0)
	}
}

// Unmarshal decodes a single value occupying all of data.
func Unmarshal(data []byte) (Value, error) {
	d := codec.NewDecoder(data)
	v, err := readValue(d, 0)
	if err != nil {
		return nil, err
	}
	if !d.EOF() {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrInvalidFormat, d.Remaining())
	}
	return v, nil
}

// UnmarshalDocument decodes data and checks that the root is a document.
func UnmarshalDocument(data []byte) (Compound, error) {
	v, err := Unmarshal(data)
	if err != nil {
		return nil, err
	}
	if _, ok := As(v); !ok {
		return nil, ErrNotDocument
	}
	return v.(Compound), nil
}

func readValue(d *codec.Decoder, depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, ErrMaxDepthExceeded
	}

	t, err := d.ReadByte()
	if err != nil {
		return nil, wrapFormat(err)
	}

	switch t {
	case typeInt:
		n, err := d.ReadSvarint()
		if err != nil {
			return nil, wrapFormat(err)
		}
		return Int(n), nil

	case typeDouble:
		f, err := d.ReadFloat64()
		if err != nil {
			return nil, wrapFormat(err)
		}
		return Double(f), nil

	case typeBytes:
		b, err := d.ReadLenBytes()
		if err != nil {
			return nil, wrapFormat(err)
		}
		return Bytes(b), nil

	case typeString:
		s, err := d.ReadString()
		if err != nil {
			return nil, wrapFormat(err)
		}
		return String(s), nil

	case typeIntArray:
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, wrapFormat(err)
		}
		arr := make(IntArray, count)
		for i := range arr {
			n, err := d.ReadSvarint()
			if err != nil {
				return nil, wrapFormat(err)
			}
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, fmt.Errorf("%w: int array element %d out of range", ErrInvalidFormat, n)
			}
			arr[i] = int32(n)
		}
		return arr, nil

	case typeList:
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, wrapFormat(err)
		}
		list := make(List, count)
		for i := range list {
			if list[i], err = readValue(d, depth+1); err != nil {
				return nil, err
			}
		}
		return list, nil

	case typeCompound:
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, wrapFormat(err)
		}
		c := make(Compound, 0, count)
		seen := make(map[string]struct{}, count)
		for i := 0; i < count; i++ {
			name, err := d.ReadString()
			if err != nil {
				return nil, wrapFormat(err)
			}
			if _, dup := seen[name]; dup {
				return nil, fmt.Errorf("%w: duplicate field %q", ErrInvalidFormat, name)
			}
			seen[name] = struct{}{}
			v, err := readValue(d, depth+1)
			if err != nil {
				return nil, err
			}
			c = append(c, Field{Name: name, Value: v})
		}
		return c, nil

	default:
		return nil, fmt.Errorf("%w: unknown type byte %d", ErrInvalidFormat, t)
	}
}

func wrapFormat(err error) error {
	return fmt.Errorf("%w: %w", ErrInvalidFormat, err)
}
