package document

// Value is a node of the payload tree.
// Only String, Int, Double, Bytes, IntArray, List and Compound implement it.
type Value interface {
	value()
}

// String is a UTF-8 string leaf.
type String string

func (String) value() {}

// Int is a signed integer leaf.
type Int int64

func (Int) value() {}

// Double is a floating point leaf.
type Double float64

func (Double) value() {}

// Bytes is an opaque binary leaf.
type Bytes []byte

func (Bytes) value() {}

// IntArray is a packed array of 32-bit integers (entity uuids use it).
type IntArray []int32

func (IntArray) value() {}

// List is an ordered sequence of values. Elements need not share a type.
type List []Value

func (List) value() {}

// Field is one named entry of a Compound.
type Field struct {
	Name  string
	Value Value
}

// Compound is an ordered list of uniquely named fields.
// Field order is preserved through encoding and sanitization.
type Compound []Field

func (Compound) value() {}

// Get returns the value stored under name.
func (c Compound) Get(name string) (Value, bool) {
	for _, f := range c {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// C builds a Field for ergonomic Compound literals.
// Example: Compound{C("name", String("x")), C("count", Int(3))}
func C(name string, v Value) Field {
	return Field{Name: name, Value: v}
}
