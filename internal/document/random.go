package document

import "math/rand/v2"

// Namespace of the core iota types.
const HexNamespace = "hexcasting"

// A sample player entity: name as a text component, uuid as four ints.
var sampleEntity = Compound{
	C("name", String(`{"text":"walksanator"}`)),
	C("uuid", IntArray{1583201733, 245647309, -1159122008, 372905589}),
}

// Random builds a random iota for load and smoke testing. Roughly a
// quarter of the results are entities, so a sanitizing server has work
// to do. Containers stop nesting at maxDepth.
func Random(rng *rand.Rand, maxDepth int) Compound {
	roll := rng.IntN(100) + 1
	if maxDepth <= 0 && (roll <= 10 || roll > 95) {
		roll = 31
	}

	switch {
	case roll <= 10:
		items := make([]Value, rng.IntN(4)+1)
		for i := range items {
			items[i] = Random(rng, maxDepth-1)
		}
		return NewList(HexNamespace, items...)

	case roll <= 30:
		return New(HexNamespace+":string", String(`ohno ";DROP TABLE hex_data_storage;`))

	case roll <= 50:
		return NewGarbage(HexNamespace)

	case roll <= 70:
		return New(HexNamespace+":double", Double(rng.Float64()*200-100))

	case roll <= 95:
		return New(HexNamespace+":entity", append(Compound{}, sampleEntity...))

	default:
		n := rng.IntN(3) + 1
		keys := make(List, n)
		values := make(List, n)
		for i := 0; i < n; i++ {
			keys[i] = Random(rng, maxDepth-1)
			values[i] = Random(rng, maxDepth-1)
		}
		return NewDict("hextweaks", keys, values)
	}
}
