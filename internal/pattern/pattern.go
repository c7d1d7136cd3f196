// Package pattern generates and filters the keys records are stored under.
//
// A pattern is a string over the six stroke directions of a hex pattern,
// written q w e a s d, between MinLength and MaxLength symbols long.
package pattern

import (
	"math/rand/v2"
	"strings"

	"github.com/samber/lo"
)

// Alphabet holds every legal pattern symbol.
const Alphabet = "qweasd"

// Length bounds of generated patterns.
const (
	MinLength = 1
	MaxLength = 32
)

// Generate returns a random pattern using the global generator.
func Generate() string {
	return GenerateFrom(rand.N[int])
}

// GenerateFrom returns a random pattern drawing from intN, which must
// return a uniform value in [0, n). A length is drawn uniformly from
// [MinLength, MaxLength], then each symbol uniformly from Alphabet.
func GenerateFrom(intN func(n int) int) string {
	length := MinLength + intN(MaxLength-MinLength+1)
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(Alphabet[intN(len(Alphabet))])
	}
	return b.String()
}

// Restrict drops every rune of s outside Alphabet, keeping order.
// Restrict is idempotent and returns valid patterns unchanged.
func Restrict(s string) string {
	return string(lo.Filter([]rune(s), func(r rune, _ int) bool {
		return strings.ContainsRune(Alphabet, r)
	}))
}

// Valid reports whether s is a well-formed pattern.
func Valid(s string) bool {
	if len(s) < MinLength || len(s) > MaxLength {
		return false
	}
	return Restrict(s) == s
}
