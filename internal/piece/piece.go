// internal/piece/piece.go
//
// Quarto pieces.
// Every piece carries four independent binary attributes packed into the low
// nibble of a byte. A set bit means the first-named side of the pair:
//   - Tall  (else Short)
//   - Round (else Square)
//   - Full  (else Hollow)
//   - Light (else Dark)
//
// The canonical set is the 16 distinct nibbles 0..15, each exactly once.
package piece

import (
	"fmt"
	"strings"
)

// Attribute is a single bit of a piece.
type Attribute uint8

const (
	Tall  Attribute = 1 << 0
	Round Attribute = 1 << 1
	Full  Attribute = 1 << 2
	Light Attribute = 1 << 3
)

// Attributes lists every attribute in bit order.
var Attributes = [...]Attribute{Tall, Round, Full, Light}

// Count is the size of the canonical set.
const Count = 16

// Piece is an immutable attribute vector. Two pieces are the same piece iff
// their vectors are equal, so == works as identity.
type Piece uint8

// New builds a piece from its attribute vector. Bits above the low nibble are
// a programming error.
func New(bits uint8) Piece {
	if bits>>4 != 0 {
		panic(fmt.Sprintf("piece: attribute vector %#x has upper bits set", bits))
	}
	return Piece(bits)
}

// Canonical returns all 16 pieces from vector 0 up to 15.
func Canonical() []Piece {
	out := make([]Piece, Count)
	for i := range out {
		out[i] = Piece(i)
	}
	return out
}

// Bits returns the raw attribute vector.
func (p Piece) Bits() uint8 { return uint8(p) }

// Has reports whether attribute a is set.
func (p Piece) Has(a Attribute) bool { return uint8(p)&uint8(a) != 0 }

// With returns a copy of p with a set or cleared.
func (p Piece) With(a Attribute, on bool) Piece {
	if on {
		return p | Piece(a)
	}
	return p &^ Piece(a)
}

func (a Attribute) String() string {
	switch a {
	case Tall:
		return "tall"
	case Round:
		return "round"
	case Full:
		return "full"
	case Light:
		return "light"
	}
	return fmt.Sprintf("attribute(%d)", uint8(a))
}

// String renders a piece as e.g. "tall/square/hollow/light".
func (p Piece) String() string {
	names := [4][2]string{
		{"short", "tall"},
		{"square", "round"},
		{"hollow", "full"},
		{"dark", "light"},
	}
	parts := make([]string, 0, 4)
	for i, a := range Attributes {
		if p.Has(a) {
			parts = append(parts, names[i][1])
		} else {
			parts = append(parts, names[i][0])
		}
	}
	return strings.Join(parts, "/")
}
