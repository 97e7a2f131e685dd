// internal/rng/rng.go
//
// Small, allocation-free PRNG (RomuDuoJr) used by the AI players.
// Every generator is seeded explicitly and owned by exactly one caller, so a
// seed plus the sequence of positions shown to an AI fully determines its
// decisions. There is no package-level generator.
package rng

import (
	"errors"
	"math"
	"math/bits"
)

// ErrEmptyChoice is the panic value of Choose on an empty slice.
var ErrEmptyChoice = errors.New("rng: choose from empty slice")

const mul = 15241094284759029579

// Rand is a RomuDuoJr generator. Not safe for concurrent use.
type Rand struct {
	x, y uint64
}

// New seeds a generator.
func New(seed uint64) *Rand {
	return &Rand{x: seed ^ 0x12345, y: seed ^ 0x6789A}
}

// Next returns the next 64 raw bits.
func (r *Rand) Next() uint64 {
	out := r.x
	r.x = mul * r.y
	r.y = bits.RotateLeft64(r.y-out, 27)
	return out
}

// Below returns a uniform value in [0, n). n <= 1 yields 0 without consuming
// state. Draws in the biased tail are rejected.
func (r *Rand) Below(n uint64) uint64 {
	if n <= 1 {
		return 0
	}
	limit := math.MaxUint64 - math.MaxUint64%n
	for {
		if v := r.Next(); v < limit {
			return v % n
		}
	}
}

// Intn is Below for int bounds.
func (r *Rand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(r.Below(uint64(n)))
}

// Choose picks one element uniformly. An empty slice is a caller bug and
// panics with ErrEmptyChoice.
func Choose[T any](r *Rand, items []T) T {
	if len(items) == 0 {
		panic(ErrEmptyChoice)
	}
	return items[r.Below(uint64(len(items)))]
}
