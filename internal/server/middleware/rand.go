package middleware

import "math/rand"

// Rand is the random source for stages that draw randomized outcomes
// (misleading status codes, taunt selection). Injected so tests can supply
// a deterministic sequence.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// defaultRand delegates to the shared math/rand source, which is safe for
// concurrent use.
type defaultRand struct{}

func (defaultRand) Intn(n int) int   { return rand.Intn(n) }
func (defaultRand) Float64() float64 { return rand.Float64() }

// NewRand returns the production random source.
func NewRand() Rand { return defaultRand{} }
