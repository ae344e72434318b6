package engine

import "math/rand"

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position increments with every draw, so a run can be reproduced from
// its seed and checked against a recorded position.
type RNG struct {
	src *rand.Rand
	pos int64
}

// NewRNG creates a new deterministic RNG from a seed.
func NewRNG(seed int64) *RNG {
	return &RNG{src: rand.New(rand.NewSource(seed))}
}

// Float returns a value in [0, 1). Each call consumes exactly one draw
// from the source.
func (r *RNG) Float() float64 {
	r.pos++
	return float64(r.src.Int63n(1<<53)) / (1 << 53)
}

// Spread returns a factor uniformly distributed in [1-v, 1+v).
// A non-positive v returns 1 without drawing.
func (r *RNG) Spread(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return 1 + v*(2*r.Float()-1)
}

// Chance reports whether a roll succeeds with probability p. p <= 0
// never draws and never succeeds.
func (r *RNG) Chance(p float64) bool {
	if p <= 0 {
		return false
	}
	return r.Float() < p
}

// Position returns the number of draws made since creation.
func (r *RNG) Position() int64 {
	return r.pos
}
