// Package noise provides the random sources shared by the generative worlds:
// a seeded uniform RNG and a Perlin noise field.
package noise

import (
	"math/rand/v2"
	"time"
)

// RNG is a thin convenience wrapper around math/rand/v2.
type RNG struct {
	r *rand.Rand
}

// NewRNG creates a deterministic RNG from seed. A zero seed picks one from the
// wall clock.
func NewRNG(seed uint64) *RNG {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &RNG{r: rand.New(rand.NewPCG(seed, seed>>32|1))}
}

// Float returns a uniform float in [min, max).
func (r *RNG) Float(min, max float64) float64 {
	return min + r.r.Float64()*(max-min)
}

// Int returns a uniform int in [min, max). It returns min if the range is
// empty.
func (r *RNG) Int(min, max int) int {
	if max <= min {
		return min
	}
	return min + r.r.IntN(max-min)
}

// Chance reports true with probability 1/n.
func (r *RNG) Chance(n int) bool {
	return r.r.IntN(n) == 0
}

// Perm returns a random permutation of [0, n).
func (r *RNG) Perm(n int) []int {
	return r.r.Perm(n)
}

// Int64 returns a non-negative int64, used to seed derived sources.
func (r *RNG) Int64() int64 {
	return r.r.Int64()
}
