// Package testutil provides helpers for tests and benchmarks: seeded
// random vector generation and small synthetic vocabularies.
package testutil

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/lexivec/lexivec/distance"
	"github.com/lexivec/lexivec/model"
)

// RNG is a seeded, thread-safe random number generator.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG with the given seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Reset rewinds the generator to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Float32 returns a pseudo-random float32 in [0, 1).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// Intn returns a non-negative pseudo-random int in [0, n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// FillUniform fills vec with uniform values in [0, 1).
func (r *RNG) FillUniform(vec []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range vec {
		vec[i] = r.rand.Float32()
	}
}

// UniformVector returns a fresh uniform random vector of the given
// dimension.
func (r *RNG) UniformVector(dim int) []float32 {
	vec := make([]float32, dim)
	r.FillUniform(vec)
	return vec
}

// UnitVector returns a fresh uniform random vector normalized to unit
// length.
func (r *RNG) UnitVector(dim int) []float32 {
	vec := r.UniformVector(dim)
	distance.NormalizeL2InPlace(vec)
	return vec
}

// Vocabulary returns n items with synthetic words ("w0000", "w0001", ...)
// and unit-length random vectors of the given dimension.
func (r *RNG) Vocabulary(n, dim int) []model.Item {
	items := make([]model.Item, n)
	for i := range items {
		items[i] = model.Item{
			Word:   fmt.Sprintf("w%04d", i),
			Vector: r.UnitVector(dim),
		}
	}
	return items
}
