package xrand

import "math/rand/v2"

// Source is the minimal PRNG surface the core consumes. It never assumes a
// global generator: every call site is handed one explicitly.
type Source interface {
	// Uint64 returns the next pseudo-random 64-bit value.
	Uint64() uint64
	// Float64 returns a pseudo-random value in [0, 1).
	Float64() float64
}

// pcgSource wraps math/rand/v2's PCG generator, the stdlib's splittable
// counter-based generator (no third-party PRNG appears anywhere in the
// retrieved pack — see DESIGN.md).
type pcgSource struct {
	r *rand.Rand
}

// New constructs a root Source seeded from two 64-bit seed words.
func New(seed1, seed2 uint64) Source {
	return &pcgSource{r: rand.New(rand.NewPCG(seed1, seed2))}
}

func (p *pcgSource) Uint64() uint64   { return p.r.Uint64() }
func (p *pcgSource) Float64() float64 { return p.r.Float64() }

// Split derives an independent child stream from parent, so that two
// concurrent queries never share generator state (§5 "Shared-resource
// policy"). The child is seeded from two draws off the parent.
func Split(parent Source) Source {
	return New(parent.Uint64(), parent.Uint64())
}
