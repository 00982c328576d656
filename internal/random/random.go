// Package random owns the process-scoped deterministic random source used by
// every stochastic piece of the engine (windage perturbation, diffusion,
// refloat draws).
//
// The engine reseeds this source to [DefaultSeed] on every rewind, which is
// what makes reruns of an identically configured model bit-for-bit
// reproducible. Reseeding is part of the rewind contract, not an incidental
// side effect; movers must draw from this package rather than from their own
// sources.
package random

import "math/rand"

// DefaultSeed is the fixed seed applied on every model rewind.
const DefaultSeed int64 = 1

var src = rand.New(rand.NewSource(DefaultSeed))

// Seed resets the shared source. The engine calls Seed(DefaultSeed) on
// rewind; tests may seed differently to explore other draws.
func Seed(seed int64) {
	src = rand.New(rand.NewSource(seed))
}

// Float64 returns a uniform draw in [0, 1).
func Float64() float64 { return src.Float64() }

// NormFloat64 returns a standard normal draw.
func NormFloat64() float64 { return src.NormFloat64() }

// Uniform returns a uniform draw in [lo, hi).
func Uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

// WithPersistence refreshes out[i] with a uniform draw in [lo[i], hi[i])
// with probability dtSeconds/persist[i]. A non-positive persistence forces a
// redraw every call. Used to re-randomize windages each step while keeping
// their autocorrelation over the persistence window.
func WithPersistence(lo, hi, persist, out []float64, dtSeconds float64) {
	for i := range out {
		if persist[i] > 0 && dtSeconds < persist[i] {
			if src.Float64() >= dtSeconds/persist[i] {
				continue
			}
		}
		out[i] = Uniform(lo[i], hi[i])
	}
}
