// Package rng provides the single explicit random source consumed by
// every stochastic draw in the core engine (Brownian forcing, binding
// attempts, detachment hazards, list shuffling, nucleation). It replaces
// cytosim's global `Random RNG` singleton with a value passed explicitly
// into every step, per the world-context re-architecture of spec.md §9.
package rng

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Source is the world's random number generator. A single instance is
// created at simulation start and threaded through every stage so that,
// for a fixed seed and fixed configuration, stochastic draws within a
// step consume the PRNG in the same documented order on every replay.
type Source struct {
	bits *rand.Rand
	norm distuv.Normal
}

// New returns a Source seeded with the given 64-bit seed.
func New(seed uint64) *Source {
	bits := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &Source{
		bits: bits,
		norm: distuv.Normal{Mu: 0, Sigma: 1, Src: bits},
	}
}

// Float64 draws a uniform sample in [0,1).
func (s *Source) Float64() float64 { return s.bits.Float64() }

// Gauss draws a standard-normal sample (mean 0, variance 1).
func (s *Source) Gauss() float64 { return s.norm.Rand() }

// Poisson draws from a Poisson distribution with the given mean via
// distuv.Poisson, returning 0 for a non-positive mean. Used
// for binding-attempt counts (spec.md §4.3: rate·dt·cell_occupancy).
func (s *Source) Poisson(mean float64) int {
	if mean <= 0 {
		return 0
	}
	p := distuv.Poisson{Lambda: mean, Src: s.bits}
	return int(p.Rand())
}

// Bernoulli returns true with probability p, used for Poisson-thinning
// and for detachment/attachment hazard trials.
func (s *Source) Bernoulli(p float64) bool {
	return s.bits.Float64() < p
}

// Uint64 draws a uniform 64-bit value, used for non-control-flow tags
// such as a filament's signature (spec.md supplemented feature).
func (s *Source) Uint64() uint64 { return s.bits.Uint64() }

// Int32N draws a uniform integer in [0, n).
func (s *Source) Int32N(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.bits.Int32N(int32(n)))
}

// OnSphere draws a uniformly random unit vector in d in {1,2,3}
// dimensions, using the Marsaglia-style normalized-Gaussian method.
func (s *Source) OnSphere(d int) []float64 {
	v := make([]float64, d)
	for {
		nrm2 := 0.0
		for i := range v {
			v[i] = s.Gauss()
			nrm2 += v[i] * v[i]
		}
		if nrm2 > 1e-12 {
			inv := 1.0 / math.Sqrt(nrm2)
			for i := range v {
				v[i] *= inv
			}
			return v
		}
	}
}
