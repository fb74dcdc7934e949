package confine

import (
	"math"

	"github.com/nedelec/cytosim-2017-sub000/rng"
)

// Strip is an axis-aligned box, periodic along any dimension flagged in
// Periodic. Non-periodic dimensions confine as a hard wall; periodic
// dimensions never report "outside" and instead fold (spec.md: "Periodic
// surfaces additionally expose a fold(x) that brings x into the
// reference cell").
type Strip struct {
	Lo, Hi   []float64
	Periodic []bool
}

func (s *Strip) Dim() int { return len(s.Lo) }

func (s *Strip) Inside(x []float64) bool {
	for i, v := range x {
		if s.Periodic[i] {
			continue
		}
		if v < s.Lo[i] || v > s.Hi[i] {
			return false
		}
	}
	return true
}

func (s *Strip) Outside(x []float64) bool { return !s.Inside(x) }

func (s *Strip) AllInside(x []float64, r float64) bool {
	for i, v := range x {
		if s.Periodic[i] {
			continue
		}
		if v < s.Lo[i]+r || v > s.Hi[i]-r {
			return false
		}
	}
	return true
}

func (s *Strip) AllOutside(x []float64, r float64) bool {
	for i, v := range x {
		if s.Periodic[i] {
			continue
		}
		if v < s.Lo[i]-r || v > s.Hi[i]+r {
			return true
		}
	}
	return false
}

func (s *Strip) Project(x []float64) []float64 {
	out := append([]float64(nil), x...)
	bestDim, bestGap, bestVal := -1, math.Inf(1), 0.0
	for i := range x {
		if s.Periodic[i] {
			continue
		}
		loGap := x[i] - s.Lo[i]
		hiGap := s.Hi[i] - x[i]
		if loGap < bestGap {
			bestGap, bestDim, bestVal = loGap, i, s.Lo[i]
		}
		if hiGap < bestGap {
			bestGap, bestDim, bestVal = hiGap, i, s.Hi[i]
		}
	}
	if bestDim < 0 {
		return out // fully periodic: no wall to project onto
	}
	out[bestDim] = bestVal
	// clamp every other non-periodic dimension to stay inside the box
	for i := range x {
		if i == bestDim || s.Periodic[i] {
			continue
		}
		if out[i] < s.Lo[i] {
			out[i] = s.Lo[i]
		} else if out[i] > s.Hi[i] {
			out[i] = s.Hi[i]
		}
	}
	return out
}

func (s *Strip) DistanceToEdge(x []float64) float64 {
	if !s.Inside(x) {
		return norm(sub(x, s.Project(x)))
	}
	best := math.Inf(1)
	for i, v := range x {
		if s.Periodic[i] {
			continue
		}
		g := math.Min(v-s.Lo[i], s.Hi[i]-v)
		if math.Abs(g) < best {
			best = math.Abs(g)
		}
	}
	return best
}

func (s *Strip) RandomPlace(src *rng.Source) []float64 {
	out := make([]float64, s.Dim())
	for i := range out {
		out[i] = s.Lo[i] + src.Float64()*(s.Hi[i]-s.Lo[i])
	}
	return out
}

func (s *Strip) BoundingBox() (lo, hi []float64) {
	return append([]float64(nil), s.Lo...), append([]float64(nil), s.Hi...)
}

// Fold brings x into the reference cell along every periodic dimension.
func (s *Strip) Fold(x []float64) []float64 {
	for i := range x {
		if !s.Periodic[i] {
			continue
		}
		w := s.Hi[i] - s.Lo[i]
		x[i] = s.Lo[i] + math.Mod(math.Mod(x[i]-s.Lo[i], w)+w, w)
	}
	return x
}
