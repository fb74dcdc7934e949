package confine

import (
	"math"

	"github.com/nedelec/cytosim-2017-sub000/rng"
)

// Sphere is a confining ball of the given Radius centered at Center.
type Sphere struct {
	Center []float64
	Radius float64
}

func (s *Sphere) Dim() int { return len(s.Center) }

func (s *Sphere) Inside(x []float64) bool {
	return norm(sub(x, s.Center)) <= s.Radius
}

func (s *Sphere) Outside(x []float64) bool { return !s.Inside(x) }

func (s *Sphere) AllInside(x []float64, r float64) bool {
	return norm(sub(x, s.Center)) <= s.Radius-r
}

func (s *Sphere) AllOutside(x []float64, r float64) bool {
	return norm(sub(x, s.Center)) >= s.Radius+r
}

func (s *Sphere) Project(x []float64) []float64 {
	d := sub(x, s.Center)
	n := norm(d)
	out := make([]float64, len(x))
	if n < 1e-12 {
		// degenerate: x is at the center, pick an arbitrary axis.
		out[0] = s.Center[0] + s.Radius
		copy(out[1:], s.Center[1:])
		return out
	}
	sc := s.Radius / n
	for i := range out {
		out[i] = s.Center[i] + d[i]*sc
	}
	return out
}

func (s *Sphere) DistanceToEdge(x []float64) float64 {
	return math.Abs(s.Radius - norm(sub(x, s.Center)))
}

func (s *Sphere) RandomPlace(src *rng.Source) []float64 {
	dir := src.OnSphere(s.Dim())
	// draw radius with density proportional to r^(d-1) so that the
	// result is uniform by volume, not just by direction.
	u := src.Float64()
	r := s.Radius * math.Pow(u, 1.0/float64(s.Dim()))
	out := make([]float64, s.Dim())
	for i := range out {
		out[i] = s.Center[i] + dir[i]*r
	}
	return out
}

func (s *Sphere) BoundingBox() (lo, hi []float64) {
	d := s.Dim()
	lo, hi = make([]float64, d), make([]float64, d)
	for i := 0; i < d; i++ {
		lo[i] = s.Center[i] - s.Radius
		hi[i] = s.Center[i] + s.Radius
	}
	return
}
