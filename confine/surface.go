// Package confine implements the parametric confinement surfaces of
// spec.md §3/§4.6: spheres, cylinders and periodic strips, each exposing
// the small inside/project/distance contract that mech.Object
// implementations use to build confinement springs.
package confine

import (
	"math"

	"github.com/nedelec/cytosim-2017-sub000/rng"
)

// Surface is a parametric confining boundary. All coordinates are
// flattened d-vectors in the same dimension the Surface was built for.
type Surface interface {
	// Inside reports whether point x lies inside the surface.
	Inside(x []float64) bool

	// AllInside reports whether a sphere of radius r centered at x lies
	// entirely inside the surface (used by the all_inside confinement mode).
	AllInside(x []float64, r float64) bool

	// Outside reports whether point x lies outside the surface.
	Outside(x []float64) bool

	// AllOutside reports whether a sphere of radius r centered at x lies
	// entirely outside the surface.
	AllOutside(x []float64, r float64) bool

	// Project returns the nearest point on the surface boundary to x.
	Project(x []float64) []float64

	// DistanceToEdge returns the unsigned distance from x to the surface
	// boundary.
	DistanceToEdge(x []float64) float64

	// RandomPlace returns a point drawn uniformly from the surface's
	// interior, using src for random draws.
	RandomPlace(src *rng.Source) []float64

	// BoundingBox returns the axis-aligned box (lo, hi) enclosing the
	// surface, used to size the binding and steric grids (spec.md §4.3/§4.4).
	BoundingBox() (lo, hi []float64)

	// Dim returns the spatial dimension this surface was built for.
	Dim() int
}

// Periodic is implemented by surfaces with one or more wrapped
// dimensions (spec.md: "Periodic surfaces additionally expose a fold(x)").
type Periodic interface {
	Surface
	// Fold brings x into the reference cell in place, returning it.
	Fold(x []float64) []float64
}

func norm(v []float64) float64 {
	s := 0.0
	for _, c := range v {
		s += c * c
	}
	return math.Sqrt(s)
}

func sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}
