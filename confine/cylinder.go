package confine

import (
	"math"

	"github.com/nedelec/cytosim-2017-sub000/rng"
)

// Cylinder confines points to a capped cylinder whose axis runs along
// the first coordinate, centered at Center, with cross-sectional Radius
// and axial half-length HalfLength.
type Cylinder struct {
	Center     []float64
	Radius     float64
	HalfLength float64
}

func (c *Cylinder) Dim() int { return len(c.Center) }

// radial returns the perpendicular offset from the axis (all but the
// first coordinate) and the signed axial offset.
func (c *Cylinder) radial(x []float64) (perp []float64, axial float64) {
	d := c.Dim()
	axial = x[0] - c.Center[0]
	perp = make([]float64, d-1)
	for i := 1; i < d; i++ {
		perp[i-1] = x[i] - c.Center[i]
	}
	return
}

func (c *Cylinder) Inside(x []float64) bool {
	perp, axial := c.radial(x)
	return math.Abs(axial) <= c.HalfLength && norm(perp) <= c.Radius
}

func (c *Cylinder) Outside(x []float64) bool { return !c.Inside(x) }

func (c *Cylinder) AllInside(x []float64, r float64) bool {
	perp, axial := c.radial(x)
	return math.Abs(axial) <= c.HalfLength-r && norm(perp) <= c.Radius-r
}

func (c *Cylinder) AllOutside(x []float64, r float64) bool {
	perp, axial := c.radial(x)
	if math.Abs(axial) > c.HalfLength+r {
		return true
	}
	return norm(perp) >= c.Radius+r
}

func (c *Cylinder) Project(x []float64) []float64 {
	d := c.Dim()
	perp, axial := c.radial(x)
	pn := norm(perp)

	clampedAxial := axial
	if clampedAxial > c.HalfLength {
		clampedAxial = c.HalfLength
	} else if clampedAxial < -c.HalfLength {
		clampedAxial = -c.HalfLength
	}

	out := make([]float64, d)
	out[0] = c.Center[0] + clampedAxial
	capGap := c.HalfLength - math.Abs(axial)
	if pn <= c.Radius && (capGap < 0 || capGap < c.Radius-pn) {
		// nearest boundary point lies on a flat cap
		out[0] = c.Center[0] + math.Copysign(c.HalfLength, axial)
		for i := 1; i < d; i++ {
			out[i] = x[i]
		}
		return out
	}
	if pn < 1e-12 {
		for i := 1; i < d; i++ {
			out[i] = c.Center[i]
		}
		out[1] = c.Center[1] + c.Radius
		return out
	}
	sc := c.Radius / pn
	for i := 1; i < d; i++ {
		out[i] = c.Center[i] + perp[i-1]*sc
	}
	return out
}

func (c *Cylinder) DistanceToEdge(x []float64) float64 {
	return norm(sub(x, c.Project(x)))
}

func (c *Cylinder) RandomPlace(src *rng.Source) []float64 {
	d := c.Dim()
	out := make([]float64, d)
	out[0] = c.Center[0] + (2*src.Float64()-1)*c.HalfLength
	dir := src.OnSphere(d - 1)
	r := c.Radius * math.Sqrt(src.Float64())
	for i := 1; i < d; i++ {
		out[i] = c.Center[i] + dir[i-1]*r
	}
	return out
}

func (c *Cylinder) BoundingBox() (lo, hi []float64) {
	d := c.Dim()
	lo, hi = make([]float64, d), make([]float64, d)
	lo[0] = c.Center[0] - c.HalfLength
	hi[0] = c.Center[0] + c.HalfLength
	for i := 1; i < d; i++ {
		lo[i] = c.Center[i] - c.Radius
		hi[i] = c.Center[i] + c.Radius
	}
	return
}
