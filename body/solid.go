package body

import (
	"math"

	"github.com/cpmech/gosl/la"

	"github.com/nedelec/cytosim-2017-sub000/confine"
	"github.com/nedelec/cytosim-2017-sub000/config"
	"github.com/nedelec/cytosim-2017-sub000/mech"
	"github.com/nedelec/cytosim-2017-sub000/objset"
	"github.com/nedelec/cytosim-2017-sub000/rng"
	"github.com/nedelec/cytosim-2017-sub000/simerr"
)

// Solid is an undeformable cloud of N points, each optionally carrying a
// Stokes radius, moving as a single rigid body (spec.md §3), grounded on
// sim/solid.h.
type Solid struct {
	objset.Serial

	class *Class
	world *config.World
	rng   *rng.Source
	dim   int

	pts   []float64 // current flattened positions, d*N
	radii []float64 // per-point Stokes radius, 0 = no drag contribution

	shape         []float64 // reference shape snapshot, relative to shapeCentroid, set by FixShape
	shapeCentroid []float64
	haveShape     bool

	centroid []float64 // drag-weighted centroid of the current configuration
	drag     float64   // translational drag, sum of per-point Stokes drags
	inertia  []float64 // flattened d*d rotational-drag tensor about centroid
	invInert []float64 // its inverse (cached by Prepare)

	// overridden by NewSphere to match the exact closed-form Sphere
	// formulas of spec.md §3 instead of the general second-moment
	// approximation used for an arbitrary point cloud.
	forcedRotationalDrag float64
	useForcedRotational  bool

	offset int
	surf   confine.Surface
}

// NewSolid builds a Solid from n points (flattened, d*n) each with the
// given Stokes radius (radii[i] == 0 means that point contributes no drag).
func NewSolid(class *Class, world *config.World, src *rng.Source, dim int, points []float64, radii []float64, surf confine.Surface) (*Solid, error) {
	n := len(points) / dim
	if n < 1 || len(radii) != n {
		return nil, &simerr.ConfigurationError{Kind: "solid", Name: class.Name, Reason: "points/radii length mismatch"}
	}
	s := &Solid{
		class: class,
		world: world,
		rng:   src,
		dim:   dim,
		pts:   append([]float64(nil), points...),
		radii: append([]float64(nil), radii...),
		surf:  surf,
	}
	if err := s.Prepare(); err != nil {
		return nil, err
	}
	s.FixShape()
	return s, nil
}

// NewSphere builds a Solid configured as the Sphere specialization of
// spec.md §3: one center point plus d orthonormal reference points at
// distance R, with the exact closed-form drag coefficients (6πηR
// translation, 8πηR³ rotation) rather than the general second-moment
// approximation.
func NewSphere(class *Class, world *config.World, src *rng.Source, dim int, center []float64, radius float64) (*Sphere, error) {
	if radius <= 0 {
		return nil, &simerr.ConfigurationError{Kind: "sphere", Name: class.Name, Reason: "radius must be > 0"}
	}
	pts := append([]float64(nil), center...)
	radii := []float64{0} // the center point itself carries no drag; the sphere's drag is the forced overrides below
	for a := 0; a < dim; a++ {
		p := append([]float64(nil), center...)
		p[a] += radius
		pts = append(pts, p...)
		radii = append(radii, 0)
	}
	s := &Solid{
		class:                class,
		world:                world,
		rng:                  src,
		dim:                  dim,
		pts:                  pts,
		radii:                radii,
		forcedRotationalDrag: 8 * math.Pi * world.Viscosity * radius * radius * radius,
		useForcedRotational:  true,
	}
	s.drag = 6 * math.Pi * world.Viscosity * radius
	if err := s.Prepare(); err != nil {
		return nil, err
	}
	s.FixShape()
	return &Sphere{Solid: s, radius: radius}, nil
}

// Sphere wraps a Solid built with NewSphere's fixed reference-frame
// geometry, exposing the sphere's radius alongside the full Solid
// mech.Object/Confinable contract (spec.md §3: "Sphere ... providing
// orientation").
type Sphere struct {
	*Solid
	radius float64
}

func (sp *Sphere) Radius() float64   { return sp.radius }
func (sp *Sphere) Center() []float64 { return sp.Solid.pts[:sp.Solid.dim] }

func (s *Solid) NumPoints() int     { return len(s.pts) / s.dim }
func (s *Solid) Dim() int           { return s.dim }
func (s *Solid) Drag() float64      { return s.drag }
func (s *Solid) Offset() int        { return s.offset }
func (s *Solid) SetOffset(o int)    { s.offset = o }
func (s *Solid) Points() []float64  { return s.pts }
func (s *Solid) Point(p int) []float64 {
	return s.pts[s.dim*p : s.dim*(p+1)]
}
func (s *Solid) Radius(p int) float64 { return s.radii[p] }
func (s *Solid) Centroid() []float64  { return s.centroid }

// Prepare recomputes the drag-weighted centroid, translational drag and
// rotational-drag tensor for the current configuration, mirroring
// Solid::setDragCoefficient and the "second momentum" comment of solid.h.
func (s *Solid) Prepare() error {
	d, n := s.dim, s.NumPoints()
	s.centroid = make([]float64, d)

	if s.useForcedRotational {
		// a Sphere's reference points carry no drag of their own (the
		// sphere's drag is the hardcoded closed-form override); its
		// centroid is simply its first (center) point by construction.
		copy(s.centroid, s.pts[:d])
	} else {
		sumDrag := 0.0
		for i := 0; i < n; i++ {
			w := 6 * math.Pi * s.world.Viscosity * s.radii[i]
			sumDrag += w
			for c := 0; c < d; c++ {
				s.centroid[c] += w * s.pts[d*i+c]
			}
		}
		s.drag = sumDrag
		if sumDrag > 0 {
			for c := range s.centroid {
				s.centroid[c] /= sumDrag
			}
		} else {
			// every point carries zero Stokes radius: fall back to the
			// plain arithmetic mean so the centroid is still well defined.
			for i := 0; i < n; i++ {
				for c := 0; c < d; c++ {
					s.centroid[c] += s.pts[d*i+c]
				}
			}
			for c := range s.centroid {
				s.centroid[c] /= float64(n)
			}
		}
	}
	if s.drag <= 0 {
		return &simerr.InvalidState{Where: "body.Prepare", Reason: "solid has zero total drag"}
	}

	switch {
	case d == 2:
		// rotation has a single (out-of-plane) degree of freedom: the
		// standard 2D moment of inertia sum(w_i * |r_i|^2).
		s.inertia = make([]float64, 1)
		if s.useForcedRotational {
			s.inertia[0] = s.forcedRotationalDrag
		} else {
			for i := 0; i < n; i++ {
				w := 6 * math.Pi * s.world.Viscosity * s.radii[i]
				rx := s.pts[2*i] - s.centroid[0]
				ry := s.pts[2*i+1] - s.centroid[1]
				s.inertia[0] += w * (rx*rx + ry*ry)
			}
		}
	case d == 3:
		s.inertia = make([]float64, 9)
		if s.useForcedRotational {
			for c := 0; c < 3; c++ {
				s.inertia[3*c+c] = s.forcedRotationalDrag
			}
		} else {
			for i := 0; i < n; i++ {
				w := 6 * math.Pi * s.world.Viscosity * s.radii[i]
				if w == 0 {
					continue
				}
				r := []float64{
					s.pts[3*i] - s.centroid[0],
					s.pts[3*i+1] - s.centroid[1],
					s.pts[3*i+2] - s.centroid[2],
				}
				rr := dotv(r, r)
				for a := 0; a < 3; a++ {
					for b := 0; b < 3; b++ {
						delta := 0.0
						if a == b {
							delta = 1
						}
						s.inertia[3*a+b] += w * (rr*delta - r[a]*r[b])
					}
				}
			}
		}
	}
	s.invInert = invertSmall(s.inertia, d)
	return nil
}

func dotv(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// SetSpeedsFromForces projects the per-point forces X onto the
// (d*(d+1)/2)-dimensional rigid-motion subspace (translation + rotation)
// by linearizing around the current configuration, mirroring the
// "projection onto rigid-body motion" step of spec.md §3, then writes
// the resulting per-point velocities, scaled by sc, into Y.
func (s *Solid) SetSpeedsFromForces(X, Y []float64, sc float64, storeLagrange bool) {
	d, n := s.dim, s.NumPoints()

	vcom := make([]float64, d)
	for i := 0; i < n; i++ {
		for c := 0; c < d; c++ {
			vcom[c] += X[d*i+c]
		}
	}
	for c := range vcom {
		vcom[c] /= s.drag
	}

	var omega []float64
	if d >= 2 {
		torque := s.torque(X)
		omega = applyMatrix(s.invInert, torque, d)
	}

	for i := 0; i < n; i++ {
		r := make([]float64, d)
		for c := 0; c < d; c++ {
			r[c] = s.pts[d*i+c] - s.centroid[c]
		}
		v := append([]float64(nil), vcom...)
		switch d {
		case 2:
			v[0] -= omega[0] * r[1]
			v[1] += omega[0] * r[0]
		case 3:
			v[0] += omega[1]*r[2] - omega[2]*r[1]
			v[1] += omega[2]*r[0] - omega[0]*r[2]
			v[2] += omega[0]*r[1] - omega[1]*r[0]
		}
		for c := 0; c < d; c++ {
			Y[d*i+c] = sc * v[c]
		}
	}
}

// torque computes the total torque of the per-point forces X about the
// centroid: a scalar in 2D (out-of-plane component), a 3-vector in 3D.
func (s *Solid) torque(X []float64) []float64 {
	d, n := s.dim, s.NumPoints()
	switch d {
	case 2:
		t := 0.0
		for i := 0; i < n; i++ {
			rx := s.pts[2*i] - s.centroid[0]
			ry := s.pts[2*i+1] - s.centroid[1]
			t += rx*X[2*i+1] - ry*X[2*i]
		}
		return []float64{t}
	case 3:
		t := make([]float64, 3)
		for i := 0; i < n; i++ {
			r := [3]float64{
				s.pts[3*i] - s.centroid[0],
				s.pts[3*i+1] - s.centroid[1],
				s.pts[3*i+2] - s.centroid[2],
			}
			f := [3]float64{X[3*i], X[3*i+1], X[3*i+2]}
			t[0] += r[1]*f[2] - r[2]*f[1]
			t[1] += r[2]*f[0] - r[0]*f[2]
			t[2] += r[0]*f[1] - r[1]*f[0]
		}
		return t
	}
	return nil
}

// AddRigidity is a no-op: a rigid body has no internal elastic energy
// beyond the frozen-distance constraint already enforced by the rigid-
// motion projection itself.
func (s *Solid) AddRigidity(X, Y []float64) {}

// AddRigidityMatUp is a no-op for the same reason.
func (s *Solid) AddRigidityMatUp(Kb *la.Triplet, off int) {}

// AddProjectionDiff is a no-op: the rigid-motion projector has no
// position-dependent linearization term analogous to a filament's tension.
func (s *Solid) AddProjectionDiff(X, Y []float64) {}

// AddBrownianForces adds iid Gaussian impulses of standard deviation
// sqrt(2*sc*drag_i) to each point's own coordinates, mirroring
// Solid::addBrownianForces's per-point Stokes amplitude.
func (s *Solid) AddBrownianForces(rhs []float64, sc float64) float64 {
	d, n := s.dim, s.NumPoints()
	for i := 0; i < n; i++ {
		w := 6 * math.Pi * s.world.Viscosity * s.radii[i]
		if w == 0 {
			continue
		}
		bAmp := math.Sqrt(2 * sc * w)
		for c := 0; c < d; c++ {
			rhs[d*i+c] += bAmp * s.rng.Gauss()
		}
	}
	return 1.0 / s.drag
}

// UseBlock reports true: the rigid-motion block is small and its
// factorization (here, the cached inertia-tensor inverse) is cheap.
func (s *Solid) UseBlock() bool { return true }

// FixShape snapshots the current configuration, centered on the current
// centroid, as the reference shape restored by Reshape.
func (s *Solid) FixShape() {
	d, n := s.dim, s.NumPoints()
	s.shape = make([]float64, d*n)
	s.shapeCentroid = append([]float64(nil), s.centroid...)
	for i := 0; i < n; i++ {
		for c := 0; c < d; c++ {
			s.shape[d*i+c] = s.pts[d*i+c] - s.shapeCentroid[c]
		}
	}
	s.haveShape = true
}

// Reshape restores the reference shape fixed by FixShape, translated and
// rotated to best match the current (drifted) configuration, mirroring
// Solid::reshape's "find the best isometric transformation ... to
// maintain the current position and orientation" (spec.md §3 step 3).
func (s *Solid) Reshape() error {
	if !s.haveShape {
		return &simerr.InvalidState{Where: "body.Reshape", Reason: "FixShape was never called"}
	}
	d, n := s.dim, s.NumPoints()
	cur := make([]float64, d*n)
	for i := 0; i < n; i++ {
		for c := 0; c < d; c++ {
			cur[d*i+c] = s.pts[d*i+c] - s.centroid[c]
		}
	}
	rot := bestFitRotation(s.shape, cur, d, n)
	for i := 0; i < n; i++ {
		for a := 0; a < d; a++ {
			v := 0.0
			for b := 0; b < d; b++ {
				v += rot[d*a+b] * s.shape[d*i+b]
			}
			s.pts[d*i+a] = s.centroid[a] + v
		}
	}
	return nil
}

// ConfinementSprings implements mech.Confinable, applying the configured
// confinement mode to the solid's centroid (spec.md §4.6).
func (s *Solid) ConfinementSprings(t float64) []mech.ConfinementSpring {
	if s.surf == nil || s.class.Confine == ConfineNone {
		return nil
	}
	margin := 0.0
	if s.class.Confine == ConfineAllInside {
		margin = s.maxRadius()
	}
	switch s.class.Confine {
	case ConfineInside:
		if s.surf.Inside(s.centroid) {
			return nil
		}
	case ConfineAllInside:
		if s.surf.AllInside(s.centroid, margin) {
			return nil
		}
	case ConfineOutside:
		if s.surf.Outside(s.centroid) {
			return nil
		}
	case ConfineSurface:
		// unconditional
	}
	// PointIndex -1 marks a spring on the centroid rather than a stored
	// point; meca.System distributes it across all points per their
	// drag weight when assembling the rigid-motion operator.
	return []mech.ConfinementSpring{{
		PointIndex: -1,
		Target:     s.surf.Project(s.centroid),
		Stiffness:  s.class.ConfineStiffness.F(t, nil),
	}}
}

// PointWeight implements mech.PointWeighted: the fraction of the solid's
// total drag contributed by point p, used by meca.System to distribute a
// centroid-targeted (PointIndex == -1) confinement spring across the
// object's actual points.
func (s *Solid) PointWeight(p int) float64 {
	if s.useForcedRotational {
		if p == 0 {
			return 1
		}
		return 0
	}
	return 6 * math.Pi * s.world.Viscosity * s.radii[p] / s.drag
}

func (s *Solid) maxRadius() float64 {
	m := 0.0
	for _, r := range s.radii {
		if r > m {
			m = r
		}
	}
	return m
}

func applyMatrix(m, v []float64, d int) []float64 {
	out := make([]float64, len(v))
	if len(v) == 1 {
		out[0] = v[0] * m[0]
		return out
	}
	for a := 0; a < d; a++ {
		s := 0.0
		for b := 0; b < d; b++ {
			s += m[d*a+b] * v[b]
		}
		out[a] = s
	}
	return out
}

// invertSmall inverts the rotational-drag operator: a scalar for d==1
// (unused, rotation does not exist in 1D) or d==2 (the single
// out-of-plane moment of inertia), or a full 3x3 tensor for d==3.
func invertSmall(m []float64, d int) []float64 {
	switch d {
	case 1, 2:
		if m[0] == 0 {
			return []float64{0}
		}
		return []float64{1 / m[0]}
	case 3:
		a, b, c := m[0], m[1], m[2]
		d0, e, f := m[3], m[4], m[5]
		g, h, i := m[6], m[7], m[8]
		det := a*(e*i-f*h) - b*(d0*i-f*g) + c*(d0*h-e*g)
		if math.Abs(det) < 1e-300 {
			return make([]float64, 9)
		}
		cof := []float64{
			e*i - f*h, c*h - b*i, b*f - c*e,
			f*g - d0*i, a*i - c*g, c*d0 - a*f,
			d0*h - e*g, b*g - a*h, a*e - b*d0,
		}
		out := make([]float64, 9)
		for k := range cof {
			out[k] = cof[k] / det
		}
		return out
	}
	return nil
}
