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

// Bead is a single point with a Stokes radius, no rotation and no
// internal rigidity, grounded on sim/bead.cc.
type Bead struct {
	objset.Serial

	class  *Class
	world  *config.World
	rng    *rng.Source
	dim    int
	pos    []float64
	radius float64
	drag   float64
	offset int
	surf   confine.Surface
}

// NewBead constructs a Bead of the given radius at pos.
func NewBead(class *Class, world *config.World, src *rng.Source, dim int, pos []float64, radius float64, surf confine.Surface) (*Bead, error) {
	if radius <= 0 {
		return nil, &simerr.ConfigurationError{Kind: "bead", Name: class.Name, Reason: "radius must be > 0"}
	}
	b := &Bead{
		class:  class,
		world:  world,
		rng:    src,
		dim:    dim,
		pos:    append([]float64(nil), pos...),
		radius: radius,
		surf:   surf,
	}
	b.drag = 6 * math.Pi * world.Viscosity * radius
	return b, nil
}

func (b *Bead) NumPoints() int      { return 1 }
func (b *Bead) Dim() int            { return b.dim }
func (b *Bead) Drag() float64       { return b.drag }
func (b *Bead) Offset() int         { return b.offset }
func (b *Bead) SetOffset(o int)     { b.offset = o }
func (b *Bead) Points() []float64   { return b.pos }
func (b *Bead) Radius() float64     { return b.radius }
func (b *Bead) Position() []float64 { return b.pos }

// Prepare is a no-op: a Bead has no internal state to recompute, mirroring
// Bead's trivial setSpeedsFromForces.
func (b *Bead) Prepare() error { return nil }

// SetSpeedsFromForces implements mech.Object: the projection is trivial
// (Y = s/drag * X), per Bead::setSpeedsFromForces.
func (b *Bead) SetSpeedsFromForces(X, Y []float64, s float64, storeLagrange bool) {
	sca := s / b.drag
	for i := range X {
		Y[i] = sca * X[i]
	}
}

// AddRigidity is a no-op: a single point has no internal elasticity.
func (b *Bead) AddRigidity(X, Y []float64) {}

// AddRigidityMatUp is a no-op for the same reason.
func (b *Bead) AddRigidityMatUp(Kb *la.Triplet, off int) {}

// AddProjectionDiff is a no-op: a Bead has no projection to linearize.
func (b *Bead) AddProjectionDiff(X, Y []float64) {}

// AddBrownianForces adds iid Gaussian impulses of standard deviation
// sqrt(2*sc*drag) to rhs, mirroring Bead::addBrownianForces.
func (b *Bead) AddBrownianForces(rhs []float64, sc float64) float64 {
	bAmp := math.Sqrt(2 * sc * b.drag)
	for i := range rhs {
		rhs[i] += bAmp * b.rng.Gauss()
	}
	return bAmp / b.drag
}

// UseBlock reports true: a 1x1 (or d x d) block factorization is trivial
// to cache and always exact.
func (b *Bead) UseBlock() bool { return true }

// ConfinementSprings implements mech.Confinable per spec.md §4.6.
func (b *Bead) ConfinementSprings(t float64) []mech.ConfinementSpring {
	if b.surf == nil || b.class.Confine == ConfineNone {
		return nil
	}
	switch b.class.Confine {
	case ConfineInside:
		if b.surf.Inside(b.pos) {
			return nil
		}
	case ConfineAllInside:
		if b.surf.AllInside(b.pos, b.radius) {
			return nil
		}
	case ConfineOutside:
		if b.surf.Outside(b.pos) {
			return nil
		}
	case ConfineSurface:
		// unconditional
	}
	return []mech.ConfinementSpring{{
		PointIndex: 0,
		Target:     b.surf.Project(b.pos),
		Stiffness:  b.class.ConfineStiffness.F(t, nil),
	}}
}
