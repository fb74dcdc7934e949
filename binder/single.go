package binder

import (
	"math"

	"github.com/cpmech/gosl/la"

	"github.com/nedelec/cytosim-2017-sub000/config"
	"github.com/nedelec/cytosim-2017-sub000/fiber"
	"github.com/nedelec/cytosim-2017-sub000/grid"
	"github.com/nedelec/cytosim-2017-sub000/mech"
	"github.com/nedelec/cytosim-2017-sub000/objset"
	"github.com/nedelec/cytosim-2017-sub000/rng"
	"github.com/nedelec/cytosim-2017-sub000/simerr"
)

// SingleClass holds the per-class parameters of a Single: one hand plus
// its own mechanical point, per spec.md §9's glossary entry "one binder
// plus a position or an anchor point on a rigid body."
type SingleClass struct {
	Name      string
	Hand      *HandClass
	Radius    float64 // Stokes radius while diffusing unattached
	Stiffness float64 // bridge-spring constant pulling the point toward the hand's fiber attachment while attached
}

// NewSingleClass builds a SingleClass from a catalog record and its
// hand's own record.
func NewSingleClass(name string, hand *HandClass, r *config.Record) (*SingleClass, error) {
	stiff, err := r.Float64("stiffness")
	if err != nil {
		return nil, err
	}
	return &SingleClass{
		Name:      name,
		Hand:      hand,
		Radius:    r.Float64Default("radius", 0.01),
		Stiffness: stiff,
	}, nil
}

// SingleSet holds the class-keyed free/attached lists of spec.md §4.5.
type SingleSet struct {
	Class    *SingleClass
	Free     *objset.List[*Single]
	Attached *objset.List[*Single]
}

// NewSingleSet returns an empty SingleSet for the given class.
func NewSingleSet(class *SingleClass) *SingleSet {
	return &SingleSet{Class: class, Free: objset.NewList[*Single](), Attached: objset.NewList[*Single]()}
}

// Single is one hand plus its own mechanical point, mirroring sim/single.cc.
type Single struct {
	objset.Serial

	class *SingleClass
	world *config.World
	rng   *rng.Source
	dim   int

	pos    []float64
	drag   float64
	offset int

	hand    *Hand
	monitor Monitor

	set    *SingleSet
	handle objset.Handle
}

// NewSingle constructs an unattached Single at pos and links it into
// set's Free list.
func NewSingle(class *SingleClass, world *config.World, src *rng.Source, dim int, pos []float64, set *SingleSet, monitor Monitor) (*Single, error) {
	if class.Radius <= 0 {
		return nil, &simerr.ConfigurationError{Kind: "single", Name: class.Name, Reason: "radius must be > 0"}
	}
	s := &Single{
		class:   class,
		world:   world,
		rng:     src,
		dim:     dim,
		pos:     append([]float64(nil), pos...),
		drag:    6 * math.Pi * world.Viscosity * class.Radius,
		hand:    NewHand(class.Hand),
		monitor: monitor,
		set:     set,
	}
	s.handle = set.Free.PushBack(s)
	return s, nil
}

func (s *Single) NumPoints() int    { return 1 }
func (s *Single) Dim() int          { return s.dim }
func (s *Single) Drag() float64     { return s.drag }
func (s *Single) Offset() int       { return s.offset }
func (s *Single) SetOffset(o int)   { s.offset = o }
func (s *Single) Points() []float64 { return s.pos }
func (s *Single) Hand() *Hand       { return s.hand }
func (s *Single) Class() *SingleClass { return s.class }

func (s *Single) Prepare() error { return nil }

func (s *Single) SetSpeedsFromForces(X, Y []float64, sc float64, storeLagrange bool) {
	f := sc / s.drag
	for i := range X {
		Y[i] = f * X[i]
	}
}

func (s *Single) AddRigidity(X, Y []float64)             {}
func (s *Single) AddRigidityMatUp(Kb *la.Triplet, off int) {}
func (s *Single) AddProjectionDiff(X, Y []float64)        {}

func (s *Single) AddBrownianForces(rhs []float64, sc float64) float64 {
	amp := math.Sqrt(2 * sc * s.drag)
	for i := range rhs {
		rhs[i] += amp * s.rng.Gauss()
	}
	return amp / s.drag
}

func (s *Single) UseBlock() bool { return true }

// ConfinementSprings implements mech.Confinable, doubling as the
// attached-hand bridge spring: when the hand is bound, pulls the
// Single's own point toward the hand's interpolated fiber position with
// class.Stiffness, exactly the mechanism spec.md §9 describes ("owns...
// its own position..."). Stateless and rebuilt every step, same as a
// confinement spring, so no separate wiring path is needed in meca. t is
// unused: a Single's bridge stiffness is always the class's constant,
// unlike body.Class's optional fun.Func confinement ramp.
func (s *Single) ConfinementSprings(t float64) []mech.ConfinementSpring {
	if !s.hand.Attached() {
		return nil
	}
	return []mech.ConfinementSpring{{
		PointIndex: 0,
		Target:     s.hand.Position(),
		Stiffness:  s.class.Stiffness,
	}}
}

// Attach binds the hand to f at abscissa a, transferring the Single from
// its set's Free list to its Attached list and firing the Monitor hook.
func (s *Single) Attach(f *fiber.Filament, a float64) error {
	if s.hand.Attached() {
		return &simerr.InvalidState{Where: "binder.Single.Attach", Reason: "hand already attached"}
	}
	s.hand.attach(f, a)
	s.handle = s.set.Free.Transfer(s.handle, s.set.Attached)
	notifyAfterAttachment(s.monitor, s)
	return nil
}

// TryAttach attempts to bind against the first candidate whose resolved
// fiber accepts this hand's binding key, per spec.md §4.3 step 3's
// trailing binding-key test (left to the caller here since resolving a
// grid.AttachCandidate's FiberID to a live *fiber.Filament and its key
// is outside grid's own geometric scope).
func (s *Single) TryAttach(cands []grid.AttachCandidate, resolve func(fiberID int) (*fiber.Filament, uint32)) error {
	if s.hand.Attached() {
		return nil
	}
	for _, c := range cands {
		f, key := resolve(c.FiberID)
		if f == nil || s.hand.class.BindKey&key == 0 {
			continue
		}
		absc := f.AbscissaOrigin() + (float64(c.Index)+c.Frac)*f.Segmentation()
		return s.Attach(f, absc)
	}
	return nil
}

// Detach unbinds the hand, snapshotting its last attached position into
// the Single's own point before transferring Attached -> Free, per
// spec.md §4.5's beforeDetachment/afterDetachment ordering.
func (s *Single) Detach() error {
	if !s.hand.Attached() {
		return &simerr.InvalidState{Where: "binder.Single.Detach", Reason: "hand not attached"}
	}
	notifyBeforeDetachment(s.monitor, s)
	copy(s.pos, s.hand.Position())
	s.hand.detach()
	s.handle = s.set.Attached.Transfer(s.handle, s.set.Free)
	notifyAfterDetachment(s.monitor, s)
	return nil
}

// StepDetachment rolls the hand's detachment hazard for one timestep dt
// under the given load magnitude (0 if load-independent), detaching on
// success. A no-op when the hand is already free.
func (s *Single) StepDetachment(dt, force float64) error {
	if !s.hand.Attached() {
		return nil
	}
	p := s.hand.class.detachProbability(dt, force)
	if s.rng.Bernoulli(p) {
		return s.Detach()
	}
	return nil
}
