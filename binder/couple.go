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

// CoupleClass holds the per-class parameters of a Couple: two hands,
// its own mechanical point, and the direct fiber-fiber bridge spring
// used once both hands are attached, per spec.md §9's glossary entry
// "a pair of binders rigidly or elastically linked, modeling a
// crosslinking motor."
type CoupleClass struct {
	Name string

	Hand1, Hand2 *HandClass

	Radius    float64 // Stokes radius while diffusing unattached/single-attached
	Stiffness float64 // spring pulling the couple's own point toward its one attached hand

	BridgeStiffness float64 // direct fiber-to-fiber spring constant once both hands are attached
	BridgeRestLen   float64 // rest length of the bridging spring
}

// NewCoupleClass builds a CoupleClass from a catalog record.
func NewCoupleClass(name string, hand1, hand2 *HandClass, r *config.Record) (*CoupleClass, error) {
	stiff, err := r.Float64("stiffness")
	if err != nil {
		return nil, err
	}
	bridge, err := r.Float64("bridge_stiffness")
	if err != nil {
		return nil, err
	}
	return &CoupleClass{
		Name:            name,
		Hand1:           hand1,
		Hand2:           hand2,
		Radius:          r.Float64Default("radius", 0.01),
		Stiffness:       stiff,
		BridgeStiffness: bridge,
		BridgeRestLen:   r.Float64Default("bridge_rest_length", 0),
	}, nil
}

type coupleState int

const (
	csFree coupleState = iota
	csAttached
	csBridging
)

// CoupleSet holds the class-keyed free/attached/bridging lists of
// spec.md §4.5.
type CoupleSet struct {
	Class    *CoupleClass
	Free     *objset.List[*Couple]
	Attached *objset.List[*Couple]
	Bridging *objset.List[*Couple]
}

// NewCoupleSet returns an empty CoupleSet for the given class.
func NewCoupleSet(class *CoupleClass) *CoupleSet {
	return &CoupleSet{
		Class:    class,
		Free:     objset.NewList[*Couple](),
		Attached: objset.NewList[*Couple](),
		Bridging: objset.NewList[*Couple](),
	}
}

func (set *CoupleSet) listFor(st coupleState) *objset.List[*Couple] {
	switch st {
	case csAttached:
		return set.Attached
	case csBridging:
		return set.Bridging
	default:
		return set.Free
	}
}

// Couple is two hands plus its own mechanical point, mirroring
// sim/couple.cc. While at most one hand is attached it behaves like a
// Single (own point pulled toward the attached hand); once both hands
// are attached it additionally bridges the two fibers directly.
type Couple struct {
	objset.Serial

	class *CoupleClass
	world *config.World
	rng   *rng.Source
	dim   int

	pos    []float64
	drag   float64
	offset int

	hand1, hand2 *Hand
	monitor      Monitor

	set    *CoupleSet
	state  coupleState
	handle objset.Handle
}

// NewCouple constructs an unattached Couple at pos and links it into
// set's Free list.
func NewCouple(class *CoupleClass, world *config.World, src *rng.Source, dim int, pos []float64, set *CoupleSet, monitor Monitor) (*Couple, error) {
	if class.Radius <= 0 {
		return nil, &simerr.ConfigurationError{Kind: "couple", Name: class.Name, Reason: "radius must be > 0"}
	}
	c := &Couple{
		class:   class,
		world:   world,
		rng:     src,
		dim:     dim,
		pos:     append([]float64(nil), pos...),
		drag:    6 * math.Pi * world.Viscosity * class.Radius,
		hand1:   NewHand(class.Hand1),
		hand2:   NewHand(class.Hand2),
		monitor: monitor,
		set:     set,
		state:   csFree,
	}
	c.handle = set.Free.PushBack(c)
	return c, nil
}

func (c *Couple) NumPoints() int    { return 1 }
func (c *Couple) Dim() int          { return c.dim }
func (c *Couple) Drag() float64     { return c.drag }
func (c *Couple) Offset() int       { return c.offset }
func (c *Couple) SetOffset(o int)   { c.offset = o }
func (c *Couple) Points() []float64 { return c.pos }
func (c *Couple) Hand1() *Hand      { return c.hand1 }
func (c *Couple) Hand2() *Hand      { return c.hand2 }
func (c *Couple) Bridging() bool    { return c.state == csBridging }
func (c *Couple) Class() *CoupleClass { return c.class }

func (c *Couple) Prepare() error { return nil }

func (c *Couple) SetSpeedsFromForces(X, Y []float64, sc float64, storeLagrange bool) {
	f := sc / c.drag
	for i := range X {
		Y[i] = f * X[i]
	}
}

func (c *Couple) AddRigidity(X, Y []float64)             {}
func (c *Couple) AddRigidityMatUp(Kb *la.Triplet, off int) {}
func (c *Couple) AddProjectionDiff(X, Y []float64)        {}

func (c *Couple) AddBrownianForces(rhs []float64, sc float64) float64 {
	amp := math.Sqrt(2 * sc * c.drag)
	for i := range rhs {
		rhs[i] += amp * c.rng.Gauss()
	}
	return amp / c.drag
}

func (c *Couple) UseBlock() bool { return true }

// ConfinementSprings implements mech.Confinable, doubling as the
// partially-attached bridge spring: with exactly one hand bound, pulls
// the couple's own point toward that hand's position. Once bridging, the
// direct fiber-to-fiber spring (BridgePoints) carries the interaction
// instead and no spring to the couple's own point is added. t is unused,
// see binder.Single.ConfinementSprings.
func (c *Couple) ConfinementSprings(t float64) []mech.ConfinementSpring {
	switch c.state {
	case csAttached:
		target := c.hand1.Position()
		if target == nil {
			target = c.hand2.Position()
		}
		return []mech.ConfinementSpring{{PointIndex: 0, Target: target, Stiffness: c.class.Stiffness}}
	default:
		return nil
	}
}

// BridgePoints reports the pair of filament model points the direct
// bridging spring should connect, approximating each hand's interpolated
// abscissa by its nearest model point (spec.md §4.5 does not specify
// sub-segment force transmission for the fully-bridging case; this
// mirrors the single-DOF approximation already used by confinement
// springs). ok is false unless both hands are attached.
func (c *Couple) BridgePoints() (f1 *fiber.Filament, p1 int, f2 *fiber.Filament, p2 int, stiffness, restLen float64, ok bool) {
	if c.state != csBridging {
		return nil, 0, nil, 0, 0, 0, false
	}
	return c.hand1.Fiber(), c.hand1.nearestPoint(), c.hand2.Fiber(), c.hand2.nearestPoint(), c.class.BridgeStiffness, c.class.BridgeRestLen, true
}

func (c *Couple) sync() {
	want := c.computeState()
	if want == c.state {
		return
	}
	from, to := c.set.listFor(c.state), c.set.listFor(want)
	c.handle = from.Transfer(c.handle, to)
	c.state = want
}

func (c *Couple) computeState() coupleState {
	a1, a2 := c.hand1.Attached(), c.hand2.Attached()
	switch {
	case a1 && a2:
		return csBridging
	case a1 || a2:
		return csAttached
	default:
		return csFree
	}
}

// Attach1/Attach2 bind the named hand to f at abscissa a, moving the
// Couple between Free/Attached/Bridging as both hands' state dictates.
func (c *Couple) Attach1(f *fiber.Filament, a float64) error {
	if c.hand1.Attached() {
		return &simerr.InvalidState{Where: "binder.Couple.Attach1", Reason: "hand1 already attached"}
	}
	c.hand1.attach(f, a)
	c.sync()
	notifyAfterAttachment(c.monitor, c)
	return nil
}

func (c *Couple) Attach2(f *fiber.Filament, a float64) error {
	if c.hand2.Attached() {
		return &simerr.InvalidState{Where: "binder.Couple.Attach2", Reason: "hand2 already attached"}
	}
	c.hand2.attach(f, a)
	c.sync()
	notifyAfterAttachment(c.monitor, c)
	return nil
}

// TryAttach1/TryAttach2 mirror Single.TryAttach for each of the couple's
// two hands.
func (c *Couple) TryAttach1(cands []grid.AttachCandidate, resolve func(fiberID int) (*fiber.Filament, uint32)) error {
	if c.hand1.Attached() {
		return nil
	}
	for _, cd := range cands {
		f, key := resolve(cd.FiberID)
		if f == nil || c.hand1.class.BindKey&key == 0 {
			continue
		}
		absc := f.AbscissaOrigin() + (float64(cd.Index)+cd.Frac)*f.Segmentation()
		return c.Attach1(f, absc)
	}
	return nil
}

func (c *Couple) TryAttach2(cands []grid.AttachCandidate, resolve func(fiberID int) (*fiber.Filament, uint32)) error {
	if c.hand2.Attached() {
		return nil
	}
	for _, cd := range cands {
		f, key := resolve(cd.FiberID)
		if f == nil || c.hand2.class.BindKey&key == 0 {
			continue
		}
		absc := f.AbscissaOrigin() + (float64(cd.Index)+cd.Frac)*f.Segmentation()
		return c.Attach2(f, absc)
	}
	return nil
}

// Detach1/Detach2 unbind the named hand, snapshotting its last position
// into the couple's own point before re-syncing list membership.
func (c *Couple) Detach1() error { return c.detach(c.hand1) }
func (c *Couple) Detach2() error { return c.detach(c.hand2) }

func (c *Couple) detach(h *Hand) error {
	if !h.Attached() {
		return &simerr.InvalidState{Where: "binder.Couple.Detach", Reason: "hand not attached"}
	}
	notifyBeforeDetachment(c.monitor, c)
	copy(c.pos, h.Position())
	h.detach()
	c.sync()
	notifyAfterDetachment(c.monitor, c)
	return nil
}

// StepDetachment rolls both hands' detachment hazards for one timestep.
func (c *Couple) StepDetachment(dt, force1, force2 float64) error {
	if c.hand1.Attached() && c.rng.Bernoulli(c.hand1.class.detachProbability(dt, force1)) {
		if err := c.Detach1(); err != nil {
			return err
		}
	}
	if c.hand2.Attached() && c.rng.Bernoulli(c.hand2.class.detachProbability(dt, force2)) {
		if err := c.Detach2(); err != nil {
			return err
		}
	}
	return nil
}
