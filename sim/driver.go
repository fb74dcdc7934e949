// Package sim implements the simulation driver of spec.md §5: the
// single-threaded, six-stage per-step orchestration (prepare, paint,
// attach, detach, solve, post-step updates) that is the actual consumer
// of every other package's public surface. Grounded on fem.FEM.Run's
// "assemble once, iterate the solver, advance, log" loop shape
// (fem/tsr_solver.go / fem/fem.go) generalized to the six ordered
// sub-stages spec.md §5 names explicitly, in place of gofem's single
// assemble-and-solve stage.
package sim

import (
	"math"

	"github.com/cpmech/gosl/io"

	"github.com/nedelec/cytosim-2017-sub000/binder"
	"github.com/nedelec/cytosim-2017-sub000/body"
	"github.com/nedelec/cytosim-2017-sub000/config"
	"github.com/nedelec/cytosim-2017-sub000/fiber"
	"github.com/nedelec/cytosim-2017-sub000/grid"
	"github.com/nedelec/cytosim-2017-sub000/meca"
	"github.com/nedelec/cytosim-2017-sub000/objset"
	"github.com/nedelec/cytosim-2017-sub000/rng"
)

// Box describes the simulation's bounding region, used to size the
// binding and steric grids (spec.md §4.3/§4.4). Periodic marks axes
// that wrap (confine.Periodic's Fold semantics, applied by the caller
// on the underlying confinement surface, not by sim itself).
type Box struct {
	Lo, Hi   []float64
	Periodic []bool
}

// Steric holds the constants of spec.md §4.4's linear-spring
// classification: PushK restores overlapping pairs apart, PullK draws
// pairs in the attractive tail together, RangeMax is the tail's extent
// beyond contact.
type Steric struct {
	RangeMax float64
	PushK    float64
	PullK    float64
}

// Driver owns the full live population of one simulation and advances
// it one step at a time per spec.md §5's ordered sub-stages.
type Driver struct {
	world *config.World
	src   *rng.Source
	sys   *meca.System

	box    Box
	steric Steric

	bindRangeMax float64
	segLenMax    float64

	fibers  *objset.Inventory[*fiber.Filament]
	beads   *objset.Inventory[*body.Bead]
	solids  *objset.Inventory[*body.Solid]
	singles *objset.Inventory[*binder.Single]
	couples *objset.Inventory[*binder.Couple]

	bindingGrid *grid.BindingGrid
	stericGrid  *grid.StericGrid

	Verbose bool // gated status banners via gosl/io, mirroring fem.FEM.Run's io.Pf lines
}

// NewDriver returns a Driver bound to world/src, with grids sized from
// box and the hand/segment ranges currently in play. bindRangeMax must
// be at least the largest HandClass.Range of any Single/Couple hand the
// caller will register; segLenMax must be at least the largest
// fiber.Class.SegmentationTarget in play (spec.md §4.3/§4.4 cell-sizing
// requirements).
func NewDriver(world *config.World, src *rng.Source, box Box, bindRangeMax, segLenMax float64, steric Steric) *Driver {
	return &Driver{
		world:        world,
		src:          src,
		sys:          meca.NewSystem(world, src),
		box:          box,
		steric:       steric,
		bindRangeMax: bindRangeMax,
		segLenMax:    segLenMax,
		fibers:       objset.NewInventory[*fiber.Filament](),
		beads:        objset.NewInventory[*body.Bead](),
		solids:       objset.NewInventory[*body.Solid](),
		singles:      objset.NewInventory[*binder.Single](),
		couples:      objset.NewInventory[*binder.Couple](),
		bindingGrid:  grid.NewBindingGrid(box.Lo, box.Hi, box.Periodic, bindRangeMax),
		stericGrid:   grid.NewStericGrid(box.Lo, box.Hi, box.Periodic, segLenMax, steric.RangeMax),
	}
}

// AddFiber assigns f a serial number and registers it with the driver.
func (d *Driver) AddFiber(f *fiber.Filament) { d.fibers.Assign(f) }

// AddBead assigns b a serial number and registers it with the driver.
func (d *Driver) AddBead(b *body.Bead) { d.beads.Assign(b) }

// AddSolid assigns s a serial number and registers it with the driver.
func (d *Driver) AddSolid(s *body.Solid) { d.solids.Assign(s) }

// AddSingle assigns s a serial number and registers it with the driver.
func (d *Driver) AddSingle(s *binder.Single) { d.singles.Assign(s) }

// AddCouple assigns c a serial number and registers it with the driver.
func (d *Driver) AddCouple(c *binder.Couple) { d.couples.Assign(c) }

// Fibers, Beads, Solids, Singles, Couples return the live population in
// ascending serial-number order.
func (d *Driver) Fibers() []*fiber.Filament { return d.fibers.All() }
func (d *Driver) Beads() []*body.Bead       { return d.beads.All() }
func (d *Driver) Solids() []*body.Solid     { return d.solids.All() }
func (d *Driver) Singles() []*binder.Single { return d.singles.All() }
func (d *Driver) Couples() []*binder.Couple { return d.couples.All() }

// FiberByNumber implements trace.Resolver: it looks up a live fiber by
// serial number, the "simul" back-reference a trajectory read needs to
// restore a binder hand's attachment (spec.md §6).
func (d *Driver) FiberByNumber(n objset.Number) (*fiber.Filament, bool) { return d.fibers.Find(n) }

func (d *Driver) logf(format string, args ...interface{}) {
	if d.Verbose {
		io.Pf(format, args...)
	}
}

// Step advances the whole population by one timestep, per spec.md §5's
// six ordered sub-stages: prepare, paint, attach, detach, solve,
// post-step updates. Returns the first error any stage surfaces; on
// error, the caller should treat the step as abandoned (no partial
// mechanical state is committed before Solve succeeds, since every
// earlier stage only reads positions or mutates binder/list state, not
// point coordinates).
func (d *Driver) Step() error {
	d.logf("> sim: step t=%g\n", d.world.Time)

	if err := d.prepare(); err != nil {
		return err
	}
	d.paint()
	d.attach()
	if err := d.detach(); err != nil {
		return err
	}
	if err := d.solve(); err != nil {
		return err
	}
	d.postStep()
	d.world.Time += d.world.Dt
	return nil
}

// prepare registers every mechanical object with the solver and calls
// its Prepare hook, spec.md §5 stage 1.
func (d *Driver) prepare() error {
	d.sys.Clear()
	for _, f := range d.fibers.All() {
		d.sys.Add(f)
	}
	for _, b := range d.beads.All() {
		d.sys.Add(b)
	}
	for _, s := range d.solids.All() {
		d.sys.Add(s)
	}
	for _, s := range d.singles.All() {
		d.sys.Add(s)
	}
	for _, c := range d.couples.All() {
		d.sys.Add(c)
	}
	return d.sys.Prepare()
}

// paint repaints the binding grid from every fiber's segments, spec.md
// §5 stage 2.
func (d *Driver) paint() {
	var segs []grid.SegmentRef
	for _, f := range d.fibers.All() {
		for i := 0; i < f.NumPoints()-1; i++ {
			segs = append(segs, grid.SegmentRef{
				FiberID: int(f.Number()),
				Index:   i,
				A:       f.Point(i),
				B:       f.Point(i + 1),
			})
		}
	}
	d.bindingGrid.Paint(segs)
}

// resolveFiber turns the grid's caller-chosen FiberID (a fiber serial
// number, per spec.md §4.3's SegmentRef.FiberID doc) back into a live
// *fiber.Filament and its class's binding key, for TryAttach's
// binding-key check.
func (d *Driver) resolveFiber(fiberID int) (*fiber.Filament, uint32) {
	f, ok := d.fibers.Find(objset.Number(fiberID))
	if !ok {
		return nil, 0
	}
	return f, f.Class().BindKey
}

// attach attempts to bind every currently-unattached hand against the
// freshly painted grid, spec.md §5 stage 3.
func (d *Driver) attach() {
	dt := d.world.Dt
	for _, s := range d.singles.All() {
		if s.Hand().Attached() {
			continue
		}
		hc := s.Hand().Class()
		cands := d.bindingGrid.Attempt(s.Points(), hc.Range, hc.Rate, dt, d.src)
		s.TryAttach(cands, d.resolveFiber)
	}
	for _, c := range d.couples.All() {
		if !c.Hand1().Attached() {
			hc := c.Hand1().Class()
			cands := d.bindingGrid.Attempt(c.Points(), hc.Range, hc.Rate, dt, d.src)
			c.TryAttach1(cands, d.resolveFiber)
		}
		if !c.Hand2().Attached() {
			hc := c.Hand2().Class()
			cands := d.bindingGrid.Attempt(c.Points(), hc.Range, hc.Rate, dt, d.src)
			c.TryAttach2(cands, d.resolveFiber)
		}
	}
}

// springForce approximates the instantaneous load on an attached hand
// as stiffness times its bridge spring's current extension: the exact
// Lagrange-multiplier force the solver computed last step is not
// retained per-link, so StepDetachment uses this as the load fed to the
// Kramers hazard (spec.md §4.5 does not mandate a specific force
// estimator for the load-dependent case, only that one exists).
func springForce(pos []float64, hand *binder.Hand, stiffness float64) float64 {
	if !hand.Attached() {
		return 0
	}
	target := hand.Position()
	d := 0.0
	for i := range pos {
		dx := pos[i] - target[i]
		d += dx * dx
	}
	return stiffness * math.Sqrt(d)
}

// detach rolls every attached hand's detachment hazard for one
// timestep, spec.md §5 stage 4.
func (d *Driver) detach() error {
	dt := d.world.Dt
	for _, s := range d.singles.All() {
		force := springForce(s.Points(), s.Hand(), s.Class().Stiffness)
		if err := s.StepDetachment(dt, force); err != nil {
			return err
		}
	}
	for _, c := range d.couples.All() {
		f1 := springForce(c.Points(), c.Hand1(), c.Class().Stiffness)
		f2 := springForce(c.Points(), c.Hand2(), c.Class().Stiffness)
		if err := c.StepDetachment(dt, f1, f2); err != nil {
			return err
		}
	}
	return nil
}

// stericRef records which live object/point a StericEntity.ID refers to,
// so contacts returned by StericGrid.Pairs can be converted back into
// meca.System.AddLink calls against the right global coordinates.
type stericRef struct {
	base, dim int
}

// populateSteric gathers one steric entity per fiber segment midpoint,
// bead and solid point, per spec.md §4.4.
func (d *Driver) populateSteric() []stericRef {
	var entities []grid.StericEntity
	var refs []stericRef
	id := 0
	addRef := func(base, dim int) int {
		refs = append(refs, stericRef{base: base, dim: dim})
		id++
		return id - 1
	}
	for _, f := range d.fibers.All() {
		r := f.Class().Radius
		for i := 0; i < f.NumPoints()-1; i++ {
			a, b := f.Point(i), f.Point(i+1)
			mid := make([]float64, f.Dim())
			for c := range mid {
				mid[c] = 0.5 * (a[c] + b[c])
			}
			entityID := addRef(f.Offset()+f.Dim()*i, f.Dim())
			entities = append(entities, grid.StericEntity{ID: entityID, Pos: mid, Radius: r})
		}
	}
	for _, b := range d.beads.All() {
		entityID := addRef(b.Offset(), b.Dim())
		entities = append(entities, grid.StericEntity{ID: entityID, Pos: b.Points(), Radius: b.Radius()})
	}
	for _, s := range d.solids.All() {
		for p := 0; p < s.NumPoints(); p++ {
			entityID := addRef(s.Offset()+s.Dim()*p, s.Dim())
			entities = append(entities, grid.StericEntity{ID: entityID, Pos: s.Point(p), Radius: s.Radius(p)})
		}
	}
	d.stericGrid.Populate(entities)
	return refs
}

// solve assembles confinement, steric and binder-bridging interactions
// and runs the implicit solve, spec.md §5 stage 5.
func (d *Driver) solve() error {
	d.sys.AddConfinementSprings(d.world.Time)

	refs := d.populateSteric()
	for _, c := range d.stericGrid.Pairs() {
		ra, rb := refs[c.A], refs[c.B]
		// meca.System.AddLink's spring is attractive for stiffness > 0
		// (it pulls gi/gj together); the overlapping (k_push) regime
		// needs the opposite sign to push the pair apart, so it is
		// wired as a negative-stiffness link while the attractive tail
		// (k_pull) regime keeps the natural positive sign.
		k := d.steric.PullK
		if c.Overlapping() {
			k = -d.steric.PushK
		}
		if k == 0 {
			continue
		}
		for comp := 0; comp < ra.dim; comp++ {
			d.sys.AddLink(ra.base+comp, rb.base+comp, k, 0)
		}
	}

	for _, c := range d.couples.All() {
		f1, p1, f2, p2, stiffness, restLen, ok := c.BridgePoints()
		if !ok {
			continue
		}
		base1, base2 := f1.Offset()+f1.Dim()*p1, f2.Offset()+f2.Dim()*p2
		_ = restLen // rest length on a point-to-point link is carried by the geometry, not the link term, per meca.System.AddLink's doc
		for comp := 0; comp < f1.Dim(); comp++ {
			d.sys.AddLink(base1+comp, base2+comp, stiffness, 0)
		}
	}

	return d.sys.Solve()
}

// postStep flushes every fiber's queued cuts, reassigning any attached
// binder hand onto the correct resulting filament, spec.md §5 stage 6.
// Confinement springs and the mB pairwise matrix are rebuilt from
// scratch at the start of the next step's solve, so they need no reset
// here (spec.md §4.6: "stateless and rebuilt every step").
func (d *Driver) postStep() {
	for _, f := range d.fibers.All() {
		distals := f.FlushCuts(func(old, new *fiber.Filament, cutAbscissa float64) {
			d.fibers.Assign(new)
			d.retargetHandsPastCut(old, new, cutAbscissa)
		})
		_ = distals
	}
}

// retargetHandsPastCut moves every hand bound to old at an abscissa on
// the distal side of cutAbscissa onto new, preserving its absolute
// abscissa, per spec.md §8 scenario 6.
func (d *Driver) retargetHandsPastCut(old, new *fiber.Filament, cutAbscissa float64) {
	retarget := func(h *binder.Hand) {
		if h.Fiber() != old || h.Abscissa() < cutAbscissa {
			return
		}
		h.Retarget(new, h.Abscissa())
	}
	for _, s := range d.singles.All() {
		retarget(s.Hand())
	}
	for _, c := range d.couples.All() {
		retarget(c.Hand1())
		retarget(c.Hand2())
	}
}
