// Package meca implements the global implicit solver of spec.md §4.2: it
// gathers every registered mechanical object, assembles the linearized
// implicit-step operator matrix-free, and iterates a restarted BiCGStab
// to convergence, preconditioned by a block-Jacobi approximation built
// from each object's own operator.
//
// Grounded on fem.Domain's assemble-then-solve shape (Kb *la.Triplet,
// Fb []float64, a cached LinSol, and the "clear(); add(); prepare()"
// registration idiom spec.md §4.2 names directly) and sim/simul_solve.cc
// for the matrix-free composition order (rigidity, pairwise matrix,
// projection, in that sequence).
package meca

import (
	"math"

	"github.com/cpmech/gosl/la"

	"github.com/nedelec/cytosim-2017-sub000/config"
	"github.com/nedelec/cytosim-2017-sub000/mech"
	"github.com/nedelec/cytosim-2017-sub000/rng"
	"github.com/nedelec/cytosim-2017-sub000/simerr"
)

// link is one pairwise linear-spring interaction (steric contact,
// binder bridge, or a centroid confinement spring fanned out across an
// object's points) contributing to both the right-hand side and the
// linearized operator's off-diagonal coupling.
type link struct {
	i, j      int     // global flat coordinate indices (one per Cartesian component)
	stiffness float64 // spring constant along this coordinate
	restLen   float64 // target coordinate of an AddPointTarget spring, folded into rhs; not applied on a point-to-point link
}

// System is the per-step registration and solve context of spec.md
// §4.2. A System is reused across steps: Clear resets it, Add registers
// every mechanical object, then Solve assembles and iterates once.
type System struct {
	world *config.World
	src   *rng.Source

	objects []mech.Object
	n       int // total flattened coordinate count

	links []link
	mB    *la.Triplet // assembled symmetric pairwise-interaction matrix

	MaxIter int     // BiCGStab iteration cap
	Tol     float64 // relative residual tolerance
}

// NewSystem returns a System bound to the given world and random source.
// MaxIter/Tol are set to the defaults used throughout spec.md §8's test
// scenarios (200 iterations, relative residual 1e-6) and may be
// overridden by the caller.
func NewSystem(world *config.World, src *rng.Source) *System {
	return &System{
		world:   world,
		src:     src,
		MaxIter: 200,
		Tol:     1e-6,
	}
}

// Clear resets registration ahead of a new step, mirroring the
// "clear(); for each object: add(obj); prepare();" contract of spec.md
// §4.2.
func (sys *System) Clear() {
	sys.objects = sys.objects[:0]
	sys.links = sys.links[:0]
	sys.n = 0
	sys.mB = nil
}

// Add registers one mechanical object, assigning it a contiguous block
// of the global coordinate vector starting at its current offset.
func (sys *System) Add(obj mech.Object) {
	obj.SetOffset(sys.n)
	sys.objects = append(sys.objects, obj)
	sys.n += obj.Dim() * obj.NumPoints()
}

// Prepare calls Prepare on every registered object, mirroring the
// registration contract's trailing "prepare()" call. The first object
// to report a degenerate geometry aborts the step with its error.
func (sys *System) Prepare() error {
	for _, obj := range sys.objects {
		if err := obj.Prepare(); err != nil {
			return err
		}
	}
	return nil
}

// AddLink registers a pairwise linear-spring interaction between two
// single Cartesian coordinates gi, gj (global flat indices) with the
// given stiffness. restLen is stored on the link but does not enter the
// right-hand side (linkForces adds a constant term only for
// AddPointTarget springs), so the spring has zero rest length. Callers
// (grid/binder steric and bridging interactions, confinement springs)
// call this once per Cartesian component of a point-to-point or
// point-to-target spring.
func (sys *System) AddLink(gi, gj int, stiffness, restLen float64) {
	sys.links = append(sys.links, link{i: gi, j: gj, stiffness: stiffness, restLen: restLen})
}

// AddPointTarget registers a spring pulling global point index (already
// multiplied by dim and offset by the owning object, i.e. the flat base
// index of the point) toward a fixed target, one Cartesian component at
// a time. A target spring is a link whose "other end" is not part of
// the coordinate vector, so it is folded directly into the constant
// term instead of an off-diagonal mB entry.
func (sys *System) AddPointTarget(base int, d int, target []float64, stiffness float64) {
	for c := 0; c < d; c++ {
		sys.links = append(sys.links, link{i: base + c, j: -1, stiffness: stiffness, restLen: target[c]})
	}
}

// AddConfinementSprings pulls confinement springs from every
// mech.Confinable object currently registered and turns each into
// AddPointTarget calls, distributing PointIndex == -1 (centroid)
// springs across the object's points by mech.PointWeighted.PointWeight
// when the object implements it, per spec.md §4.6 and the fan-out
// convention documented on mech.ConfinementSpring. t is the current
// simulation time, forwarded to each object's ConfinementSprings so a
// body.Class confine_stiff configured as a fun.Func ramp is evaluated
// at the right instant (mirroring inp.Sim's DtFunc.F(t, nil) calls).
func (sys *System) AddConfinementSprings(t float64) {
	for _, obj := range sys.objects {
		conf, ok := obj.(mech.Confinable)
		if !ok {
			continue
		}
		d := obj.Dim()
		for _, spring := range conf.ConfinementSprings(t) {
			if spring.PointIndex >= 0 {
				base := obj.Offset() + d*spring.PointIndex
				sys.AddPointTarget(base, d, spring.Target, spring.Stiffness)
				continue
			}
			pw, ok := obj.(mech.PointWeighted)
			n := obj.NumPoints()
			for p := 0; p < n; p++ {
				w := 1.0 / float64(n)
				if ok {
					w = pw.PointWeight(p)
				}
				if w <= 0 {
					continue
				}
				base := obj.Offset() + d*p
				sys.AddPointTarget(base, d, spring.Target, spring.Stiffness*w)
			}
		}
	}
}

// assembleMB builds the symmetric pairwise-interaction matrix from the
// registered links (steric, bridging, confinement-target springs),
// stamping each local stiffness into the global Triplet the way
// ele/solid/elastrod.go's AddToKb does.
func (sys *System) assembleMB() {
	t := new(la.Triplet)
	nnz := 4 * len(sys.links)
	if nnz == 0 {
		nnz = 1
	}
	t.Init(sys.n, sys.n, nnz)
	for _, lk := range sys.links {
		if lk.j < 0 {
			t.Put(lk.i, lk.i, -lk.stiffness)
			continue
		}
		t.Put(lk.i, lk.i, -lk.stiffness)
		t.Put(lk.j, lk.j, -lk.stiffness)
		t.Put(lk.i, lk.j, lk.stiffness)
		t.Put(lk.j, lk.i, lk.stiffness)
	}
	sys.mB = t
}

// PairwiseMatrix returns the symmetric pairwise-interaction matrix
// assembled by the most recent Solve call (nil before the first Solve
// of a registration cycle), exposed for diagnostics and testing.
func (sys *System) PairwiseMatrix() *la.Triplet { return sys.mB }

// linkForces adds the constant (position-independent) part of every
// registered link's force to rhs: k*restLen on the target-spring's own
// coordinate, nothing extra on a point-to-point link (whose rest length
// is folded entirely into the operator, i.e. restLen is always 0 for
// those and a real number only for AddPointTarget calls).
func (sys *System) linkForces(rhs []float64) {
	for _, lk := range sys.links {
		if lk.j < 0 {
			rhs[lk.i] += lk.stiffness * lk.restLen
		}
	}
}

func isFinite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// gather copies every object's current Points() into a freshly allocated
// global vector.
func (sys *System) gather() []float64 {
	x := make([]float64, sys.n)
	for _, obj := range sys.objects {
		copy(x[obj.Offset():obj.Offset()+obj.Dim()*obj.NumPoints()], obj.Points())
	}
	return x
}

// scatter writes a global displacement vector dx back into every
// object's Points(), advancing the configuration by dx.
func (sys *System) scatter(dx []float64) {
	for _, obj := range sys.objects {
		pts := obj.Points()
		off := obj.Offset()
		for i := range pts {
			pts[i] += dx[off+i]
		}
	}
}

// Solve advances every registered object by one timestep dt, per the
// equations of spec.md §4.2:
//
//	(I - dt*mu*P*(df/dx)) * dx = dt*mu*P*(f(x) + xi)
//
// assembled matrix-free (addRigidity, the pairwise mB matrix and each
// object's projectForces compose left-to-right) and solved by a
// restarted BiCGStab preconditioned block-Jacobi. Brownian forcing xi is
// injected once into the right-hand side, per spec.md §4.2's "same
// stochastic realization ... consistently".
func (sys *System) Solve() error {
	if sys.n == 0 {
		return nil
	}
	if sys.mB == nil {
		sys.assembleMB()
	}
	dt := sys.world.Dt

	x := sys.gather()
	force := make([]float64, sys.n)
	sys.linkForces(force)
	sys.linksMulAdd(x, force)
	for _, obj := range sys.objects {
		off, blk := obj.Offset(), obj.Dim()*obj.NumPoints()
		obj.AddRigidity(x[off:off+blk], force[off:off+blk])
	}

	sc := sys.world.KT * dt
	for _, obj := range sys.objects {
		sub := force[obj.Offset() : obj.Offset()+obj.Dim()*obj.NumPoints()]
		obj.AddBrownianForces(sub, sc)
	}

	rhs := make([]float64, sys.n)
	for _, obj := range sys.objects {
		off, blk := obj.Offset(), obj.Dim()*obj.NumPoints()
		obj.SetSpeedsFromForces(force[off:off+blk], rhs[off:off+blk], dt, true)
	}
	if !isFinite(rhs) {
		return &simerr.InvalidState{Where: "meca.Solve", Reason: "non-finite right-hand side"}
	}

	precond := newBlockJacobi(sys)
	dx, iters, err := bicgstab(sys.n, sys.applyOperator, precond.apply, rhs, sys.Tol, sys.MaxIter)
	if err != nil {
		if _, ok := err.(*simerr.SolverNonConvergence); ok {
			return err
		}
		return &simerr.InvalidState{Where: "meca.Solve", Reason: err.Error()}
	}
	if !isFinite(dx) {
		return &simerr.InvalidState{Where: "meca.Solve", Reason: "non-finite solver iterate"}
	}
	_ = iters
	sys.scatter(dx)
	return nil
}

// applyOperator computes out := (I - dt*mu*P*(addRigidity + mB)) * dx,
// the left-hand-side operator of the implicit equation, applied
// matrix-free to a trial vector dx.
func (sys *System) applyOperator(dx, out []float64) {
	dt := sys.world.Dt
	tmp := make([]float64, sys.n)
	for _, obj := range sys.objects {
		off, blk := obj.Offset(), obj.Dim()*obj.NumPoints()
		obj.AddRigidity(dx[off:off+blk], tmp[off:off+blk])
	}
	sys.linksMulAdd(dx, tmp)

	copy(out, dx)
	y := make([]float64, sys.n)
	for _, obj := range sys.objects {
		off, blk := obj.Offset(), obj.Dim()*obj.NumPoints()
		obj.SetSpeedsFromForces(tmp[off:off+blk], y[off:off+blk], -dt, false)
		obj.AddProjectionDiff(dx[off:off+blk], y[off:off+blk])
	}
	for i := range out {
		out[i] += y[i]
	}
}

// linksMulAdd adds mB*x to out, applying the same symmetric stiffness
// pairs stamped by assembleMB directly from sys.links rather than
// through a sparse matrix-vector product, since every link touches at
// most two coordinates.
func (sys *System) linksMulAdd(x, out []float64) {
	for _, lk := range sys.links {
		if lk.j < 0 {
			out[lk.i] -= lk.stiffness * x[lk.i]
			continue
		}
		d := x[lk.i] - x[lk.j]
		out[lk.i] -= lk.stiffness * d
		out[lk.j] += lk.stiffness * d
	}
}
