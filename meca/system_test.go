package meca

import (
	"math"
	"testing"

	"github.com/cpmech/gosl/la"
	"github.com/stretchr/testify/require"

	"github.com/nedelec/cytosim-2017-sub000/body"
	"github.com/nedelec/cytosim-2017-sub000/config"
	"github.com/nedelec/cytosim-2017-sub000/confine"
	"github.com/nedelec/cytosim-2017-sub000/mech"
	"github.com/nedelec/cytosim-2017-sub000/rng"
)

func newTestWorld(t *testing.T, dt, viscosity, kT float64) *config.World {
	t.Helper()
	w := &config.World{Dt: dt, Viscosity: viscosity, KT: kT}
	config.NewCatalog(w)
	return w
}

func newBeadClass(t *testing.T, w *config.World, values map[string]interface{}) *body.Class {
	t.Helper()
	rec := w.Catalog().Add(w, "bead", "b", values)
	return body.NewClass("b", rec)
}

func TestSolveSingleBeadRelaxesTowardTarget(t *testing.T) {
	w := newTestWorld(t, 0.01, 1.0, 0)
	cl := newBeadClass(t, w, nil)
	src := rng.New(1)
	b, err := body.NewBead(cl, w, src, 3, []float64{0, 0, 0}, 1.0, nil)
	require.NoError(t, err)

	sys := NewSystem(w, src)
	sys.Clear()
	sys.Add(b)
	require.NoError(t, sys.Prepare())

	target := []float64{2, -1, 0.5}
	k := 3.0
	sys.AddPointTarget(b.Offset(), b.Dim(), target, k)

	mu := 1.0 / b.Drag()
	dt := w.Dt
	before := append([]float64(nil), b.Points()...)

	require.NoError(t, sys.Solve())

	for c := 0; c < 3; c++ {
		rhs := dt * mu * k * (target[c] - before[c])
		wantDx := rhs / (1 + dt*mu*k)
		require.InDelta(t, before[c]+wantDx, b.Points()[c], 1e-9)
	}
}

func TestSolveTwoBeadsPairwiseSpringPullsTogether(t *testing.T) {
	w := newTestWorld(t, 0.001, 1.0, 0)
	cl := newBeadClass(t, w, nil)
	src := rng.New(2)
	a, err := body.NewBead(cl, w, src, 1, []float64{0}, 1.0, nil)
	require.NoError(t, err)
	c, err := body.NewBead(cl, w, src, 1, []float64{10}, 1.0, nil)
	require.NoError(t, err)

	sys := NewSystem(w, src)
	sys.Clear()
	sys.Add(a)
	sys.Add(c)
	require.NoError(t, sys.Prepare())
	sys.AddLink(a.Offset(), c.Offset(), 2.0, 0)

	require.NoError(t, sys.Solve())

	require.Greater(t, a.Points()[0], 0.0)
	require.Less(t, c.Points()[0], 10.0)
	require.InDelta(t, a.Points()[0], 10-c.Points()[0], 1e-9) // equal drag: symmetric approach
	require.Less(t, c.Points()[0]-a.Points()[0], 10.0)
}

func TestClearResetsOffsetAssignment(t *testing.T) {
	w := newTestWorld(t, 0.001, 1.0, 0)
	cl := newBeadClass(t, w, nil)
	src := rng.New(3)
	a, err := body.NewBead(cl, w, src, 3, []float64{0, 0, 0}, 1.0, nil)
	require.NoError(t, err)
	b, err := body.NewBead(cl, w, src, 3, []float64{0, 0, 0}, 1.0, nil)
	require.NoError(t, err)

	sys := NewSystem(w, src)
	sys.Clear()
	sys.Add(a)
	require.Equal(t, 0, a.Offset())
	sys.Add(b)
	require.Equal(t, 3, b.Offset())

	sys.Clear()
	require.Equal(t, 0, sys.n)
	sys.Add(b)
	require.Equal(t, 0, b.Offset())
}

type degenerateObject struct{ stub }

func (degenerateObject) Prepare() error {
	return &fakeErr{}
}

type fakeErr struct{}

func (*fakeErr) Error() string { return "degenerate" }

// stub implements every mech.Object method trivially so embedding types
// only need to override what a given test cares about.
type stub struct{}

func (stub) NumPoints() int                                      { return 1 }
func (stub) Dim() int                                            { return 1 }
func (stub) Drag() float64                                       { return 1 }
func (stub) Offset() int                                         { return 0 }
func (stub) SetOffset(int)                                       {}
func (stub) Points() []float64                                   { return []float64{0} }
func (stub) Prepare() error                                       { return nil }
func (stub) SetSpeedsFromForces(X, Y []float64, s float64, _ bool) {}
func (stub) AddRigidity(X, Y []float64)                           {}
func (stub) AddRigidityMatUp(*la.Triplet, int)                    {}
func (stub) AddProjectionDiff(X, Y []float64)                     {}
func (stub) AddBrownianForces(rhs []float64, sc float64) float64  { return 0 }
func (stub) UseBlock() bool                                       { return false }

func TestPrepareForwardsObjectError(t *testing.T) {
	w := newTestWorld(t, 0.001, 1.0, 0)
	src := rng.New(4)
	sys := NewSystem(w, src)
	sys.Clear()
	var obj mech.Object = degenerateObject{}
	sys.Add(obj)
	require.Error(t, sys.Prepare())
}

func TestAddConfinementSpringsFansOutCentroidSpringByPointWeight(t *testing.T) {
	w := newTestWorld(t, 0.001, 1.0, 0)
	rec := w.Catalog().Add(w, "solid", "s", map[string]interface{}{"confine": "inside", "confine_stiff": 10.0})
	cl := body.NewClass("s", rec)
	src := rng.New(5)
	surf := &confine.Sphere{Center: []float64{0, 0, 0}, Radius: 1}

	// two points, unequal Stokes radii: point 0 carries 3x the drag of
	// point 1, so a centroid-targeted spring should fan out 3:1.
	pts := []float64{5, 0, 0, 5, 2, 0}
	s, err := body.NewSolid(cl, w, src, 3, pts, []float64{3, 1}, surf)
	require.NoError(t, err)

	sys := NewSystem(w, src)
	sys.Clear()
	sys.Add(s)
	require.NoError(t, sys.Prepare())

	sys.AddConfinementSprings(0)
	require.Len(t, sys.links, 6) // 2 points * 3 Cartesian dims

	byPoint := map[int]float64{}
	for _, lk := range sys.links {
		local := lk.i - s.Offset()
		byPoint[local/3] += lk.stiffness
	}
	require.InDelta(t, 3.0/4.0, byPoint[0]/(3*10.0), 1e-9)
	require.InDelta(t, 1.0/4.0, byPoint[1]/(3*10.0), 1e-9)
}

func TestSolveConvergesForThreeBeadChain(t *testing.T) {
	w := newTestWorld(t, 0.001, 1.0, 0)
	cl := newBeadClass(t, w, nil)
	src := rng.New(6)
	p1, _ := body.NewBead(cl, w, src, 1, []float64{0}, 1.0, nil)
	p2, _ := body.NewBead(cl, w, src, 1, []float64{5}, 1.0, nil)
	p3, _ := body.NewBead(cl, w, src, 1, []float64{9}, 1.0, nil)

	sys := NewSystem(w, src)
	sys.Clear()
	sys.Add(p1)
	sys.Add(p2)
	sys.Add(p3)
	require.NoError(t, sys.Prepare())
	sys.AddLink(p1.Offset(), p2.Offset(), 1.0, 0)
	sys.AddLink(p2.Offset(), p3.Offset(), 1.0, 0)

	for i := 0; i < 20; i++ {
		require.NoError(t, sys.Solve())
	}

	// the chain should relax toward an evenly-spaced configuration
	// without diverging or going non-finite.
	require.False(t, math.IsNaN(p1.Points()[0]))
	require.Less(t, p1.Points()[0], p2.Points()[0])
	require.Less(t, p2.Points()[0], p3.Points()[0])
}
