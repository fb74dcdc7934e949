package fiber

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nedelec/cytosim-2017-sub000/config"
	"github.com/nedelec/cytosim-2017-sub000/rng"
)

func newTestWorld() *config.World {
	w := &config.World{Dt: 0.001, Viscosity: 1.0, KT: 0.0042}
	config.NewCatalog(w)
	return w
}

func newTestClass(t *testing.T, values map[string]interface{}) *Class {
	t.Helper()
	w := newTestWorld()
	rec := w.Catalog().Add(w, "fiber", "actin", values)
	cl, err := NewClass("actin", rec)
	require.NoError(t, err)
	return cl
}

func defaultClassValues() map[string]interface{} {
	return map[string]interface{}{
		"rigidity":     0.07,
		"segmentation": 0.1,
		"radius":       0.0125,
	}
}

func TestNewClassRequiresRigidityAndSegmentation(t *testing.T) {
	w := newTestWorld()
	rec := w.Catalog().Add(w, "fiber", "actin", map[string]interface{}{"segmentation": 0.1})
	_, err := NewClass("actin", rec)
	require.Error(t, err)
}

func TestNewStraightFiberHasEqualSegments(t *testing.T) {
	cl := newTestClass(t, defaultClassValues())
	src := rng.New(1)
	w := cl.Record.World

	f, err := New(cl, w, src, 3, 1.0, []float64{0, 0, 0}, []float64{1, 0, 0}, MinusEnd)
	require.NoError(t, err)

	require.InDelta(t, 1.0, f.Length(), 1e-9)
	for p := 0; p < f.NumPoints()-1; p++ {
		a, b := f.Point(p), f.Point(p+1)
		d := 0.0
		for c := 0; c < 3; c++ {
			dx := b[c] - a[c]
			d += dx * dx
		}
		require.InDelta(t, f.Segmentation(), math.Sqrt(d), 1e-9)
	}
}

func TestNewFiberRefEndPlacement(t *testing.T) {
	cl := newTestClass(t, defaultClassValues())
	src := rng.New(2)
	w := cl.Record.World

	fPlus, err := New(cl, w, src, 3, 1.0, []float64{1, 0, 0}, []float64{1, 0, 0}, PlusEnd)
	require.NoError(t, err)
	last := fPlus.Point(fPlus.NumPoints() - 1)
	require.InDelta(t, 1.0, last[0], 1e-9)
	require.InDelta(t, 0.0, last[1], 1e-9)

	fCenter, err := New(cl, w, src, 3, 2.0, []float64{0, 0, 0}, []float64{1, 0, 0}, Center)
	require.NoError(t, err)
	first := fCenter.Point(0)
	require.InDelta(t, -1.0, first[0], 1e-9)
}

func TestNewFiberRejectsZeroDirectionAndLength(t *testing.T) {
	cl := newTestClass(t, defaultClassValues())
	src := rng.New(3)
	w := cl.Record.World

	_, err := New(cl, w, src, 3, 0, []float64{0, 0, 0}, []float64{1, 0, 0}, MinusEnd)
	require.Error(t, err)

	_, err = New(cl, w, src, 3, 1.0, []float64{0, 0, 0}, []float64{0, 0, 0}, MinusEnd)
	require.Error(t, err)
}

func TestDragModelFloorsAtSphereStokes(t *testing.T) {
	values := defaultClassValues()
	values["drag_model"] = "cylinder"
	cl := newTestClass(t, values)
	src := rng.New(4)
	w := cl.Record.World

	// a very short fiber should have its drag floored by the
	// sphere-equivalent Stokes drag, not go to zero or negative as the
	// log-based cylinder formula would for length ~ radius.
	f, err := New(cl, w, src, 3, 0.02, []float64{0, 0, 0}, []float64{1, 0, 0}, MinusEnd)
	require.NoError(t, err)

	floor := 6 * math.Pi * w.Viscosity * cl.Radius
	require.GreaterOrEqual(t, f.Drag(), floor-1e-12)
}

func TestOnGoodbyeNotifiesOnDestroy(t *testing.T) {
	cl := newTestClass(t, defaultClassValues())
	src := rng.New(5)
	w := cl.Record.World
	f, err := New(cl, w, src, 3, 1.0, []float64{0, 0, 0}, []float64{1, 0, 0}, MinusEnd)
	require.NoError(t, err)

	called := 0
	f.OnGoodbye(func(*Filament) { called++ })
	f.OnGoodbye(func(*Filament) { called++ })
	f.Destroy()
	require.Equal(t, 2, called)
}
