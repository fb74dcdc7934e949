package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nedelec/cytosim-2017-sub000/binder"
	"github.com/nedelec/cytosim-2017-sub000/body"
	"github.com/nedelec/cytosim-2017-sub000/config"
	"github.com/nedelec/cytosim-2017-sub000/fiber"
	"github.com/nedelec/cytosim-2017-sub000/rng"
)

func newTestWorld(t *testing.T) *config.World {
	t.Helper()
	w := &config.World{Dt: 0.001, Viscosity: 1.0, KT: 0}
	config.NewCatalog(w)
	return w
}

func newFiberClass(t *testing.T, w *config.World) *fiber.Class {
	t.Helper()
	rec := w.Catalog().Add(w, "fiber", "actin", map[string]interface{}{
		"rigidity": 0.07, "segmentation": 1.0, "radius": 0.01,
	})
	cl, err := fiber.NewClass("actin", rec)
	require.NoError(t, err)
	return cl
}

func unitBox() Box {
	return Box{Lo: []float64{-20, -20, -20}, Hi: []float64{20, 20, 20}, Periodic: []bool{false, false, false}}
}

func TestStepPreservesFiberSegmentationWithNoBinders(t *testing.T) {
	w := newTestWorld(t)
	fc := newFiberClass(t, w)
	src := rng.New(1)
	f, err := fiber.New(fc, w, src, 3, 5.0, []float64{0, 0, 0}, []float64{1, 0, 0}, fiber.MinusEnd)
	require.NoError(t, err)

	d := NewDriver(w, src, unitBox(), 0.5, 1.0, Steric{RangeMax: 0.1, PushK: 10, PullK: 0})
	d.AddFiber(f)

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Step())
	}

	h := f.Segmentation()
	for s := 0; s < f.NumPoints()-1; s++ {
		a, b := f.Point(s), f.Point(s+1)
		dist := 0.0
		for c := 0; c < 3; c++ {
			dx := a[c] - b[c]
			dist += dx * dx
		}
		require.InDelta(t, h*h, dist, 1e-6)
	}
}

func TestSingleAttachesAndRelaxesTowardFiber(t *testing.T) {
	w := newTestWorld(t)
	fc := newFiberClass(t, w)
	src := rng.New(2)
	f, err := fiber.New(fc, w, src, 3, 5.0, []float64{0, 0, 0}, []float64{1, 0, 0}, fiber.MinusEnd)
	require.NoError(t, err)

	hrec := w.Catalog().Add(w, "hand", "kinesin", map[string]interface{}{
		"range": 0.6, "rate": 1e6, "unbind_rate": 0.0,
	})
	hc, err := binder.NewHandClass("kinesin", hrec)
	require.NoError(t, err)
	srec := w.Catalog().Add(w, "single", "s", map[string]interface{}{"stiffness": 50.0, "radius": 0.02})
	sc, err := binder.NewSingleClass("s", hc, srec)
	require.NoError(t, err)
	set := binder.NewSingleSet(sc)
	single, err := binder.NewSingle(sc, w, src, 3, []float64{2.0, 0.3, 0}, set, nil)
	require.NoError(t, err)

	d := NewDriver(w, src, unitBox(), 0.6, 1.0, Steric{RangeMax: 0.1, PushK: 10, PullK: 0})
	d.AddFiber(f)
	d.AddSingle(single)

	startDist := math.Abs(single.Points()[1])
	for i := 0; i < 50 && !single.Hand().Attached(); i++ {
		require.NoError(t, d.Step())
	}
	require.True(t, single.Hand().Attached())

	for i := 0; i < 20; i++ {
		require.NoError(t, d.Step())
	}
	endDist := math.Abs(single.Points()[1])
	require.Less(t, endDist, startDist)
}

func TestOverlappingBeadsPushedApart(t *testing.T) {
	w := newTestWorld(t)
	rec := w.Catalog().Add(w, "bead", "b", map[string]interface{}{})
	cl := body.NewClass("b", rec)
	src := rng.New(3)

	b1, err := body.NewBead(cl, w, src, 3, []float64{0, 0, 0}, 1.0, nil)
	require.NoError(t, err)
	b2, err := body.NewBead(cl, w, src, 3, []float64{1.0, 0, 0}, 1.0, nil)
	require.NoError(t, err)

	d := NewDriver(w, src, unitBox(), 0.5, 1.0, Steric{RangeMax: 0.2, PushK: 200, PullK: 0})
	d.AddBead(b1)
	d.AddBead(b2)

	require.NoError(t, d.Step())

	sep := math.Abs(b2.Points()[0] - b1.Points()[0])
	require.Greater(t, sep, 1.0)
}

func TestCutCarriesAttachedHandOntoDistalFilament(t *testing.T) {
	w := newTestWorld(t)
	fc := newFiberClass(t, w)
	src := rng.New(4)
	f, err := fiber.New(fc, w, src, 3, 5.0, []float64{0, 0, 0}, []float64{1, 0, 0}, fiber.MinusEnd)
	require.NoError(t, err)

	hrec := w.Catalog().Add(w, "hand", "kinesin", map[string]interface{}{
		"range": 0.5, "rate": 1.0, "unbind_rate": 0.0,
	})
	hc, err := binder.NewHandClass("kinesin", hrec)
	require.NoError(t, err)
	srec := w.Catalog().Add(w, "single", "s", map[string]interface{}{"stiffness": 50.0, "radius": 0.02})
	sc, err := binder.NewSingleClass("s", hc, srec)
	require.NoError(t, err)
	set := binder.NewSingleSet(sc)
	single, err := binder.NewSingle(sc, w, src, 3, []float64{3.0, 0, 0}, set, nil)
	require.NoError(t, err)
	require.NoError(t, single.Attach(f, 3.0))

	d := NewDriver(w, src, unitBox(), 0.5, 1.0, Steric{RangeMax: 0.1, PushK: 10, PullK: 0})
	d.AddFiber(f)
	d.AddSingle(single)

	f.QueueCut(2.0)
	require.NoError(t, d.Step())

	require.True(t, single.Hand().Attached())
	require.NotEqual(t, f, single.Hand().Fiber())
	require.InDelta(t, 3.0, single.Hand().Abscissa(), 1e-9)
	require.Equal(t, 2, len(d.Fibers()))
}
