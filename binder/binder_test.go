package binder

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nedelec/cytosim-2017-sub000/config"
	"github.com/nedelec/cytosim-2017-sub000/fiber"
	"github.com/nedelec/cytosim-2017-sub000/grid"
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

func newHandClass(t *testing.T, w *config.World, name string, bindKey uint32) *HandClass {
	t.Helper()
	rec := w.Catalog().Add(w, "hand", name, map[string]interface{}{
		"range": 0.5, "rate": 1.0, "unbind_rate": 0.2, "bind_key": float64(bindKey),
	})
	hc, err := NewHandClass(name, rec)
	require.NoError(t, err)
	return hc
}

func TestDetachProbabilityIncreasesWithForce(t *testing.T) {
	w := newTestWorld(t)
	rec := w.Catalog().Add(w, "hand", "motor", map[string]interface{}{
		"range": 0.5, "rate": 1.0, "unbind_rate": 0.1, "unbind_force": 2.0,
	})
	hc, err := NewHandClass("motor", rec)
	require.NoError(t, err)

	low := hc.detachProbability(1.0, 0)
	high := hc.detachProbability(1.0, 10)
	require.Greater(t, high, low)
}

func TestSingleAttachAndDetachMovesLists(t *testing.T) {
	w := newTestWorld(t)
	fc := newFiberClass(t, w)
	src := rng.New(1)
	f, err := fiber.New(fc, w, src, 3, 5.0, []float64{0, 0, 0}, []float64{1, 0, 0}, fiber.MinusEnd)
	require.NoError(t, err)

	hc := newHandClass(t, w, "kinesin", 1)
	rec := w.Catalog().Add(w, "single", "s", map[string]interface{}{"stiffness": 50.0})
	sc, err := NewSingleClass("s", hc, rec)
	require.NoError(t, err)

	set := NewSingleSet(sc)
	single, err := NewSingle(sc, w, src, 3, []float64{0, 0, 0}, set, nil)
	require.NoError(t, err)
	require.Equal(t, 1, set.Free.Size())
	require.Equal(t, 0, set.Attached.Size())

	require.NoError(t, single.Attach(f, 1.0))
	require.Equal(t, 0, set.Free.Size())
	require.Equal(t, 1, set.Attached.Size())
	require.True(t, single.Hand().Attached())

	springs := single.ConfinementSprings(0)
	require.Len(t, springs, 1)
	require.Equal(t, f.PosAtAbscissa(1.0), springs[0].Target)
	require.Equal(t, 50.0, springs[0].Stiffness)

	require.NoError(t, single.Detach())
	require.Equal(t, 1, set.Free.Size())
	require.Equal(t, 0, set.Attached.Size())
	require.False(t, single.Hand().Attached())
	require.Nil(t, single.ConfinementSprings(0))
}

func TestSingleTryAttachRespectsBindKey(t *testing.T) {
	w := newTestWorld(t)
	fc := newFiberClass(t, w)
	src := rng.New(2)
	f, err := fiber.New(fc, w, src, 3, 5.0, []float64{0, 0, 0}, []float64{1, 0, 0}, fiber.MinusEnd)
	require.NoError(t, err)

	hc := newHandClass(t, w, "kinesin", 0b01)
	rec := w.Catalog().Add(w, "single", "s", map[string]interface{}{"stiffness": 50.0})
	sc, err := NewSingleClass("s", hc, rec)
	require.NoError(t, err)
	set := NewSingleSet(sc)
	single, err := NewSingle(sc, w, src, 3, []float64{0, 0, 0}, set, nil)
	require.NoError(t, err)

	cands := []grid.AttachCandidate{{FiberID: 99, Index: 0, Frac: 0.5, Distance: 0.1}}

	// mismatched key: fiber's bind key shares no bits with the hand's.
	require.NoError(t, single.TryAttach(cands, func(id int) (*fiber.Filament, uint32) { return f, 0b10 }))
	require.False(t, single.Hand().Attached())

	// matching key: attaches.
	require.NoError(t, single.TryAttach(cands, func(id int) (*fiber.Filament, uint32) { return f, 0b01 }))
	require.True(t, single.Hand().Attached())
	require.Equal(t, f, single.Hand().Fiber())
}

func TestCoupleTransitionsThroughFreeAttachedBridging(t *testing.T) {
	w := newTestWorld(t)
	fc := newFiberClass(t, w)
	src := rng.New(3)
	f1, err := fiber.New(fc, w, src, 3, 5.0, []float64{0, 0, 0}, []float64{1, 0, 0}, fiber.MinusEnd)
	require.NoError(t, err)
	f2, err := fiber.New(fc, w, src, 3, 5.0, []float64{0, 3, 0}, []float64{1, 0, 0}, fiber.MinusEnd)
	require.NoError(t, err)

	h1 := newHandClass(t, w, "h1", 1)
	h2 := newHandClass(t, w, "h2", 1)
	rec := w.Catalog().Add(w, "couple", "c", map[string]interface{}{
		"stiffness": 10.0, "bridge_stiffness": 100.0,
	})
	cc, err := NewCoupleClass("c", h1, h2, rec)
	require.NoError(t, err)

	set := NewCoupleSet(cc)
	couple, err := NewCouple(cc, w, src, 3, []float64{0, 1.5, 0}, set, nil)
	require.NoError(t, err)
	require.Equal(t, 1, set.Free.Size())

	require.NoError(t, couple.Attach1(f1, 1.0))
	require.Equal(t, 0, set.Free.Size())
	require.Equal(t, 1, set.Attached.Size())
	require.False(t, couple.Bridging())
	springs := couple.ConfinementSprings(0)
	require.Len(t, springs, 1)

	require.NoError(t, couple.Attach2(f2, 1.0))
	require.Equal(t, 0, set.Attached.Size())
	require.Equal(t, 1, set.Bridging.Size())
	require.True(t, couple.Bridging())
	require.Nil(t, couple.ConfinementSprings(0))

	bf1, p1, bf2, p2, stiff, _, ok := couple.BridgePoints()
	require.True(t, ok)
	require.Equal(t, f1, bf1)
	require.Equal(t, f2, bf2)
	require.GreaterOrEqual(t, p1, 0)
	require.GreaterOrEqual(t, p2, 0)
	require.Equal(t, 100.0, stiff)

	require.NoError(t, couple.Detach2())
	require.Equal(t, 1, set.Attached.Size())
	require.Equal(t, 0, set.Bridging.Size())

	require.NoError(t, couple.Detach1())
	require.Equal(t, 1, set.Free.Size())
	require.Equal(t, 0, set.Attached.Size())
}

type countingMonitor struct {
	after, before, afterDetach int
}

func (m *countingMonitor) AfterAttachment(owner interface{})  { m.after++ }
func (m *countingMonitor) BeforeDetachment(owner interface{}) { m.before++ }
func (m *countingMonitor) AfterDetachment(owner interface{})  { m.afterDetach++ }

func TestSingleMonitorHooksFire(t *testing.T) {
	w := newTestWorld(t)
	fc := newFiberClass(t, w)
	src := rng.New(4)
	f, err := fiber.New(fc, w, src, 3, 5.0, []float64{0, 0, 0}, []float64{1, 0, 0}, fiber.MinusEnd)
	require.NoError(t, err)

	hc := newHandClass(t, w, "kinesin", 1)
	rec := w.Catalog().Add(w, "single", "s", map[string]interface{}{"stiffness": 50.0})
	sc, err := NewSingleClass("s", hc, rec)
	require.NoError(t, err)
	set := NewSingleSet(sc)
	mon := &countingMonitor{}
	single, err := NewSingle(sc, w, src, 3, []float64{0, 0, 0}, set, mon)
	require.NoError(t, err)

	require.NoError(t, single.Attach(f, 1.0))
	require.Equal(t, 1, mon.after)
	require.NoError(t, single.Detach())
	require.Equal(t, 1, mon.before)
	require.Equal(t, 1, mon.afterDetach)
}
