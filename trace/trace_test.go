package trace

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nedelec/cytosim-2017-sub000/binder"
	"github.com/nedelec/cytosim-2017-sub000/body"
	"github.com/nedelec/cytosim-2017-sub000/config"
	"github.com/nedelec/cytosim-2017-sub000/fiber"
	"github.com/nedelec/cytosim-2017-sub000/objset"
	"github.com/nedelec/cytosim-2017-sub000/rng"
)

func newTestWorld(t *testing.T) *config.World {
	t.Helper()
	w := &config.World{Dt: 0.001, Viscosity: 1.0, KT: 0}
	config.NewCatalog(w)
	return w
}

func TestRefFormatRoundTrips(t *testing.T) {
	r := Ref{Tag: TagCouple, PropIdx: 2, Serial: objset.Number(17), Mark: -1}
	require.Equal(t, "c2:17", r.String())
	got, err := ParseRef(r.String())
	require.NoError(t, err)
	require.Equal(t, r, got)

	withMark := Ref{Tag: TagFiber, PropIdx: 0, Serial: objset.Number(5), Mark: 3}
	require.Equal(t, "f0:5:3", withMark.String())
	got2, err := ParseRef(withMark.String())
	require.NoError(t, err)
	require.Equal(t, withMark, got2)
}

func TestParseRefRejectsUnknownLetter(t *testing.T) {
	_, err := ParseRef("z0:1")
	require.Error(t, err)
}

func TestHeaderRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf)
	WriteHeader(sink, Header{Time: 12.5, Format: FormatID})
	require.NoError(t, sink.Err())

	source := NewSource(&buf)
	h, err := ReadHeader(source)
	require.NoError(t, err)
	require.InDelta(t, 12.5, h.Time, 1e-12)
	require.Equal(t, FormatID, h.Format)
}

func TestHeaderRejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf)
	WriteHeader(sink, Header{Time: 0, Format: FormatID + 1})
	_, err := ReadHeader(NewSource(&buf))
	require.Error(t, err)
}

func TestFiberRecordRoundTrip(t *testing.T) {
	w := newTestWorld(t)
	rec := w.Catalog().Add(w, "fiber", "actin", map[string]interface{}{
		"rigidity": 0.07, "segmentation": 1.0, "radius": 0.01,
	})
	cl, err := fiber.NewClass("actin", rec)
	require.NoError(t, err)
	src := rng.New(1)
	f, err := fiber.New(cl, w, src, 3, 5.0, []float64{0, 0, 0}, []float64{1, 0, 0}, fiber.MinusEnd)
	require.NoError(t, err)
	f.SetNumber(objset.Number(7))

	var buf bytes.Buffer
	sink := NewSink(&buf)
	WriteFiber(sink, 0, f)
	require.NoError(t, sink.Err())

	source := NewSource(&buf)
	tag := PeekTag(source)
	require.Equal(t, TagFiber, tag)
	got := ReadFiber(source)
	require.NoError(t, source.Err())
	require.Equal(t, objset.Number(7), got.Serial)
	require.Equal(t, f.Points(), got.Points)
	require.Len(t, got.Tension, f.NumPoints()-1)

	// mutate the live filament, then restore from the decoded record.
	f.SetPoint(0, []float64{99, 99, 99})
	require.NoError(t, got.ApplyTo(f))
	require.Equal(t, []float64{0, 0, 0}, f.Point(0))
}

func TestFiberRecordApplyRejectsLengthMismatch(t *testing.T) {
	w := newTestWorld(t)
	rec := w.Catalog().Add(w, "fiber", "actin", map[string]interface{}{
		"rigidity": 0.07, "segmentation": 1.0, "radius": 0.01,
	})
	cl, err := fiber.NewClass("actin", rec)
	require.NoError(t, err)
	src := rng.New(2)
	f, err := fiber.New(cl, w, src, 3, 5.0, []float64{0, 0, 0}, []float64{1, 0, 0}, fiber.MinusEnd)
	require.NoError(t, err)

	bad := FiberRecord{Points: []float64{1, 2, 3}}
	require.Error(t, bad.ApplyTo(f))
}

type fiberResolver map[objset.Number]*fiber.Filament

func (m fiberResolver) FiberByNumber(n objset.Number) (*fiber.Filament, bool) {
	f, ok := m[n]
	return f, ok
}

func TestSingleRecordRoundTripRestoresAttachment(t *testing.T) {
	w := newTestWorld(t)
	frec := w.Catalog().Add(w, "fiber", "actin", map[string]interface{}{
		"rigidity": 0.07, "segmentation": 1.0, "radius": 0.01,
	})
	fc, err := fiber.NewClass("actin", frec)
	require.NoError(t, err)
	src := rng.New(3)
	f, err := fiber.New(fc, w, src, 3, 5.0, []float64{0, 0, 0}, []float64{1, 0, 0}, fiber.MinusEnd)
	require.NoError(t, err)
	f.SetNumber(objset.Number(42))

	hrec := w.Catalog().Add(w, "hand", "kinesin", map[string]interface{}{
		"range": 0.5, "rate": 1.0, "unbind_rate": 0.1,
	})
	hc, err := binder.NewHandClass("kinesin", hrec)
	require.NoError(t, err)
	srec := w.Catalog().Add(w, "single", "s", map[string]interface{}{"stiffness": 50.0})
	sc, err := binder.NewSingleClass("s", hc, srec)
	require.NoError(t, err)
	set := binder.NewSingleSet(sc)
	single, err := binder.NewSingle(sc, w, src, 3, []float64{0, 0, 0}, set, nil)
	require.NoError(t, err)
	require.NoError(t, single.Attach(f, 2.0))

	var buf bytes.Buffer
	sink := NewSink(&buf)
	WriteSingle(sink, 0, single)
	require.NoError(t, sink.Err())

	source := NewSource(&buf)
	require.Equal(t, TagSingle, PeekTag(source))
	got := ReadSingle(source)
	require.NoError(t, source.Err())

	// reconstruct a fresh, unattached Single and restore it from the record.
	set2 := binder.NewSingleSet(sc)
	fresh, err := binder.NewSingle(sc, w, src, 3, []float64{0, 0, 0}, set2, nil)
	require.NoError(t, err)
	resolver := fiberResolver{objset.Number(42): f}
	require.NoError(t, got.ApplyTo(fresh, resolver))
	require.True(t, fresh.Hand().Attached())
	require.Equal(t, f, fresh.Hand().Fiber())
	require.InDelta(t, 2.0, fresh.Hand().Abscissa(), 1e-12)
}

func TestSingleRecordApplySilentlyDropsUnresolvedFiber(t *testing.T) {
	w := newTestWorld(t)
	hrec := w.Catalog().Add(w, "hand", "kinesin", map[string]interface{}{
		"range": 0.5, "rate": 1.0, "unbind_rate": 0.1,
	})
	hc, err := binder.NewHandClass("kinesin", hrec)
	require.NoError(t, err)
	srec := w.Catalog().Add(w, "single", "s", map[string]interface{}{"stiffness": 50.0})
	sc, err := binder.NewSingleClass("s", hc, srec)
	require.NoError(t, err)
	set := binder.NewSingleSet(sc)
	src := rng.New(4)
	single, err := binder.NewSingle(sc, w, src, 3, []float64{0, 0, 0}, set, nil)
	require.NoError(t, err)

	rec := SingleRecord{Points: []float64{1, 2, 3}, hand: handState{attached: true, fiber: objset.Number(999), absc: 1.0}}
	require.NoError(t, rec.ApplyTo(single, fiberResolver{}))
	require.False(t, single.Hand().Attached())
	require.Equal(t, []float64{1, 2, 3}, single.Points())
}

func TestBeadRecordRoundTrip(t *testing.T) {
	w := newTestWorld(t)
	rec := w.Catalog().Add(w, "bead", "b", map[string]interface{}{})
	cl := body.NewClass("b", rec)
	src := rng.New(5)
	b, err := body.NewBead(cl, w, src, 3, []float64{1, 2, 3}, 0.5, nil)
	require.NoError(t, err)
	b.SetNumber(objset.Number(9))

	var buf bytes.Buffer
	sink := NewSink(&buf)
	WriteBead(sink, 1, b)
	require.NoError(t, sink.Err())

	source := NewSource(&buf)
	require.Equal(t, TagBead, PeekTag(source))
	got := ReadBead(source)
	require.NoError(t, source.Err())
	require.Equal(t, objset.Number(9), got.Serial)
	require.Equal(t, []float64{1, 2, 3}, got.Points)

	b.Points()[0] = -1
	require.NoError(t, got.ApplyTo(b))
	require.Equal(t, []float64{1, 2, 3}, b.Points())
}

func TestSolidRecordRoundTrip(t *testing.T) {
	w := newTestWorld(t)
	rec := w.Catalog().Add(w, "solid", "s", map[string]interface{}{})
	cl := body.NewClass("s", rec)
	src := rng.New(6)
	pts := []float64{0, 0, 0, 1, 0, 0}
	s, err := body.NewSolid(cl, w, src, 3, pts, []float64{1, 1}, nil)
	require.NoError(t, err)
	s.SetNumber(objset.Number(3))

	var buf bytes.Buffer
	sink := NewSink(&buf)
	WriteSolid(sink, 0, s)
	require.NoError(t, sink.Err())

	source := NewSource(&buf)
	require.Equal(t, TagSolid, PeekTag(source))
	got := ReadSolid(source)
	require.NoError(t, source.Err())
	require.Equal(t, pts, got.Points)

	s.Points()[0] = 42
	require.NoError(t, got.ApplyTo(s))
	require.Equal(t, pts, s.Points())
}

func TestEndOfFrameSentinel(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink(&buf)
	WriteEndOfFrame(sink)
	source := NewSource(&buf)
	require.Equal(t, EndOfFrame, PeekTag(source))
}
