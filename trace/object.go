package trace

import (
	"github.com/nedelec/cytosim-2017-sub000/binder"
	"github.com/nedelec/cytosim-2017-sub000/body"
	"github.com/nedelec/cytosim-2017-sub000/fiber"
	"github.com/nedelec/cytosim-2017-sub000/objset"
	"github.com/nedelec/cytosim-2017-sub000/simerr"
)

// Resolver is the "simul" back-reference of spec.md §6's read(source,
// simul) contract: a frame reader needs a way to turn a persisted fiber
// serial number back into the live *fiber.Filament it names, so a
// binder hand's attachment can be restored without trace owning a
// global fiber registry itself.
type Resolver interface {
	FiberByNumber(objset.Number) (*fiber.Filament, bool)
}

// WriteFiber writes a fiber record: tag, property index, serial, point
// coordinates, and the persistent tension array (spec.md §6, "tension
// array (if persisted)").
func WriteFiber(sink *Sink, propIdx int, f *fiber.Filament) {
	sink.WriteU8(uint8(TagFiber))
	sink.WriteU16(uint16(propIdx))
	sink.WriteU32(uint32(f.Number()))
	sink.WriteFloat64Slice(f.Points())
	n := f.NumPoints() - 1
	tension := make([]float64, n)
	for i := 0; i < n; i++ {
		tension[i] = f.Tension(i)
	}
	sink.WriteFloat64Slice(tension)
}

// FiberRecord is the decoded payload of a fiber record. The tension
// array is informational only: it is not restored onto a live Filament
// because it is recomputed from positions by the next solve, never a
// control input (spec.md §4.1).
type FiberRecord struct {
	PropIdx int
	Serial  objset.Number
	Points  []float64
	Tension []float64
}

// ReadFiber decodes a fiber record whose tag has already been consumed
// by the caller via PeekTag.
func ReadFiber(source *Source) FiberRecord {
	propIdx := int(source.ReadU16())
	serial := objset.Number(source.ReadU32())
	pts := source.ReadFloat64Slice()
	tension := source.ReadFloat64Slice()
	return FiberRecord{PropIdx: propIdx, Serial: serial, Points: pts, Tension: tension}
}

// ApplyTo copies the decoded point coordinates onto f, the live Filament
// with matching serial number. Returns an InputError if the point count
// does not match f's own, per spec.md §7's "truncated or malformed" case.
func (r FiberRecord) ApplyTo(f *fiber.Filament) error {
	if len(r.Points) != len(f.Points()) {
		return &simerr.InputError{Reason: "fiber record point count does not match filament"}
	}
	for p := 0; p < f.NumPoints(); p++ {
		copy(f.Point(p), r.Points[f.Dim()*p:f.Dim()*(p+1)])
	}
	return nil
}

// WriteBead writes a bead record: tag, property index, serial, position.
func WriteBead(sink *Sink, propIdx int, b *body.Bead) {
	sink.WriteU8(uint8(TagBead))
	sink.WriteU16(uint16(propIdx))
	sink.WriteU32(uint32(b.Number()))
	sink.WriteFloat64Slice(b.Points())
}

// BeadRecord is the decoded payload of a bead record.
type BeadRecord struct {
	PropIdx int
	Serial  objset.Number
	Points  []float64
}

// ReadBead decodes a bead record whose tag has already been consumed.
func ReadBead(source *Source) BeadRecord {
	propIdx := int(source.ReadU16())
	serial := objset.Number(source.ReadU32())
	pts := source.ReadFloat64Slice()
	return BeadRecord{PropIdx: propIdx, Serial: serial, Points: pts}
}

// ApplyTo copies the decoded position onto b. Returns an InputError on
// a point-count mismatch.
func (r BeadRecord) ApplyTo(b *body.Bead) error {
	if len(r.Points) != len(b.Points()) {
		return &simerr.InputError{Reason: "bead record point count does not match bead"}
	}
	copy(b.Points(), r.Points)
	return nil
}

// WriteSolid writes a solid record: tag, property index, serial, all
// point coordinates.
func WriteSolid(sink *Sink, propIdx int, s *body.Solid) {
	sink.WriteU8(uint8(TagSolid))
	sink.WriteU16(uint16(propIdx))
	sink.WriteU32(uint32(s.Number()))
	sink.WriteFloat64Slice(s.Points())
}

// SolidRecord is the decoded payload of a solid record.
type SolidRecord struct {
	PropIdx int
	Serial  objset.Number
	Points  []float64
}

// ReadSolid decodes a solid record whose tag has already been consumed.
func ReadSolid(source *Source) SolidRecord {
	propIdx := int(source.ReadU16())
	serial := objset.Number(source.ReadU32())
	pts := source.ReadFloat64Slice()
	return SolidRecord{PropIdx: propIdx, Serial: serial, Points: pts}
}

// ApplyTo copies the decoded point coordinates onto s. Returns an
// InputError on a point-count mismatch.
func (r SolidRecord) ApplyTo(s *body.Solid) error {
	if len(r.Points) != len(s.Points()) {
		return &simerr.InputError{Reason: "solid record point count does not match solid"}
	}
	copy(s.Points(), r.Points)
	return nil
}

// WriteSingle writes a single record: tag, property index, serial, own
// position, and the binder state (whether the hand is attached, and if
// so the attached fiber's serial number and abscissa) per spec.md §6's
// "point coordinates, binder state".
func WriteSingle(sink *Sink, propIdx int, s *binder.Single) {
	sink.WriteU8(uint8(TagSingle))
	sink.WriteU16(uint16(propIdx))
	sink.WriteU32(uint32(s.Number()))
	sink.WriteFloat64Slice(s.Points())
	writeHandState(sink, s.Hand())
}

func writeHandState(sink *Sink, h *binder.Hand) {
	if !h.Attached() {
		sink.WriteU8(0)
		return
	}
	sink.WriteU8(1)
	sink.WriteU32(uint32(h.Fiber().Number()))
	sink.WriteFloat64(h.Abscissa())
}

// handState is the decoded form of one hand's attachment.
type handState struct {
	attached bool
	fiber    objset.Number
	absc     float64
}

func readHandState(source *Source) handState {
	if source.ReadU8() == 0 {
		return handState{}
	}
	return handState{attached: true, fiber: objset.Number(source.ReadU32()), absc: source.ReadFloat64()}
}

// SingleRecord is the decoded payload of a single record.
type SingleRecord struct {
	PropIdx int
	Serial  objset.Number
	Points  []float64
	hand    handState
}

// ReadSingle decodes a single record whose tag has already been consumed.
func ReadSingle(source *Source) SingleRecord {
	propIdx := int(source.ReadU16())
	serial := objset.Number(source.ReadU32())
	pts := source.ReadFloat64Slice()
	hand := readHandState(source)
	return SingleRecord{PropIdx: propIdx, Serial: serial, Points: pts, hand: hand}
}

// ApplyTo copies the decoded position onto s and reattaches its hand
// via resolver if the record says it was bound, silently dropping the
// attachment if resolver cannot find the fiber (mirrors spec.md §7's
// "attachment/detachment engine never throws from within the
// iteration; failures to bind are silent").
func (r SingleRecord) ApplyTo(s *binder.Single, resolver Resolver) error {
	if len(r.Points) != len(s.Points()) {
		return &simerr.InputError{Reason: "single record point count does not match single"}
	}
	copy(s.Points(), r.Points)
	if !r.hand.attached || s.Hand().Attached() {
		return nil
	}
	f, ok := resolver.FiberByNumber(r.hand.fiber)
	if !ok {
		return nil
	}
	return s.Attach(f, r.hand.absc)
}

// WriteCouple writes a couple record: tag, property index, serial, own
// position, and both hands' binder state.
func WriteCouple(sink *Sink, propIdx int, c *binder.Couple) {
	sink.WriteU8(uint8(TagCouple))
	sink.WriteU16(uint16(propIdx))
	sink.WriteU32(uint32(c.Number()))
	sink.WriteFloat64Slice(c.Points())
	writeHandState(sink, c.Hand1())
	writeHandState(sink, c.Hand2())
}

// CoupleRecord is the decoded payload of a couple record.
type CoupleRecord struct {
	PropIdx      int
	Serial       objset.Number
	Points       []float64
	hand1, hand2 handState
}

// ReadCouple decodes a couple record whose tag has already been consumed.
func ReadCouple(source *Source) CoupleRecord {
	propIdx := int(source.ReadU16())
	serial := objset.Number(source.ReadU32())
	pts := source.ReadFloat64Slice()
	h1 := readHandState(source)
	h2 := readHandState(source)
	return CoupleRecord{PropIdx: propIdx, Serial: serial, Points: pts, hand1: h1, hand2: h2}
}

// ApplyTo copies the decoded position onto c and reattaches each hand
// via resolver, same silent-drop policy as SingleRecord.ApplyTo.
func (r CoupleRecord) ApplyTo(c *binder.Couple, resolver Resolver) error {
	if len(r.Points) != len(c.Points()) {
		return &simerr.InputError{Reason: "couple record point count does not match couple"}
	}
	copy(c.Points(), r.Points)
	if r.hand1.attached && !c.Hand1().Attached() {
		if f, ok := resolver.FiberByNumber(r.hand1.fiber); ok {
			if err := c.Attach1(f, r.hand1.absc); err != nil {
				return err
			}
		}
	}
	if r.hand2.attached && !c.Hand2().Attached() {
		if f, ok := resolver.FiberByNumber(r.hand2.fiber); ok {
			if err := c.Attach2(f, r.hand2.absc); err != nil {
				return err
			}
		}
	}
	return nil
}
