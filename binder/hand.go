// Package binder implements the hand/single/couple state machine of
// spec.md §4.5: a hand is a (fiber, abscissa) binding site that
// transitions Free <-> Attached, and a Single/Couple owns one or two
// hands plus its own mechanical point, moved between per-class-keyed
// objset.List sets on every transition using the two-look-ahead safe
// iteration contract objset.List.Walk already provides.
package binder

import (
	"math"

	"github.com/nedelec/cytosim-2017-sub000/config"
	"github.com/nedelec/cytosim-2017-sub000/fiber"
)

// HandClass holds the per-class binding parameters read from the
// property catalog, mirroring fiber.Class's catalog-backed construction.
type HandClass struct {
	Name string

	Range float64 // r: maximum binding distance, spec.md §4.3
	Rate  float64 // bind attempt rate, events per unit time

	UnbindRate  float64 // base detachment hazard, per unit time
	UnbindForce float64 // characteristic force scale for load-dependent unbinding; 0 disables load dependence

	BindKey uint32 // class-level binding-key bitwise AND test of spec.md §4.3
}

// NewHandClass builds a HandClass from a catalog record.
func NewHandClass(name string, r *config.Record) (*HandClass, error) {
	rng, err := r.Float64("range")
	if err != nil {
		return nil, err
	}
	rate, err := r.Float64("rate")
	if err != nil {
		return nil, err
	}
	unbind, err := r.Float64("unbind_rate")
	if err != nil {
		return nil, err
	}
	return &HandClass{
		Name:        name,
		Range:       rng,
		Rate:        rate,
		UnbindRate:  unbind,
		UnbindForce: r.Float64Default("unbind_force", 0),
		BindKey:     uint32(r.Float64Default("bind_key", 1)),
	}, nil
}

// Hand is the binding site of spec.md §4.5: "(fiber*, abscissa) with
// NULL fiber meaning unattached".
type Hand struct {
	class *HandClass
	f     *fiber.Filament
	absc  float64
}

// NewHand returns an unattached hand of the given class.
func NewHand(class *HandClass) *Hand { return &Hand{class: class} }

// Class returns the hand's binding class.
func (h *Hand) Class() *HandClass { return h.class }

// Attached reports whether the hand currently sits on a filament.
func (h *Hand) Attached() bool { return h.f != nil }

// Fiber returns the attached filament, or nil if unattached.
func (h *Hand) Fiber() *fiber.Filament { return h.f }

// Abscissa returns the curvilinear abscissa of attachment; meaningless
// when Attached() is false.
func (h *Hand) Abscissa() float64 { return h.absc }

// Position returns the hand's current world position: the interpolated
// point on the attached filament, or nil when unattached (the owner's
// own mechanical point is the position to use in that case).
func (h *Hand) Position() []float64 {
	if h.f == nil {
		return nil
	}
	return h.f.PosAtAbscissa(h.absc)
}

// CanBind reports whether this hand's class is compatible with f's
// binding key, per spec.md §4.3's "class-level binding-key bitwise AND".
func (h *Hand) CanBind(f *fiber.Filament, fiberKey uint32) bool {
	return h.class.BindKey&fiberKey != 0
}

// attach links the hand to f at abscissa a. Unexported: callers go
// through Single.Attach/Couple.Attach1/Attach2 so the owning set's list
// transfer and monitor hooks stay consistent with the hand state.
func (h *Hand) attach(f *fiber.Filament, a float64) {
	h.f = f
	h.absc = a
}

// detach unlinks the hand.
func (h *Hand) detach() { h.f = nil }

// Retarget reassigns an already-attached hand to a new fiber/abscissa,
// bypassing Attach's "must not already be attached" check. Used only by
// the end-of-step cut-queue flush to carry a bound hand across a sever:
// spec.md §8 scenario 6 requires "a binder that was at abscissa 7 on
// the original appears at abscissa 7 on the new filament" without the
// owning Single/Couple ever leaving its Attached/Bridging list.
func (h *Hand) Retarget(f *fiber.Filament, a float64) { h.f = f; h.absc = a }

// nearestPoint returns the index of the filament model point closest to
// the hand's abscissa, used where force transmission is approximated as
// acting on a single model point rather than the true interpolated
// position (binder.Couple's direct bridging spring, which must target a
// single global coordinate pair rather than two interpolated points).
func (h *Hand) nearestPoint() int {
	s := (h.absc - h.f.AbscissaOrigin()) / h.f.Segmentation()
	i := int(math.Round(s))
	if i < 0 {
		i = 0
	}
	if n := h.f.NumPoints(); i >= n {
		i = n - 1
	}
	return i
}

// detachProbability returns the probability of detaching within dt,
// given the instantaneous load magnitude (0 when not load-dependent),
// a Kramers-style exponential hazard per spec.md §4.5's "rate set from
// parameters and possibly load-dependent".
func (c *HandClass) detachProbability(dt, force float64) float64 {
	rate := c.UnbindRate
	if c.UnbindForce > 0 {
		rate *= math.Exp(math.Abs(force) / c.UnbindForce)
	}
	return 1 - math.Exp(-rate*dt)
}
