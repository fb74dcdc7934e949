// Package body implements the rigid mechanical objects of spec.md §3:
// Solid (an undeformable cloud of points), Sphere and Bead as
// specializations, each exposing the same mech.Object contract as a
// Filament at lower internal complexity, grounded on cytosim's
// PointSet-derived Solid/Bead classes (sim/solid.h, sim/bead.cc).
package body

import (
	"github.com/cpmech/gosl/fun"

	"github.com/nedelec/cytosim-2017-sub000/config"
)

// ConfineMode names the confinement policy of spec.md §4.6.
type ConfineMode int

const (
	ConfineNone ConfineMode = iota
	ConfineInside
	ConfineAllInside
	ConfineOutside
	ConfineSurface
)

// Class holds the per-class parameters shared by every instance of a
// Solid/Sphere/Bead kind, read from the property catalog (spec.md §6).
type Class struct {
	Name             string
	Confine          ConfineMode
	ConfineStiffness fun.Func // evaluated at the current simulation time by ConfinementSprings; a plain config value loads as a fun.Cte
	Record           *config.Record
}

func parseConfineMode(s string) ConfineMode {
	switch s {
	case "inside":
		return ConfineInside
	case "all_inside":
		return ConfineAllInside
	case "outside":
		return ConfineOutside
	case "surface":
		return ConfineSurface
	default:
		return ConfineNone
	}
}

// LinearRamp implements fun.Func as a stiffness that grows linearly with
// simulation time, Base + Rate*t, for the confine_stiff_rate catalog
// field below. Zero Rate degenerates to a constant, but NewClass uses
// the plain fun.Cte in that case, the usual idiom for a schedule-free
// constant ("DtFunc = &fun.Cte{C: ...}").
type LinearRamp struct {
	Base, Rate float64
}

// F implements fun.Func.
func (r *LinearRamp) F(t float64, x []float64) float64 { return r.Base + r.Rate*t }

// NewClass builds a Class from a catalog record. confine_stiff_rate is
// optional and lets a class ramp its confinement stiffness up over the
// simulation (e.g. a slowly tightening cage), per the time-dependent
// hook meca.System.AddConfinementSprings exposes.
func NewClass(name string, r *config.Record) *Class {
	base := r.Float64Default("confine_stiff", 100)
	rate := r.Float64Default("confine_stiff_rate", 0)
	var stiff fun.Func
	if rate == 0 {
		stiff = &fun.Cte{C: base}
	} else {
		stiff = &LinearRamp{Base: base, Rate: rate}
	}
	return &Class{
		Name:             name,
		Confine:          parseConfineMode(r.String("confine", "none")),
		ConfineStiffness: stiff,
		Record:           r,
	}
}
