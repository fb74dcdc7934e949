// Package fiber implements the filament mechanical object of spec.md
// §3/§4.1: a chain of model points held at fixed inter-point distance by
// a projection operator, with bending elasticity and a persistent
// tension (Lagrange multiplier) array.
package fiber

import (
	"math"

	"github.com/nedelec/cytosim-2017-sub000/config"
	"github.com/nedelec/cytosim-2017-sub000/objset"
	"github.com/nedelec/cytosim-2017-sub000/rng"
	"github.com/nedelec/cytosim-2017-sub000/simerr"
)

// End names an extremity of a filament.
type End int

const (
	MinusEnd End = iota
	PlusEnd
	Center
)

// Class holds the per-class parameters read from the property catalog,
// mirroring inp.MatModels' per-kind records (§6 property catalog).
type Class struct {
	Name               string
	Rigidity           float64 // kappa, bending modulus
	SegmentationTarget float64 // desired segment length
	DragModel          string  // "cylinder" or "wall"
	Radius             float64 // cross-section (Stokes) radius
	SeverKinked        bool    // open question of spec.md §9, default false
	KinkAngle          float64 // radians; severed when joint angle exceeds this, if SeverKinked
	BindKey            uint32  // class-level binding-key bitwise AND test of spec.md §4.3; all bits set by default so any hand class can bind unless configured otherwise
	Record             *config.Record
}

// NewClass builds a Class from a catalog record.
func NewClass(name string, r *config.Record) (*Class, error) {
	rig, err := r.Float64("rigidity")
	if err != nil {
		return nil, err
	}
	seg, err := r.Float64("segmentation")
	if err != nil {
		return nil, err
	}
	return &Class{
		Name:               name,
		Rigidity:           rig,
		SegmentationTarget: seg,
		DragModel:          r.String("drag_model", "cylinder"),
		Radius:             r.Float64Default("radius", 0.01),
		SeverKinked:        r.Bool("sever_kinked", false),
		KinkAngle:          r.Float64Default("kink_angle", math.Pi/2),
		BindKey:            uint32(r.Float64Default("bind_key", float64(^uint32(0)))),
		Record:             r,
	}, nil
}

// Filament is the ordered chain of model points described in spec.md §3.
type Filament struct {
	objset.Serial

	class *Class
	world *config.World
	rng   *rng.Source
	dim   int

	pts []float64 // flattened d*N positions

	h              float64 // segment length (exact, enforced by projection)
	abscissaOrigin float64 // a0: abscissa of point 0 (MINUS_END)
	signature      uint64  // cytosim fnSignature: random tag carried for trajectory cross-referencing

	diff []float64 // unit tangents per segment, d*(N-1), recomputed by Prepare

	// tridiagonal J*J^T factors, cached per step by makeProjection
	jjtDiag []float64 // size nbSegments
	jjtOff  []float64 // size nbSegments-1 (multipliers after factorization)

	tension []float64 // persistent Lagrange multipliers, size nbSegments
	scratch []float64 // scratch Lagrange buffer, size nbSegments

	offset int

	pendingCuts []float64 // abscissae queued for severAt, flushed descending at end of step

	goodbye []func(*Filament) // buddy-pattern subscriber list, spec.md §9
}

// New constructs a straight filament of the given length, anchored at
// pos with the given unit direction, measured from ref.
func New(class *Class, world *config.World, src *rng.Source, dim int, length float64, pos, dir []float64, ref End) (*Filament, error) {
	if length <= 0 {
		return nil, &simerr.ConfigurationError{Kind: "fiber", Name: class.Name, Reason: "length must be > 0"}
	}
	n := BestNbPoints(length / class.SegmentationTarget)
	f := &Filament{
		class:     class,
		world:     world,
		rng:       src,
		dim:       dim,
		signature: src.Uint64(),
	}
	f.h = length / float64(n-1)
	f.allocate(n)

	nrm := norm(dir)
	if nrm < 1e-9 {
		return nil, &simerr.ConfigurationError{Kind: "fiber", Name: class.Name, Reason: "direction must be non-zero"}
	}
	unit := make([]float64, dim)
	for i := range unit {
		unit[i] = dir[i] / nrm
	}

	origin := make([]float64, dim)
	switch ref {
	case MinusEnd:
		copy(origin, pos)
	case PlusEnd:
		for i := range origin {
			origin[i] = pos[i] - unit[i]*length
		}
	case Center:
		for i := range origin {
			origin[i] = pos[i] - 0.5*unit[i]*length
		}
	}
	for p := 0; p < n; p++ {
		for c := 0; c < dim; c++ {
			f.pts[dim*p+c] = origin[c] + float64(p)*f.h*unit[c]
		}
	}
	return f, nil
}

func norm(v []float64) float64 {
	s := 0.0
	for _, x := range v {
		s += x * x
	}
	return math.Sqrt(s)
}

func (f *Filament) allocate(n int) {
	d := f.dim
	f.pts = make([]float64, d*n)
	f.diff = make([]float64, d*(n-1))
	f.jjtDiag = make([]float64, n-1)
	if n > 2 {
		f.jjtOff = make([]float64, n-2)
	} else {
		f.jjtOff = nil
	}
	f.tension = make([]float64, n-1)
	f.scratch = make([]float64, n-1)
}

// NumPoints returns N, the number of model points.
func (f *Filament) NumPoints() int { return len(f.pts) / f.dim }

// Dim returns the spatial dimension.
func (f *Filament) Dim() int { return f.dim }

// Segmentation returns h, the exact inter-point distance.
func (f *Filament) Segmentation() float64 { return f.h }

// Length returns the total contour length, N-1 times h.
func (f *Filament) Length() float64 { return f.h * float64(f.NumPoints()-1) }

func (f *Filament) nbSegments() int { return f.NumPoints() - 1 }

// Points returns the flattened position vector (owned, mutable).
func (f *Filament) Points() []float64 { return f.pts }

// Point returns the coordinates of point p.
func (f *Filament) Point(p int) []float64 { return f.pts[f.dim*p : f.dim*(p+1)] }

// SetPoint overwrites the coordinates of point p.
func (f *Filament) SetPoint(p int, x []float64) { copy(f.Point(p), x) }

// Offset/SetOffset locate this object's block in the global vector
// assembled by meca.System.
func (f *Filament) Offset() int      { return f.offset }
func (f *Filament) SetOffset(o int)  { f.offset = o }
func (f *Filament) Class() *Class    { return f.class }
func (f *Filament) Signature() uint64 { return f.signature }

// AbscissaOrigin returns a0, the abscissa of the MINUS_END.
func (f *Filament) AbscissaOrigin() float64 { return f.abscissaOrigin }

// AbscissaMinus/AbscissaPlus return the abscissa range of the filament.
func (f *Filament) AbscissaMinus() float64 { return f.abscissaOrigin }
func (f *Filament) AbscissaPlus() float64  { return f.abscissaOrigin + f.Length() }

// PosAtAbscissa interpolates the world position at curvilinear abscissa a.
func (f *Filament) PosAtAbscissa(a float64) []float64 {
	s := (a - f.abscissaOrigin) / f.h
	if s < 0 {
		s = 0
	}
	n := f.NumPoints()
	if s > float64(n-1) {
		s = float64(n - 1)
	}
	i := int(s)
	if i >= n-1 {
		i = n - 2
	}
	frac := s - float64(i)
	a0 := f.Point(i)
	a1 := f.Point(i + 1)
	out := make([]float64, f.dim)
	for c := range out {
		out[c] = a0[c] + frac*(a1[c]-a0[c])
	}
	return out
}

// Tension returns the persistent Lagrange multiplier of segment s
// (positive under extension, negative under compression, per spec.md
// GLOSSARY).
func (f *Filament) Tension(s int) float64 { return f.tension[s] }

// OnGoodbye registers a callback invoked when this filament is
// destroyed, the "buddy" pattern of spec.md §9 replacing mutual
// destruction pointers.
func (f *Filament) OnGoodbye(cb func(*Filament)) { f.goodbye = append(f.goodbye, cb) }

// Destroy notifies every subscriber (attached binders, organizers) that
// this filament is going away, then clears its subscriber list.
func (f *Filament) Destroy() {
	for _, cb := range f.goodbye {
		cb(f)
	}
	f.goodbye = nil
}

// Drag returns the filament's scalar drag coefficient, from the
// configured drag model (fiber/drag.go).
func (f *Filament) Drag() float64 { return f.drag(f.world.Viscosity) }

// mobility returns the per-point mobility mu, uniform across all N
// points and satisfying sum_i drag_i == Drag() (spec.md §3).
func (f *Filament) mobility() float64 {
	return float64(f.NumPoints()) / f.Drag()
}

// UseBlock reports whether the solver's preconditioner should cache a
// dense factorization of this filament's block. Filaments are typically
// long and thin (a dense N*d square factorization is cheap relative to
// their tridiagonal structure), so this defaults to true.
func (f *Filament) UseBlock() bool { return true }
