package grid

import (
	"math"

	"github.com/nedelec/cytosim-2017-sub000/rng"
)

// SegmentRef is one filament segment offered to the binding grid for
// painting. FiberID and Index are caller-chosen identifiers echoed back
// unchanged on any AttachCandidate computed from this segment; the core
// engine uses a fiber's serial number and the segment's index within it.
type SegmentRef struct {
	FiberID int
	Index   int
	A, B    []float64 // segment endpoints, p[Index] and p[Index+1]
}

// AttachCandidate is a geometrically valid attachment site returned by
// Attempt: the perpendicular foot from the queried position onto some
// painted segment fell within range and within the segment's span. Frac
// is the fractional position along the segment (0 at A, 1 at B); the
// caller converts this to a global abscissa via the owning fiber's own
// bookkeeping (AbscissaOrigin + (Index+Frac)*Segmentation) and is
// responsible for the class-level binding-key check spec.md §4.3
// describes before actually attaching.
type AttachCandidate struct {
	FiberID  int
	Index    int
	Frac     float64
	Distance float64
}

// BindingGrid implements the "paint" algorithm of spec.md §4.3: a
// uniform cartesian grid sized so that every segment within the maximum
// hand range of any query point is guaranteed to be painted into that
// point's cell, letting an unattached hand sample candidates in O(1)
// regardless of total filament length.
type BindingGrid struct {
	basis cellBasis
	rMax  float64
	cells map[int][]SegmentRef
}

// NewBindingGrid builds a grid over the box [lo, hi] with periodic flags
// per axis and cell edge g = 2*rMax, per spec.md §4.3's "g >= 2*R_max"
// requirement (rMax is the largest binding range across every hand
// class sharing this grid).
func NewBindingGrid(lo, hi []float64, periodic []bool, rMax float64) *BindingGrid {
	edge := 2 * rMax
	return &BindingGrid{
		basis: newCellBasis(lo, hi, periodic, edge),
		rMax:  rMax,
		cells: make(map[int][]SegmentRef),
	}
}

// Paint clears every cell's visit list and repaints it from segs: for
// each segment, every cell whose extent lies within rMax of the segment
// is given that segment in its visit list. Called once per step ahead
// of any Attempt calls, per spec.md §4.3.
func (g *BindingGrid) Paint(segs []SegmentRef) {
	for k := range g.cells {
		delete(g.cells, k)
	}
	for _, s := range segs {
		axisIdx := make([][]int, g.basis.dim)
		for d := 0; d < g.basis.dim; d++ {
			lo := math.Min(s.A[d], s.B[d]) - g.rMax
			hi := math.Max(s.A[d], s.B[d]) + g.rMax
			axisIdx[d] = g.basis.axisRange(d, lo, hi)
		}
		for _, idx := range cartesianProduct(axisIdx) {
			key := g.basis.flatten(idx)
			g.cells[key] = append(g.cells[key], s)
		}
	}
}

// Attempt draws a Poisson(rate*dt*occupancy)-thinned number of binding
// attempts against the cell containing pos, each attempt picking a
// uniformly random painted segment and testing the foot-of-perpendicular
// against range r, per spec.md §4.3 steps 1-3. Returns every
// geometrically successful attempt; the caller applies the binding-key
// filter and performs the actual state transition.
func (g *BindingGrid) Attempt(pos []float64, r, rate, dt float64, src *rng.Source) []AttachCandidate {
	idx := g.basis.cellOf(pos)
	visit := g.cells[g.basis.flatten(idx)]
	occupancy := len(visit)
	if occupancy == 0 {
		return nil
	}
	attempts := src.Poisson(rate * dt * float64(occupancy))
	if attempts == 0 {
		return nil
	}
	out := make([]AttachCandidate, 0, attempts)
	for k := 0; k < attempts; k++ {
		seg := visit[src.Int32N(occupancy)]
		frac, foot, ok := footOfPerpendicular(pos, seg.A, seg.B)
		if !ok {
			continue
		}
		d := distance(pos, foot)
		if d <= r {
			out = append(out, AttachCandidate{FiberID: seg.FiberID, Index: seg.Index, Frac: frac, Distance: d})
		}
	}
	return out
}

// footOfPerpendicular projects pos onto the line through a,b and reports
// whether the foot falls within the closed segment [a, b]; frac is the
// fractional position of the foot (0 at a, 1 at b) and foot its
// coordinates.
func footOfPerpendicular(pos, a, b []float64) (frac float64, foot []float64, ok bool) {
	d := make([]float64, len(a))
	len2 := 0.0
	for i := range d {
		d[i] = b[i] - a[i]
		len2 += d[i] * d[i]
	}
	if len2 < 1e-300 {
		return 0, nil, false
	}
	dot := 0.0
	for i := range d {
		dot += (pos[i] - a[i]) * d[i]
	}
	t := dot / len2
	if t < 0 || t > 1 {
		return 0, nil, false
	}
	foot = make([]float64, len(a))
	for i := range foot {
		foot[i] = a[i] + t*d[i]
	}
	return t, foot, true
}

// cartesianProduct expands per-axis index lists into every combination,
// used by Paint to enumerate the cells a segment's expanded bounding box
// overlaps.
func cartesianProduct(axes [][]int) [][]int {
	out := [][]int{{}}
	for _, axis := range axes {
		next := make([][]int, 0, len(out)*len(axis))
		for _, prefix := range out {
			for _, v := range axis {
				combo := append(append([]int(nil), prefix...), v)
				next = append(next, combo)
			}
		}
		out = next
	}
	return out
}
