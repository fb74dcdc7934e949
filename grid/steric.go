package grid

// StericEntity is one steric-enabled point offered to the grid: the
// midpoint of a filament segment, a bead's single point, or one
// radius-carrying point of a rigid body (spec.md §4.4). ID is a
// caller-chosen opaque identifier echoed back unchanged in every
// Contact it takes part in.
type StericEntity struct {
	ID     int
	Pos    []float64
	Radius float64
}

// Contact is one pairwise steric interaction candidate: entities A and B
// came within SumRadii+rangeMax of each other. The caller (which knows
// the configured k_push/k_pull) classifies it as overlap
// (Distance < SumRadii, push apart) or attractive tail
// (SumRadii <= Distance <= SumRadii+range, pull together) and wires the
// corresponding linear spring into meca.System.
type Contact struct {
	A, B     int
	Distance float64
	SumRadii float64
}

// Overlapping reports whether the pair's separation is below the sum of
// their radii, the k_push regime of spec.md §4.4.
func (c Contact) Overlapping() bool { return c.Distance < c.SumRadii }

// StericGrid implements the steric grid of spec.md §4.4: a uniform
// cartesian grid sized from the largest segment and interaction range,
// populated once per step by entity position (segment midpoint or
// point), generating all near pairs in near-linear time via a fixed
// forward-neighbor cell stencil that visits each unordered pair once.
type StericGrid struct {
	basis    cellBasis
	rangeMax float64
	cells    map[int][]StericEntity
	stencil  [][]int
}

// NewStericGrid builds a grid over [lo, hi] with periodic flags per
// axis, cell edge segmentLengthMax + 2*rangeMax per spec.md §4.4, and
// interaction cutoff rangeMax (the attractive tail beyond contact).
func NewStericGrid(lo, hi []float64, periodic []bool, segmentLengthMax, rangeMax float64) *StericGrid {
	edge := segmentLengthMax + 2*rangeMax
	basis := newCellBasis(lo, hi, periodic, edge)
	return &StericGrid{
		basis:    basis,
		rangeMax: rangeMax,
		cells:    make(map[int][]StericEntity),
		stencil:  forwardNeighborStencil(basis.dim),
	}
}

// Populate clears every cell and re-inserts each entity by its Pos
// (a segment's midpoint, or a point's own position), per spec.md §4.4's
// "clear cells; insert each steric segment into the cell containing its
// midpoint; insert each point into the cell containing it."
func (g *StericGrid) Populate(entities []StericEntity) {
	for k := range g.cells {
		delete(g.cells, k)
	}
	for _, e := range entities {
		key := g.basis.flatten(g.basis.cellOf(e.Pos))
		g.cells[key] = append(g.cells[key], e)
	}
}

// Pairs returns every Contact within interaction range: pairs sharing a
// cell, plus pairs straddling a cell and its fixed forward-neighbor
// stencil, so each unordered pair is emitted exactly once.
func (g *StericGrid) Pairs() []Contact {
	var out []Contact
	for key, list := range g.cells {
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				if c, ok := g.contactOf(list[i], list[j]); ok {
					out = append(out, c)
				}
			}
		}
		idx := g.basis.unflatten(key)
		for _, off := range g.stencil {
			nidx, ok := g.basis.neighbor(idx, off)
			if !ok {
				continue
			}
			for _, a := range list {
				for _, b := range g.cells[g.basis.flatten(nidx)] {
					if c, ok := g.contactOf(a, b); ok {
						out = append(out, c)
					}
				}
			}
		}
	}
	return out
}

func (g *StericGrid) contactOf(a, b StericEntity) (Contact, bool) {
	d := distance(a.Pos, b.Pos)
	sum := a.Radius + b.Radius
	if d > sum+g.rangeMax {
		return Contact{}, false
	}
	return Contact{A: a.ID, B: b.ID, Distance: d, SumRadii: sum}, true
}

// forwardNeighborStencil returns half of the 3^dim - 1 unit-cube offsets
// around a cell, keeping only the lexicographically positive half (the
// first nonzero coordinate is +1), which is enough to visit every
// unordered pair of distinct cells exactly once when combined with each
// cell's own within-cell pass.
func forwardNeighborStencil(dim int) [][]int {
	var all [][]int
	var rec func(cur []int)
	rec = func(cur []int) {
		if len(cur) == dim {
			all = append(all, append([]int(nil), cur...))
			return
		}
		for _, v := range []int{-1, 0, 1} {
			rec(append(cur, v))
		}
	}
	rec(nil)

	out := make([][]int, 0, len(all)/2)
	for _, off := range all {
		if isForwardOffset(off) {
			out = append(out, off)
		}
	}
	return out
}

func isForwardOffset(off []int) bool {
	for _, v := range off {
		if v > 0 {
			return true
		}
		if v < 0 {
			return false
		}
	}
	return false
}
