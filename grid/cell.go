// Package grid implements the two uniform cartesian spatial grids of
// spec.md §4.3/§4.4: BindingGrid ("paint" algorithm), which lets an
// unattached hand sample candidate binding segments in O(1) regardless
// of total filament length, and StericGrid, which generates near-linear
// pairwise steric interactions between segments, spheres and beads.
//
// Both grids share the same cell-indexing arithmetic (cellBasis): a
// cartesian lattice rooted at a bounding box's low corner, with wrapped
// indices along periodic dimensions and clamped indices elsewhere.
package grid

import "math"

// cellBasis is the cell-indexing geometry shared by BindingGrid and
// StericGrid: a cartesian lattice with one cell edge length per grid,
// rooted at lo, spanning ncells[d] cells along axis d.
type cellBasis struct {
	dim      int
	lo       []float64
	edge     float64
	ncells   []int
	periodic []bool
}

func newCellBasis(lo, hi []float64, periodic []bool, edge float64) cellBasis {
	dim := len(lo)
	if edge <= 0 {
		edge = 1
	}
	ncells := make([]int, dim)
	for d := 0; d < dim; d++ {
		span := hi[d] - lo[d]
		n := int(math.Ceil(span / edge))
		if n < 1 {
			n = 1
		}
		ncells[d] = n
	}
	per := make([]bool, dim)
	copy(per, periodic)
	return cellBasis{dim: dim, lo: append([]float64(nil), lo...), edge: edge, ncells: ncells, periodic: per}
}

// axisIndex returns the cell index along axis d containing coordinate x,
// wrapped if axis d is periodic, clamped to [0, ncells[d]) otherwise.
func (c cellBasis) axisIndex(d int, x float64) int {
	i := int(math.Floor((x - c.lo[d]) / c.edge))
	n := c.ncells[d]
	if c.periodic[d] {
		i %= n
		if i < 0 {
			i += n
		}
		return i
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// cellOf returns the per-axis cell indices containing point x.
func (c cellBasis) cellOf(x []float64) []int {
	idx := make([]int, c.dim)
	for d := 0; d < c.dim; d++ {
		idx[d] = c.axisIndex(d, x[d])
	}
	return idx
}

// flatten packs per-axis cell indices into a single map key.
func (c cellBasis) flatten(idx []int) int {
	key := 0
	for d := c.dim - 1; d >= 0; d-- {
		key = key*c.ncells[d] + idx[d]
	}
	return key
}

// unflatten is the inverse of flatten, used by StericGrid.Pairs to walk
// from a populated cell's map key back to its per-axis indices so it can
// look up the fixed forward-neighbor stencil around it.
func (c cellBasis) unflatten(key int) []int {
	idx := make([]int, c.dim)
	for d := 0; d < c.dim; d++ {
		idx[d] = key % c.ncells[d]
		key /= c.ncells[d]
	}
	return idx
}

// neighbor returns the cell offset by off from idx, wrapping on periodic
// axes and reporting false if a non-periodic axis would fall outside
// the grid's extent.
func (c cellBasis) neighbor(idx, off []int) ([]int, bool) {
	out := make([]int, c.dim)
	for d := 0; d < c.dim; d++ {
		v := idx[d] + off[d]
		n := c.ncells[d]
		if c.periodic[d] {
			v = ((v % n) + n) % n
		} else if v < 0 || v >= n {
			return nil, false
		}
		out[d] = v
	}
	return out, true
}

// axisRange returns the inclusive range of cell indices along axis d
// whose extent overlaps [lo, hi] (already expanded by any interaction
// range the caller cares about), clamped/wrapped as axisIndex does.
// Non-periodic axes are clamped to the grid's own extent; periodic axes
// return every cell when the requested span exceeds the full period
// (the painting radius is always small relative to box size in
// practice, but this keeps the method correct in the degenerate case).
func (c cellBasis) axisRange(d int, lo, hi float64) []int {
	n := c.ncells[d]
	if c.periodic[d] && (hi-lo) >= float64(n)*c.edge {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	a := c.axisIndex(d, lo)
	b := c.axisIndex(d, hi)
	if c.periodic[d] {
		out := []int{}
		i := a
		for {
			out = append(out, i)
			if i == b {
				break
			}
			i = (i + 1) % n
			if len(out) > n {
				break // safety: never happens given the guard above
			}
		}
		return out
	}
	if a > b {
		a, b = b, a
	}
	out := make([]int, 0, b-a+1)
	for i := a; i <= b; i++ {
		out = append(out, i)
	}
	return out
}

func distance(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}
