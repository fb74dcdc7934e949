package meca

import "github.com/cpmech/gosl/la"

// blockJacobi is the preconditioner of spec.md §4.2: each registered
// object's own diagonal block of the implicit operator, approximated
// independently (cross-object coupling through mB is dropped, which is
// exactly the block-Jacobi approximation), dense-factored and cached
// for objects reporting UseBlock() == true; objects that decline
// (UseBlock() == false) fall back to the identity (no preconditioning)
// on their own block.
type blockJacobi struct {
	sys    *System
	blocks []*denseBlock // one entry per registered object, nil if UseBlock() is false
}

// denseBlock is the cached dense factorization of one object's diagonal
// block, built by probing the system's own matrix-free applyOperator
// with unit vectors restricted to that object's coordinates (so the
// cached block is always exactly consistent with the operator actually
// solved, never a separately-maintained approximation of it).
type denseBlock struct {
	off, n int
	lu     []float64 // row-major n*n LU factors
	piv    []int
}

func newBlockJacobi(sys *System) *blockJacobi {
	bj := &blockJacobi{sys: sys, blocks: make([]*denseBlock, len(sys.objects))}
	for i, obj := range sys.objects {
		if !obj.UseBlock() {
			continue
		}
		bj.blocks[i] = bj.buildBlock(obj)
	}
	return bj
}

// buildBlock extracts obj's n*n diagonal block of the global operator by
// applying sys.applyOperator to each of obj's n unit basis vectors (all
// other objects' coordinates held at zero) and reading back just that
// object's own output slice, then LU-factors the resulting dense matrix.
func (bj *blockJacobi) buildBlock(obj interfaceObject) *denseBlock {
	off := obj.Offset()
	n := obj.Dim() * obj.NumPoints()
	m := la.MatAlloc(n, n)

	dx := make([]float64, bj.sys.n)
	out := make([]float64, bj.sys.n)
	for k := 0; k < n; k++ {
		dx[off+k] = 1
		for i := range out {
			out[i] = 0
		}
		bj.sys.applyOperator(dx, out)
		dx[off+k] = 0
		for r := 0; r < n; r++ {
			m[r][k] = out[off+r]
		}
	}

	lu, piv := luFactor(m, n)
	return &denseBlock{off: off, n: n, lu: lu, piv: piv}
}

// apply solves each cached block M_i * y_i = r_i in place (the
// preconditioner application of spec.md §4.2's "runs the cached
// triangular solves"), copying r straight through on any block an
// object declined to cache.
func (bj *blockJacobi) apply(r []float64) []float64 {
	y := append([]float64(nil), r...)
	for i, blk := range bj.blocks {
		if blk == nil {
			continue
		}
		local := append([]float64(nil), y[blk.off:blk.off+blk.n]...)
		luSolve(blk.lu, blk.piv, blk.n, local)
		copy(y[blk.off:blk.off+blk.n], local)
	}
	return y
}

// interfaceObject is the minimal subset of mech.Object buildBlock needs;
// declared locally to avoid an import cycle concern and to make the
// probing contract explicit.
type interfaceObject interface {
	Offset() int
	Dim() int
	NumPoints() int
}

// luFactor computes the LU decomposition of the dense n*n matrix m with
// partial pivoting, returning the factors packed row-major and the
// pivot permutation. Hand-written rather than routed through gosl's
// sparse LinSol: each block here is a handful of points (at most a few
// dozen coordinates), far below where a general sparse factorization
// pays for itself, mirroring the same narrow-dense-recursion precedent
// already used for fiber's tridiagonal solve and body's 3x3 cofactor
// inverse.
func luFactor(m [][]float64, n int) ([]float64, []int) {
	a := make([]float64, n*n)
	for i := 0; i < n; i++ {
		copy(a[i*n:i*n+n], m[i])
	}
	piv := make([]int, n)
	for i := range piv {
		piv[i] = i
	}
	for k := 0; k < n; k++ {
		best, bestVal := k, 0.0
		for i := k; i < n; i++ {
			v := a[i*n+k]
			if v < 0 {
				v = -v
			}
			if v > bestVal {
				best, bestVal = i, v
			}
		}
		if best != k {
			for c := 0; c < n; c++ {
				a[k*n+c], a[best*n+c] = a[best*n+c], a[k*n+c]
			}
			piv[k], piv[best] = piv[best], piv[k]
		}
		pivVal := a[k*n+k]
		if pivVal == 0 {
			continue // singular block: leave zero rows, handled as no-op in luSolve
		}
		for i := k + 1; i < n; i++ {
			f := a[i*n+k] / pivVal
			a[i*n+k] = f
			for c := k + 1; c < n; c++ {
				a[i*n+c] -= f * a[k*n+c]
			}
		}
	}
	return a, piv
}

// luSolve solves m*x = b in place using the factors from luFactor,
// tolerating a singular pivot by leaving that coordinate unchanged
// (identity fallback for a degenerate block, consistent with the
// no-preconditioning fallback used for objects that decline UseBlock).
func luSolve(lu []float64, piv []int, n int, b []float64) {
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = b[piv[i]]
	}
	for i := 0; i < n; i++ {
		s := y[i]
		for k := 0; k < i; k++ {
			s -= lu[i*n+k] * y[k]
		}
		y[i] = s
	}
	for i := n - 1; i >= 0; i-- {
		s := y[i]
		for k := i + 1; k < n; k++ {
			s -= lu[i*n+k] * y[k]
		}
		d := lu[i*n+i]
		if d == 0 {
			y[i] = s
			continue
		}
		y[i] = s / d
	}
	copy(b, y)
}
