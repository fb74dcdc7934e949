package fiber

import (
	"math"

	"github.com/cpmech/gosl/la"

	"github.com/nedelec/cytosim-2017-sub000/simerr"
)

// Prepare recomputes the unit tangents and factorizes the tridiagonal
// J*J^T system ahead of this step's force assembly (spec.md §4.1
// makeProjection, grounded on rigid_fiber.cc's storeDifferences plus
// rigid_fiber_project.cc's makeProjection).
func (f *Filament) Prepare() error {
	f.storeDifferences()
	if err := f.makeProjection(); err != nil {
		return err
	}
	return nil
}

// storeDifferences computes the per-segment unit tangent t_i =
// (p[i+1]-p[i])/h for every segment, mirroring RigidFiber::storeDifferences.
func (f *Filament) storeDifferences() {
	d := f.dim
	sc := 1.0 / f.h
	n := f.nbSegments()
	for s := 0; s < n; s++ {
		for c := 0; c < d; c++ {
			f.diff[d*s+c] = sc * (f.pts[d*(s+1)+c] - f.pts[d*s+c])
		}
	}
}

// makeProjection builds and factorizes the tridiagonal J*J^T matrix
// whose diagonal is 2*|t_i|^2 (==2 for unit tangents) and whose
// off-diagonal is -t_i.t_{i+1}, mirroring RigidFiber::makeProjection.
// The factorization is an LDL^T (Cholesky-like) recursion valid because
// J*J^T is symmetric positive definite for any non-degenerate polyline.
func (f *Filament) makeProjection() error {
	d := f.dim
	nbs := f.nbSegments()
	if nbs < 2 {
		// a single segment has no interior constraint coupling: J*J^T is
		// the 1x1 scalar 2*|t0|^2, nothing to factorize further.
		if nbs == 1 {
			f.jjtDiag[0] = 2 * dot(f.diff[:d], f.diff[:d])
		}
		return nil
	}
	nbu := nbs - 1
	for jj := 0; jj < nbu; jj++ {
		x := f.diff[d*jj : d*jj+d]
		xn := f.diff[d*(jj+1) : d*(jj+1)+d]
		f.jjtDiag[jj] = 2 * dot(x, x)
		f.jjtOff[jj] = -dot(x, xn)
	}
	x := f.diff[d*nbu : d*nbu+d]
	f.jjtDiag[nbu] = 2 * dot(x, x)

	// LDL^T factorization in place: jjtDiag becomes D, jjtOff becomes the
	// sub-diagonal multiplier l[i-1] = offDiag[i-1]/D[i-1].
	for i := 1; i <= nbu; i++ {
		piv := f.jjtDiag[i-1]
		if math.Abs(piv) < 1e-300 {
			return &simerr.InvalidState{Where: "fiber.makeProjection", Reason: "degenerate segment (zero tangent)"}
		}
		off := f.jjtOff[i-1]
		l := off / piv
		f.jjtDiag[i] -= l * off
		f.jjtOff[i-1] = l
	}
	return nil
}

func dot(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

// triSolve solves (J*J^T) x = rhs in place, using the LDL^T factors
// cached by makeProjection. rhs is overwritten with the solution,
// mirroring lapack_xptts2's in-place convention.
func (f *Filament) triSolve(rhs []float64) {
	n := len(rhs)
	if n == 0 {
		return
	}
	if n == 1 {
		rhs[0] /= f.jjtDiag[0]
		return
	}
	// forward: solve L y = rhs
	for i := 1; i < n; i++ {
		rhs[i] -= f.jjtOff[i-1] * rhs[i-1]
	}
	// diagonal: z = D^-1 y
	for i := 0; i < n; i++ {
		rhs[i] /= f.jjtDiag[i]
	}
	// backward: solve L^T x = z
	for i := n - 2; i >= 0; i-- {
		rhs[i] -= f.jjtOff[i] * rhs[i+1]
	}
}

// projectForcesA computes tmp[jj] = diff_jj . (X[jj+1] - X[jj]), i.e.
// tmp <- J*X, mirroring projectForcesA in rigid_fiber_project.cc.
func (f *Filament) projectForcesA(X, tmp []float64) {
	d := f.dim
	nbs := f.nbSegments()
	for jj := 0; jj < nbs; jj++ {
		s := 0.0
		for c := 0; c < d; c++ {
			s += f.diff[d*jj+c] * (X[d*(jj+1)+c] - X[d*jj+c])
		}
		tmp[jj] = s
	}
}

// projectForcesB computes Y <- sca*(X - J^T*tmp), mirroring
// projectForcesB in rigid_fiber_project.cc.
func (f *Filament) projectForcesB(sca float64, X, Y, tmp []float64) {
	d := f.dim
	nbs := f.nbSegments()
	for c := 0; c < d; c++ {
		Y[c] = sca * (X[c] + f.diff[c]*tmp[0])
		last := d * nbs
		Y[last+c] = sca * (X[last+c] - f.diff[d*(nbs-1)+c]*tmp[nbs-1])
	}
	for jj := 1; jj < nbs; jj++ {
		for c := 0; c < d; c++ {
			k := d*jj + c
			Y[k] = sca * (X[k] + f.diff[k]*tmp[jj] - f.diff[k-d]*tmp[jj-1])
		}
	}
}

// ProjectForces computes Y := s*P*X, where P = I - J^T(J*J^T)^-1*J is
// the projector onto the tangent space of the equal-segment-length
// constraint manifold. lagOut receives the intermediate (J*J^T)^-1*J*X,
// the vector of Lagrange multipliers (segment tensions) for X.
func (f *Filament) ProjectForces(X, Y []float64, s float64, lagOut []float64) {
	nbs := f.nbSegments()
	if nbs == 0 {
		return
	}
	// nbs == 1 (a two-point filament, spec.md §8 boundary case) needs no
	// special case: the general machinery below degenerates correctly
	// to the scalar projection along the single segment, since triSolve
	// with a 1x1 system is just a division by jjtDiag[0] == 2.
	f.projectForcesA(X, lagOut)
	f.triSolve(lagOut)
	f.projectForcesB(s, X, Y, lagOut)
}

// SetSpeedsFromForces computes Y := s*mu*P*X (mech.Object contract).
// When storeLagrange is true the tensions are written into the
// filament's persistent array; otherwise a scratch buffer is used.
func (f *Filament) SetSpeedsFromForces(X, Y []float64, s float64, storeLagrange bool) {
	sca := s * f.mobility()
	if storeLagrange {
		f.ProjectForces(X, Y, sca, f.tension)
	} else {
		f.ProjectForces(X, Y, sca, f.scratch)
	}
}

// AddRigidity computes Y += R*X, the discrete biharmonic bending
// contribution scaled by kappa/h^3, mirroring RigidFiber::addRigidity /
// add_rigidity1.
func (f *Filament) AddRigidity(X, Y []float64) {
	n := f.NumPoints()
	if n <= 2 {
		return
	}
	d := f.dim
	r := f.class.Rigidity / (f.h * f.h * f.h)
	for p := 0; p <= n-3; p++ {
		for c := 0; c < d; c++ {
			i0 := d*p + c
			i1 := d*(p+1) + c
			i2 := d*(p+2) + c
			ff := r * (X[i0] - 2*X[i1] + X[i2])
			Y[i0] -= ff
			Y[i1] += ff + ff
			Y[i2] -= ff
		}
	}
}

// AddRigidityMatUp stamps the symmetric rigidity operator into the
// global sparse matrix at the diagonal block starting at coordinate
// offset off, upper triangle only, mirroring
// RigidFiber::addRigidityMatUp exactly (point-level stencil, expanded
// per spatial dimension since the bending operator acts identically and
// independently on each Cartesian component).
func (f *Filament) AddRigidityMatUp(Kb *la.Triplet, off int) {
	n := f.NumPoints()
	if n < 3 {
		return
	}
	d := f.dim
	r := f.class.Rigidity / (f.h * f.h * f.h)
	stamp := func(row, col int, val float64) {
		for k := 0; k < d; k++ {
			Kb.Put(off+d*row+k, off+d*col+k, val)
		}
	}
	for ii := 2; ii < n-2; ii++ {
		stamp(ii, ii, -6*r)
	}
	for ii := 1; ii < n-2; ii++ {
		stamp(ii, ii+1, 4*r)
	}
	for ii := 0; ii < n-2; ii++ {
		stamp(ii, ii+2, -r)
	}
	stamp(0, 0, -r)
	stamp(n-1, n-1, -r)
	if n == 3 {
		stamp(1, 1, -4*r)
	} else {
		stamp(1, 1, -5*r)
		stamp(n-2, n-2, -5*r)
	}
	stamp(0, 1, 2*r)
	stamp(n-2, n-1, 2*r)
}

// AddProjectionDiff adds the projection-correction linearization term:
// for each segment under extension (tension > 0), a stabilizing
// stiffness tension/h acts along that segment; compressive tensions are
// clamped to zero (spec.md §4.1, Open Question resolved in DESIGN.md:
// a hard clamp, no hysteresis).
func (f *Filament) AddProjectionDiff(X, Y []float64) {
	d := f.dim
	for s := 0; s < f.nbSegments(); s++ {
		t := f.tension[s]
		if t <= 0 {
			continue
		}
		k := t / f.h
		for c := 0; c < d; c++ {
			i := d*s + c
			j := d*(s+1) + c
			dc := k * (X[j] - X[i])
			Y[i] -= dc
			Y[j] += dc
		}
	}
}

// ComputeTensions recomputes and stores the persistent tension array
// from an arbitrary force vector, without touching positions. Used by
// reporting and by downstream logic (severing on compression, glue
// attachment) that needs the Lagrange multipliers outside of a solver
// pass, mirroring RigidFiber::computeTensions.
func (f *Filament) ComputeTensions(forces []float64) {
	if f.nbSegments() == 0 {
		return
	}
	f.projectForcesA(forces, f.tension)
	f.triSolve(f.tension)
}

// AddBrownianForces adds iid Gaussian impulses of standard deviation
// sqrt(2*sc/mu) to rhs (this filament's own d*N block), and returns
// mu*b, the constant mapping force to displacement used by meca.System
// to size stochastic terms consistently with implicit integration.
func (f *Filament) AddBrownianForces(rhs []float64, sc float64) float64 {
	mu := f.mobility()
	b := math.Sqrt(2 * sc / mu)
	for i := range rhs {
		rhs[i] += b * f.rng.Gauss()
	}
	return mu * b
}
