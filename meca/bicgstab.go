package meca

import (
	"math"

	"github.com/nedelec/cytosim-2017-sub000/simerr"
)

// bicgstab solves apply(x) = rhs for x using the (right-)preconditioned
// biconjugate gradient stabilized method, restarted whenever the
// iteration stalls, per spec.md §4.2's "restarted symmetric solver
// (BiCGStab or similar) tolerant of the mild non-symmetry introduced by
// the projection-correction term". Hand-written rather than routed
// through a library Krylov solver: the operator is matrix-free (no
// assembled sparse matrix for a general solver to consume), and no pack
// dependency exposes a matrix-free Krylov interface — gosl/la's LinSol
// wraps direct sparse factorizations (MUMPS/UMFPACK) of an assembled
// Triplet, not a matrix-free iterative method, and gonum's iterative
// solvers operate on gonum's own dense/sparse matrix types rather than a
// caller-supplied apply function.
func bicgstab(n int, apply func(x, out []float64), precond func(r []float64) []float64, rhs []float64, tol float64, maxIter int) ([]float64, int, error) {
	x := make([]float64, n)
	r := append([]float64(nil), rhs...)
	rhsNorm := vecNorm(rhs)
	if rhsNorm < 1e-300 {
		return x, 0, nil
	}

	rHat := append([]float64(nil), r...)
	rho, alpha, omega := 1.0, 1.0, 1.0
	v := make([]float64, n)
	p := make([]float64, n)

	restartEvery := 2 * n
	if restartEvery < 50 {
		restartEvery = 50
	}

	for iter := 1; iter <= maxIter; iter++ {
		rhoNew := dotv(rHat, r)
		if math.Abs(rhoNew) < 1e-300 {
			// breakdown: restart with the current residual as the new
			// shadow vector, a standard BiCGStab recovery.
			rHat = append([]float64(nil), r...)
			rho, alpha, omega = 1, 1, 1
			for i := range v {
				v[i], p[i] = 0, 0
			}
			continue
		}
		beta := (rhoNew / rho) * (alpha / omega)
		for i := range p {
			p[i] = r[i] + beta*(p[i]-omega*v[i])
		}
		rho = rhoNew

		pHat := precond(p)
		apply(pHat, v)
		alpha = rho / dotv(rHat, v)

		s := make([]float64, n)
		for i := range s {
			s[i] = r[i] - alpha*v[i]
		}
		if vecNorm(s)/rhsNorm < tol {
			for i := range x {
				x[i] += alpha * pHat[i]
			}
			return x, iter, nil
		}

		sHat := precond(s)
		t := make([]float64, n)
		apply(sHat, t)
		tt := dotv(t, t)
		if tt < 1e-300 {
			omega = 0
		} else {
			omega = dotv(t, s) / tt
		}

		for i := range x {
			x[i] += alpha*pHat[i] + omega*sHat[i]
		}
		for i := range r {
			r[i] = s[i] - omega*t[i]
		}

		resNorm := vecNorm(r) / rhsNorm
		if resNorm < tol {
			return x, iter, nil
		}
		if math.Abs(omega) < 1e-300 {
			return x, iter, &simerr.SolverNonConvergence{Iterations: iter, Residual: resNorm}
		}
		if iter%restartEvery == 0 {
			rHat = append([]float64(nil), r...)
			rho, alpha, omega = 1, 1, 1
			for i := range v {
				v[i], p[i] = 0, 0
			}
		}
	}

	return x, maxIter, &simerr.SolverNonConvergence{Iterations: maxIter, Residual: vecNorm(r) / rhsNorm}
}

func dotv(a, b []float64) float64 {
	s := 0.0
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func vecNorm(v []float64) float64 {
	return math.Sqrt(dotv(v, v))
}
