// Package mech defines the abstract mechanical-object contract that
// every simulated entity (filament, rigid body, sphere, bead) implements
// so that meca.System can assemble and solve the implicit step without
// knowing the concrete type of any one object (spec.md §3, §9: tagged-
// variant dispatch in place of virtual dispatch).
package mech

import "github.com/cpmech/gosl/la"

// Object is the mechanical-object contract of spec.md §3. Every method
// works on flattened d*N coordinate vectors, in the object's own local
// ordering; meca.System is responsible for translating between an
// object's local block and its slice of the global vector via Offset.
type Object interface {
	// NumPoints returns N, the number of points this object owns.
	NumPoints() int

	// Dim returns d, the number of spatial dimensions (1, 2 or 3).
	Dim() int

	// Drag returns the object's scalar drag coefficient.
	Drag() float64

	// Offset/SetOffset locate this object's block within the global
	// coordinate vector assembled by meca.System.
	Offset() int
	SetOffset(int)

	// Points returns the current flattened position vector (d*N).
	Points() []float64

	// Prepare recomputes per-step data (e.g. segment tangents) ahead of
	// assembly. Returns a *simerr.InvalidState-wrapping error if the
	// object's geometry is degenerate.
	Prepare() error

	// SetSpeedsFromForces computes Y := s * mu * P * X, the projected
	// mobility operator, where P enforces the object's internal
	// kinematic constraints and mu is the per-point mobility. When
	// storeLagrange is true, the implied Lagrange multipliers (segment
	// tensions for a Filament) are written to the object's persistent
	// array instead of a scratch buffer.
	SetSpeedsFromForces(X, Y []float64, s float64, storeLagrange bool)

	// AddRigidity computes Y += R*X, the object's internal elastic
	// contribution (e.g. bending for a Filament).
	AddRigidity(X, Y []float64)

	// AddRigidityMatUp stamps the symmetric R operator into the global
	// sparse matrix at the diagonal block starting at off, upper
	// triangle only. Values must agree exactly with AddRigidity.
	AddRigidityMatUp(Kb *la.Triplet, off int)

	// AddProjectionDiff adds the linearization correction term (first-
	// order dependence of the projection on position) to Y, using
	// tensions computed during the previous SetSpeedsFromForces call.
	// Objects without a projection (Bead) implement this as a no-op.
	AddProjectionDiff(X, Y []float64)

	// AddBrownianForces adds iid Gaussian impulses with standard
	// deviation sqrt(2*sc/mu) to rhs, and returns the multiplicative
	// constant mapping the Brownian force to a displacement (mu*b),
	// used by the solver to size stochastic terms consistently with
	// implicit integration.
	AddBrownianForces(rhs []float64, sc float64) float64

	// UseBlock reports whether the preconditioner should cache a dense
	// factorization of this object's diagonal block.
	UseBlock() bool
}

// Confinable is implemented by objects that can be restrained against a
// confining surface (spec.md §4.6). t is the current simulation time,
// passed through to any fun.Func-typed stiffness schedule a class
// configures (a constant stiffness ignores it), mirroring fun.Func.F's
// own (t, x) signature.
type Confinable interface {
	Object
	ConfinementSprings(t float64) []ConfinementSpring
}

// PointWeighted is implemented by Confinable objects whose confinement
// springs may target the drag-weighted centroid rather than a single
// stored point (body.Solid). PointWeight(p) is the fraction of the
// object's total drag contributed by point p; meca.System uses it to
// distribute a ConfinementSpring with PointIndex == -1 across the
// object's actual points, weighting the stiffness of each fan-out spring
// by PointWeight so that the net restoring force at the centroid matches
// the single springs.Stiffness configured.
type PointWeighted interface {
	PointWeight(p int) float64
}

// ConfinementSpring is one linear-spring interaction added by a
// confinement mode at the current step (spec.md §4.6); it is stateless
// and rebuilt every step.
type ConfinementSpring struct {
	PointIndex int       // local point index this spring acts on; -1 means the object's drag-weighted centroid rather than a single stored point
	Target     []float64 // projected target position
	Stiffness  float64
}
