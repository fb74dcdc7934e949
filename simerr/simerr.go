// Package simerr defines the recoverable and fatal error kinds surfaced
// by the core engine, per spec.md §7.
package simerr

import "fmt"

// ConfigurationError signals a missing or inconsistent property, raised
// during Prepare. The caller may fix the property catalog and retry.
type ConfigurationError struct {
	Kind, Name string
	Reason     string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s %q: %s", e.Kind, e.Name, e.Reason)
}

// InvalidState signals that mechanical state became non-finite or that
// an invariant was found broken. Fatal: the caller should abort the run.
type InvalidState struct {
	Where  string
	Reason string
}

func (e *InvalidState) Error() string {
	return fmt.Sprintf("invalid state in %s: %s", e.Where, e.Reason)
}

// SolverNonConvergence signals that the implicit solver exceeded its
// iteration cap. Recoverable: the caller may reduce dt and retry.
type SolverNonConvergence struct {
	Iterations int
	Residual   float64
}

func (e *SolverNonConvergence) Error() string {
	return fmt.Sprintf("solver did not converge after %d iterations (residual=%g)", e.Iterations, e.Residual)
}

// InputError signals a truncated or malformed trajectory frame, an
// unknown tag, or a reference to an undefined property index.
type InputError struct {
	Offset int64
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("input error at offset %d: %s", e.Offset, e.Reason)
}
