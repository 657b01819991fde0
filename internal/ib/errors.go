package ib

import (
	"errors"
	"fmt"
)

// Setup-time errors. All are fatal and abort engine construction
// before any simulation step runs.
var (
	// ErrDuplicateVariable indicates a variable assigned to more than
	// one strategy, or listed twice in one.
	ErrDuplicateVariable = errors.New("ib: variable assigned to more than one strategy")

	// ErrBadAxis indicates an interpolation axis outside {0,1,2}.
	ErrBadAxis = errors.New("ib: interpolation axis outside {0,1,2}")

	// ErrMissingDamping indicates a strategy that requires a damping
	// coefficient got neither a per-variable nor a global one.
	ErrMissingDamping = errors.New("ib: damping coefficient required")

	// ErrNoVariables indicates a strategy configured with an empty
	// variable list.
	ErrNoVariables = errors.New("ib: strategy has no variables")
)

// Evaluation-time errors. All are fatal for the current step and
// propagate to the outer solver.
var (
	// ErrMultipleTransitions indicates a NEUMANN_Z column with more
	// than one fluid/solid transition, for which the marker-and-cell
	// treatment is undefined.
	ErrMultipleTransitions = errors.New("ib: column has more than one fluid/solid transition")

	// ErrMissingWeights indicates a directional strategy ran without a
	// usable interpolation weight field.
	ErrMissingWeights = errors.New("ib: interpolation weight field missing or mis-shaped")

	// ErrHaloExchange indicates the pre-evaluation halo exchange
	// failed; the step aborts rather than computing on stale halos.
	ErrHaloExchange = errors.New("ib: halo exchange failed")

	// ErrMissingField indicates a registered variable had no field or
	// right-hand side supplied for this evaluation.
	ErrMissingField = errors.New("ib: field not supplied for registered variable")
)

// ConfigError is a fatal setup failure with the strategy and variable
// it was detected on.
type ConfigError struct {
	Strategy string
	Variable string
	Wrapped  error
}

func (e *ConfigError) Error() string {
	if e.Variable == "" {
		return fmt.Sprintf("%s: %v", e.Strategy, e.Wrapped)
	}
	return fmt.Sprintf("%s: variable %q: %v", e.Strategy, e.Variable, e.Wrapped)
}

func (e *ConfigError) Unwrap() error { return e.Wrapped }

// StepError aborts the current evaluation. Cell is -1 when the
// failure is not tied to a single cell.
type StepError struct {
	Strategy string
	Variable string
	Cell     int
	Wrapped  error
}

func (e *StepError) Error() string {
	if e.Cell >= 0 {
		return fmt.Sprintf("%s: variable %q: cell %d: %v", e.Strategy, e.Variable, e.Cell, e.Wrapped)
	}
	return fmt.Sprintf("%s: variable %q: %v", e.Strategy, e.Variable, e.Wrapped)
}

func (e *StepError) Unwrap() error { return e.Wrapped }
