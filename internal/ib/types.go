// Package ib implements the immersed boundary forcing engine: it maps
// each registered field variable to one interface-treatment strategy
// and merges the resulting override values and forcing terms into the
// outer solver's field state and right-hand sides.
package ib

import (
	"fmt"

	"github.com/san-kum/ibflow/internal/grid"
	"github.com/san-kum/ibflow/internal/mask"
)

// BoundaryKind selects how a variable's value behaves at the
// solid-fluid interface.
type BoundaryKind uint8

const (
	// Dirichlet prescribes the reference value at the interface.
	Dirichlet BoundaryKind = iota

	// Neumann prescribes the normal gradient; treatments estimate the
	// cell value from fluid-side samples.
	Neumann

	// NeumannZ is the Neumann treatment restricted to the vertical
	// axis, for terrain-like geometries with single-crossed columns.
	NeumannZ
)

func (b BoundaryKind) String() string {
	switch b {
	case Dirichlet:
		return "DIRICHLET"
	case Neumann:
		return "NEUMANN"
	case NeumannZ:
		return "NEUMANN_Z"
	default:
		return fmt.Sprintf("BoundaryKind(%d)", uint8(b))
	}
}

// ParseBoundaryKind converts the configuration spelling of a boundary
// kind.
func ParseBoundaryKind(s string) (BoundaryKind, error) {
	switch s {
	case "dirichlet", "DIRICHLET":
		return Dirichlet, nil
	case "neumann", "NEUMANN":
		return Neumann, nil
	case "neumann_z", "NEUMANN_Z":
		return NeumannZ, nil
	default:
		return 0, fmt.Errorf("unknown boundary kind %q", s)
	}
}

// Dest selects which solver buffer an update targets.
type Dest uint8

const (
	// DestField targets the variable's field values directly.
	DestField Dest = iota

	// DestRHS targets the variable's right-hand side.
	DestRHS
)

func (d Dest) String() string {
	if d == DestField {
		return "FIELD"
	}
	return "RHS"
}

// Op is the merge semantics of an update.
type Op uint8

const (
	// Replace overwrites the destination value.
	Replace Op = iota

	// Add sums into the destination value.
	Add
)

func (o Op) String() string {
	if o == Replace {
		return "REPLACE"
	}
	return "ADD"
}

// Update is one per-cell forcing result. Updates are transient: they
// live in per-call buffers and are consumed within the evaluation.
type Update struct {
	Cell  int
	Dest  Dest
	Op    Op
	Value float64
}

// Variable is the fully-resolved, immutable per-variable
// configuration. Defaults and the per-variable vs strategy-global
// damping precedence are resolved once at setup, never at evaluation
// time.
type Variable struct {
	Name      string
	Reference float64
	Kind      BoundaryKind
	Override  bool
	// Damping is the effective coefficient after precedence
	// resolution; valid only when HasDamping is set.
	Damping    float64
	HasDamping bool
}

// fieldOp maps the variable's override flag to the merge semantics of
// field-value treatments.
func (v Variable) fieldOp() Op {
	if v.Override {
		return Replace
	}
	return Add
}

// Input bundles the read-only state a strategy evaluates against. The
// halo regions of Field, RHS and Mask must be current before
// evaluation begins.
type Input struct {
	Grid    grid.Spec
	Mask    *mask.Mask
	Weights *Weights
	Field   grid.Field
	RHS     grid.Field
}

// Strategy is one interface-treatment method. Apply evaluates the
// treatment for a single variable over the interior of the sub-block,
// appending results to buf and non-fatal findings to rep. Strategies
// share no mutable state, so distinct variables may be applied
// concurrently.
type Strategy interface {
	Name() string
	Variables() []Variable
	Apply(v Variable, in Input, buf *Buffer, rep *Report) error
}

// Sink integrates forcing results into the outer solver's state. The
// engine calls it sequentially, in deterministic variable order, after
// all strategies have been evaluated.
type Sink interface {
	Apply(variable string, cell int, dest Dest, op Op, value float64) error
}
