package ib

import (
	"github.com/san-kum/ibflow/internal/mask"
)

// The two directional treatments share the same targeting: at an
// interface cell crossed along one axis, the interpolation weight
// w in [0,1] blends the prescribed boundary condition with the
// fluid-side sample into a target value. They differ only in how the
// target reaches the right-hand side.

// interp1d holds the shared axis configuration and target math.
type interp1d struct {
	vars []Variable
	axis int
}

func newInterp1d(name string, vars []Variable, axis int) (interp1d, error) {
	if err := validateVars(name, vars); err != nil {
		return interp1d{}, err
	}
	if axis < 0 || axis > 2 {
		return interp1d{}, &ConfigError{Strategy: name, Wrapped: ErrBadAxis}
	}
	return interp1d{vars: vars, axis: axis}, nil
}

// target computes the blended value at an interface cell, or records
// an anomaly and reports ok=false when no fluid sample exists along
// the axis.
func (s interp1d) target(v Variable, in Input, idx int, rep *Report) (float64, bool) {
	nbr, _, ok := in.Mask.FluidSide(idx, s.axis)
	if !ok {
		rep.Record(v.Name, idx, "no fluid sample along interpolation axis")
		return 0, false
	}
	w := in.Weights.At(s.axis, idx)
	f := in.Field[nbr]

	switch v.Kind {
	case Dirichlet:
		// Linear blend: w weights the prescribed value, 1-w the
		// fluid-side sample.
		return w*v.Reference + (1-w)*f, true
	default:
		// One-sided estimate consistent with the prescribed normal
		// gradient at the sub-cell interface position.
		h := in.Grid.Spacing(s.axis)
		return f - v.Reference*h*(1-w), true
	}
}

// DirectForcing1D replaces the right-hand side at interface cells
// crossed along the configured axis with the blended target. Interior
// solid cells are left untouched.
type DirectForcing1D struct {
	interp1d
}

func NewDirectForcing1D(vars []Variable, axis int) (*DirectForcing1D, error) {
	in, err := newInterp1d("direct_forcing_1d_interp", vars, axis)
	if err != nil {
		return nil, err
	}
	return &DirectForcing1D{interp1d: in}, nil
}

func (s *DirectForcing1D) Name() string { return "direct_forcing_1d_interp" }

func (s *DirectForcing1D) Variables() []Variable { return s.vars }

func (s *DirectForcing1D) Apply(v Variable, in Input, buf *Buffer, rep *Report) error {
	if err := checkWeights(in.Grid, in.Weights, s.axis); err != nil {
		return &StepError{Strategy: s.Name(), Variable: v.Name, Cell: -1, Wrapped: err}
	}
	in.Grid.EachInterior(func(idx, i, j, k int) {
		if in.Mask.At(idx) != mask.Interface {
			return
		}
		if t, ok := s.target(v, in, idx, rep); ok {
			buf.Append(Update{Cell: idx, Dest: DestRHS, Op: Replace, Value: t})
		}
	})
	return nil
}

// FeedbackForce1D uses the same targeting but adds a proportional
// feedback term k*(target - value) to the right-hand side instead of
// replacing it.
type FeedbackForce1D struct {
	interp1d
}

// defaultFeedbackCoeff applies when neither the variable nor the
// strategy sets a coefficient.
const defaultFeedbackCoeff = 1.0

func NewFeedbackForce1D(vars []Variable, axis int, global float64, hasGlobal bool) (*FeedbackForce1D, error) {
	if !hasGlobal {
		global = defaultFeedbackCoeff
	}
	resolved := make([]Variable, len(vars))
	for i, v := range vars {
		if !v.HasDamping {
			v.Damping = global
			v.HasDamping = true
		}
		resolved[i] = v
	}
	in, err := newInterp1d("feedback_force_1d_interp", resolved, axis)
	if err != nil {
		return nil, err
	}
	return &FeedbackForce1D{interp1d: in}, nil
}

func (s *FeedbackForce1D) Name() string { return "feedback_force_1d_interp" }

func (s *FeedbackForce1D) Variables() []Variable { return s.vars }

func (s *FeedbackForce1D) Apply(v Variable, in Input, buf *Buffer, rep *Report) error {
	if err := checkWeights(in.Grid, in.Weights, s.axis); err != nil {
		return &StepError{Strategy: s.Name(), Variable: v.Name, Cell: -1, Wrapped: err}
	}
	in.Grid.EachInterior(func(idx, i, j, k int) {
		if in.Mask.At(idx) != mask.Interface {
			return
		}
		if t, ok := s.target(v, in, idx, rep); ok {
			buf.Append(Update{Cell: idx, Dest: DestRHS, Op: Add, Value: v.Damping * (t - in.Field[idx])})
		}
	})
	return nil
}
