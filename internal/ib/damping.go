package ib

import (
	"github.com/san-kum/ibflow/internal/mask"
)

// RayleighDamping is the sponge treatment: for every solid-side cell
// it adds -k*(value - reference) to the variable's right-hand side,
// relaxing the field toward the reference inside the body over many
// steps. k is the effective per-variable coefficient resolved at
// setup.
type RayleighDamping struct {
	vars []Variable
}

// NewRayleighDamping resolves the per-variable vs global damping
// precedence once: a variable without its own coefficient takes the
// strategy-global one; if neither exists construction fails, since no
// sensible default exists for a sponge.
func NewRayleighDamping(vars []Variable, global float64, hasGlobal bool) (*RayleighDamping, error) {
	if err := validateVars("rayleigh_damping", vars); err != nil {
		return nil, err
	}
	resolved := make([]Variable, len(vars))
	for i, v := range vars {
		if !v.HasDamping {
			if !hasGlobal {
				return nil, &ConfigError{Strategy: "rayleigh_damping", Variable: v.Name, Wrapped: ErrMissingDamping}
			}
			v.Damping = global
			v.HasDamping = true
		}
		resolved[i] = v
	}
	return &RayleighDamping{vars: resolved}, nil
}

func (s *RayleighDamping) Name() string { return "rayleigh_damping" }

func (s *RayleighDamping) Variables() []Variable { return s.vars }

func (s *RayleighDamping) Apply(v Variable, in Input, buf *Buffer, rep *Report) error {
	applyDamping(v, in, buf, Add)
	return nil
}

// DirectForcing uses the same damping formula but replaces the
// right-hand side entirely: whatever the governing equation computed
// inside the solid is discarded.
type DirectForcing struct {
	vars []Variable
}

// defaultDirectForcingCoeff applies when neither the variable nor the
// strategy sets a coefficient.
const defaultDirectForcingCoeff = 1.0

func NewDirectForcing(vars []Variable, global float64, hasGlobal bool) (*DirectForcing, error) {
	if err := validateVars("direct_forcing", vars); err != nil {
		return nil, err
	}
	if !hasGlobal {
		global = defaultDirectForcingCoeff
	}
	resolved := make([]Variable, len(vars))
	for i, v := range vars {
		if !v.HasDamping {
			v.Damping = global
			v.HasDamping = true
		}
		resolved[i] = v
	}
	return &DirectForcing{vars: resolved}, nil
}

func (s *DirectForcing) Name() string { return "direct_forcing" }

func (s *DirectForcing) Variables() []Variable { return s.vars }

func (s *DirectForcing) Apply(v Variable, in Input, buf *Buffer, rep *Report) error {
	applyDamping(v, in, buf, Replace)
	return nil
}

// applyDamping emits -k*(value - reference) at every solid-side cell,
// interface cells included. op distinguishes the sponge (Add) from
// direct forcing (Replace).
func applyDamping(v Variable, in Input, buf *Buffer, op Op) {
	k := v.Damping
	in.Grid.EachInterior(func(idx, i, j, kk int) {
		if in.Mask.At(idx) == mask.Fluid {
			return
		}
		buf.Append(Update{Cell: idx, Dest: DestRHS, Op: op, Value: -k * (in.Field[idx] - v.Reference)})
	})
}
