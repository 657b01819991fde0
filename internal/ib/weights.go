package ib

import (
	"fmt"

	"github.com/san-kum/ibflow/internal/grid"
)

// Weights is the externally supplied interpolation weight field: a
// per-cell, per-axis scalar in [0,1] describing the sub-cell position
// of the interface along that axis. Only the two one-dimensional
// interpolation treatments consume it.
type Weights struct {
	axes [3]grid.Field
}

// NewWeights allocates an all-zero weight field for the padded block.
func NewWeights(g grid.Spec) *Weights {
	var w Weights
	for a := range w.axes {
		w.axes[a] = grid.NewField(g)
	}
	return &w
}

// Axis exposes the weight plane for one axis, e.g. for a geometry
// module to fill in.
func (w *Weights) Axis(axis int) grid.Field { return w.axes[axis] }

// At returns the weight at cell idx for axis.
func (w *Weights) At(axis, idx int) float64 { return w.axes[axis][idx] }

// Set stores the weight at cell idx for axis, clamped to [0,1].
func (w *Weights) Set(axis, idx int, v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	w.axes[axis][idx] = v
}

// Fill sets every cell of every axis to v, clamped to [0,1]. Demo
// setups use it for a half-cell interface position.
func (w *Weights) Fill(v float64) {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	for a := range w.axes {
		w.axes[a].Fill(v)
	}
}

// checkWeights verifies presence and shape for a directional strategy
// configured on axis. Absence is a runtime error, not a setup error:
// the weight field is supplied per evaluation.
func checkWeights(g grid.Spec, w *Weights, axis int) error {
	if w == nil {
		return ErrMissingWeights
	}
	if axis < 0 || axis > 2 {
		return ErrBadAxis
	}
	if len(w.axes[axis]) != g.Len() {
		return fmt.Errorf("%w: axis %d has %d cells, grid has %d",
			ErrMissingWeights, axis, len(w.axes[axis]), g.Len())
	}
	return nil
}
