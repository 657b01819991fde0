package ib

import (
	"github.com/san-kum/ibflow/internal/grid"
	"github.com/san-kum/ibflow/internal/mask"
)

// MarkerAndCell applies the marker-and-cell treatment: Dirichlet
// variables get the reference value directly at interface cells;
// Neumann variables copy the value from the cell directly above along
// z. With NEUMANN_Z each vertical column must cross the interface at
// most once.
type MarkerAndCell struct {
	vars []Variable
}

func NewMarkerAndCell(vars []Variable) (*MarkerAndCell, error) {
	if err := validateVars("marker_and_cell", vars); err != nil {
		return nil, err
	}
	return &MarkerAndCell{vars: vars}, nil
}

func (s *MarkerAndCell) Name() string { return "marker_and_cell" }

func (s *MarkerAndCell) Variables() []Variable { return s.vars }

func (s *MarkerAndCell) Apply(v Variable, in Input, buf *Buffer, rep *Report) error {
	if v.Kind == NeumannZ {
		if err := s.checkColumns(in); err != nil {
			return &StepError{Strategy: s.Name(), Variable: v.Name, Cell: -1, Wrapped: err}
		}
	}

	op := v.fieldOp()
	strideZ := in.Grid.Stride(grid.Z)
	var stepErr error

	in.Grid.EachInterior(func(idx, i, j, k int) {
		if stepErr != nil || in.Mask.At(idx) != mask.Interface {
			return
		}
		switch v.Kind {
		case Dirichlet:
			buf.Append(Update{Cell: idx, Dest: DestField, Op: op, Value: v.Reference})
		case Neumann, NeumannZ:
			above := idx + strideZ
			if in.Mask.At(above) != mask.Fluid {
				rep.Record(v.Name, idx, "no fluid cell above interface")
				return
			}
			buf.Append(Update{Cell: idx, Dest: DestField, Op: op, Value: in.Field[above]})
		}
	})
	return stepErr
}

// checkColumns enforces the NEUMANN_Z precondition: the treatment is
// undefined on columns crossing the interface more than once.
func (s *MarkerAndCell) checkColumns(in Input) error {
	g := in.Grid
	h := g.Halo
	for j := h; j < h+g.NY; j++ {
		for i := h; i < h+g.NX; i++ {
			if in.Mask.ColumnTransitions(i, j) > 1 {
				return ErrMultipleTransitions
			}
		}
	}
	return nil
}
