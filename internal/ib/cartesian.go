package ib

import (
	"github.com/san-kum/ibflow/internal/mask"
)

// CartesianGrid applies the mirror-flow/averaging treatment at the
// solid-fluid interface. Dirichlet variables get the mirror reflection
// about the prescribed boundary value; Neumann variables get the mean
// of the adjacent fluid cells.
type CartesianGrid struct {
	vars []Variable
}

func NewCartesianGrid(vars []Variable) (*CartesianGrid, error) {
	if err := validateVars("cartesian_grid", vars); err != nil {
		return nil, err
	}
	return &CartesianGrid{vars: vars}, nil
}

func (s *CartesianGrid) Name() string { return "cartesian_grid" }

func (s *CartesianGrid) Variables() []Variable { return s.vars }

func (s *CartesianGrid) Apply(v Variable, in Input, buf *Buffer, rep *Report) error {
	op := v.fieldOp()
	in.Grid.EachInterior(func(idx, i, j, k int) {
		if in.Mask.At(idx) != mask.Interface {
			return
		}
		switch v.Kind {
		case Dirichlet:
			nbr, _, ok := in.Mask.FirstFluidNeighbor(idx)
			if !ok {
				rep.Record(v.Name, idx, "no fluid neighbor for mirror value")
				return
			}
			// Mirror reflection enforces the reference value at the
			// virtual interface under linear interpolation.
			buf.Append(Update{Cell: idx, Dest: DestField, Op: op, Value: 2*v.Reference - in.Field[nbr]})
		case Neumann, NeumannZ:
			nbrs := in.Mask.FluidNeighbors(idx)
			if len(nbrs) == 0 {
				rep.Record(v.Name, idx, "neumann cell has no fluid neighbor")
				return
			}
			sum := 0.0
			for _, n := range nbrs {
				sum += in.Field[n]
			}
			buf.Append(Update{Cell: idx, Dest: DestField, Op: op, Value: sum / float64(len(nbrs))})
		}
	})
	return nil
}
