// Package grid provides the structured sub-block view the immersed
// boundary engine operates on: local dimensions plus a ghost (halo)
// layer, per-axis spacing, and linearized cell indexing.
package grid

import (
	"fmt"
	"math"
)

// Axis indices used across the engine.
const (
	X = 0
	Y = 1
	Z = 2
)

// Spec describes the local sub-block: interior cell counts per axis, a
// halo of fixed width on every face, and grid spacing per axis. The
// block is owned by the outer solver; the engine holds this view only.
type Spec struct {
	NX, NY, NZ int
	Halo       int
	DX, DY, DZ float64
}

func (g Spec) Validate() error {
	if g.NX <= 0 || g.NY <= 0 || g.NZ <= 0 {
		return fmt.Errorf("grid: interior dimensions must be positive, got (%d,%d,%d)", g.NX, g.NY, g.NZ)
	}
	if g.Halo < 1 {
		return fmt.Errorf("grid: halo width must be at least 1, got %d", g.Halo)
	}
	if g.DX <= 0 || g.DY <= 0 || g.DZ <= 0 {
		return fmt.Errorf("grid: spacing must be positive, got (%g,%g,%g)", g.DX, g.DY, g.DZ)
	}
	return nil
}

// TotalX is the padded extent along x, interior plus both halo layers.
func (g Spec) TotalX() int { return g.NX + 2*g.Halo }
func (g Spec) TotalY() int { return g.NY + 2*g.Halo }
func (g Spec) TotalZ() int { return g.NZ + 2*g.Halo }

// Len is the number of cells in the padded block.
func (g Spec) Len() int { return g.TotalX() * g.TotalY() * g.TotalZ() }

// Index linearizes padded coordinates (i,j,k), x fastest.
func (g Spec) Index(i, j, k int) int {
	return (k*g.TotalY()+j)*g.TotalX() + i
}

// Coords inverts Index.
func (g Spec) Coords(idx int) (i, j, k int) {
	tx, ty := g.TotalX(), g.TotalY()
	i = idx % tx
	j = (idx / tx) % ty
	k = idx / (tx * ty)
	return
}

// Stride is the linear-index step for a unit move along axis.
func (g Spec) Stride(axis int) int {
	switch axis {
	case X:
		return 1
	case Y:
		return g.TotalX()
	default:
		return g.TotalX() * g.TotalY()
	}
}

// Spacing returns the cell width along axis.
func (g Spec) Spacing(axis int) float64 {
	switch axis {
	case X:
		return g.DX
	case Y:
		return g.DY
	default:
		return g.DZ
	}
}

// Interior reports whether padded coordinates lie in the interior
// (non-halo) region.
func (g Spec) Interior(i, j, k int) bool {
	h := g.Halo
	return i >= h && i < h+g.NX &&
		j >= h && j < h+g.NY &&
		k >= h && k < h+g.NZ
}

// EachInterior calls fn for every interior cell. Iteration order is
// deterministic: k, then j, then i ascending.
func (g Spec) EachInterior(fn func(idx, i, j, k int)) {
	h := g.Halo
	for k := h; k < h+g.NZ; k++ {
		for j := h; j < h+g.NY; j++ {
			base := (k*g.TotalY() + j) * g.TotalX()
			for i := h; i < h+g.NX; i++ {
				fn(base+i, i, j, k)
			}
		}
	}
}

// Field is per-cell scalar storage sized to the padded block.
type Field []float64

func NewField(g Spec) Field {
	return make(Field, g.Len())
}

func (f Field) Clone() Field {
	c := make(Field, len(f))
	copy(c, f)
	return c
}

func (f Field) Fill(v float64) {
	for i := range f {
		f[i] = v
	}
}

// IsValid reports whether the field is free of NaN and Inf.
func (f Field) IsValid() bool {
	for _, v := range f {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
