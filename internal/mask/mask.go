// Package mask holds the per-cell solid/fluid classification of the
// local sub-block. The mask is built by a geometry module before the
// run and is read-only during evaluation; if the geometry changes it
// is rebuilt wholesale, never mutated in place.
package mask

import (
	"fmt"

	"github.com/san-kum/ibflow/internal/grid"
)

// Tag classifies a single cell.
type Tag uint8

const (
	// Fluid cells carry the flow solution and are never forced.
	Fluid Tag = iota

	// Solid cells are fully inside the immersed body.
	Solid

	// Interface cells sit on the solid-fluid boundary: solid-side
	// cells with at least one fluid neighbor.
	Interface
)

func (t Tag) String() string {
	switch t {
	case Fluid:
		return "FLUID"
	case Solid:
		return "SOLID"
	case Interface:
		return "INTERFACE"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

// neighborOffsets enumerates the 6-neighborhood in the deterministic
// scan order used everywhere: -x, +x, -y, +y, -z, +z.
var neighborOffsets = [6]struct {
	axis int
	dir  int
}{
	{grid.X, -1}, {grid.X, +1},
	{grid.Y, -1}, {grid.Y, +1},
	{grid.Z, -1}, {grid.Z, +1},
}

// Mask is the classification arena for one padded sub-block.
type Mask struct {
	g    grid.Spec
	tags []Tag
}

// New returns an all-fluid mask for the padded block.
func New(g grid.Spec) *Mask {
	return &Mask{g: g, tags: make([]Tag, g.Len())}
}

func (m *Mask) Grid() grid.Spec { return m.g }

func (m *Mask) At(idx int) Tag { return m.tags[idx] }

func (m *Mask) Set(idx int, t Tag) { m.tags[idx] = t }

// Tags exposes the raw tag slice, e.g. for halo exchange packing.
func (m *Mask) Tags() []Tag { return m.tags }

// inBounds reports whether the cell one step along axis stays inside
// the padded block.
func (m *Mask) inBounds(idx, axis, dir int) bool {
	i, j, k := m.g.Coords(idx)
	switch axis {
	case grid.X:
		i += dir
		return i >= 0 && i < m.g.TotalX()
	case grid.Y:
		j += dir
		return j >= 0 && j < m.g.TotalY()
	default:
		k += dir
		return k >= 0 && k < m.g.TotalZ()
	}
}

// FluidNeighbors returns the linear indices of all fluid cells in the
// 6-neighborhood of idx, in scan order.
func (m *Mask) FluidNeighbors(idx int) []int {
	var out []int
	for _, n := range neighborOffsets {
		if !m.inBounds(idx, n.axis, n.dir) {
			continue
		}
		nbr := idx + n.dir*m.g.Stride(n.axis)
		if m.tags[nbr] == Fluid {
			out = append(out, nbr)
		}
	}
	return out
}

// FirstFluidNeighbor returns the first fluid cell found in the scan
// order -x,+x,-y,+y,-z,+z. All 6-neighbors are equidistant, so the
// first hit is the nearest fluid cell along the shortest
// solid-to-fluid path.
func (m *Mask) FirstFluidNeighbor(idx int) (nbr, axis int, ok bool) {
	for _, n := range neighborOffsets {
		if !m.inBounds(idx, n.axis, n.dir) {
			continue
		}
		c := idx + n.dir*m.g.Stride(n.axis)
		if m.tags[c] == Fluid {
			return c, n.axis, true
		}
	}
	return 0, 0, false
}

// FluidSide locates the fluid sample next to an interface cell along
// one axis. dir is +1 or -1 toward the fluid.
func (m *Mask) FluidSide(idx, axis int) (nbr, dir int, ok bool) {
	for _, d := range [2]int{-1, +1} {
		if !m.inBounds(idx, axis, d) {
			continue
		}
		c := idx + d*m.g.Stride(axis)
		if m.tags[c] == Fluid {
			return c, d, true
		}
	}
	return 0, 0, false
}

// ColumnTransitions counts fluid/non-fluid sign changes along the
// interior z-extent of column (i,j) in padded coordinates.
func (m *Mask) ColumnTransitions(i, j int) int {
	h := m.g.Halo
	count := 0
	prevFluid := m.tags[m.g.Index(i, j, h)] == Fluid
	for k := h + 1; k < h+m.g.NZ; k++ {
		f := m.tags[m.g.Index(i, j, k)] == Fluid
		if f != prevFluid {
			count++
		}
		prevFluid = f
	}
	return count
}

// Validate enforces the mask invariant: every interface cell in the
// interior has at least one fluid 6-neighbor.
func (m *Mask) Validate() error {
	var bad int = -1
	m.g.EachInterior(func(idx, i, j, k int) {
		if bad >= 0 {
			return
		}
		if m.tags[idx] == Interface {
			if _, _, ok := m.FirstFluidNeighbor(idx); !ok {
				bad = idx
			}
		}
	})
	if bad >= 0 {
		i, j, k := m.g.Coords(bad)
		return fmt.Errorf("mask: interface cell (%d,%d,%d) has no fluid neighbor", i, j, k)
	}
	return nil
}

// Counts returns the number of cells per tag over the whole padded
// block.
func (m *Mask) Counts() (fluid, solid, iface int) {
	for _, t := range m.tags {
		switch t {
		case Fluid:
			fluid++
		case Solid:
			solid++
		case Interface:
			iface++
		}
	}
	return
}
