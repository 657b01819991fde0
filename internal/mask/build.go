package mask

import "github.com/san-kum/ibflow/internal/grid"

// Builders for simple immersed geometries. A real geometry module
// supplies the mask; these produce valid masks for demos and tests.

// AddBox marks the padded-coordinate box [lo, hi] (inclusive) as
// solid. Call Reclassify afterwards to derive the interface shell.
func (m *Mask) AddBox(lo, hi [3]int) {
	clamp := func(v, max int) int {
		if v < 0 {
			return 0
		}
		if v >= max {
			return max - 1
		}
		return v
	}
	x0, x1 := clamp(lo[0], m.g.TotalX()), clamp(hi[0], m.g.TotalX())
	y0, y1 := clamp(lo[1], m.g.TotalY()), clamp(hi[1], m.g.TotalY())
	z0, z1 := clamp(lo[2], m.g.TotalZ()), clamp(hi[2], m.g.TotalZ())

	for k := z0; k <= z1; k++ {
		for j := y0; j <= y1; j++ {
			for i := x0; i <= x1; i++ {
				m.tags[m.g.Index(i, j, k)] = Solid
			}
		}
	}
}

// AddSlab marks every cell with padded coordinate <= top along axis as
// solid, across the full extent of the other two axes.
func (m *Mask) AddSlab(axis, top int) {
	for idx := range m.tags {
		i, j, k := m.g.Coords(idx)
		c := [3]int{i, j, k}[axis]
		if c <= top {
			m.tags[idx] = Solid
		}
	}
}

// Reclassify converts every solid cell with a fluid 6-neighbor into an
// interface cell. Run once after all geometry has been added.
func (m *Mask) Reclassify() {
	iface := make([]int, 0, 64)
	for idx, t := range m.tags {
		if t != Solid {
			continue
		}
		for _, n := range neighborOffsets {
			if !m.inBounds(idx, n.axis, n.dir) {
				continue
			}
			if m.tags[idx+n.dir*m.g.Stride(n.axis)] == Fluid {
				iface = append(iface, idx)
				break
			}
		}
	}
	for _, idx := range iface {
		m.tags[idx] = Interface
	}
}

// Slab is a convenience constructor: a solid slab at the low end of
// axis with its interface shell, validated.
func Slab(g grid.Spec, axis, top int) (*Mask, error) {
	m := New(g)
	m.AddSlab(axis, top)
	m.Reclassify()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Box is a convenience constructor: a solid box with its interface
// shell, validated.
func Box(g grid.Spec, lo, hi [3]int) (*Mask, error) {
	m := New(g)
	m.AddBox(lo, hi)
	m.Reclassify()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}
