package mask

import (
	"testing"

	"github.com/san-kum/ibflow/internal/grid"
)

func testGrid() grid.Spec {
	return grid.Spec{NX: 6, NY: 6, NZ: 6, Halo: 1, DX: 1, DY: 1, DZ: 1}
}

func TestTag_String(t *testing.T) {
	tests := []struct {
		tag  Tag
		want string
	}{
		{Fluid, "FLUID"},
		{Solid, "SOLID"},
		{Interface, "INTERFACE"},
	}
	for _, tt := range tests {
		if got := tt.tag.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestReclassify_BoxShell(t *testing.T) {
	g := testGrid()
	m := New(g)
	m.AddBox([3]int{2, 2, 2}, [3]int{4, 4, 4})
	m.Reclassify()

	// The 3x3x3 box is entirely shell except the center cell.
	if m.At(g.Index(3, 3, 3)) != Solid {
		t.Errorf("box center = %v, want SOLID", m.At(g.Index(3, 3, 3)))
	}
	if m.At(g.Index(2, 3, 3)) != Interface {
		t.Errorf("box face = %v, want INTERFACE", m.At(g.Index(2, 3, 3)))
	}
	if m.At(g.Index(1, 3, 3)) != Fluid {
		t.Errorf("outside box = %v, want FLUID", m.At(g.Index(1, 3, 3)))
	}

	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestValidate_OrphanInterface(t *testing.T) {
	g := testGrid()
	m := New(g)
	// Interface cell surrounded by solid on all sides.
	for _, d := range [][3]int{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}} {
		m.Set(g.Index(3+d[0], 3+d[1], 3+d[2]), Solid)
	}
	m.Set(g.Index(3, 3, 3), Interface)

	if err := m.Validate(); err == nil {
		t.Fatal("Validate() = nil, want error for orphan interface cell")
	}
}

func TestFirstFluidNeighbor_ScanOrder(t *testing.T) {
	g := testGrid()
	m := New(g)
	idx := g.Index(3, 3, 3)
	m.Set(idx, Interface)
	// Block -x so the +x neighbor is the first fluid hit.
	m.Set(g.Index(2, 3, 3), Solid)

	nbr, axis, ok := m.FirstFluidNeighbor(idx)
	if !ok {
		t.Fatal("FirstFluidNeighbor found nothing")
	}
	if axis != grid.X || nbr != g.Index(4, 3, 3) {
		t.Errorf("neighbor = %d axis = %d, want +x neighbor %d", nbr, axis, g.Index(4, 3, 3))
	}
}

func TestFluidSide(t *testing.T) {
	g := testGrid()
	m, err := Slab(g, grid.Z, 3)
	if err != nil {
		t.Fatal(err)
	}

	idx := g.Index(3, 3, 3) // interface row of the slab
	if m.At(idx) != Interface {
		t.Fatalf("slab top = %v, want INTERFACE", m.At(idx))
	}

	nbr, dir, ok := m.FluidSide(idx, grid.Z)
	if !ok || dir != +1 || nbr != g.Index(3, 3, 4) {
		t.Errorf("FluidSide = (%d,%d,%v), want fluid above", nbr, dir, ok)
	}

	if _, _, ok := m.FluidSide(idx, grid.X); ok {
		t.Error("FluidSide along x found fluid inside the slab row")
	}
}

func TestColumnTransitions(t *testing.T) {
	g := testGrid()

	single, err := Slab(g, grid.Z, 3)
	if err != nil {
		t.Fatal(err)
	}
	if n := single.ColumnTransitions(3, 3); n != 1 {
		t.Errorf("slab column transitions = %d, want 1", n)
	}

	double := New(g)
	double.AddSlab(grid.Z, 2)
	// Detached solid layer higher up the same column.
	double.AddBox([3]int{1, 1, 5}, [3]int{6, 6, 5})
	double.Reclassify()
	if n := double.ColumnTransitions(3, 3); n != 3 {
		t.Errorf("double-crossed column transitions = %d, want 3", n)
	}

	empty := New(g)
	if n := empty.ColumnTransitions(3, 3); n != 0 {
		t.Errorf("all-fluid column transitions = %d, want 0", n)
	}
}

func TestCounts(t *testing.T) {
	g := grid.Spec{NX: 2, NY: 2, NZ: 2, Halo: 1, DX: 1, DY: 1, DZ: 1}
	m := New(g)
	m.Set(g.Index(1, 1, 1), Solid)
	m.Set(g.Index(2, 1, 1), Interface)

	fluid, solid, iface := m.Counts()
	if solid != 1 || iface != 1 || fluid != g.Len()-2 {
		t.Errorf("Counts() = (%d,%d,%d)", fluid, solid, iface)
	}
}
