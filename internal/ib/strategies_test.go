package ib

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/ibflow/internal/grid"
	"github.com/san-kum/ibflow/internal/mask"
)

// columnGrid is the 1-D test column: 5 interior cells along z.
func columnGrid() grid.Spec {
	return grid.Spec{NX: 1, NY: 1, NZ: 5, Halo: 1, DX: 0.1, DY: 0.1, DZ: 0.1}
}

// columnMask tags full z-planes so side neighbors never read as
// fluid: SOLID, SOLID, INTERFACE, FLUID, FLUID over the interior.
func columnMask(g grid.Spec) *mask.Mask {
	m := mask.New(g)
	for k := 0; k < g.TotalZ(); k++ {
		var tag mask.Tag
		switch {
		case k <= 2:
			tag = mask.Solid
		case k == 3:
			tag = mask.Interface
		default:
			tag = mask.Fluid
		}
		for j := 0; j < g.TotalY(); j++ {
			for i := 0; i < g.TotalX(); i++ {
				m.Set(g.Index(i, j, k), tag)
			}
		}
	}
	return m
}

// maskBox is a shared fixture: a solid box with interface shell
// inside the interior of g.
func maskBox(g grid.Spec) (*mask.Mask, error) {
	return mask.Box(g, [3]int{3, 3, 3}, [3]int{6, 6, 6})
}

func columnInput(g grid.Spec, m *mask.Mask, fluidValue float64) Input {
	f := grid.NewField(g)
	f.Fill(fluidValue)
	return Input{Grid: g, Mask: m, Field: f, RHS: grid.NewField(g)}
}

func applyOne(t *testing.T, s Strategy, in Input) (*Buffer, *Report) {
	t.Helper()
	buf := &Buffer{}
	rep := NewReport()
	v := s.Variables()[0]
	if err := s.Apply(v, in, buf, rep); err != nil {
		t.Fatalf("Apply() = %v", err)
	}
	return buf, rep
}

func TestCartesianGrid_DirichletMirror(t *testing.T) {
	g := columnGrid()
	m := columnMask(g)

	s, err := NewCartesianGrid([]Variable{
		{Name: "T", Reference: 300.0, Kind: Dirichlet, Override: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	in := columnInput(g, m, 310.0)
	buf, rep := applyOne(t, s, in)

	if rep.Total() != 0 {
		t.Errorf("anomalies = %d, want 0", rep.Total())
	}
	if buf.Len() != 1 {
		t.Fatalf("updates = %d, want 1", buf.Len())
	}
	u := buf.Updates()[0]
	want := Update{Cell: g.Index(1, 1, 3), Dest: DestField, Op: Replace, Value: 290.0}
	if u != want {
		t.Errorf("update = %+v, want %+v", u, want)
	}
}

func TestCartesianGrid_MirrorProperty(t *testing.T) {
	// For any fluid sample f and reference r the mirror value is
	// exactly 2r - f.
	g := columnGrid()
	m := columnMask(g)

	cases := []struct{ f, r float64 }{
		{310, 300}, {0, 0}, {-5.5, 2.25}, {1e6, -1e6},
	}
	for _, c := range cases {
		s, err := NewCartesianGrid([]Variable{
			{Name: "T", Reference: c.r, Kind: Dirichlet, Override: true},
		})
		if err != nil {
			t.Fatal(err)
		}
		buf, _ := applyOne(t, s, columnInput(g, m, c.f))
		got := buf.Updates()[0].Value
		if got != 2*c.r-c.f {
			t.Errorf("mirror(f=%g, r=%g) = %g, want %g", c.f, c.r, got, 2*c.r-c.f)
		}
	}
}

func TestCartesianGrid_NeumannAverage(t *testing.T) {
	g := columnGrid()
	m := columnMask(g)

	s, err := NewCartesianGrid([]Variable{
		{Name: "T", Kind: Neumann, Override: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	in := columnInput(g, m, 310.0)
	buf, rep := applyOne(t, s, in)

	if rep.Total() != 0 {
		t.Errorf("anomalies = %d, want 0", rep.Total())
	}
	// Only fluid neighbor of the interface cell is above: mean = 310.
	u := buf.Updates()[0]
	if u.Value != 310.0 || u.Op != Replace || u.Dest != DestField {
		t.Errorf("update = %+v", u)
	}
}

func TestCartesianGrid_NeumannIdempotent(t *testing.T) {
	g := columnGrid()
	m := columnMask(g)

	s, err := NewCartesianGrid([]Variable{
		{Name: "T", Kind: Neumann, Override: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	in := columnInput(g, m, 310.0)

	buf1, _ := applyOne(t, s, in)
	for _, u := range buf1.Updates() {
		in.Field[u.Cell] = u.Value
	}
	buf2, _ := applyOne(t, s, in)

	if buf1.Len() != buf2.Len() {
		t.Fatalf("update counts differ: %d vs %d", buf1.Len(), buf2.Len())
	}
	for i := range buf1.Updates() {
		if buf1.Updates()[i] != buf2.Updates()[i] {
			t.Errorf("rerun diverged at %d: %+v vs %+v", i, buf1.Updates()[i], buf2.Updates()[i])
		}
	}
}

func TestCartesianGrid_NeumannNoFluidNeighborAnomaly(t *testing.T) {
	g := grid.Spec{NX: 3, NY: 3, NZ: 3, Halo: 1, DX: 1, DY: 1, DZ: 1}
	m := mask.New(g)
	// Interface cell completely enclosed by solid: invalid geometry,
	// surfaced as a warning, never an abort.
	for idx := 0; idx < g.Len(); idx++ {
		m.Set(idx, mask.Solid)
	}
	m.Set(g.Index(2, 2, 2), mask.Interface)

	s, err := NewCartesianGrid([]Variable{
		{Name: "T", Kind: Neumann, Override: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	in := columnInput(g, m, 1.0)
	buf, rep := applyOne(t, s, in)

	if buf.Len() != 0 {
		t.Errorf("updates = %d, want cell left unmodified", buf.Len())
	}
	if rep.Total() != 1 || rep.Count("T") != 1 {
		t.Errorf("anomalies = %d (T: %d), want 1", rep.Total(), rep.Count("T"))
	}
}

func TestCartesianGrid_OverrideFalseAdds(t *testing.T) {
	g := columnGrid()
	m := columnMask(g)

	s, err := NewCartesianGrid([]Variable{
		{Name: "T", Reference: 300.0, Kind: Dirichlet, Override: false},
	})
	if err != nil {
		t.Fatal(err)
	}
	buf, _ := applyOne(t, s, columnInput(g, m, 310.0))
	if buf.Updates()[0].Op != Add {
		t.Errorf("op = %v, want ADD when override is false", buf.Updates()[0].Op)
	}
}

func TestMarkerAndCell_DirichletAssignsReference(t *testing.T) {
	g := columnGrid()
	m := columnMask(g)

	s, err := NewMarkerAndCell([]Variable{
		{Name: "T", Reference: 300.0, Kind: Dirichlet, Override: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	buf, _ := applyOne(t, s, columnInput(g, m, 310.0))

	u := buf.Updates()[0]
	if u.Value != 300.0 || u.Cell != g.Index(1, 1, 3) {
		t.Errorf("update = %+v, want reference assigned at interface", u)
	}
}

func TestMarkerAndCell_NeumannZCopiesFromAbove(t *testing.T) {
	g := columnGrid()
	m := columnMask(g)

	s, err := NewMarkerAndCell([]Variable{
		{Name: "T", Kind: NeumannZ, Override: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	in := columnInput(g, m, 0)
	in.Field[g.Index(1, 1, 4)] = 42.0
	buf, _ := applyOne(t, s, in)

	u := buf.Updates()[0]
	if u.Value != 42.0 || u.Cell != g.Index(1, 1, 3) {
		t.Errorf("update = %+v, want copy from the cell above", u)
	}
}

func TestMarkerAndCell_NeumannZMultipleTransitions(t *testing.T) {
	g := columnGrid()
	m := columnMask(g)
	// Second solid layer detached above the first: two crossings.
	for j := 0; j < g.TotalY(); j++ {
		for i := 0; i < g.TotalX(); i++ {
			m.Set(g.Index(i, j, 5), mask.Solid)
		}
	}

	s, err := NewMarkerAndCell([]Variable{
		{Name: "T", Kind: NeumannZ, Override: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	v := s.Variables()[0]
	err = s.Apply(v, columnInput(g, m, 0), &Buffer{}, NewReport())
	if !errors.Is(err, ErrMultipleTransitions) {
		t.Fatalf("Apply() = %v, want ErrMultipleTransitions", err)
	}
	var se *StepError
	if !errors.As(err, &se) {
		t.Fatal("error is not a StepError")
	}
}

func TestRayleighDamping_AddsForcing(t *testing.T) {
	g := columnGrid()
	m := columnMask(g)

	s, err := NewRayleighDamping([]Variable{
		{Name: "T", Reference: 300.0, Kind: Dirichlet, Override: true},
	}, 2.0, true)
	if err != nil {
		t.Fatal(err)
	}

	buf, _ := applyOne(t, s, columnInput(g, m, 310.0))

	// Every solid-side cell (3 solid + 1 interface... the column has
	// interior cells k=1..5, of which k=1,2 solid and k=3 interface).
	if buf.Len() != 3 {
		t.Fatalf("updates = %d, want 3 solid-side cells", buf.Len())
	}
	for _, u := range buf.Updates() {
		if u.Dest != DestRHS || u.Op != Add {
			t.Errorf("update %+v, want ADD to RHS", u)
		}
		if u.Value != -2.0*(310.0-300.0) {
			t.Errorf("forcing = %g, want %g", u.Value, -20.0)
		}
	}
}

func TestRayleighDamping_PerVariableCoeffWins(t *testing.T) {
	s, err := NewRayleighDamping([]Variable{
		{Name: "T", Reference: 0, Kind: Dirichlet, Override: true, Damping: 5.0, HasDamping: true},
		{Name: "q", Reference: 0, Kind: Dirichlet, Override: true},
	}, 2.0, true)
	if err != nil {
		t.Fatal(err)
	}

	vars := s.Variables()
	if vars[0].Damping != 5.0 {
		t.Errorf("T damping = %g, want per-variable 5.0", vars[0].Damping)
	}
	if vars[1].Damping != 2.0 {
		t.Errorf("q damping = %g, want global 2.0", vars[1].Damping)
	}
}

func TestRayleighDamping_MissingCoeff(t *testing.T) {
	_, err := NewRayleighDamping([]Variable{
		{Name: "T", Kind: Dirichlet, Override: true},
	}, 0, false)
	if !errors.Is(err, ErrMissingDamping) {
		t.Fatalf("err = %v, want ErrMissingDamping", err)
	}
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Fatal("error is not a ConfigError")
	}
}

func TestDirectForcing_ReplacesRHS(t *testing.T) {
	g := columnGrid()
	m := columnMask(g)

	s, err := NewDirectForcing([]Variable{
		{Name: "u", Reference: 0.0, Kind: Dirichlet, Override: true},
	}, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if s.Variables()[0].Damping != 1.0 {
		t.Fatalf("default coeff = %g, want 1.0", s.Variables()[0].Damping)
	}

	in := columnInput(g, m, 3.0)
	// Nonzero original RHS must be discarded entirely.
	in.RHS.Fill(99.0)
	buf, _ := applyOne(t, s, in)

	for _, u := range buf.Updates() {
		if u.Op != Replace || u.Dest != DestRHS {
			t.Errorf("update %+v, want REPLACE of RHS", u)
		}
		if u.Value != -1.0*(3.0-0.0) {
			t.Errorf("forcing = %g, want %g", u.Value, -3.0)
		}
	}
}

func TestDirectForcing1D_DirichletBlend(t *testing.T) {
	g := columnGrid()
	m := columnMask(g)

	s, err := NewDirectForcing1D([]Variable{
		{Name: "u", Reference: 0.0, Kind: Dirichlet, Override: true},
	}, grid.Z)
	if err != nil {
		t.Fatal(err)
	}

	in := columnInput(g, m, 4.0)
	in.RHS.Fill(7.0)
	in.Weights = NewWeights(g)
	iface := g.Index(1, 1, 3)
	in.Weights.Set(grid.Z, iface, 0.25)

	buf, rep := applyOne(t, s, in)

	if rep.Total() != 0 {
		t.Errorf("anomalies = %d", rep.Total())
	}
	// Forcing lands at the interface cell only; interior solid cells
	// stay untouched.
	if buf.Len() != 1 {
		t.Fatalf("updates = %d, want 1", buf.Len())
	}
	u := buf.Updates()[0]
	want := Update{Cell: iface, Dest: DestRHS, Op: Replace, Value: 0.25*0.0 + 0.75*4.0}
	if u != want {
		t.Errorf("update = %+v, want %+v", u, want)
	}
}

func TestDirectForcing1D_NeumannTarget(t *testing.T) {
	g := columnGrid()
	m := columnMask(g)

	gradient := 2.0
	s, err := NewDirectForcing1D([]Variable{
		{Name: "u", Reference: gradient, Kind: Neumann, Override: true},
	}, grid.Z)
	if err != nil {
		t.Fatal(err)
	}

	in := columnInput(g, m, 4.0)
	in.Weights = NewWeights(g)
	iface := g.Index(1, 1, 3)
	in.Weights.Set(grid.Z, iface, 0.5)

	buf, _ := applyOne(t, s, in)
	want := 4.0 - gradient*g.DZ*(1-0.5)
	if got := buf.Updates()[0].Value; math.Abs(got-want) > 1e-12 {
		t.Errorf("neumann target = %g, want %g", got, want)
	}
}

func TestDirectForcing1D_MissingWeights(t *testing.T) {
	g := columnGrid()
	m := columnMask(g)

	s, err := NewDirectForcing1D([]Variable{
		{Name: "u", Kind: Dirichlet, Override: true},
	}, grid.Z)
	if err != nil {
		t.Fatal(err)
	}

	in := columnInput(g, m, 4.0) // no weights supplied
	err = s.Apply(s.Variables()[0], in, &Buffer{}, NewReport())
	if !errors.Is(err, ErrMissingWeights) {
		t.Fatalf("Apply() = %v, want ErrMissingWeights", err)
	}
}

func TestInterp1D_BadAxis(t *testing.T) {
	_, err := NewDirectForcing1D([]Variable{
		{Name: "u", Kind: Dirichlet, Override: true},
	}, 3)
	if !errors.Is(err, ErrBadAxis) {
		t.Fatalf("err = %v, want ErrBadAxis", err)
	}
	_, err = NewFeedbackForce1D([]Variable{
		{Name: "u", Kind: Dirichlet, Override: true},
	}, -1, 0, false)
	if !errors.Is(err, ErrBadAxis) {
		t.Fatalf("err = %v, want ErrBadAxis", err)
	}
}

func TestFeedbackForce1D_AddsProportionalTerm(t *testing.T) {
	g := columnGrid()
	m := columnMask(g)

	s, err := NewFeedbackForce1D([]Variable{
		{Name: "u", Reference: 0.0, Kind: Dirichlet, Override: true},
	}, grid.Z, 2.0, true)
	if err != nil {
		t.Fatal(err)
	}

	in := columnInput(g, m, 4.0)
	in.Weights = NewWeights(g)
	iface := g.Index(1, 1, 3)
	in.Weights.Set(grid.Z, iface, 0.25)
	in.Field[iface] = 1.0

	buf, _ := applyOne(t, s, in)
	if buf.Len() != 1 {
		t.Fatalf("updates = %d, want 1", buf.Len())
	}
	u := buf.Updates()[0]
	// target = 0.75*4 = 3; forcing = k*(target - value) = 2*(3-1).
	want := Update{Cell: iface, Dest: DestRHS, Op: Add, Value: 4.0}
	if u != want {
		t.Errorf("update = %+v, want %+v", u, want)
	}
}

func TestFeedbackForce1D_DefaultCoeff(t *testing.T) {
	s, err := NewFeedbackForce1D([]Variable{
		{Name: "u", Kind: Dirichlet, Override: true},
	}, grid.Z, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	if s.Variables()[0].Damping != 1.0 {
		t.Errorf("default coeff = %g, want 1.0", s.Variables()[0].Damping)
	}
}

func TestValidateVars(t *testing.T) {
	if _, err := NewCartesianGrid(nil); !errors.Is(err, ErrNoVariables) {
		t.Errorf("empty vars err = %v, want ErrNoVariables", err)
	}
	_, err := NewCartesianGrid([]Variable{
		{Name: "T", Kind: Dirichlet},
		{Name: "T", Kind: Neumann},
	})
	if !errors.Is(err, ErrDuplicateVariable) {
		t.Errorf("duplicate vars err = %v, want ErrDuplicateVariable", err)
	}
}
