package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/ibflow/internal/grid"
	"github.com/san-kum/ibflow/internal/halo"
	"github.com/san-kum/ibflow/internal/ib"
	"github.com/san-kum/ibflow/internal/mask"
)

func slabSetup(t *testing.T, strategies []ib.Strategy, opts ...ib.Option) (*Solver, grid.Spec, *mask.Mask) {
	t.Helper()
	g := grid.Spec{NX: 6, NY: 6, NZ: 8, Halo: 1, DX: 0.1, DY: 0.1, DZ: 0.1}
	m, err := mask.Slab(g, grid.Z, 3)
	require.NoError(t, err)

	eng, err := ib.New(g, strategies, opts...)
	require.NoError(t, err)

	s, err := New(eng, m, DefaultWeights(g), Config{
		Dt:            1e-4,
		Steps:         10,
		Diffusivity:   0.05,
		ValidateState: true,
	}, nil)
	require.NoError(t, err)
	return s, g, m
}

func TestSolver_CartesianMirrorHeldAcrossSteps(t *testing.T) {
	cart, err := ib.NewCartesianGrid([]ib.Variable{
		{Name: "T", Reference: 300.0, Kind: ib.Dirichlet, Override: true},
	})
	require.NoError(t, err)

	g := grid.Spec{NX: 6, NY: 6, NZ: 8, Halo: 1, DX: 0.1, DY: 0.1, DZ: 0.1}
	m, err := mask.Slab(g, grid.Z, 3)
	require.NoError(t, err)

	eng, err := ib.New(g, []ib.Strategy{cart})
	require.NoError(t, err)

	// Pure forcing, no diffusion: the mirror relation must hold
	// exactly at every step.
	s, err := New(eng, m, nil, Config{Dt: 1e-4, Steps: 10, Diffusivity: 0, ValidateState: true}, nil)
	require.NoError(t, err)
	s.SetField("T", 310.0)

	res, err := s.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 10, res.StepsTaken)

	idx := g.Index(3, 3, 3)
	require.Equal(t, mask.Interface, m.At(idx))
	above := s.Field("T")[g.Index(3, 3, 4)]
	assert.Equal(t, 2*300.0-above, s.Field("T")[idx])
}

func TestSolver_SpongeRelaxesTowardReference(t *testing.T) {
	sponge, err := ib.NewRayleighDamping([]ib.Variable{
		{Name: "T", Reference: 300.0, Kind: ib.Dirichlet, Override: true},
	}, 50.0, true)
	require.NoError(t, err)

	s, g, _ := slabSetup(t, []ib.Strategy{sponge})
	s.SetField("T", 310.0)

	start := s.Field("T")[g.Index(3, 3, 2)]
	_, err = s.Run(context.Background(), nil)
	require.NoError(t, err)
	end := s.Field("T")[g.Index(3, 3, 2)]

	assert.Less(t, end, start, "solid cell relaxes toward reference")
	assert.Greater(t, end, 300.0, "relaxation is gradual, not a jump")
}

func TestSolver_DirectForcing1DWithPeriodicHalos(t *testing.T) {
	df, err := ib.NewDirectForcing1D([]ib.Variable{
		{Name: "u", Reference: 0.0, Kind: ib.Dirichlet, Override: true},
	}, grid.Z)
	require.NoError(t, err)

	g := grid.Spec{NX: 6, NY: 6, NZ: 8, Halo: 1, DX: 0.1, DY: 0.1, DZ: 0.1}
	ex, err := halo.NewPeriodic(g)
	require.NoError(t, err)

	m, err := mask.Slab(g, grid.Z, 3)
	require.NoError(t, err)

	eng, err := ib.New(g, []ib.Strategy{df}, ib.WithExchanger(ex))
	require.NoError(t, err)

	s, err := New(eng, m, DefaultWeights(g), Config{Dt: 1e-4, Steps: 5, Diffusivity: 0.05, ValidateState: true}, nil)
	require.NoError(t, err)
	s.SetField("u", 1.0)

	res, err := s.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 5, res.StepsTaken)
	assert.True(t, s.Field("u").IsValid())
}

func TestSolver_ObserverStopsRun(t *testing.T) {
	cart, err := ib.NewCartesianGrid([]ib.Variable{
		{Name: "T", Reference: 300.0, Kind: ib.Dirichlet, Override: true},
	})
	require.NoError(t, err)

	s, _, _ := slabSetup(t, []ib.Strategy{cart})
	s.SetField("T", 305.0)

	res, err := s.Run(context.Background(), func(step int, _ *Solver, _ *ib.Report) bool {
		return step < 2
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.StepsTaken)
}

func TestSolver_CanceledContext(t *testing.T) {
	cart, err := ib.NewCartesianGrid([]ib.Variable{
		{Name: "T", Reference: 300.0, Kind: ib.Dirichlet, Override: true},
	})
	require.NoError(t, err)

	s, _, _ := slabSetup(t, []ib.Strategy{cart})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Run(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid", Config{Dt: 0.01, Steps: 10, Diffusivity: 0.1}, false},
		{"zero dt", Config{Dt: 0, Steps: 10, Diffusivity: 0.1}, true},
		{"zero steps", Config{Dt: 0.01, Steps: 0, Diffusivity: 0.1}, true},
		{"negative diffusivity", Config{Dt: 0.01, Steps: 10, Diffusivity: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
