// Package config parses and validates the engine configuration. All
// defaults and precedence rules are resolved here, once, into
// fully-populated immutable variable configurations; evaluation never
// re-derives them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/ibflow/internal/grid"
	"github.com/san-kum/ibflow/internal/ib"
)

const (
	DefaultDt          = 0.001
	DefaultSteps       = 200
	DefaultDiffusivity = 0.1
	DefaultHalo        = 1
)

type Config struct {
	Grid             GridConfig     `yaml:"grid"`
	Geometry         GeometryConfig `yaml:"geometry"`
	ImmersedBoundary []MethodEntry  `yaml:"immersed_boundary"`
	Solver           SolverConfig   `yaml:"solver"`
}

type GridConfig struct {
	NX   int     `yaml:"nx"`
	NY   int     `yaml:"ny"`
	NZ   int     `yaml:"nz"`
	Halo int     `yaml:"halo"`
	DX   float64 `yaml:"dx"`
	DY   float64 `yaml:"dy"`
	DZ   float64 `yaml:"dz"`
}

// GeometryConfig describes the demo obstacle the mask builders
// produce. A real run gets its mask from an external geometry module
// and uses kind "none".
type GeometryConfig struct {
	Kind string `yaml:"kind"` // none, slab, box
	Axis int    `yaml:"axis"` // slab normal
	Top  int    `yaml:"top"`  // slab height in padded coordinates
	Lo   [3]int `yaml:"lo"`   // box corners, padded coordinates
	Hi   [3]int `yaml:"hi"`
}

type SolverConfig struct {
	Dt          float64 `yaml:"dt"`
	Steps       int     `yaml:"steps"`
	Diffusivity float64 `yaml:"diffusivity"`
}

// VariableInfo mirrors the IBVariableInfo message: name is required,
// override defaults to true, damping_coeff falls back to the strategy
// global when unset.
type VariableInfo struct {
	Name         string   `yaml:"name"`
	Value        float64  `yaml:"value"`
	BC           string   `yaml:"bc"`
	Override     *bool    `yaml:"override"`
	DampingCoeff *float64 `yaml:"damping_coeff"`
}

type CartesianGridMethod struct {
	Variables []VariableInfo `yaml:"variables"`
}

type MarkerAndCellMethod struct {
	Variables []VariableInfo `yaml:"variables"`
}

type RayleighDampingMethod struct {
	Variables    []VariableInfo `yaml:"variables"`
	DampingCoeff *float64       `yaml:"damping_coeff"`
}

type DirectForcingMethod struct {
	Variables    []VariableInfo `yaml:"variables"`
	DampingCoeff *float64       `yaml:"damping_coeff"`
}

type DirectForcing1DMethod struct {
	Variables []VariableInfo `yaml:"variables"`
	Dim       *int           `yaml:"dim"`
}

type FeedbackForce1DMethod struct {
	Variables    []VariableInfo `yaml:"variables"`
	Dim          *int           `yaml:"dim"`
	DampingCoeff *float64       `yaml:"damping_coeff"`
}

// MethodEntry is the tagged union: exactly one of the six methods may
// be set per entry.
type MethodEntry struct {
	CartesianGrid   *CartesianGridMethod   `yaml:"cartesian_grid"`
	MarkerAndCell   *MarkerAndCellMethod   `yaml:"marker_and_cell"`
	RayleighDamping *RayleighDampingMethod `yaml:"rayleigh_damping"`
	DirectForcing   *DirectForcingMethod   `yaml:"direct_forcing"`
	DirectForcing1D *DirectForcing1DMethod `yaml:"direct_forcing_1d_interp"`
	FeedbackForce1D *FeedbackForce1DMethod `yaml:"feedback_force_1d_interp"`
}

func (e MethodEntry) variants() []string {
	var out []string
	if e.CartesianGrid != nil {
		out = append(out, "cartesian_grid")
	}
	if e.MarkerAndCell != nil {
		out = append(out, "marker_and_cell")
	}
	if e.RayleighDamping != nil {
		out = append(out, "rayleigh_damping")
	}
	if e.DirectForcing != nil {
		out = append(out, "direct_forcing")
	}
	if e.DirectForcing1D != nil {
		out = append(out, "direct_forcing_1d_interp")
	}
	if e.FeedbackForce1D != nil {
		out = append(out, "feedback_force_1d_interp")
	}
	return out
}

func Default() *Config {
	return &Config{
		Grid:     GridConfig{NX: 16, NY: 16, NZ: 16, Halo: DefaultHalo, DX: 0.1, DY: 0.1, DZ: 0.1},
		Geometry: GeometryConfig{Kind: "none"},
		Solver:   SolverConfig{Dt: DefaultDt, Steps: DefaultSteps, Diffusivity: DefaultDiffusivity},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) GridSpec() grid.Spec {
	return grid.Spec{
		NX: c.Grid.NX, NY: c.Grid.NY, NZ: c.Grid.NZ,
		Halo: c.Grid.Halo,
		DX:   c.Grid.DX, DY: c.Grid.DY, DZ: c.Grid.DZ,
	}
}

// resolveVars turns the wire-level variable list into fully-populated
// engine variables.
func resolveVars(method string, infos []VariableInfo) ([]ib.Variable, error) {
	vars := make([]ib.Variable, 0, len(infos))
	for _, info := range infos {
		if info.Name == "" {
			return nil, fmt.Errorf("config: %s: variable with empty name", method)
		}
		if info.BC == "" {
			return nil, fmt.Errorf("config: %s: variable %q: bc is required", method, info.Name)
		}
		kind, err := ib.ParseBoundaryKind(info.BC)
		if err != nil {
			return nil, fmt.Errorf("config: %s: variable %q: %w", method, info.Name, err)
		}
		v := ib.Variable{
			Name:      info.Name,
			Reference: info.Value,
			Kind:      kind,
			Override:  true,
		}
		if info.Override != nil {
			v.Override = *info.Override
		}
		if info.DampingCoeff != nil {
			v.Damping = *info.DampingCoeff
			v.HasDamping = true
		}
		vars = append(vars, v)
	}
	return vars, nil
}

func coeff(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Strategies builds the configured strategy set, enforcing the
// exactly-one-variant rule per entry. Cross-entry duplicate variables
// are caught by the engine's registry.
func (c *Config) Strategies() ([]ib.Strategy, error) {
	var out []ib.Strategy
	for n, entry := range c.ImmersedBoundary {
		names := entry.variants()
		if len(names) != 1 {
			return nil, fmt.Errorf("config: immersed_boundary[%d]: exactly one method required, got %d (%v)", n, len(names), names)
		}

		var (
			s   ib.Strategy
			err error
		)
		switch {
		case entry.CartesianGrid != nil:
			var vars []ib.Variable
			if vars, err = resolveVars("cartesian_grid", entry.CartesianGrid.Variables); err == nil {
				s, err = ib.NewCartesianGrid(vars)
			}
		case entry.MarkerAndCell != nil:
			var vars []ib.Variable
			if vars, err = resolveVars("marker_and_cell", entry.MarkerAndCell.Variables); err == nil {
				s, err = ib.NewMarkerAndCell(vars)
			}
		case entry.RayleighDamping != nil:
			m := entry.RayleighDamping
			var vars []ib.Variable
			if vars, err = resolveVars("rayleigh_damping", m.Variables); err == nil {
				global, has := coeff(m.DampingCoeff)
				s, err = ib.NewRayleighDamping(vars, global, has)
			}
		case entry.DirectForcing != nil:
			m := entry.DirectForcing
			var vars []ib.Variable
			if vars, err = resolveVars("direct_forcing", m.Variables); err == nil {
				global, has := coeff(m.DampingCoeff)
				s, err = ib.NewDirectForcing(vars, global, has)
			}
		case entry.DirectForcing1D != nil:
			m := entry.DirectForcing1D
			if m.Dim == nil {
				return nil, fmt.Errorf("config: direct_forcing_1d_interp: dim is required")
			}
			var vars []ib.Variable
			if vars, err = resolveVars("direct_forcing_1d_interp", m.Variables); err == nil {
				s, err = ib.NewDirectForcing1D(vars, *m.Dim)
			}
		case entry.FeedbackForce1D != nil:
			m := entry.FeedbackForce1D
			if m.Dim == nil {
				return nil, fmt.Errorf("config: feedback_force_1d_interp: dim is required")
			}
			var vars []ib.Variable
			if vars, err = resolveVars("feedback_force_1d_interp", m.Variables); err == nil {
				global, has := coeff(m.DampingCoeff)
				s, err = ib.NewFeedbackForce1D(vars, *m.Dim, global, has)
			}
		}
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// NeedsWeights reports whether any configured method is directional
// and therefore requires the interpolation weight field.
func (c *Config) NeedsWeights() bool {
	for _, entry := range c.ImmersedBoundary {
		if entry.DirectForcing1D != nil || entry.FeedbackForce1D != nil {
			return true
		}
	}
	return false
}
