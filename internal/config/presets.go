package config

import "fmt"

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

// Preset returns a canned configuration so the CLI can run without a
// config file.
func Preset(name string) (*Config, error) {
	cfg := Default()
	switch name {
	case "channel":
		// Heated channel floor: terrain slab with a mirrored Dirichlet
		// temperature at the interface.
		cfg.Geometry = GeometryConfig{Kind: "slab", Axis: 2, Top: 4}
		cfg.ImmersedBoundary = []MethodEntry{
			{CartesianGrid: &CartesianGridMethod{
				Variables: []VariableInfo{
					{Name: "T", Value: 300.0, BC: "dirichlet"},
				},
			}},
		}
	case "sponge":
		// Rayleigh sponge inside a box obstacle, velocity relaxed to
		// rest and temperature to ambient.
		cfg.Geometry = GeometryConfig{Kind: "box", Axis: 0, Lo: [3]int{5, 5, 5}, Hi: [3]int{11, 11, 11}}
		cfg.ImmersedBoundary = []MethodEntry{
			{RayleighDamping: &RayleighDampingMethod{
				DampingCoeff: floatPtr(2.0),
				Variables: []VariableInfo{
					{Name: "u", Value: 0.0, BC: "dirichlet"},
					{Name: "T", Value: 300.0, BC: "dirichlet", DampingCoeff: floatPtr(0.5)},
				},
			}},
		}
	case "interp":
		// Directional interpolation across a terrain slab along z.
		cfg.Geometry = GeometryConfig{Kind: "slab", Axis: 2, Top: 4}
		cfg.ImmersedBoundary = []MethodEntry{
			{DirectForcing1D: &DirectForcing1DMethod{
				Dim: intPtr(2),
				Variables: []VariableInfo{
					{Name: "u", Value: 0.0, BC: "dirichlet"},
				},
			}},
			{FeedbackForce1D: &FeedbackForce1DMethod{
				Dim:          intPtr(2),
				DampingCoeff: floatPtr(1.5),
				Variables: []VariableInfo{
					{Name: "T", Value: 300.0, BC: "dirichlet"},
				},
			}},
		}
	default:
		return nil, fmt.Errorf("config: unknown preset %q", name)
	}
	return cfg, nil
}

// Presets lists the available preset names.
func Presets() []string {
	return []string{"channel", "sponge", "interp"}
}
