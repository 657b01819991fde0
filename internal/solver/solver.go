// Package solver is a minimal explicit diffusion stepper that stands
// in for the outer CFD solver: it owns field and right-hand-side
// storage, implements the engine's update sink, and drives one
// forcing evaluation per step. It exists so the CLI and end-to-end
// tests exercise the engine through a realistic step cycle; it is not
// a production flow solver.
package solver

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/ibflow/internal/grid"
	"github.com/san-kum/ibflow/internal/ib"
	"github.com/san-kum/ibflow/internal/mask"
)

type Config struct {
	Dt            float64
	Steps         int
	Diffusivity   float64
	ValidateState bool
}

func (c Config) validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("solver: dt must be positive, got %g", c.Dt)
	}
	if c.Steps <= 0 {
		return fmt.Errorf("solver: steps must be positive, got %d", c.Steps)
	}
	if c.Diffusivity < 0 {
		return fmt.Errorf("solver: diffusivity must be non-negative, got %g", c.Diffusivity)
	}
	return nil
}

// pendingWrite is a field-destination update deferred until after
// time integration, so overrides are not smeared by the same step's
// right-hand side.
type pendingWrite struct {
	field grid.Field
	cell  int
	op    ib.Op
	value float64
}

type Solver struct {
	g       grid.Spec
	eng     *ib.Engine
	cfg     Config
	mask    *mask.Mask
	weights *ib.Weights
	fields  map[string]grid.Field
	rhs     map[string]grid.Field
	pending []pendingWrite
	log     *slog.Logger
}

// Result summarizes a completed run.
type Result struct {
	StepsTaken int
	Anomalies  *ib.Report
}

// Observer is called after every completed step; returning false
// stops the run early.
type Observer func(step int, s *Solver, rep *ib.Report) bool

// New allocates field and RHS storage for every variable registered
// with the engine.
func New(eng *ib.Engine, m *mask.Mask, w *ib.Weights, cfg Config, log *slog.Logger) (*Solver, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	g := eng.Grid()
	s := &Solver{
		g:       g,
		eng:     eng,
		cfg:     cfg,
		mask:    m,
		weights: w,
		fields:  make(map[string]grid.Field),
		rhs:     make(map[string]grid.Field),
		log:     log,
	}
	for _, name := range eng.Registry().Names() {
		s.fields[name] = grid.NewField(g)
		s.rhs[name] = grid.NewField(g)
	}
	return s, nil
}

// Field returns the live storage for one variable.
func (s *Solver) Field(name string) grid.Field { return s.fields[name] }

// SetField fills a variable's storage with a uniform value.
func (s *Solver) SetField(name string, v float64) {
	if f, ok := s.fields[name]; ok {
		f.Fill(v)
	}
}

func (s *Solver) Grid() grid.Spec { return s.g }

// Variables lists the registered variable names in evaluation order.
func (s *Solver) Variables() []string { return s.eng.Registry().Names() }

func (s *Solver) Mask() *mask.Mask { return s.mask }

// Apply implements ib.Sink. RHS updates land immediately so they are
// integrated this step; field overrides are deferred until after
// integration.
func (s *Solver) Apply(variable string, cell int, dest ib.Dest, op ib.Op, value float64) error {
	switch dest {
	case ib.DestRHS:
		r, ok := s.rhs[variable]
		if !ok {
			return fmt.Errorf("solver: no rhs storage for %q", variable)
		}
		if op == ib.Replace {
			r[cell] = value
		} else {
			r[cell] += value
		}
	default:
		f, ok := s.fields[variable]
		if !ok {
			return fmt.Errorf("solver: no field storage for %q", variable)
		}
		s.pending = append(s.pending, pendingWrite{field: f, cell: cell, op: op, value: value})
	}
	return nil
}

// Step advances all fields by dt: diffusion right-hand side, forcing
// evaluation, explicit Euler update, then deferred field overrides.
func (s *Solver) Step(ctx context.Context) (*ib.Report, error) {
	for name, f := range s.fields {
		s.computeDiffusion(f, s.rhs[name])
	}

	s.pending = s.pending[:0]
	rep, err := s.eng.Evaluate(ctx, ib.State{
		Mask:    s.mask,
		Weights: s.weights,
		Fields:  s.fields,
		RHS:     s.rhs,
	}, s)
	if err != nil {
		return nil, err
	}

	for name, f := range s.fields {
		floats.AddScaled(f, s.cfg.Dt, s.rhs[name])
	}
	for _, p := range s.pending {
		if p.op == ib.Replace {
			p.field[p.cell] = p.value
		} else {
			p.field[p.cell] += p.value
		}
	}

	if s.cfg.ValidateState {
		for name, f := range s.fields {
			if !f.IsValid() {
				return nil, fmt.Errorf("solver: field %q contains NaN/Inf", name)
			}
		}
	}
	return rep, nil
}

// Run executes the configured number of steps, merging per-step
// anomaly reports.
func (s *Solver) Run(ctx context.Context, obs Observer) (*Result, error) {
	res := &Result{Anomalies: ib.NewReport()}
	for step := 0; step < s.cfg.Steps; step++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		rep, err := s.Step(ctx)
		if err != nil {
			return res, fmt.Errorf("step %d: %w", step, err)
		}
		res.StepsTaken++
		res.Anomalies.Merge(rep)

		if obs != nil && !obs(step, s, rep) {
			break
		}
	}
	if res.Anomalies.Total() > 0 {
		s.log.Warn("run finished with anomalies",
			slog.Int("steps", res.StepsTaken),
			slog.Int("anomalies", res.Anomalies.Total()))
	}
	return res, nil
}

// computeDiffusion writes diffusivity * laplacian(f) into rhs over the
// interior; halo cells keep a zero right-hand side.
func (s *Solver) computeDiffusion(f, rhs grid.Field) {
	rhs.Fill(0)
	if s.cfg.Diffusivity == 0 {
		return
	}
	g := s.g
	sx, sy, sz := g.Stride(grid.X), g.Stride(grid.Y), g.Stride(grid.Z)
	ax := s.cfg.Diffusivity / (g.DX * g.DX)
	ay := s.cfg.Diffusivity / (g.DY * g.DY)
	az := s.cfg.Diffusivity / (g.DZ * g.DZ)
	g.EachInterior(func(idx, i, j, k int) {
		c := f[idx]
		rhs[idx] = ax*(f[idx-sx]-2*c+f[idx+sx]) +
			ay*(f[idx-sy]-2*c+f[idx+sy]) +
			az*(f[idx-sz]-2*c+f[idx+sz])
	})
}

// DefaultWeights returns a half-cell interpolation weight field, the
// neutral choice when no geometry module supplies sub-cell interface
// positions.
func DefaultWeights(g grid.Spec) *ib.Weights {
	w := ib.NewWeights(g)
	w.Fill(0.5)
	return w
}
