package ib

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/san-kum/ibflow/internal/grid"
	"github.com/san-kum/ibflow/internal/halo"
	"github.com/san-kum/ibflow/internal/mask"
)

// State is the per-evaluation input supplied by the outer solver.
// Fields and RHS are keyed by variable name and sized to the padded
// block. Variables present in the maps but not registered with any
// strategy are left untouched.
type State struct {
	Mask    *mask.Mask
	Weights *Weights
	Fields  map[string]grid.Field
	RHS     map[string]grid.Field
}

// Engine dispatches each registered variable to its configured
// strategy and accumulates the results into the solver's sink.
type Engine struct {
	grid       grid.Spec
	strategies []Strategy
	registry   *Registry
	exchanger  halo.Exchanger
	pool       *bufferPool
	log        *slog.Logger
}

type Option func(*Engine)

// WithExchanger installs the halo exchanger run as a barrier before
// every evaluation. Default is halo.Noop.
func WithExchanger(ex halo.Exchanger) Option {
	return func(e *Engine) { e.exchanger = ex }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// New builds the engine, failing fast on any configuration error: a
// variable assigned to more than one strategy, an invalid grid, or an
// invalid strategy parameter surfaced by the strategy constructors.
func New(g grid.Spec, strategies []Strategy, opts ...Option) (*Engine, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	reg, err := NewRegistry(strategies)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		grid:       g,
		strategies: strategies,
		registry:   reg,
		exchanger:  halo.Noop{},
		pool:       newBufferPool(),
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

func (e *Engine) Registry() *Registry { return e.registry }

func (e *Engine) Grid() grid.Spec { return e.grid }

// job is one (strategy, variable) evaluation unit.
type job struct {
	strategy Strategy
	variable Variable
}

// Evaluate runs one forcing pass: halo barrier, parallel strategy
// evaluation per variable, then sequential accumulation into the sink
// in deterministic order. It returns the anomaly report for the pass;
// a non-nil error means the step must be aborted and nothing was
// written to the sink.
func (e *Engine) Evaluate(ctx context.Context, st State, sink Sink) (*Report, error) {
	if st.Mask == nil {
		return nil, fmt.Errorf("ib: evaluation requires a solid mask")
	}

	jobs, err := e.collectJobs(st)
	if err != nil {
		return nil, err
	}

	if err := e.exchangeHalos(ctx, st); err != nil {
		return nil, err
	}

	// Fan out one goroutine per variable. Inputs are read-only and
	// buffers are private, so no synchronization beyond the join.
	bufs := make([]*Buffer, len(jobs))
	reps := make([]*Report, len(jobs))
	errs := make([]error, len(jobs))

	var wg sync.WaitGroup
	for i, jb := range jobs {
		wg.Add(1)
		go func(i int, jb job) {
			defer wg.Done()
			buf := e.pool.Get()
			rep := NewReport()
			in := Input{
				Grid:    e.grid,
				Mask:    st.Mask,
				Weights: st.Weights,
				Field:   st.Fields[jb.variable.Name],
				RHS:     st.RHS[jb.variable.Name],
			}
			errs[i] = jb.strategy.Apply(jb.variable, in, buf, rep)
			bufs[i] = buf
			reps[i] = rep
		}(i, jb)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			e.release(bufs)
			return nil, err
		}
	}

	acc := accumulator{sink: sink}
	merged := NewReport()
	for i, jb := range jobs {
		if err := acc.flush(jb.variable.Name, bufs[i]); err != nil {
			e.release(bufs[i:])
			return nil, fmt.Errorf("ib: sink rejected update for %q: %w", jb.variable.Name, err)
		}
		merged.Merge(reps[i])
		e.pool.Put(bufs[i])
		bufs[i] = nil
	}

	if merged.Total() > 0 {
		e.log.Warn("ib: anomalies recorded during evaluation",
			slog.Int("count", merged.Total()))
	}
	return merged, nil
}

// collectJobs pairs every registered variable with its strategy and
// verifies the solver supplied its field and right-hand side.
func (e *Engine) collectJobs(st State) ([]job, error) {
	var jobs []job
	for _, s := range e.strategies {
		for _, v := range s.Variables() {
			f, ok := st.Fields[v.Name]
			if !ok || len(f) != e.grid.Len() {
				return nil, &StepError{Strategy: s.Name(), Variable: v.Name, Cell: -1, Wrapped: ErrMissingField}
			}
			r, ok := st.RHS[v.Name]
			if !ok || len(r) != e.grid.Len() {
				return nil, &StepError{Strategy: s.Name(), Variable: v.Name, Cell: -1, Wrapped: ErrMissingField}
			}
			jobs = append(jobs, job{strategy: s, variable: v})
		}
	}
	return jobs, nil
}

// exchangeHalos refreshes field and RHS halos for all registered
// variables. Failure aborts the step: stale halo data would corrupt
// every stencil that crosses a partition boundary.
func (e *Engine) exchangeHalos(ctx context.Context, st State) error {
	var planes [][]float64
	for _, name := range e.registry.Names() {
		planes = append(planes, st.Fields[name], st.RHS[name])
	}
	if err := e.exchanger.Exchange(ctx, planes...); err != nil {
		return fmt.Errorf("%w: %v", ErrHaloExchange, err)
	}
	return nil
}

func (e *Engine) release(bufs []*Buffer) {
	for _, b := range bufs {
		if b != nil {
			e.pool.Put(b)
		}
	}
}

// accumulator writes a variable's forcing buffer into the sink. It is
// the only component that touches solver state, and it runs after the
// parallel phase, so override semantics apply in a deterministic
// order.
type accumulator struct {
	sink Sink
}

func (a accumulator) flush(variable string, buf *Buffer) error {
	for _, u := range buf.Updates() {
		if err := a.sink.Apply(variable, u.Cell, u.Dest, u.Op, u.Value); err != nil {
			return err
		}
	}
	return nil
}
