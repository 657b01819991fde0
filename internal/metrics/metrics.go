// Package metrics accumulates scalar diagnostics over a run. Each
// metric observes the interior of one field every step and reduces it
// to a single number for the run summary.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/ibflow/internal/ib"
	"github.com/san-kum/ibflow/internal/solver"
)

type Metric interface {
	Name() string
	Observe(vals []float64)
	Value() float64
	Reset()
}

// Mean averages the per-step interior mean over the whole run.
type Mean struct {
	sum     float64
	samples int
}

func NewMean() *Mean { return &Mean{} }

func (m *Mean) Name() string { return "mean" }

func (m *Mean) Observe(vals []float64) {
	if len(vals) == 0 {
		return
	}
	m.sum += stat.Mean(vals, nil)
	m.samples++
}

func (m *Mean) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *Mean) Reset() {
	m.sum = 0
	m.samples = 0
}

// Range tracks the widest value span seen across all observed steps.
type Range struct {
	lo, hi  float64
	samples int
}

func NewRange() *Range { return &Range{} }

func (r *Range) Name() string { return "range" }

func (r *Range) Observe(vals []float64) {
	if len(vals) == 0 {
		return
	}
	lo, hi := floats.Min(vals), floats.Max(vals)
	if r.samples == 0 || lo < r.lo {
		r.lo = lo
	}
	if r.samples == 0 || hi > r.hi {
		r.hi = hi
	}
	r.samples++
}

func (r *Range) Value() float64 {
	if r.samples == 0 {
		return 0
	}
	return r.hi - r.lo
}

func (r *Range) Reset() {
	r.lo, r.hi = 0, 0
	r.samples = 0
}

// Stability is the fraction of observed steps whose interior stayed
// within the threshold magnitude.
type Stability struct {
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{threshold: threshold}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(vals []float64) {
	s.samples++
	for _, v := range vals {
		if math.Abs(v) > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Collector feeds one variable's interior to a metric set after every
// step. It plugs into the solver as a run observer and never stops a
// run.
type Collector struct {
	variable string
	metrics  []Metric
	scratch  []float64
}

func NewCollector(variable string, ms ...Metric) *Collector {
	return &Collector{variable: variable, metrics: ms}
}

func (c *Collector) OnStep(step int, s *solver.Solver, rep *ib.Report) bool {
	f := s.Field(c.variable)
	if f == nil {
		return true
	}

	c.scratch = c.scratch[:0]
	g := s.Grid()
	g.EachInterior(func(idx, i, j, k int) {
		c.scratch = append(c.scratch, f[idx])
	})

	for _, m := range c.metrics {
		m.Observe(c.scratch)
	}
	return true
}

// Summary keys each metric value as "<variable>.<metric>".
func (c *Collector) Summary() map[string]float64 {
	out := make(map[string]float64, len(c.metrics))
	for _, m := range c.metrics {
		out[c.variable+"."+m.Name()] = m.Value()
	}
	return out
}
