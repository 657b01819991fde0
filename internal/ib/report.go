package ib

import "fmt"

// maxAnomalySamples bounds the retained per-report sample list; totals
// keep counting past the bound.
const maxAnomalySamples = 64

// Anomaly is a non-fatal finding recorded during evaluation, e.g. a
// Neumann cell with no fluid neighbor. Anomalies never abort a step.
type Anomaly struct {
	Variable string
	Cell     int
	Reason   string
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s: cell %d: %s", a.Variable, a.Cell, a.Reason)
}

// Report accumulates anomalies for one evaluation. It is not safe for
// concurrent use; each variable gets its own report, merged after the
// parallel phase.
type Report struct {
	samples []Anomaly
	counts  map[string]int
	total   int
}

func NewReport() *Report {
	return &Report{counts: make(map[string]int)}
}

// Record adds one anomaly occurrence.
func (r *Report) Record(variable string, cell int, reason string) {
	r.total++
	r.counts[variable]++
	if len(r.samples) < maxAnomalySamples {
		r.samples = append(r.samples, Anomaly{Variable: variable, Cell: cell, Reason: reason})
	}
}

// Merge folds other into r.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	r.total += other.total
	for k, v := range other.counts {
		r.counts[k] += v
	}
	room := maxAnomalySamples - len(r.samples)
	if room > len(other.samples) {
		room = len(other.samples)
	}
	if room > 0 {
		r.samples = append(r.samples, other.samples[:room]...)
	}
}

// Total is the number of anomalies recorded, including those past the
// sample bound.
func (r *Report) Total() int { return r.total }

// Count returns the anomaly count for one variable.
func (r *Report) Count(variable string) int { return r.counts[variable] }

// Samples returns the retained anomaly instances.
func (r *Report) Samples() []Anomaly { return r.samples }
