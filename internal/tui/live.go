// Package tui provides terminal views of a running simulation: a
// plain ANSI live renderer for `watch` and a bubbletea viewer for
// interactive browsing.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/san-kum/ibflow/internal/ib"
	"github.com/san-kum/ibflow/internal/solver"
	"github.com/san-kum/ibflow/internal/viz"
)

const (
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer redraws one field slice at a bounded frame rate. It
// plugs into the solver as a run observer.
type LiveRenderer struct {
	variable  string
	slice     int
	frameRate int
	lastFrame time.Time
	anomalies int
}

func NewLiveRenderer(variable string, slice, frameRate int) *LiveRenderer {
	if frameRate <= 0 {
		frameRate = 20
	}
	return &LiveRenderer{variable: variable, slice: slice, frameRate: frameRate}
}

func (r *LiveRenderer) Start() { fmt.Print(hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Print(showCursor) }

// OnStep implements solver.Observer semantics; it always returns true
// so rendering never stops a run.
func (r *LiveRenderer) OnStep(step int, s *solver.Solver, rep *ib.Report) bool {
	if rep != nil {
		r.anomalies += rep.Total()
	}
	elapsed := time.Since(r.lastFrame)
	if elapsed < time.Second/time.Duration(r.frameRate) {
		return true
	}
	r.lastFrame = time.Now()

	f := s.Field(r.variable)
	if f == nil {
		return true
	}

	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(viz.Title.Render(fmt.Sprintf("ibflow  step %d", step)) + "\n")
	b.WriteString(viz.FieldSlice(f, s.Grid(), r.variable, r.slice) + "\n")
	if r.anomalies > 0 {
		b.WriteString(viz.WarnBadge.Render(fmt.Sprintf("anomalies: %d", r.anomalies)) + "\n")
	}
	fmt.Print(b.String())
	return true
}
