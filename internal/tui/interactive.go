package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/ibflow/internal/solver"
	"github.com/san-kum/ibflow/internal/viz"
)

type tickMsg time.Time

// Viewer is an interactive slice browser over a running solver: it
// advances the simulation on a timer and lets the user switch
// variables, move the viewed plane, and pause.
type Viewer struct {
	solver    *solver.Solver
	variables []string
	varIdx    int
	slice     int
	step      int
	maxSteps  int
	paused    bool
	anomalies int
	err       error
	showMask  bool
}

func NewViewer(s *solver.Solver, variables []string, maxSteps int) *Viewer {
	g := s.Grid()
	return &Viewer{
		solver:    s,
		variables: variables,
		slice:     g.Halo + g.NZ/2,
		maxSteps:  maxSteps,
	}
}

func (v *Viewer) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (v *Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return v, tea.Quit
		case " ":
			v.paused = !v.paused
		case "tab":
			if len(v.variables) > 0 {
				v.varIdx = (v.varIdx + 1) % len(v.variables)
			}
		case "m":
			v.showMask = !v.showMask
		case "up", "k":
			g := v.solver.Grid()
			if v.slice < g.Halo+g.NZ-1 {
				v.slice++
			}
		case "down", "j":
			if v.slice > v.solver.Grid().Halo {
				v.slice--
			}
		}
		return v, nil

	case tickMsg:
		if v.err != nil || v.step >= v.maxSteps {
			return v, nil
		}
		if !v.paused {
			rep, err := v.solver.Step(context.Background())
			if err != nil {
				v.err = err
				return v, nil
			}
			v.step++
			v.anomalies += rep.Total()
		}
		return v, tick()
	}
	return v, nil
}

func (v *Viewer) View() string {
	var b strings.Builder
	b.WriteString(viz.Title.Render("ibflow viewer") + "  ")
	b.WriteString(viz.MetricLabel.Render("step ") + viz.MetricValue.Render(fmt.Sprintf("%d/%d", v.step, v.maxSteps)))
	if v.paused {
		b.WriteString("  " + viz.Subtle.Render("[paused]"))
	}
	b.WriteString("\n")

	if v.err != nil {
		b.WriteString(viz.WarnBadge.Render("step failed: "+v.err.Error()) + "\n")
		return b.String()
	}

	if v.showMask {
		b.WriteString(viz.MaskSlice(v.solver.Mask(), v.slice) + "\n")
	} else if len(v.variables) > 0 {
		name := v.variables[v.varIdx]
		b.WriteString(viz.FieldSlice(v.solver.Field(name), v.solver.Grid(), name, v.slice) + "\n")
	}

	if v.anomalies > 0 {
		b.WriteString(viz.WarnBadge.Render(fmt.Sprintf("anomalies: %d", v.anomalies)) + "\n")
	}
	b.WriteString(viz.Subtle.Render("tab: variable  m: mask  j/k: slice  space: pause  q: quit"))
	return b.String()
}

// Run starts the interactive viewer and blocks until quit.
func Run(s *solver.Solver, variables []string, maxSteps int) error {
	_, err := tea.NewProgram(NewViewer(s, variables, maxSteps)).Run()
	return err
}
