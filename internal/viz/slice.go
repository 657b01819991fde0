// Package viz renders mask and field slices for the terminal.
package viz

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/ibflow/internal/grid"
	"github.com/san-kum/ibflow/internal/ib"
	"github.com/san-kum/ibflow/internal/mask"
)

const fieldRamp = " .:-=+*#%@"

// MaskSlice renders the interior of one z-plane of the mask, top row
// = highest y.
func MaskSlice(m *mask.Mask, k int) string {
	g := m.Grid()
	h := g.Halo
	var b strings.Builder
	b.WriteString(Title.Render(fmt.Sprintf("mask z=%d", k)) + "\n")
	for j := h + g.NY - 1; j >= h; j-- {
		for i := h; i < h+g.NX; i++ {
			switch m.At(g.Index(i, j, k)) {
			case mask.Solid:
				b.WriteString(SolidCell.Render("█"))
			case mask.Interface:
				b.WriteString(InterfaceCell.Render("▒"))
			default:
				b.WriteString(FluidCell.Render("·"))
			}
		}
		b.WriteString("\n")
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// FieldSlice renders the interior of one z-plane of a field as an
// intensity ramp scaled to the slice's own min/max.
func FieldSlice(f grid.Field, g grid.Spec, name string, k int) string {
	h := g.Halo

	vals := make([]float64, 0, g.NX*g.NY)
	for j := h; j < h+g.NY; j++ {
		for i := h; i < h+g.NX; i++ {
			vals = append(vals, f[g.Index(i, j, k)])
		}
	}
	lo, hi := floats.Min(vals), floats.Max(vals)
	span := hi - lo
	if span == 0 {
		span = 1
	}

	ramp := []rune(fieldRamp)
	var b strings.Builder
	b.WriteString(Title.Render(fmt.Sprintf("%s z=%d", name, k)))
	b.WriteString(Subtle.Render(fmt.Sprintf("  [%.3g, %.3g]", lo, hi)) + "\n")
	for j := h + g.NY - 1; j >= h; j-- {
		for i := h; i < h+g.NX; i++ {
			v := f[g.Index(i, j, k)]
			n := int(float64(len(ramp)-1) * (v - lo) / span)
			b.WriteRune(ramp[n])
		}
		b.WriteString("\n")
	}
	return Panel.Render(strings.TrimRight(b.String(), "\n"))
}

// Profile extracts the interior values along one axis through the
// padded point (i,j,k), for plotting.
func Profile(f grid.Field, g grid.Spec, axis, i, j, k int) []float64 {
	h := g.Halo
	var n int
	switch axis {
	case grid.X:
		n = g.NX
	case grid.Y:
		n = g.NY
	default:
		n = g.NZ
	}
	out := make([]float64, n)
	for c := 0; c < n; c++ {
		switch axis {
		case grid.X:
			out[c] = f[g.Index(h+c, j, k)]
		case grid.Y:
			out[c] = f[g.Index(i, h+c, k)]
		default:
			out[c] = f[g.Index(i, j, h+c)]
		}
	}
	return out
}

// AnomalySummary renders per-variable anomaly counts.
func AnomalySummary(rep *ib.Report) string {
	if rep == nil || rep.Total() == 0 {
		return Subtle.Render("no anomalies")
	}
	var b strings.Builder
	b.WriteString(WarnBadge.Render(fmt.Sprintf("%d anomalies", rep.Total())) + "\n")
	for _, a := range rep.Samples() {
		b.WriteString("  " + a.String() + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
