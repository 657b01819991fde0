package viz

import "github.com/charmbracelet/lipgloss"

var (
	// Panel frames a rendered slice.
	Panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(0, 1)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ccff"))

	Subtle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#666688"))

	// Cell classification colors.
	FluidCell = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3377cc"))

	SolidCell = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))

	InterfaceCell = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffaa00"))

	// WarnBadge marks anomaly counts in summaries.
	WarnBadge = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ff4444"))

	MetricValue = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00ff88"))

	MetricLabel = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888899"))
)
