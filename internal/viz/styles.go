package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type styles struct {
	header   lipgloss.Style
	panel    lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	selected lipgloss.Style
	graph    lipgloss.Style
	help     lipgloss.Style
	running  lipgloss.Style
	stopped  lipgloss.Style
	idle     lipgloss.Style
	err      lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(t.Primary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(t.Muted),
		panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Padding(0, 1),
		label:    lipgloss.NewStyle().Foreground(t.Muted).Width(14),
		value:    lipgloss.NewStyle().Foreground(t.Text),
		selected: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		graph:    lipgloss.NewStyle().Foreground(t.Primary),
		help:     lipgloss.NewStyle().Foreground(t.Muted).Italic(true),
		running:  lipgloss.NewStyle().Foreground(t.Success).Bold(true),
		stopped:  lipgloss.NewStyle().Foreground(t.Warning).Bold(true),
		idle:     lipgloss.NewStyle().Foreground(t.Muted).Bold(true),
		err:      lipgloss.NewStyle().Foreground(t.Error),
	}
}

// ProgressBar renders a bar filled to fraction of width.
func ProgressBar(fraction float64, width int) string {
	filled := int(fraction * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Sparkline renders values as a row of block characters, sampled down to at
// most width cells.
func Sparkline(values []float64, width int) string {
	if len(values) == 0 || width <= 0 {
		return strings.Repeat("─", max(width, 0))
	}

	chars := []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	step := len(values) / width
	if step < 1 {
		step = 1
	}

	var b strings.Builder
	for i := 0; i < width && i*step < len(values); i++ {
		norm := (values[i*step] - lo) / span
		idx := int(norm * float64(len(chars)-1))
		b.WriteRune(chars[max(0, min(idx, len(chars)-1))])
	}
	return b.String()
}
