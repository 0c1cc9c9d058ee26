package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme holds the lipgloss styles used for command output.
type Theme struct {
	Accent  lipgloss.Color
	Muted   lipgloss.Color
	Error   lipgloss.Color
	Warning lipgloss.Color
	Success lipgloss.Color

	Title        lipgloss.Style
	Header       lipgloss.Style
	Subtle       lipgloss.Style
	Highlight    lipgloss.Style
	ErrorStyle   lipgloss.Style
	WarningStyle lipgloss.Style
	SuccessStyle lipgloss.Style
}

// NewTheme returns the dark theme.
func NewTheme() *Theme {
	t := &Theme{
		Accent:  lipgloss.Color("#4ade80"),
		Muted:   lipgloss.Color("#909090"),
		Error:   lipgloss.Color("#ef4444"),
		Warning: lipgloss.Color("#f59e0b"),
		Success: lipgloss.Color("#4ade80"),
	}

	t.Title = lipgloss.NewStyle().Bold(true)
	t.Header = lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true)
	t.Subtle = lipgloss.NewStyle().Foreground(t.Muted)
	t.Highlight = lipgloss.NewStyle().
		Foreground(t.Accent).
		Bold(true)
	t.ErrorStyle = lipgloss.NewStyle().Foreground(t.Error)
	t.WarningStyle = lipgloss.NewStyle().Foreground(t.Warning)
	t.SuccessStyle = lipgloss.NewStyle().Foreground(t.Success)
	return t
}

// Table renders rows under a styled header with columns padded to the
// widest cell. Cells may already carry styles.
func (t *Theme) Table(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder
	cells := make([]string, len(header))
	for i, h := range header {
		cells[i] = t.Header.Render(pad(h, widths[i]))
	}
	b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
	b.WriteByte('\n')

	for _, row := range rows {
		for i := range cells {
			cells[i] = ""
			if i < len(row) {
				cells[i] = pad(row[i], widths[i])
			} else {
				cells[i] = pad("", widths[i])
			}
		}
		b.WriteString(strings.TrimRight(strings.Join(cells, "  "), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

func pad(s string, width int) string {
	if n := width - lipgloss.Width(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

// KeyValue renders "label: value" lines with aligned values.
func (t *Theme) KeyValue(pairs [][2]string) string {
	width := 0
	for _, p := range pairs {
		width = max(width, lipgloss.Width(p[0]))
	}
	var b strings.Builder
	for _, p := range pairs {
		b.WriteString(t.Subtle.Render(pad(p[0]+":", width+1)))
		b.WriteString(" ")
		b.WriteString(p[1])
		b.WriteByte('\n')
	}
	return b.String()
}
