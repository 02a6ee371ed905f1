package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	if len(header) > 0 {
		t.AppendHeader(table.Row(header))
	}
	return t
}

func heading(w io.Writer, text string) {
	fmt.Fprintln(w, titleStyle.Render(text))
}

func note(w io.Writer, text string) {
	fmt.Fprintln(w, mutedStyle.Render(text))
}

// unavailable reports a slice that failed to load. Views keep rendering.
func unavailable(w io.Writer, what string, err error) {
	fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("⚠ Warning: %s unavailable: %v", what, err)))
}

// bar draws a fixed-width bar for a percentage in [0,100].
func bar(pct float64, width int) string {
	n := int(pct/100*float64(width) + 0.5)
	n = max(0, min(n, width))
	return strings.Repeat("█", n) + strings.Repeat("░", width-n)
}
