package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/titanic-analytics/internal/correlation"
)

var corrInspect string

var correlationCmd = &cobra.Command{
	Use:     "correlation",
	Aliases: []string{"corr"},
	Short:   "Show the feature correlation matrix",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openSource(newLogger())
		if err != nil {
			return err
		}
		raw, err := src.Correlation(cmd.Context())
		if err != nil {
			return fmt.Errorf("correlation matrix unavailable: %w", err)
		}
		m := correlation.New(raw)
		w := cmd.OutOrStdout()
		if m.Len() == 0 {
			note(w, "No correlation data available")
			return nil
		}

		heading(w, "Correlation Matrix")
		header := table.Row{""}
		for _, f := range m.Features() {
			header = append(header, f)
		}
		t := newTable(w, header...)
		for _, row := range m.Grid() {
			r := table.Row{row[0].Row}
			for _, c := range row {
				r = append(r, cellStyle(c).Render(c.Text))
			}
			t.AppendRow(r)
		}
		t.Render()

		var legend []string
		for _, e := range correlation.Legend() {
			swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(e.Band.Color())).Render("■")
			legend = append(legend, swatch+" "+e.Label)
		}
		fmt.Fprintln(w, "Legend: "+strings.Join(legend, "  "))

		if corrInspect != "" {
			a, b, ok := strings.Cut(corrInspect, ",")
			if !ok {
				return fmt.Errorf("--inspect expects two features, e.g. Survived,Fare")
			}
			in := correlation.NewInspector(m)
			if !in.Hover(strings.TrimSpace(a), strings.TrimSpace(b)) {
				return fmt.Errorf("no correlation for %q × %q", a, b)
			}
			sel, _ := in.Selected()
			fmt.Fprintln(w)
			heading(w, "Selected pair")
			fmt.Fprintln(w, sel.String())
		}

		fmt.Fprintln(w)
		heading(w, "Strongest correlations")
		for _, p := range m.StrongestPairs(5) {
			fmt.Fprintf(w, "  %s × %s: %.3f (%s)\n", p.A, p.B, p.Value, correlation.Strength(p.Value))
		}
		if drivers := m.Against("Survived"); len(drivers) > 0 {
			fmt.Fprintln(w)
			heading(w, "Correlation with survival")
			for _, p := range drivers {
				fmt.Fprintf(w, "  %-12s %+.3f (%s)\n", p.A, p.Value, correlation.Strength(p.Value))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(correlationCmd)
	correlationCmd.Flags().StringVar(&corrInspect, "inspect", "", "inspect one pair, as row,col")
}

func cellStyle(c correlation.Cell) lipgloss.Style {
	s := lipgloss.NewStyle()
	if c.Band.Level > 0 || c.Diagonal {
		s = s.Background(lipgloss.Color(c.Band.Color())).Foreground(lipgloss.Color("#111827"))
	}
	return s
}
