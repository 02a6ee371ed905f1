package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/KaramelBytes/titanic-analytics/internal/charts"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	survivalBy  string
	survivalSVG string
)

var survivalCmd = &cobra.Command{
	Use:   "survival",
	Short: "Show survival rates by class, sex, embarkation port or title",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if survivalBy != "" && !charts.ValidKey(survivalBy) {
			_, err := charts.Breakdown(nil, survivalBy)
			return err
		}
		if survivalSVG != "" && survivalBy == "" {
			return fmt.Errorf("--svg requires --by")
		}
		src, err := openSource(newLogger())
		if err != nil {
			return err
		}
		rates, err := src.SurvivalRates(cmd.Context())
		if err != nil {
			return fmt.Errorf("survival rates unavailable: %w", err)
		}

		keys := charts.Keys
		if survivalBy != "" {
			keys = []string{survivalBy}
		}
		w := cmd.OutOrStdout()
		for i, k := range keys {
			s, err := charts.Breakdown(rates, k)
			if err != nil {
				return err
			}
			if i > 0 {
				fmt.Fprintln(w)
			}
			printSeries(w, s)
		}

		if survivalSVG != "" {
			s, _ := charts.Breakdown(rates, survivalBy)
			f, err := os.Create(survivalSVG)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := charts.RenderSVG(f, s); err != nil {
				if errors.Is(err, charts.ErrEmptySeries) {
					return fmt.Errorf("no %s data to chart", survivalBy)
				}
				return err
			}
			fmt.Fprintf(w, "✓ Wrote chart to %s\n", survivalSVG)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(survivalCmd)
	survivalCmd.Flags().StringVar(&survivalBy, "by", "", "breakdown: class | sex | embarked | title (default all)")
	survivalCmd.Flags().StringVar(&survivalSVG, "svg", "", "write the breakdown chart as SVG to this file")
}

func printSeries(w io.Writer, s charts.Series) {
	heading(w, fmt.Sprintf("%s: %s", s.Title, s.Description))
	if len(s.Points) == 0 {
		note(w, "No data available")
		return
	}
	t := newTable(w, "Group", "Survival", "")
	for _, p := range s.Points {
		t.AppendRow(table.Row{p.Label, charts.Percent(p.Value), bar(p.Value, 20)})
	}
	t.Render()
	fmt.Fprintf(w, "Highest survival rate: %s\n", s.HighestLabel())
}
