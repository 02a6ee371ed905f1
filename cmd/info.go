package cmd

import (
	"context"
	"fmt"
	"math"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/KaramelBytes/titanic-analytics/internal/charts"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show dataset shape, column types and missing values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openSource(newLogger())
		if err != nil {
			return err
		}
		info, err := src.Info(cmd.Context())
		if err != nil {
			return fmt.Errorf("connection error: unable to load dataset info: %w", err)
		}
		w := cmd.OutOrStdout()
		heading(w, fmt.Sprintf("🚢 Titanic dataset: %d rows × %d columns", info.Rows(), info.Cols()))
		t := newTable(w, "Column", "Type", "Missing")
		for _, c := range info.Columns {
			t.AppendRow(table.Row{c, info.DataTypes[c], info.MissingValues[c]})
		}
		t.Render()
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show key metrics and descriptive statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openSource(newLogger())
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		w := cmd.OutOrStdout()
		if _, err := src.Info(ctx); err != nil {
			return fmt.Errorf("connection error: unable to load dataset info: %w", err)
		}

		s, err := src.Summary(ctx)
		if err != nil {
			unavailable(w, "summary", err)
		} else {
			heading(w, "Key Metrics")
			t := newTable(w)
			for _, c := range charts.SummaryCards(s) {
				t.AppendRow(table.Row{c.Icon + " " + c.Title, c.Value, c.Description})
			}
			t.Render()

			fmt.Fprintln(w)
			heading(w, "Descriptive Statistics")
			t = newTable(w, "Column", "Count", "Mean", "Std", "Min", "25%", "50%", "75%", "Max")
			for _, c := range s {
				st := c.Stats
				t.AppendRow(table.Row{c.Name, num(st.Count), num(st.Mean), num(st.Std), num(st.Min), num(st.P25), num(st.P50), num(st.P75), num(st.Max)})
			}
			t.Render()
		}

		printInsights(ctx, cmd, src)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(summaryCmd)
}

func printInsights(ctx context.Context, cmd *cobra.Command, src api.StatsSource) {
	w := cmd.OutOrStdout()
	r, err := src.SurvivalRates(ctx)
	if err != nil {
		unavailable(w, "survival rates", err)
		return
	}
	ins := charts.Insights(r)
	if len(ins) == 0 {
		return
	}
	fmt.Fprintln(w)
	heading(w, "Insights")
	for _, in := range ins {
		fmt.Fprintf(w, "%s %s: %s\n", in.Icon, in.Title, in.Description)
	}
}

func num(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "N/A"
	}
	return fmt.Sprintf("%.3f", f)
}
