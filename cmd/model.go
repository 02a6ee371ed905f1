package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/KaramelBytes/titanic-analytics/internal/charts"
	"github.com/KaramelBytes/titanic-analytics/internal/mlresults"
)

var (
	modelFeatures    bool
	modelPredictions bool
	modelAnalysis    bool
	modelSVG         string
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Show the survival model: performance, features, predictions",
	Long: `Show the backend's survival model results.

Without flags, prints performance and the top features. Select sections with
--features, --predictions and --analysis; --svg writes the feature importance chart.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openSource(newLogger())
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		w := cmd.OutOrStdout()
		all := !modelFeatures && !modelPredictions && !modelAnalysis

		res, err := src.Regression(ctx)
		if err != nil {
			// the feature analysis is a separate slice and may still load
			unavailable(w, "model results", err)
		} else {
			printPerformance(w, res.Performance)
			if all || modelFeatures {
				fmt.Fprintln(w)
				printFeatures(w, res.FeatureImportance)
			}
			if modelPredictions {
				fmt.Fprintln(w)
				printPredictions(w, res.SamplePredictions)
			}
		}

		if modelAnalysis {
			fmt.Fprintln(w)
			fa, err := src.FeatureAnalysis(ctx)
			if err != nil {
				unavailable(w, "feature analysis", err)
			} else {
				printFeatureAnalysis(w, fa)
			}
		}

		if modelSVG != "" {
			if res == nil {
				return fmt.Errorf("cannot chart feature importance: %w", err)
			}
			if err := writeImportanceSVG(modelSVG, res.FeatureImportance); err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Wrote chart to %s\n", modelSVG)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.Flags().BoolVar(&modelFeatures, "features", false, "show the top features and their influence")
	modelCmd.Flags().BoolVar(&modelPredictions, "predictions", false, "show sample predictions")
	modelCmd.Flags().BoolVar(&modelAnalysis, "analysis", false, "show per-feature survival analysis")
	modelCmd.Flags().StringVar(&modelSVG, "svg", "", "write the feature importance chart as SVG to this file")
}

func printPerformance(w io.Writer, p api.ModelPerformance) {
	heading(w, "🤖 Model Performance")
	t := newTable(w)
	for _, m := range mlresults.Performance(p) {
		t.AppendRow(table.Row{m.Title, m.Value, m.Description})
	}
	t.Render()
	fmt.Fprintln(w, mlresults.Interpretation(p))
}

func printFeatures(w io.Writer, importance api.OrderedFloats) {
	top := mlresults.TopFeatures(importance, mlresults.DefaultTopN)
	heading(w, fmt.Sprintf("Top %d Features", len(top)))
	if len(top) == 0 {
		note(w, "No feature importance reported")
		return
	}
	t := newTable(w, "#", "Feature", "Importance", "Direction")
	for i, f := range top {
		t.AppendRow(table.Row{i + 1, f.Label, fmt.Sprintf("%.3f", f.Importance), f.Direction})
	}
	t.Render()

	pos, neg := mlresults.Influences(top, 3)
	fmt.Fprintln(w, "Increases survival: "+featureNames(pos))
	fmt.Fprintln(w, "Decreases survival: "+featureNames(neg))
}

func featureNames(fs []mlresults.Feature) string {
	if len(fs) == 0 {
		return "none"
	}
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Label
	}
	return strings.Join(names, ", ")
}

func printPredictions(w io.Writer, samples []api.SamplePrediction) {
	heading(w, "Sample Predictions")
	cards := mlresults.Cards(samples)
	if len(cards) == 0 {
		note(w, "No sample predictions reported")
		return
	}
	t := newTable(w, "Passenger", "Name", "Class", "Age", "Gender", "Fare", "Predicted", "Actual", "Probability", "")
	for _, c := range cards {
		t.AppendRow(table.Row{c.PassengerID, c.Name, c.Class, c.Age, c.Gender, c.Fare,
			c.PredictedBadge(), c.ActualBadge(), c.Probability, c.Verdict()})
	}
	t.Render()
}

func printFeatureAnalysis(w io.Writer, fa api.FeatureAnalysis) {
	heading(w, "Feature Analysis")
	cards := mlresults.AnalysisCards(fa)
	if len(cards) == 0 {
		note(w, "No feature analysis available")
		return
	}
	t := newTable(w, "Feature", "Type", "Correlation", "Groups", "Mean (survived/died)")
	for _, c := range cards {
		if c.Failed {
			t.AppendRow(table.Row{c.Name, "error", "N/A", "analysis failed", "N/A"})
			continue
		}
		groups := make([]string, len(c.Groups))
		for i, g := range c.Groups {
			groups[i] = fmt.Sprintf("%s: %s", g.Label, g.Percent)
		}
		t.AppendRow(table.Row{c.Name, c.Type, c.Correlation, strings.Join(groups, ", "), c.MeanSurvived + " / " + c.MeanDied})
	}
	t.Render()
}

func writeImportanceSVG(path string, importance api.OrderedFloats) error {
	top := mlresults.TopFeatures(importance, mlresults.DefaultTopN)
	bars := make([]charts.Bar, len(top))
	for i, f := range top {
		bars[i] = charts.Bar{Label: f.Label, Value: f.Importance}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return charts.RenderImportanceSVG(f, "Feature Importance", bars)
}
