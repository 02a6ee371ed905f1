package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
)

var (
	snapPageSize int
	snapStrict   bool
	snapQuiet    bool
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <file.json>",
	Short: "Save every dataset endpoint to a file usable with --source snapshot",
	Long: `Fetch dataset info, summary, correlation, survival rates, model results,
feature analysis and all passenger records from the backend and write them as
one JSON document. Serve or browse it later with --snapshot <file>.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := args[0]
		if !strings.EqualFold(filepath.Ext(out), ".json") {
			return fmt.Errorf("snapshot files are written as JSON: use a .json name")
		}
		src, err := openSource(newLogger())
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		snap := &api.Snapshot{}
		steps := []struct {
			name  string
			fetch func(context.Context) error
		}{
			{"info", func(ctx context.Context) (err error) { snap.DatasetInfo, err = src.Info(ctx); return }},
			{"summary", func(ctx context.Context) (err error) { snap.Stats, err = src.Summary(ctx); return }},
			{"correlation", func(ctx context.Context) (err error) { snap.Matrix, err = src.Correlation(ctx); return }},
			{"survival rates", func(ctx context.Context) (err error) { snap.Rates, err = src.SurvivalRates(ctx); return }},
			{"regression", func(ctx context.Context) (err error) { snap.Model, err = src.Regression(ctx); return }},
			{"feature analysis", func(ctx context.Context) (err error) { snap.Features, err = src.FeatureAnalysis(ctx); return }},
			{"records", func(ctx context.Context) (err error) { snap.Records, err = fetchAllRecords(ctx, src, snapPageSize); return }},
		}

		w := cmd.OutOrStdout()
		failed := 0
		for i, st := range steps {
			if !snapQuiet {
				fmt.Fprintf(w, "[%d/%d] Fetching %s...\n", i+1, len(steps), st.name)
			}
			if err := st.fetch(ctx); err != nil {
				if snapStrict {
					return fmt.Errorf("fetch %s: %w", st.name, err)
				}
				failed++
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: skipping %s: %v\n", st.name, err)
			}
		}
		if failed == len(steps) {
			return fmt.Errorf("backend returned nothing to snapshot")
		}

		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := snap.WriteJSON(f); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(w, "✓ Wrote snapshot to %s (%d records, %d sections skipped)\n", out, len(snap.Records), failed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(snapshotCmd)
	snapshotCmd.Flags().IntVar(&snapPageSize, "page-size", 100, "records fetched per request")
	snapshotCmd.Flags().BoolVar(&snapStrict, "strict", false, "fail when any section cannot be fetched")
	snapshotCmd.Flags().BoolVar(&snapQuiet, "quiet", false, "suppress per-section progress")
}

// fetchAllRecords pages through /data until the reported page count.
func fetchAllRecords(ctx context.Context, src api.StatsSource, size int) ([]api.Record, error) {
	if size <= 0 {
		size = 100
	}
	var out []api.Record
	for page := 1; ; page++ {
		p, err := src.Page(ctx, page, size)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		out = append(out, p.Data...)
		if page >= p.TotalPages || len(p.Data) == 0 {
			return out, nil
		}
	}
}
