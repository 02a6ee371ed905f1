package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	tbl "github.com/KaramelBytes/titanic-analytics/internal/table"
)

var (
	dataPage     int
	dataPageSize int
	dataSort     string
	dataDesc     bool
	dataFilter   string
	dataWhere    string
	dataExpand   string
	dataExport   string
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Browse passenger records one page at a time",
	Long: `Load one page of passenger records and show it as a table.

Sorting (--sort, --desc) and searching (--filter) apply to the loaded page only.
--where Column=Value keeps rows whose column matches exactly. --expand shows
every field of one passenger; --export writes the visible rows to .csv or .xlsx.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format := ""
		if dataExport != "" {
			f, err := tbl.ExportFormatFor(dataExport)
			if err != nil {
				return err
			}
			format = f
		}
		logger := newLogger()
		src, err := openSource(logger)
		if err != nil {
			return err
		}
		size := cfg.PageSize
		if cmd.Flags().Changed("page-size") {
			size = dataPageSize
		}
		b := tbl.NewBrowser(src, size, logger)
		if err := b.Load(cmd.Context(), dataPage); err != nil {
			return fmt.Errorf("data page unavailable: %w", err)
		}
		if dataSort != "" {
			dir := tbl.Asc
			if dataDesc {
				dir = tbl.Desc
			}
			b.SetSort(tbl.SortState{Column: dataSort, Direction: dir})
		}
		b.SetFilter(dataFilter)
		if dataWhere != "" {
			col, val, ok := strings.Cut(dataWhere, "=")
			if !ok {
				return fmt.Errorf("--where expects Column=Value")
			}
			b.SetColumnFilter(tbl.ColumnFilter{Column: col, Value: val})
		}

		w := cmd.OutOrStdout()
		printPageStats(w, b.Stats())
		rows := b.View()
		printRecords(w, b.Columns(), rows, b.Sort())
		fmt.Fprintln(w, b.Pagination().Label())
		if n := len(b.Rows()); len(rows) != n {
			note(w, fmt.Sprintf("(%d of %d rows on this page match)", len(rows), n))
		}

		if dataExpand != "" {
			if !b.ToggleExpand(dataExpand) {
				return fmt.Errorf("passenger %s is not on page %d", dataExpand, b.Pagination().Page)
			}
			r, _ := b.Expanded()
			fmt.Fprintln(w)
			printRecord(w, r)
		}

		if dataExport != "" {
			f, err := os.Create(dataExport)
			if err != nil {
				return err
			}
			defer f.Close()
			if err := tbl.Export(f, format, b.Columns(), rows); err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ Exported %d rows to %s\n", len(rows), dataExport)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.Flags().IntVar(&dataPage, "page", 1, "page number (1-based)")
	dataCmd.Flags().IntVar(&dataPageSize, "page-size", tbl.DefaultPageSize, "rows per page (overrides page_size)")
	dataCmd.Flags().StringVar(&dataSort, "sort", "", "sort the page by this column")
	dataCmd.Flags().BoolVar(&dataDesc, "desc", false, "sort descending")
	dataCmd.Flags().StringVar(&dataFilter, "filter", "", "case-insensitive search across all fields")
	dataCmd.Flags().StringVar(&dataWhere, "where", "", "exact column match, as Column=Value")
	dataCmd.Flags().StringVar(&dataExpand, "expand", "", "show every field of the passenger with this PassengerId")
	dataCmd.Flags().StringVar(&dataExport, "export", "", "write the visible rows to a .csv or .xlsx file")
}

func printPageStats(w io.Writer, st tbl.PageStats) {
	survival, age := "N/A", "N/A"
	if st.HasSurvival {
		survival = fmt.Sprintf("%.1f%%", st.SurvivalRate)
	}
	if st.HasAge {
		age = fmt.Sprintf("%.1f", st.MeanAge)
	}
	note(w, fmt.Sprintf("Total records: %d · Features: %d · Page survival: %s · Page mean age: %s",
		st.Total, st.Features, survival, age))
}

func printRecords(w io.Writer, cols []string, rows []api.Record, sort tbl.SortState) {
	if len(cols) == 0 {
		fmt.Fprintln(w, "(0 rows)")
		return
	}
	header := make(table.Row, len(cols))
	for i, c := range cols {
		header[i] = c
		if sort.Column == c {
			header[i] = c + " " + sort.Indicator(c)
		}
	}
	t := newTable(w, header...)
	for _, r := range rows {
		row := make(table.Row, len(cols))
		for i, c := range cols {
			v, _ := r.Get(c)
			row[i] = tbl.Format(c, v)
		}
		t.AppendRow(row)
	}
	t.Render()
}

func printRecord(w io.Writer, r api.Record) {
	heading(w, "Passenger "+tbl.PassengerID(r))
	t := newTable(w, "Field", "Value")
	for _, f := range r.Fields {
		t.AppendRow(table.Row{f.Name, tbl.Format(f.Name, f.Value)})
	}
	t.Render()
}
