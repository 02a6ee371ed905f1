package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/titanic-analytics/internal/api"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Passengers"

// ExportFormatFor picks the export format from a file name: .xlsx or .csv.
func ExportFormatFor(name string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".xlsx", ".csv":
		return ext[1:], nil
	default:
		return "", fmt.Errorf("unsupported export format %q (use .xlsx or .csv)", ext)
	}
}

// WriteCSV writes rows with a header line of columns. Values are the raw
// cell values, not the display formatting.
func WriteCSV(w io.Writer, columns []string, rows []api.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return err
	}
	for _, r := range rows {
		rec := make([]string, len(columns))
		for i, c := range columns {
			v, _ := r.Get(c)
			rec[i] = Stringify(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes rows to a single-sheet workbook with a bold header row.
func WriteXLSX(w io.Writer, columns []string, rows []api.Record) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetRowStyle(exportSheet, 1, 1, style); err != nil {
		return err
	}
	for ri, r := range rows {
		vals := make([]any, len(columns))
		for i, c := range columns {
			v, _ := r.Get(c)
			vals[i] = v
		}
		cell, err := excelize.CoordinatesToCellName(1, ri+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(exportSheet, cell, &vals); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Export writes rows in the given format ("xlsx" or "csv").
func Export(w io.Writer, format string, columns []string, rows []api.Record) error {
	switch format {
	case "xlsx":
		return WriteXLSX(w, columns, rows)
	case "csv":
		return WriteCSV(w, columns, rows)
	}
	return fmt.Errorf("unsupported export format %q", format)
}
