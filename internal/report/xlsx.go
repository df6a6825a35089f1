package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	metricsSheet = "Metrics"
	runSheet     = "Run"
)

// WriteXLSX writes a workbook with a metric table and a run sheet.
func WriteXLSX(w io.Writer, rep *Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), metricsSheet); err != nil {
		return err
	}
	if err := setRow(f, metricsSheet, 1, []any{"metric", "score"}); err != nil {
		return err
	}
	if rep.Metrics != nil {
		for i, s := range rep.Metrics.Scores() {
			if err := setRow(f, metricsSheet, i+2, []any{s.Name, s.Value}); err != nil {
				return err
			}
		}
	}

	if _, err := f.NewSheet(runSheet); err != nil {
		return err
	}
	rows := [][]any{
		{"run_id", rep.RunID},
		{"created_at", rep.CreatedAt.UTC().Format(time.RFC3339)},
		{"num_samples", rep.NumSamples},
		{"qualifying_samples", rep.Coverage.Qualifying},
		{"excluded_samples", rep.Coverage.Excluded},
	}
	for _, kv := range sortedConfig(rep.Config) {
		rows = append(rows, []any{"config." + kv[0], kv[1]})
	}
	for i, row := range rows {
		if err := setRow(f, runSheet, i+1, row); err != nil {
			return err
		}
	}

	_, err := f.WriteTo(w)
	return err
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("sheet %s row %d: %w", sheet, row, err)
	}
	return nil
}
