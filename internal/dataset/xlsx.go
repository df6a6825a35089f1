package dataset

import (
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gaugekit/gauge/internal/ingest"
	"github.com/gaugekit/gauge/internal/pkg/errors"
)

// xlsxReader reads the first sheet; row one is the header.
type xlsxReader struct {
	file   *excelize.File
	rows   *excelize.Rows
	header []string
}

func openXLSX(path string) (*xlsxReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, errors.DatasetError("opening xlsx", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		f.Close()
		return nil, errors.DatasetError("xlsx has no sheets", nil)
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		f.Close()
		return nil, errors.DatasetError("reading xlsx sheet "+sheets[0], err)
	}

	r := &xlsxReader{file: f, rows: rows}
	if !rows.Next() {
		r.Close()
		return nil, errors.DatasetError("xlsx has no header row", rows.Error())
	}
	header, err := rows.Columns()
	if err != nil {
		r.Close()
		return nil, errors.DatasetError("reading xlsx header", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}
	r.header = header
	return r, nil
}

func (r *xlsxReader) Next() (ingest.Record, error) {
	for r.rows.Next() {
		row, err := r.rows.Columns()
		if err != nil {
			return nil, errors.DatasetError("reading xlsx row", err)
		}
		if blank(row) {
			continue
		}
		return rowRecord(r.header, row), nil
	}
	if err := r.rows.Error(); err != nil {
		return nil, errors.DatasetError("reading xlsx rows", err)
	}
	return nil, io.EOF
}

func (r *xlsxReader) Close() error {
	if r.rows != nil {
		_ = r.rows.Close()
	}
	return r.file.Close()
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
