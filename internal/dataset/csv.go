package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gaugekit/gauge/internal/ingest"
	"github.com/gaugekit/gauge/internal/pkg/errors"
)

type csvReader struct {
	file   *os.File
	r      *csv.Reader
	header []string
}

func openCSV(path string) (*csvReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.DatasetError("opening dataset", err)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, errors.DatasetError("csv has no header row", nil)
		}
		return nil, errors.DatasetError("reading csv header", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return &csvReader{file: f, r: r, header: header}, nil
}

func (r *csvReader) Next() (ingest.Record, error) {
	row, err := r.r.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, errors.DatasetError("reading csv row", err)
	}
	if len(row) > len(r.header) {
		line, _ := r.r.FieldPos(0)
		return nil, errors.DatasetError(fmt.Sprintf("line %d: %d fields for %d columns", line, len(row), len(r.header)), nil)
	}
	return rowRecord(r.header, row), nil
}

func (r *csvReader) Close() error {
	return r.file.Close()
}
