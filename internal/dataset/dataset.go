// Package dataset reads evaluation records from files.
//
// Readers are lazy: each Next call yields one record until io.EOF. A reader
// is not restartable; open the path again to read from the start.
package dataset

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gaugekit/gauge/internal/ingest"
	"github.com/gaugekit/gauge/internal/pkg/errors"
)

// Format names a supported file format.
type Format string

const (
	FormatJSONL   Format = "jsonl"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatXLSX    Format = "xlsx"
)

// Reader yields records one at a time.
type Reader interface {
	// Next returns the next record, or io.EOF after the last one.
	Next() (ingest.Record, error)
	Close() error
}

// FormatOf picks a format from the file extension.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".csv":
		return FormatCSV, nil
	case ".parquet":
		return FormatParquet, nil
	case ".xlsx":
		return FormatXLSX, nil
	default:
		if ext == "" {
			ext = path
		}
		return "", errors.UnsupportedFormatError(ext)
	}
}

// Open opens path with the reader for its extension.
func Open(path string) (Reader, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	return OpenFormat(path, format)
}

// OpenFormat opens path as the given format regardless of extension.
func OpenFormat(path string, format Format) (Reader, error) {
	switch format {
	case FormatJSONL:
		return openJSONL(path)
	case FormatCSV:
		return openCSV(path)
	case FormatParquet:
		return openParquet(path)
	case FormatXLSX:
		return openXLSX(path)
	default:
		return nil, errors.UnsupportedFormatError(string(format))
	}
}

// ReadAll drains r. limit > 0 stops after that many records.
func ReadAll(r Reader, limit int) ([]ingest.Record, error) {
	var out []ingest.Record
	for limit <= 0 || len(out) < limit {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Load opens path, reads up to limit records and closes it.
func Load(path string, limit int) ([]ingest.Record, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return ReadAll(r, limit)
}

// rowRecord pairs a CSV or XLSX header with one row. Missing trailing cells
// become "". A "references" cell holding a "|"-separated list is split.
func rowRecord(header, row []string) ingest.Record {
	rec := make(ingest.Record, len(header))
	for i, col := range header {
		if col == "" {
			continue
		}
		if i >= len(row) {
			rec[col] = ""
			continue
		}
		if col == "references" {
			if refs, ok := splitCell(row[i]); ok {
				rec[col] = refs
				continue
			}
		}
		rec[col] = row[i]
	}
	return rec
}

// splitCell splits a pipe list. JSON lists are left for ingest to decode.
func splitCell(cell string) ([]string, bool) {
	s := strings.TrimSpace(cell)
	if strings.HasPrefix(s, "[") || !strings.Contains(s, "|") {
		return nil, false
	}
	parts := strings.Split(s, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}
