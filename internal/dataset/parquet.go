package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/gaugekit/gauge/internal/ingest"
	"github.com/gaugekit/gauge/internal/pkg/errors"
)

// parquetReader streams rows of read_parquet through an in-memory DuckDB.
type parquetReader struct {
	db   *sql.DB
	rows *sql.Rows
	cols []string
}

func openParquet(path string) (*parquetReader, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.DatasetError("opening duckdb", err)
	}

	ctx := context.Background()
	query := fmt.Sprintf("SELECT * FROM read_parquet(%s)", quoteLiteral(path))
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		db.Close()
		return nil, errors.DatasetError("reading parquet", err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		db.Close()
		return nil, errors.DatasetError("reading parquet columns", err)
	}
	return &parquetReader{db: db, rows: rows, cols: cols}, nil
}

func (r *parquetReader) Next() (ingest.Record, error) {
	if !r.rows.Next() {
		if err := r.rows.Err(); err != nil {
			return nil, errors.DatasetError("reading parquet rows", err)
		}
		return nil, io.EOF
	}

	dest := make([]any, len(r.cols))
	for i := range dest {
		var holder any
		dest[i] = &holder
	}
	if err := r.rows.Scan(dest...); err != nil {
		return nil, errors.DatasetError("scanning parquet row", err)
	}

	rec := make(ingest.Record, len(r.cols))
	for i, col := range r.cols {
		v := *(dest[i].(*any))
		if v == nil {
			continue
		}
		rec[col] = plainValue(v)
	}
	return rec, nil
}

func (r *parquetReader) Close() error {
	rerr := r.rows.Close()
	if err := r.db.Close(); err != nil {
		return err
	}
	return rerr
}

// plainValue converts driver values into JSON-like Go values so structured
// records nested in STRUCT/LIST columns decode the same way as JSONL.
func plainValue(v any) any {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.Format(time.RFC3339Nano)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plainValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			if item == nil {
				out[k] = nil
				continue
			}
			out[k] = plainValue(item)
		}
		return out
	default:
		return v
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
