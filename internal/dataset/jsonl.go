package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/gaugekit/gauge/internal/ingest"
	"github.com/gaugekit/gauge/internal/pkg/errors"
)

// maxLineSize bounds a single JSONL record.
const maxLineSize = 16 * 1024 * 1024

type jsonlReader struct {
	file    *os.File
	scanner *bufio.Scanner
	line    int
}

func openJSONL(path string) (*jsonlReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.DatasetError("opening dataset", err)
	}
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	return &jsonlReader{file: f, scanner: scanner}, nil
}

func (r *jsonlReader) Next() (ingest.Record, error) {
	for r.scanner.Scan() {
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec ingest.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, errors.DatasetError(fmt.Sprintf("line %d: invalid JSON object", r.line), err).
				WithDetail("line", fmt.Sprintf("%d", r.line))
		}
		if rec == nil {
			return nil, errors.DatasetError(fmt.Sprintf("line %d: expected object", r.line), nil).
				WithDetail("line", fmt.Sprintf("%d", r.line))
		}
		return rec, nil
	}
	if err := r.scanner.Err(); err != nil {
		return nil, errors.DatasetError("reading dataset", err)
	}
	return nil, io.EOF
}

func (r *jsonlReader) Close() error {
	return r.file.Close()
}
