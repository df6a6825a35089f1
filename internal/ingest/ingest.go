// Package ingest normalizes heterogeneous raw records into evaluation samples.
//
// Two record shapes are accepted. A structured record carries nested
// "query" and "generation" objects (and optionally "retrieval"); anything
// else is read as a flat record of scalar columns. The shape is resolved
// once here and never seen past ingestion.
package ingest

import (
	"errors"
	"strconv"

	"github.com/gaugekit/gauge/internal/sample"
	apperrors "github.com/gaugekit/gauge/internal/pkg/errors"
)

// Record is one raw input row as produced by a dataset reader or decoded
// from a request body.
type Record = map[string]any

// Normalizer turns records into samples. It holds the compiled structured
// schema and is safe for concurrent use.
type Normalizer struct {
	structured *structuredValidator
}

// NewNormalizer compiles the embedded record schema.
func NewNormalizer() (*Normalizer, error) {
	v, err := newStructuredValidator()
	if err != nil {
		return nil, apperrors.InternalError("compiling record schema", err)
	}
	return &Normalizer{structured: v}, nil
}

// Normalize converts one record. index is the record's position in its
// input and becomes the query ID of flat records that have none.
func (n *Normalizer) Normalize(rec Record, index int) (sample.EvalSample, error) {
	var (
		s   sample.EvalSample
		err error
	)
	if isStructured(rec) {
		s, err = n.structured.decode(rec)
	} else {
		s, err = normalizeFlat(rec, index)
	}
	if err != nil {
		return sample.EvalSample{}, withIndex(err, index)
	}
	return s, nil
}

// NormalizeAll converts records in order. The first failing record aborts
// the whole batch and nothing is returned.
func (n *Normalizer) NormalizeAll(records []Record) ([]sample.EvalSample, error) {
	out := make([]sample.EvalSample, 0, len(records))
	for i, rec := range records {
		s, err := n.Normalize(rec, i)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// FromSamples re-validates samples that were built in code.
func FromSamples(samples []sample.EvalSample) ([]sample.EvalSample, error) {
	out := make([]sample.EvalSample, 0, len(samples))
	for i, s := range samples {
		built, err := sample.New(s.Query, s.Generation, s.Retrieval)
		if err != nil {
			return nil, withIndex(err, i)
		}
		out = append(out, built)
	}
	return out, nil
}

// isStructured picks the structured shape when both nested keys exist, or
// when either one holds an object, so a half-structured record fails schema
// validation instead of passing as an empty flat record.
func isStructured(rec Record) bool {
	q, hasQuery := rec["query"]
	g, hasGeneration := rec["generation"]
	if hasQuery && hasGeneration {
		return true
	}
	return isObject(q) || isObject(g)
}

func isObject(v any) bool {
	_, ok := v.(map[string]any)
	return ok
}

// withIndex tags a malformed-record error with the record position.
func withIndex(err error, index int) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.Code == apperrors.CodeMalformedRecord {
		return appErr.WithDetail("index", strconv.Itoa(index))
	}
	return apperrors.MalformedRecordError("record", err.Error()).
		WithDetail("index", strconv.Itoa(index))
}
