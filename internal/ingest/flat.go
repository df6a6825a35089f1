package ingest

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gaugekit/gauge/internal/sample"
	apperrors "github.com/gaugekit/gauge/internal/pkg/errors"
)

// flatKeys are the columns a flat record is read from. Anything else is
// kept as query metadata.
var flatKeys = map[string]bool{
	"id": true, "prompt": true, "question": true,
	"prediction": true, "answer": true,
	"reference": true, "references": true, "model": true,
}

func normalizeFlat(rec Record, index int) (sample.EvalSample, error) {
	id, err := firstText(rec, "id")
	if err != nil {
		return sample.EvalSample{}, err
	}
	if id == "" {
		id = strconv.Itoa(index)
	}

	prompt, err := firstText(rec, "prompt", "question")
	if err != nil {
		return sample.EvalSample{}, err
	}
	prediction, err := firstText(rec, "prediction", "answer")
	if err != nil {
		return sample.EvalSample{}, err
	}
	model, err := firstText(rec, "model")
	if err != nil {
		return sample.EvalSample{}, err
	}
	refs, err := flatReferences(rec)
	if err != nil {
		return sample.EvalSample{}, err
	}

	meta := make(map[string]any)
	for k, v := range rec {
		if !flatKeys[k] {
			meta[k] = v
		}
	}

	return sample.New(
		sample.Query{ID: id, Prompt: prompt, References: refs, Metadata: meta},
		sample.Generation{QueryID: id, Text: prediction, Model: model},
		nil,
	)
}

// firstText returns the first key that is present with a non-empty value.
func firstText(rec Record, keys ...string) (string, error) {
	for _, k := range keys {
		v, ok := rec[k]
		if !ok || v == nil {
			continue
		}
		s, err := toText(v)
		if err != nil {
			return "", apperrors.MalformedRecordError(k, err.Error())
		}
		if s != "" {
			return s, nil
		}
	}
	return "", nil
}

// flatReferences resolves "references", falling back to a single "reference".
// A string "references" value is read as a JSON list or else as a single
// reference. Tabular readers split "|"-separated cells before this runs.
func flatReferences(rec Record) ([]string, error) {
	if v, ok := rec["references"]; ok && v != nil {
		refs, err := toTextList(v)
		if err != nil {
			return nil, apperrors.MalformedRecordError("references", err.Error())
		}
		if refs != nil {
			return refs, nil
		}
	}

	ref, err := firstText(rec, "reference")
	if err != nil {
		return nil, err
	}
	if ref == "" {
		return nil, nil
	}
	return []string{ref}, nil
}

// toTextList returns nil for an empty string so the caller can fall back.
func toTextList(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return append([]string{}, t...), nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, err := toText(item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return nil, nil
		}
		if strings.HasPrefix(s, "[") {
			var list []string
			if err := json.Unmarshal([]byte(s), &list); err != nil {
				return nil, fmt.Errorf("invalid JSON list: %w", err)
			}
			return list, nil
		}
		return []string{s}, nil
	default:
		return nil, fmt.Errorf("expected list or string, got %T", v)
	}
}

// toText coerces scalar column values to text. CSV and XLSX give strings,
// JSON gives float64, Parquet gives typed integers and timestamps.
func toText(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case bool:
		return strconv.FormatBool(t), nil
	case int:
		return strconv.Itoa(t), nil
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", t), nil
	case float32:
		return formatFloat(float64(t)), nil
	case float64:
		return formatFloat(t), nil
	case json.Number:
		return t.String(), nil
	case time.Time:
		return t.Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		return "", fmt.Errorf("expected scalar, got %T", v)
	}
}

// formatFloat prints integral floats without a fraction so a JSON id of 3
// becomes "3", not "3.000000".
func formatFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
