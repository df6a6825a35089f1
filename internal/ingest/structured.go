package ingest

import (
	_ "embed"
	"encoding/json"
	"errors"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/gaugekit/gauge/internal/sample"
	apperrors "github.com/gaugekit/gauge/internal/pkg/errors"
)

//go:embed schema/structured.json
var structuredSchema string

type structuredValidator struct {
	schema *jsonschema.Schema
}

func newStructuredValidator() (*structuredValidator, error) {
	compiled, err := jsonschema.CompileString("structured.json", structuredSchema)
	if err != nil {
		return nil, err
	}
	return &structuredValidator{schema: compiled}, nil
}

type structuredRecord struct {
	Query struct {
		ID         string         `json:"id"`
		Prompt     string         `json:"prompt"`
		References []string       `json:"references"`
		Metadata   map[string]any `json:"metadata"`
	} `json:"query"`
	Generation struct {
		QueryID string  `json:"query_id"`
		Text    string  `json:"text"`
		Model   *string `json:"model"`
	} `json:"generation"`
	Retrieval *struct {
		QueryID string `json:"query_id"`
		Chunks  []struct {
			ID     string  `json:"id"`
			Text   string  `json:"text"`
			Source *string `json:"source"`
		} `json:"chunks"`
	} `json:"retrieval"`
}

// decode validates rec against the schema and builds the sample.
// The record is round-tripped through JSON so values from any reader
// are checked in their JSON form.
func (v *structuredValidator) decode(rec Record) (sample.EvalSample, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return sample.EvalSample{}, apperrors.MalformedRecordError("record", err.Error())
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return sample.EvalSample{}, apperrors.MalformedRecordError("record", err.Error())
	}
	if err := v.schema.Validate(doc); err != nil {
		return sample.EvalSample{}, schemaError(err)
	}

	var sr structuredRecord
	if err := json.Unmarshal(raw, &sr); err != nil {
		return sample.EvalSample{}, apperrors.MalformedRecordError("record", err.Error())
	}

	q := sample.Query{
		ID:         sr.Query.ID,
		Prompt:     sr.Query.Prompt,
		References: sr.Query.References,
		Metadata:   sr.Query.Metadata,
	}
	g := sample.Generation{
		QueryID: sr.Generation.QueryID,
		Text:    sr.Generation.Text,
		Model:   deref(sr.Generation.Model),
	}

	var r *sample.RetrievalResult
	if sr.Retrieval != nil {
		r = &sample.RetrievalResult{QueryID: sr.Retrieval.QueryID}
		for _, c := range sr.Retrieval.Chunks {
			r.Chunks = append(r.Chunks, sample.ContextChunk{
				ID:     c.ID,
				Text:   c.Text,
				Source: deref(c.Source),
			})
		}
	}

	return sample.New(q, g, r)
}

// schemaError names the deepest failing instance location as the field.
func schemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return apperrors.MalformedRecordError("record", err.Error())
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	field := strings.ReplaceAll(strings.Trim(ve.InstanceLocation, "/"), "/", ".")
	if missing := missingProperty(ve.Message); missing != "" {
		if field != "" {
			field += "."
		}
		field += missing
	}
	if field == "" {
		field = "record"
	}
	return apperrors.MalformedRecordError(field, ve.Message)
}

// missingProperty extracts the name from "missing properties: 'id'".
func missingProperty(msg string) string {
	const prefix = "missing properties: "
	if !strings.HasPrefix(msg, prefix) {
		return ""
	}
	name, _, _ := strings.Cut(strings.TrimPrefix(msg, prefix), ",")
	return strings.Trim(strings.TrimSpace(name), "'\"")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
