// Package sample defines the canonical evaluation sample model.
//
// Every input shape is normalized into EvalSample at ingestion. Samples are
// validated on construction and treated as read-only afterwards; accessors
// that expose slices return copies.
package sample

import (
	apperrors "github.com/gaugekit/gauge/internal/pkg/errors"
)

// Query is the prompt side of a sample.
type Query struct {
	ID         string
	Prompt     string
	References []string       // relevant chunk IDs or gold texts; empty = none
	Metadata   map[string]any // never nil after construction
}

// Validate checks the query invariants.
func (q Query) Validate() error {
	if q.ID == "" {
		return apperrors.MalformedRecordError("query.id", "must not be empty")
	}
	return nil
}

// ContextChunk is one retrieved passage.
type ContextChunk struct {
	ID     string
	Text   string
	Source string // optional
}

// Validate checks the chunk invariants.
func (c ContextChunk) Validate() error {
	if c.ID == "" {
		return apperrors.MalformedRecordError("chunk.id", "must not be empty")
	}
	return nil
}

// RetrievalResult holds retrieved chunks in rank order, index 0 first.
type RetrievalResult struct {
	QueryID string
	Chunks  []ContextChunk
}

// Validate checks the retrieval invariants.
func (r RetrievalResult) Validate() error {
	if r.QueryID == "" {
		return apperrors.MalformedRecordError("retrieval.query_id", "must not be empty")
	}
	for _, c := range r.Chunks {
		if c.ID == "" {
			return apperrors.MalformedRecordError("retrieval.chunks.id", "must not be empty")
		}
	}
	return nil
}

// Generation is the model output for a query.
type Generation struct {
	QueryID string
	Text    string
	Model   string // optional
}

// Validate checks the generation invariants.
func (g Generation) Validate() error {
	if g.QueryID == "" {
		return apperrors.MalformedRecordError("generation.query_id", "must not be empty")
	}
	return nil
}

// EvalSample joins a query with its generation and optional retrieval.
type EvalSample struct {
	Query      Query
	Generation Generation
	Retrieval  *RetrievalResult // nil = no retrieval
}

// New builds a validated sample. The retrieval may be nil.
// Slices and metadata are copied so the caller cannot mutate the sample later.
func New(q Query, g Generation, r *RetrievalResult) (EvalSample, error) {
	q.References = cloneStrings(q.References)
	q.Metadata = cloneMap(q.Metadata)

	s := EvalSample{Query: q, Generation: g}
	if r != nil {
		rc := RetrievalResult{QueryID: r.QueryID, Chunks: append([]ContextChunk(nil), r.Chunks...)}
		s.Retrieval = &rc
	}

	if err := s.Validate(); err != nil {
		return EvalSample{}, err
	}
	return s, nil
}

// Validate checks every entity and the cross-entity ID invariants.
// The first violation wins.
func (s EvalSample) Validate() error {
	if err := s.Query.Validate(); err != nil {
		return err
	}
	if err := s.Generation.Validate(); err != nil {
		return err
	}
	if s.Generation.QueryID != s.Query.ID {
		return apperrors.MalformedRecordError("generation.query_id", "does not match query.id")
	}
	if s.Retrieval != nil {
		if err := s.Retrieval.Validate(); err != nil {
			return err
		}
		if s.Retrieval.QueryID != s.Query.ID {
			return apperrors.MalformedRecordError("retrieval.query_id", "does not match query.id")
		}
	}
	return nil
}

// ID returns the query ID.
func (s EvalSample) ID() string { return s.Query.ID }

// References returns a copy of the reference list.
func (s EvalSample) References() []string { return cloneStrings(s.Query.References) }

// RelevantIDs returns the references as a set, for ranking metrics.
func (s EvalSample) RelevantIDs() map[string]struct{} {
	set := make(map[string]struct{}, len(s.Query.References))
	for _, r := range s.Query.References {
		set[r] = struct{}{}
	}
	return set
}

// RetrievedIDs returns chunk IDs in rank order, or nil with no retrieval.
func (s EvalSample) RetrievedIDs() []string {
	if s.Retrieval == nil {
		return nil
	}
	ids := make([]string, len(s.Retrieval.Chunks))
	for i, c := range s.Retrieval.Chunks {
		ids[i] = c.ID
	}
	return ids
}

// Qualifies reports whether the sample takes part in ranking metrics:
// it has a retrieval and at least one reference.
func (s EvalSample) Qualifies() bool {
	return s.Retrieval != nil && len(s.Query.References) > 0
}

// Predictions returns generation texts in batch order.
func Predictions(batch []EvalSample) []string {
	out := make([]string, len(batch))
	for i, s := range batch {
		out[i] = s.Generation.Text
	}
	return out
}

// ReferenceLists returns each sample's references in batch order.
func ReferenceLists(batch []EvalSample) [][]string {
	out := make([][]string, len(batch))
	for i, s := range batch {
		out[i] = s.References()
	}
	return out
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	return append([]string(nil), in...)
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
