package sample

import (
	"testing"

	apperrors "github.com/gaugekit/gauge/internal/pkg/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		query     Query
		gen       Generation
		retrieval *RetrievalResult
		wantField string
	}{
		{
			name:  "minimal",
			query: Query{ID: "q1"},
			gen:   Generation{QueryID: "q1", Text: "answer"},
		},
		{
			name:      "with retrieval",
			query:     Query{ID: "q1", References: []string{"c2"}},
			gen:       Generation{QueryID: "q1"},
			retrieval: &RetrievalResult{QueryID: "q1", Chunks: []ContextChunk{{ID: "c1"}, {ID: "c2"}}},
		},
		{
			name:      "empty query id",
			query:     Query{},
			gen:       Generation{QueryID: "q1"},
			wantField: "query.id",
		},
		{
			name:      "empty generation query id",
			query:     Query{ID: "q1"},
			gen:       Generation{},
			wantField: "generation.query_id",
		},
		{
			name:      "mismatched generation",
			query:     Query{ID: "q1"},
			gen:       Generation{QueryID: "q2"},
			wantField: "generation.query_id",
		},
		{
			name:      "mismatched retrieval",
			query:     Query{ID: "q1"},
			gen:       Generation{QueryID: "q1"},
			retrieval: &RetrievalResult{QueryID: "q2"},
			wantField: "retrieval.query_id",
		},
		{
			name:      "empty chunk id",
			query:     Query{ID: "q1"},
			gen:       Generation{QueryID: "q1"},
			retrieval: &RetrievalResult{QueryID: "q1", Chunks: []ContextChunk{{ID: ""}}},
			wantField: "retrieval.chunks.id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.query, tt.gen, tt.retrieval)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("New() error = %v", err)
				}
				return
			}
			var appErr *apperrors.AppError
			if !apperrors.IsMalformedRecord(err) {
				t.Fatalf("New() error = %v, want MALFORMED_RECORD", err)
			}
			appErr = err.(*apperrors.AppError)
			if appErr.Detail("field") != tt.wantField {
				t.Errorf("field = %s, want %s", appErr.Detail("field"), tt.wantField)
			}
		})
	}
}

func TestNew_CopiesInputs(t *testing.T) {
	refs := []string{"c1"}
	chunks := []ContextChunk{{ID: "c1"}, {ID: "c2"}}
	s, err := New(
		Query{ID: "q", References: refs},
		Generation{QueryID: "q"},
		&RetrievalResult{QueryID: "q", Chunks: chunks},
	)
	if err != nil {
		t.Fatal(err)
	}

	refs[0] = "mutated"
	chunks[0].ID = "mutated"

	if s.References()[0] != "c1" {
		t.Errorf("references changed after construction: %v", s.References())
	}
	if s.RetrievedIDs()[0] != "c1" {
		t.Errorf("retrieval changed after construction: %v", s.RetrievedIDs())
	}
	if s.Query.Metadata == nil {
		t.Error("Metadata should default to an empty map")
	}

	got := s.RetrievedIDs()
	got[0] = "x"
	if s.RetrievedIDs()[0] != "c1" {
		t.Error("RetrievedIDs() must return a copy")
	}
}

func TestQualifies(t *testing.T) {
	ret := &RetrievalResult{QueryID: "q", Chunks: []ContextChunk{{ID: "c1"}}}

	tests := []struct {
		name string
		refs []string
		ret  *RetrievalResult
		want bool
	}{
		{"retrieval and refs", []string{"c1"}, ret, true},
		{"no retrieval", []string{"c1"}, nil, false},
		{"no refs", nil, ret, false},
		{"empty retrieval still qualifies", []string{"c1"}, &RetrievalResult{QueryID: "q"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(Query{ID: "q", References: tt.refs}, Generation{QueryID: "q"}, tt.ret)
			if err != nil {
				t.Fatal(err)
			}
			if got := s.Qualifies(); got != tt.want {
				t.Errorf("Qualifies() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBatchHelpers(t *testing.T) {
	a, _ := New(Query{ID: "a", References: []string{"x"}}, Generation{QueryID: "a", Text: "one"}, nil)
	b, _ := New(Query{ID: "b"}, Generation{QueryID: "b", Text: "two"}, nil)
	batch := []EvalSample{a, b}

	preds := Predictions(batch)
	if len(preds) != 2 || preds[0] != "one" || preds[1] != "two" {
		t.Errorf("Predictions() = %v", preds)
	}

	refs := ReferenceLists(batch)
	if len(refs) != 2 || len(refs[0]) != 1 || refs[0][0] != "x" || len(refs[1]) != 0 {
		t.Errorf("ReferenceLists() = %v", refs)
	}

	if rel := a.RelevantIDs(); len(rel) != 1 {
		t.Errorf("RelevantIDs() = %v", rel)
	}
	if a.RetrievedIDs() != nil {
		t.Error("sample without retrieval should expose nil IDs")
	}
}
