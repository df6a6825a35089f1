package registry

import (
	"testing"

	"github.com/gaugekit/gauge/internal/pkg/errors"
)

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		raw  string
		want Identifier
	}{
		{"recall@10", Identifier{Raw: "recall@10", Base: "recall", K: 10, HasK: true}},
		{"ndcg@1", Identifier{Raw: "ndcg@1", Base: "ndcg", K: 1, HasK: true}},
		{"recall", Identifier{Raw: "recall", Base: "recall", K: 5}},
		{"precision", Identifier{Raw: "precision", Base: "precision", K: 5}},
		{"rouge1", Identifier{Raw: "rouge1", Base: "rouge1"}},
		{"mrr", Identifier{Raw: "mrr", Base: "mrr"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseIdentifier(tt.raw, 5)
			if err != nil {
				t.Fatalf("ParseIdentifier(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseIdentifier(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseIdentifier_Errors(t *testing.T) {
	tests := []struct {
		raw  string
		code string
	}{
		{"", errors.CodeUnknownMetric},
		{"@5", errors.CodeUnknownMetric},
		{"recall@0", errors.CodeInvalidMetricParameter},
		{"recall@-1", errors.CodeInvalidMetricParameter},
		{"recall@+3", errors.CodeInvalidMetricParameter},
		{"recall@abc", errors.CodeInvalidMetricParameter},
		{"recall@1.5", errors.CodeInvalidMetricParameter},
		{"recall@", errors.CodeInvalidMetricParameter},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			_, err := ParseIdentifier(tt.raw, 10)
			if got := errors.CodeOf(err); got != tt.code {
				t.Errorf("ParseIdentifier(%q) code = %q, want %q (err %v)", tt.raw, got, tt.code, err)
			}
		})
	}
}

func TestIdentifier_String(t *testing.T) {
	id, _ := ParseIdentifier("recall", 3)
	if id.String() != "recall" {
		t.Errorf("String() = %q, want recall", id.String())
	}
	id, _ = ParseIdentifier("ndcg@4", 3)
	if id.String() != "ndcg@4" {
		t.Errorf("String() = %q, want ndcg@4", id.String())
	}
}
