// Package report turns an evaluation result into persisted artifacts.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/gaugekit/gauge/internal/evaluation"
	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/registry"
	"github.com/gaugekit/gauge/internal/sample"
)

// Report is the aggregated outcome of one run.
type Report struct {
	RunID      string              `json:"run_id"`
	CreatedAt  time.Time           `json:"created_at"`
	Metrics    *registry.Result    `json:"metrics"`
	Config     map[string]any      `json:"config"`
	NumSamples int                 `json:"num_samples"`
	Coverage   evaluation.Coverage `json:"coverage"`
	// DataPath is the dataset the run read, if any.
	DataPath string `json:"data_path,omitempty"`
	// Ranking is the per-query breakdown, present only when requested.
	Ranking *Ranking `json:"ranking,omitempty"`
}

// Ranking holds per-query ranking scores at the run's default cutoff and
// their means over the qualifying queries.
type Ranking struct {
	Summary evaluation.Summary        `json:"summary"`
	Samples []evaluation.SampleResult `json:"samples"`
}

// NewRanking scores every sample in batch at cutoff k.
func NewRanking(batch []sample.EvalSample, k int) *Ranking {
	rows := evaluation.Breakdown(batch, k)
	return &Ranking{Summary: evaluation.Summarize(rows), Samples: rows}
}

// Format is a report artifact format.
type Format string

const (
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ParseFormat accepts a format name case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatHTML, FormatXLSX, FormatCSV:
		return f, nil
	default:
		return "", errors.UnsupportedFormatError(s)
	}
}

// Target is one artifact to write.
type Target struct {
	Format Format `json:"format"`
	Path   string `json:"path"`
}

func (t Target) String() string {
	return fmt.Sprintf("%s:%s", t.Format, t.Path)
}

// sortedConfig returns config keys in a stable order for rendering.
func sortedConfig(cfg map[string]any) [][2]string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, len(keys))
	for i, k := range keys {
		out[i] = [2]string{k, fmt.Sprint(cfg[k])}
	}
	return out
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.4f", v)
}
