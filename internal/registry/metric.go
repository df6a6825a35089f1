package registry

import (
	"context"
	stderrors "errors"

	"github.com/gaugekit/gauge/internal/sample"
	"github.com/gaugekit/gauge/internal/textsim"
)

// RankingMetric adapts a batch ranking aggregate.
type RankingMetric struct {
	MetricName string
	Fn         func(batch []sample.EvalSample, k int) float64
}

func (m RankingMetric) Name() string       { return m.MetricName }
func (m RankingMetric) Parametrized() bool { return IsParametrizedBase(m.MetricName) }

func (m RankingMetric) Compute(_ context.Context, batch []sample.EvalSample, k int) (float64, error) {
	return m.Fn(batch, k), nil
}

// TextMetric adapts a predictions/references text function.
type TextMetric struct {
	MetricName string
	Fn         textsim.Func
}

func (m TextMetric) Name() string       { return m.MetricName }
func (m TextMetric) Parametrized() bool { return false }

func (m TextMetric) Compute(_ context.Context, batch []sample.EvalSample, _ int) (float64, error) {
	return m.Fn(sample.Predictions(batch), sample.ReferenceLists(batch))
}

// SampleMetric adapts a function that needs more of the sample than
// predictions and references.
type SampleMetric struct {
	MetricName string
	Fn         func(ctx context.Context, batch []sample.EvalSample) (float64, error)
}

func (m SampleMetric) Name() string       { return m.MetricName }
func (m SampleMetric) Parametrized() bool { return false }

func (m SampleMetric) Compute(ctx context.Context, batch []sample.EvalSample, _ int) (float64, error) {
	return m.Fn(ctx, batch)
}

var errNoEmbedder = stderrors.New("no embedding provider configured")

// SemanticMetric is embedding cosine between generation and references.
type SemanticMetric struct {
	Embedder textsim.Embedder
}

func (m *SemanticMetric) Name() string       { return "semantic_similarity" }
func (m *SemanticMetric) Parametrized() bool { return false }

// Available fails when no embedder is configured.
func (m *SemanticMetric) Available() error {
	if m.Embedder == nil {
		return errNoEmbedder
	}
	return nil
}

func (m *SemanticMetric) Compute(ctx context.Context, batch []sample.EvalSample, _ int) (float64, error) {
	if err := m.Available(); err != nil {
		return 0, err
	}
	return textsim.SemanticSimilarity(ctx, m.Embedder, sample.Predictions(batch), sample.ReferenceLists(batch))
}
