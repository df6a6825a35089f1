// Package registry maps metric names to metric implementations and
// dispatches evaluation over a batch of samples.
package registry

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/gaugekit/gauge/internal/evaluation"
	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/sample"
	"github.com/gaugekit/gauge/internal/textsim"
)

// Metric computes one aggregate score over a batch.
type Metric interface {
	Name() string
	// Parametrized metrics accept an @k cutoff.
	Parametrized() bool
	// Compute returns the aggregate. k is 0 for non-parametrized metrics.
	Compute(ctx context.Context, batch []sample.EvalSample, k int) (float64, error)
}

// Checker is implemented by metrics with optional dependencies.
// A non-nil error makes the metric unavailable.
type Checker interface {
	Available() error
}

// Registry is a set of metrics keyed by base name. Safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	metrics map[string]Metric
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{metrics: make(map[string]Metric)}
}

// Register adds m, replacing any metric with the same name.
func (r *Registry) Register(m Metric) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics[m.Name()] = m
}

// Lookup returns the metric registered under base.
func (r *Registry) Lookup(base string) (Metric, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.metrics[base]
	return m, ok
}

// Names returns registered metric names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.metrics))
	for name := range r.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Info describes a registered metric for listings.
type Info struct {
	Name         string `json:"name"`
	Parametrized bool   `json:"parametrized"`
	Available    bool   `json:"available"`
	Reason       string `json:"reason,omitempty"`
}

// Describe lists every registered metric with its availability.
func (r *Registry) Describe() []Info {
	names := r.Names()
	out := make([]Info, 0, len(names))
	for _, name := range names {
		m, _ := r.Lookup(name)
		info := Info{Name: name, Parametrized: m.Parametrized(), Available: true}
		if c, ok := m.(Checker); ok {
			if err := c.Available(); err != nil {
				info.Available = false
				info.Reason = err.Error()
			}
		}
		out = append(out, info)
	}
	return out
}

// Resolve parses raw and finds its metric. The <base>@<k> form exists only
// for parametrized bases, so an unknown base, or a cutoff on a metric that
// takes none, is an unknown metric. Both are reported before a bad cutoff.
func (r *Registry) Resolve(raw string, defaultK int) (Identifier, Metric, error) {
	base, _, hasAt := strings.Cut(raw, "@")
	m, ok := r.Lookup(base)
	if !ok || (hasAt && !m.Parametrized()) {
		return Identifier{}, nil, errors.UnknownMetricError(raw)
	}
	id, err := ParseIdentifier(raw, defaultK)
	if err != nil {
		return Identifier{}, nil, err
	}
	if m.Parametrized() && !id.HasK {
		id.K = defaultK
	}
	return id, m, nil
}

// Options configures Default.
type Options struct {
	// Embedder backs semantic_similarity. Nil leaves it unavailable.
	Embedder textsim.Embedder
}

// Default returns a registry with every built-in metric.
func Default(opts Options) *Registry {
	r := New()

	r.Register(RankingMetric{MetricName: "recall", Fn: evaluation.Recall})
	r.Register(RankingMetric{MetricName: "precision", Fn: evaluation.Precision})
	r.Register(RankingMetric{MetricName: "ndcg", Fn: evaluation.MeanNDCG})
	r.Register(RankingMetric{MetricName: "mrr", Fn: func(b []sample.EvalSample, _ int) float64 { return evaluation.MRR(b) }})
	r.Register(RankingMetric{MetricName: "map", Fn: func(b []sample.EvalSample, _ int) float64 { return evaluation.MAP(b) }})

	r.Register(TextMetric{MetricName: "rouge1", Fn: textsim.Rouge1})
	r.Register(TextMetric{MetricName: "rouge2", Fn: textsim.Rouge2})
	r.Register(TextMetric{MetricName: "rougeL", Fn: textsim.RougeLCorpus})
	r.Register(TextMetric{MetricName: "bleu", Fn: textsim.BLEU})
	r.Register(TextMetric{MetricName: "meteor", Fn: textsim.Meteor})
	r.Register(TextMetric{MetricName: "faithfulness", Fn: textsim.Faithfulness})

	r.Register(SampleMetric{MetricName: "answer_relevancy", Fn: answerRelevancy})
	r.Register(SampleMetric{MetricName: "sts_spearman", Fn: stsSpearman})
	r.Register(&SemanticMetric{Embedder: opts.Embedder})

	return r
}

func answerRelevancy(_ context.Context, batch []sample.EvalSample) (float64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	var sum float64
	for _, s := range batch {
		sum += textsim.TFIDFCosine(s.Query.Prompt, s.Generation.Text)
	}
	return sum / float64(len(batch)), nil
}

func stsSpearman(_ context.Context, batch []sample.EvalSample) (float64, error) {
	prompts := make([]string, len(batch))
	for i, s := range batch {
		prompts[i] = s.Query.Prompt
	}
	return textsim.STSSpearman(prompts, sample.Predictions(batch))
}
