package registry

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/pkg/security"
	"github.com/gaugekit/gauge/internal/sample"
	"github.com/gaugekit/gauge/internal/textsim"
)

const eps = 1e-12

func mustSample(t *testing.T, id, prompt, prediction string, refs []string, chunks ...string) sample.EvalSample {
	t.Helper()
	var r *sample.RetrievalResult
	if chunks != nil {
		r = &sample.RetrievalResult{QueryID: id}
		for _, c := range chunks {
			r.Chunks = append(r.Chunks, sample.ContextChunk{ID: c, Text: "text " + c})
		}
	}
	s, err := sample.New(
		sample.Query{ID: id, Prompt: prompt, References: refs},
		sample.Generation{QueryID: id, Text: prediction},
		r,
	)
	if err != nil {
		t.Fatalf("sample.New() error = %v", err)
	}
	return s
}

func scenarioBatch(t *testing.T) []sample.EvalSample {
	return []sample.EvalSample{mustSample(t, "q1", "which chunk?", "c2", []string{"c2"}, "c1", "c2", "c3")}
}

type constMetric struct {
	name  string
	value float64
	err   error
}

func (m constMetric) Name() string       { return m.name }
func (m constMetric) Parametrized() bool { return false }
func (m constMetric) Compute(context.Context, []sample.EvalSample, int) (float64, error) {
	return m.value, m.err
}

func TestEvaluate_Scenario(t *testing.T) {
	d := NewDispatcher(Default(Options{}), nil, nil)
	names := []string{"recall@1", "recall@2", "mrr", "ndcg@1", "ndcg@2"}

	res, err := d.Evaluate(context.Background(), names, scenarioBatch(t), DefaultParams())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !reflect.DeepEqual(res.Names(), names) {
		t.Errorf("Names() = %v, want %v", res.Names(), names)
	}

	want := map[string]float64{
		"recall@1": 0,
		"recall@2": 1,
		"mrr":      0.5,
		"ndcg@1":   0,
		"ndcg@2":   1 / math.Log2(3),
	}
	for name, w := range want {
		got, ok := res.Get(name)
		if !ok {
			t.Errorf("missing %s", name)
			continue
		}
		if math.Abs(got-w) > eps {
			t.Errorf("%s = %v, want %v", name, got, w)
		}
	}
}

func TestEvaluate_BareParametrizedUsesDefaultK(t *testing.T) {
	d := NewDispatcher(Default(Options{}), nil, nil)
	batch := scenarioBatch(t)

	res, err := d.Evaluate(context.Background(), []string{"recall"}, batch, Params{K: 1})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := res.Get("recall"); v != 0 {
		t.Errorf("recall with k=1 = %v, want 0", v)
	}

	res, err = d.Evaluate(context.Background(), []string{"recall"}, batch, Params{})
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := res.Get("recall"); v != 1 {
		t.Errorf("recall with default k = %v, want 1", v)
	}
}

func TestEvaluate_ResolutionErrors(t *testing.T) {
	tests := []struct {
		name  string
		names []string
		check func(error) bool
	}{
		{"unknown alongside valid", []string{"counted", "recall@5", "foo"}, errors.IsUnknownMetric},
		{"unknown base with cutoff", []string{"counted", "foo@5"}, errors.IsUnknownMetric},
		{"cutoff on plain metric", []string{"counted", "rouge1@5"}, errors.IsUnknownMetric},
		{"cutoff on mrr", []string{"counted", "mrr@5"}, errors.IsUnknownMetric},
		{"cutoff on bleu", []string{"counted", "bleu@3"}, errors.IsUnknownMetric},
		{"bad cutoff on plain metric", []string{"counted", "rougeL@x"}, errors.IsUnknownMetric},
		{"zero cutoff", []string{"counted", "ndcg@0"}, errors.IsInvalidMetricParameter},
		{"unavailable requested", []string{"counted", "semantic_similarity"}, errors.IsMetricUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			reg := Default(Options{})
			reg.Register(SampleMetric{MetricName: "counted", Fn: func(context.Context, []sample.EvalSample) (float64, error) {
				called = true
				return 1, nil
			}})
			d := NewDispatcher(reg, nil, nil)

			res, err := d.Evaluate(context.Background(), tt.names, scenarioBatch(t), DefaultParams())
			if !tt.check(err) {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if res != nil {
				t.Error("expected no result on resolution failure")
			}
			if called {
				t.Error("metric computed before all names were resolved")
			}
		})
	}
}

func TestEvaluate_UnrequestedUnavailableIsFine(t *testing.T) {
	d := NewDispatcher(Default(Options{}), nil, nil)
	if _, err := d.Evaluate(context.Background(), []string{"rouge1"}, scenarioBatch(t), DefaultParams()); err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
}

func TestEvaluate_SemanticWithEmbedder(t *testing.T) {
	reg := Default(Options{Embedder: textsim.NewHashingEmbedder(64)})
	d := NewDispatcher(reg, nil, nil)
	batch := []sample.EvalSample{mustSample(t, "q", "p", "the same words", []string{"the same words"})}

	res, err := d.Evaluate(context.Background(), []string{"semantic_similarity"}, batch, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := res.Get("semantic_similarity"); math.Abs(v-1) > 1e-6 {
		t.Errorf("semantic_similarity = %v, want 1", v)
	}
}

func TestEvaluate_DuplicatesComputedOnce(t *testing.T) {
	calls := 0
	reg := New()
	reg.Register(SampleMetric{MetricName: "count", Fn: func(context.Context, []sample.EvalSample) (float64, error) {
		calls++
		return 0.25, nil
	}})
	reg.Register(constMetric{name: "other", value: 1})
	d := NewDispatcher(reg, nil, nil)

	res, err := d.Evaluate(context.Background(), []string{"count", "other", "count"}, nil, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("count computed %d times, want 1", calls)
	}
	if !reflect.DeepEqual(res.Names(), []string{"count", "other"}) {
		t.Errorf("Names() = %v", res.Names())
	}
}

func TestEvaluate_NonFiniteBecomesZero(t *testing.T) {
	reg := New()
	reg.Register(constMetric{name: "nan", value: math.NaN()})
	reg.Register(constMetric{name: "inf", value: math.Inf(1)})
	d := NewDispatcher(reg, nil, nil)

	res, err := d.Evaluate(context.Background(), []string{"nan", "inf"}, nil, DefaultParams())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"nan", "inf"} {
		if v, _ := res.Get(name); v != 0 {
			t.Errorf("%s = %v, want 0", name, v)
		}
	}
}

func TestEvaluate_ComputeErrors(t *testing.T) {
	reg := New()
	reg.Register(constMetric{name: "plain", err: stderrors.New("boom")})
	reg.Register(constMetric{name: "typed", err: errors.ValidationError("bad batch")})
	d := NewDispatcher(reg, nil, nil)

	_, err := d.Evaluate(context.Background(), []string{"plain"}, nil, DefaultParams())
	if errors.CodeOf(err) != errors.CodeInternal {
		t.Errorf("plain error code = %q, want %q", errors.CodeOf(err), errors.CodeInternal)
	}
	_, err = d.Evaluate(context.Background(), []string{"typed"}, nil, DefaultParams())
	if !errors.IsValidation(err) {
		t.Errorf("typed error = %v, want validation", err)
	}
}

// gatedMetric waits for wait to close, then closes done and fails.
type gatedMetric struct {
	name string
	wait <-chan struct{}
	done chan struct{}
	err  error
}

func (m gatedMetric) Name() string       { return m.name }
func (m gatedMetric) Parametrized() bool { return false }
func (m gatedMetric) Compute(context.Context, []sample.EvalSample, int) (float64, error) {
	if m.wait != nil {
		<-m.wait
	}
	if m.done != nil {
		close(m.done)
	}
	return 0, m.err
}

func TestEvaluate_EarliestErrorWins(t *testing.T) {
	for _, workers := range []int{1, 2, 4} {
		fastDone := make(chan struct{})
		first := errors.ValidationError("first metric failed")
		second := errors.ValidationError("second metric failed")

		reg := New()
		var wait <-chan struct{}
		if workers > 1 {
			// first finishes only after second has already failed
			wait = fastDone
		}
		reg.Register(gatedMetric{name: "slow", wait: wait, err: first})
		reg.Register(gatedMetric{name: "fast", done: fastDone, err: second})
		d := NewDispatcher(reg, nil, nil)

		_, err := d.Evaluate(context.Background(), []string{"slow", "fast"}, nil, Params{K: 10, Workers: workers})
		if err != first {
			t.Errorf("workers=%d: error = %v, want %v", workers, err, first)
		}
	}
}

func TestEvaluate_WorkersDeterministic(t *testing.T) {
	batch := []sample.EvalSample{
		mustSample(t, "a", "what is go", "go is a language", []string{"go is a programming language"}, "x", "y"),
		mustSample(t, "b", "what is rust", "rust is fast.", []string{"y"}, "y", "x"),
		mustSample(t, "c", "why?", "because", []string{"z"}, "x"),
	}
	names := []string{"recall@1", "ndcg", "mrr", "map", "precision@2", "rouge1", "rouge2", "rougeL",
		"bleu", "meteor", "faithfulness", "answer_relevancy", "sts_spearman"}
	d := NewDispatcher(Default(Options{}), nil, nil)

	seq, err := d.Evaluate(context.Background(), names, batch, Params{K: 10, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		par, err := d.Evaluate(context.Background(), names, batch, Params{K: 10, Workers: 4})
		if err != nil {
			t.Fatal(err)
		}
		a, _ := json.Marshal(seq)
		b, _ := json.Marshal(par)
		if string(a) != string(b) {
			t.Fatalf("parallel result differs:\n%s\n%s", a, b)
		}
	}
}

func TestEvaluate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d := NewDispatcher(Default(Options{}), nil, nil)
	if _, err := d.Evaluate(ctx, []string{"mrr"}, scenarioBatch(t), DefaultParams()); !stderrors.Is(err, context.Canceled) {
		t.Errorf("Evaluate() error = %v, want context.Canceled", err)
	}
}

type recordingObserver struct{ names []string }

func (o *recordingObserver) ObserveMetric(_ context.Context, name string, _ time.Duration, _ error) {
	o.names = append(o.names, name)
}

func TestEvaluate_Observer(t *testing.T) {
	obs := &recordingObserver{}
	d := NewDispatcher(Default(Options{}), nil, obs)
	if _, err := d.Evaluate(context.Background(), []string{"mrr", "recall@2"}, scenarioBatch(t), DefaultParams()); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(obs.names, []string{"mrr", "recall"}) {
		t.Errorf("observed %v", obs.names)
	}
}

func TestParamsFromMap(t *testing.T) {
	base := DefaultParams()
	tests := []struct {
		name    string
		in      map[string]any
		wantK   int
		wantErr bool
	}{
		{"missing", map[string]any{}, 10, false},
		{"nil map", nil, 10, false},
		{"int", map[string]any{"retrieval.k": 5}, 5, false},
		{"json float", map[string]any{"retrieval.k": float64(3)}, 3, false},
		{"string", map[string]any{"retrieval.k": "7"}, 7, false},
		{"fraction", map[string]any{"retrieval.k": 2.5}, 0, true},
		{"zero", map[string]any{"retrieval.k": 0}, 0, true},
		{"largest", map[string]any{"retrieval.k": security.MaxK}, security.MaxK, false},
		{"above limit", map[string]any{"retrieval.k": security.MaxK + 1}, 0, true},
		{"garbage", map[string]any{"retrieval.k": "abc"}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParamsFromMap(tt.in, base)
			if tt.wantErr {
				if !errors.IsInvalidMetricParameter(err) {
					t.Errorf("error = %v, want invalid parameter", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.K != tt.wantK {
				t.Errorf("K = %d, want %d", p.K, tt.wantK)
			}
		})
	}
}

func TestDescribe(t *testing.T) {
	infos := Default(Options{}).Describe()
	byName := make(map[string]Info, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}

	if !byName["recall"].Parametrized || byName["mrr"].Parametrized {
		t.Error("parametrized flags wrong")
	}
	if sem := byName["semantic_similarity"]; sem.Available || sem.Reason == "" {
		t.Errorf("semantic_similarity = %+v, want unavailable with reason", sem)
	}
	if len(infos) != 14 {
		t.Errorf("got %d metrics, want 14", len(infos))
	}
}
