//go:build cucumber

package engine

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/cucumber/godog"

	"github.com/gaugekit/gauge/internal/ingest"
	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/registry"
)

// TestEvaluationScenarios runs the evaluation feature scenarios.
func TestEvaluationScenarios(t *testing.T) {
	featurePath := filepath.Join("..", "..", "features", "evaluation.feature")
	suite := godog.TestSuite{
		Name:                "evaluation",
		ScenarioInitializer: InitializeEvaluationScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{featurePath},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeEvaluationScenario wires steps for evaluation scenarios.
func InitializeEvaluationScenario(ctx *godog.ScenarioContext) {
	state := &evalScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		state.reset()
		return ctx, nil
	})

	ctx.Step(`^an evaluation engine with the default metrics$`, state.givenEngine)
	ctx.Step(`^a sample "([^"]+)" that retrieved "([^"]+)" with relevant "([^"]+)"$`, state.givenRetrievalSample)
	ctx.Step(`^a generation-only sample "([^"]+)" answering "([^"]+)" for reference "([^"]+)"$`, state.givenGenerationSample)
	ctx.Step(`^I evaluate "([^"]+)"$`, state.whenIEvaluate)
	ctx.Step(`^the run succeeds$`, state.thenRunSucceeds)
	ctx.Step(`^the run fails with code "([^"]+)"$`, state.thenRunFailsWithCode)
	ctx.Step(`^no scores are returned$`, state.thenNoScores)
	ctx.Step(`^the scores are in the order "([^"]+)"$`, state.thenScoreOrder)
	ctx.Step(`^"([^"]+)" is ([0-9.]+)$`, state.thenScoreIs)
	ctx.Step(`^(\d+) samples? (?:is|are) excluded$`, state.thenExcluded)
}

// evalScenarioState holds scenario state for evaluation feature tests.
type evalScenarioState struct {
	engine  *Engine
	records []ingest.Record
	outcome *Outcome
	err     error
}

func (s *evalScenarioState) reset() {
	*s = evalScenarioState{}
}

func (s *evalScenarioState) givenEngine() error {
	eng, err := New(Options{Registry: registry.Default(registry.Options{})})
	if err != nil {
		return err
	}
	s.engine = eng
	return nil
}

func (s *evalScenarioState) givenRetrievalSample(id, retrieved, relevant string) error {
	chunks := make([]any, 0)
	for _, c := range splitList(retrieved) {
		chunks = append(chunks, map[string]any{"id": c})
	}
	refs := make([]any, 0)
	for _, r := range splitList(relevant) {
		refs = append(refs, r)
	}
	s.records = append(s.records, ingest.Record{
		"query":      map[string]any{"id": id, "prompt": id, "references": refs},
		"generation": map[string]any{"query_id": id, "text": ""},
		"retrieval":  map[string]any{"query_id": id, "chunks": chunks},
	})
	return nil
}

func (s *evalScenarioState) givenGenerationSample(id, prediction, reference string) error {
	s.records = append(s.records, ingest.Record{"id": id, "prediction": prediction, "reference": reference})
	return nil
}

func (s *evalScenarioState) whenIEvaluate(metrics string) error {
	if s.engine == nil {
		return fmt.Errorf("engine not initialized")
	}
	s.outcome, s.err = s.engine.Run(context.Background(), Request{
		Metrics: splitList(metrics),
		Records: s.records,
	})
	return nil
}

func (s *evalScenarioState) thenRunSucceeds() error {
	if s.err != nil {
		return fmt.Errorf("run failed: %w", s.err)
	}
	if s.outcome == nil {
		return fmt.Errorf("no outcome")
	}
	return nil
}

func (s *evalScenarioState) thenRunFailsWithCode(code string) error {
	if s.err == nil {
		return fmt.Errorf("run succeeded, want %s", code)
	}
	if got := errors.CodeOf(s.err); got != code {
		return fmt.Errorf("code = %s, want %s (%v)", got, code, s.err)
	}
	return nil
}

func (s *evalScenarioState) thenNoScores() error {
	if s.outcome != nil {
		return fmt.Errorf("outcome = %+v, want none", s.outcome)
	}
	return nil
}

func (s *evalScenarioState) thenScoreOrder(order string) error {
	want := splitList(order)
	got := s.outcome.Result.Names()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		return fmt.Errorf("order = %v, want %v", got, want)
	}
	return nil
}

func (s *evalScenarioState) thenScoreIs(name, value string) error {
	want, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return err
	}
	got, ok := s.outcome.Result.Get(name)
	if !ok {
		return fmt.Errorf("no score for %s", name)
	}
	if math.Abs(got-want) > 1e-12 {
		return fmt.Errorf("%s = %v, want %v", name, got, want)
	}
	return nil
}

func (s *evalScenarioState) thenExcluded(n int) error {
	if s.outcome.Coverage.Excluded != n {
		return fmt.Errorf("excluded = %d, want %d", s.outcome.Coverage.Excluded, n)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
