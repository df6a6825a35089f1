package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gaugekit/gauge/internal/evaluation"
	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/registry"
)

func testReport() *Report {
	res := registry.NewResult()
	res.Set("recall@2", 1)
	res.Set("mrr", 0.5)
	res.Set("<b>odd</b>", 0.125)
	return &Report{
		RunID:      "run-1",
		CreatedAt:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Metrics:    res,
		Config:     map[string]any{"retrieval.k": 10},
		NumSamples: 3,
		Coverage:   evaluation.Coverage{Total: 3, Qualifying: 2, Excluded: 1},
	}
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"json", "HTML", " xlsx ", "csv"} {
		if _, err := ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", in, err)
		}
	}
	if _, err := ParseFormat("pdf"); errors.CodeOf(err) != errors.CodeUnsupportedFormat {
		t.Errorf("ParseFormat(pdf) error = %v", err)
	}
}

func TestEmit_AllFormats(t *testing.T) {
	dir := t.TempDir()
	rep := testReport()
	targets := []Target{
		{FormatJSON, filepath.Join(dir, "out", "report.json")},
		{FormatHTML, filepath.Join(dir, "report.html")},
		{FormatXLSX, filepath.Join(dir, "report.xlsx")},
		{FormatCSV, filepath.Join(dir, "report.csv")},
	}

	if err := NewEmitter(nil).Emit(context.Background(), rep, targets); err != nil {
		t.Fatalf("Emit() error = %v", err)
	}

	t.Run("json", func(t *testing.T) {
		data, err := os.ReadFile(targets[0].Path)
		if err != nil {
			t.Fatal(err)
		}
		s := string(data)
		if strings.Index(s, `"recall@2"`) > strings.Index(s, `"mrr"`) {
			t.Error("metrics not in request order")
		}
		for _, key := range []string{`"metrics"`, `"config"`, `"num_samples": 3`, `"run_id": "run-1"`, `"created_at"`} {
			if !strings.Contains(s, key) {
				t.Errorf("json missing %s", key)
			}
		}

		back, err := ReadJSON(bytes.NewReader(data))
		if err != nil {
			t.Fatal(err)
		}
		if !back.CreatedAt.Equal(rep.CreatedAt) || back.Metrics.Len() != 3 {
			t.Errorf("round trip = %+v", back)
		}
	})

	t.Run("html", func(t *testing.T) {
		data, err := os.ReadFile(targets[1].Path)
		if err != nil {
			t.Fatal(err)
		}
		s := string(data)
		if strings.Contains(s, "<b>odd</b>") {
			t.Error("metric name not escaped")
		}
		for _, want := range []string{"&lt;b&gt;odd&lt;/b&gt;", "0.5000", "3 samples", "retrieval.k", "1 excluded"} {
			if !strings.Contains(s, want) {
				t.Errorf("html missing %q", want)
			}
		}
	})

	t.Run("xlsx", func(t *testing.T) {
		f, err := excelize.OpenFile(targets[2].Path)
		if err != nil {
			t.Fatal(err)
		}
		defer f.Close()
		rows, err := f.GetRows(metricsSheet)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 4 || rows[1][0] != "recall@2" || rows[2][1] != "0.5" {
			t.Errorf("metrics sheet = %v", rows)
		}
	})

	t.Run("csv", func(t *testing.T) {
		data, err := os.ReadFile(targets[3].Path)
		if err != nil {
			t.Fatal(err)
		}
		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			t.Fatal(err)
		}
		want := [][]string{{"metric", "score"}, {"recall@2", "1"}, {"mrr", "0.5"}, {"<b>odd</b>", "0.125"}}
		if len(records) != len(want) {
			t.Fatalf("csv = %v", records)
		}
		for i := range want {
			if records[i][0] != want[i][0] || records[i][1] != want[i][1] {
				t.Errorf("row %d = %v, want %v", i, records[i], want[i])
			}
		}
	})
}

func TestWriteHTML_Ranking(t *testing.T) {
	rep := testReport()
	rep.Ranking = &Ranking{
		Summary: evaluation.Summary{K: 2, QueryCount: 1, MAP: 0.5},
		Samples: []evaluation.SampleResult{
			{QueryID: "q1", Qualifies: true, K: 2, Recall: 1, MRR: 0.5, AP: 0.5, ResultCount: 3},
			{QueryID: "<g1>", K: 2},
		},
	}

	var buf bytes.Buffer
	if err := WriteHTML(&buf, rep); err != nil {
		t.Fatal(err)
	}
	s := buf.String()
	for _, want := range []string{`id="ranking"`, "q1", "&lt;g1&gt;", "excluded", "1 queries at k=2: MAP 0.5000"} {
		if !strings.Contains(s, want) {
			t.Errorf("html missing %q", want)
		}
	}

	var plain bytes.Buffer
	if err := WriteHTML(&plain, testReport()); err != nil {
		t.Fatal(err)
	}
	if strings.Contains(plain.String(), `id="ranking"`) {
		t.Error("ranking table rendered without a breakdown")
	}
}

func TestEmit_FailureIsIndependent(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "ok", "report.json")
	targets := []Target{
		{FormatHTML, filepath.Join(blocker, "report.html")},
		{FormatJSON, good},
		{Format("pdf"), filepath.Join(dir, "report.pdf")},
	}

	err := NewEmitter(nil).Emit(context.Background(), testReport(), targets)
	if !errors.IsReportWrite(err) {
		t.Fatalf("Emit() error = %v, want report write error", err)
	}
	joined, ok := err.(interface{ Unwrap() []error })
	if !ok || len(joined.Unwrap()) != 2 {
		t.Fatalf("want 2 joined failures, got %v", err)
	}
	first, _ := errors.AsAppError(joined.Unwrap()[0])
	if first == nil || !strings.HasPrefix(first.Detail("target"), "html:") {
		t.Errorf("first failure = %v", joined.Unwrap()[0])
	}

	if _, err := os.Stat(good); err != nil {
		t.Errorf("sibling target not written: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Dir(good))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestEmit_NoTargets(t *testing.T) {
	if err := NewEmitter(nil).Emit(context.Background(), testReport(), nil); err != nil {
		t.Errorf("Emit(nil targets) = %v", err)
	}
}

func TestWriteAtomic_FailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	err := writeAtomic(path, func(w io.Writer) error { return os.ErrInvalid })
	if err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("dir not empty after failed write: %v", entries)
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTable(&buf, testReport().Metrics, true); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"metric", "score", "recall@2", "1.0000", "mrr", "0.5000"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "recall@2") > strings.Index(out, "mrr") {
		t.Error("table rows not in result order")
	}
}
