package history

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/gaugekit/gauge/internal/config"
	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/registry"
	"github.com/gaugekit/gauge/internal/report"
)

func testRun(id string, created time.Time, scores ...float64) *report.Report {
	res := registry.NewResult()
	names := []string{"recall@5", "mrr", "bleu"}
	for i, v := range scores {
		res.Set(names[i], v)
	}
	return &report.Report{
		RunID:      id,
		CreatedAt:  created,
		Metrics:    res,
		Config:     map[string]any{"retrieval.k": float64(5)},
		NumSamples: 4,
	}
}

// exerciseStore runs the behavior every Store must share.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	older := testRun("run-older", base, 0.5, 0.25)
	newer := testRun("run-newer", base.Add(time.Hour), 1)
	for _, rep := range []*report.Report{older, newer} {
		if err := s.Save(ctx, rep); err != nil {
			t.Fatalf("Save(%s) error = %v", rep.RunID, err)
		}
	}

	got, err := s.Load(ctx, "run-older")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got.Metrics.Names(), []string{"recall@5", "mrr"}) {
		t.Errorf("loaded metric order = %v", got.Metrics.Names())
	}
	if v, _ := got.Metrics.Get("mrr"); v != 0.25 {
		t.Errorf("loaded mrr = %v", v)
	}
	if !got.CreatedAt.Equal(base) || got.NumSamples != 4 {
		t.Errorf("loaded = %+v", got)
	}

	list, err := s.List(ctx, 0)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].RunID != "run-newer" || list[1].RunID != "run-older" {
		t.Fatalf("List() = %+v, want newest first", list)
	}
	if !reflect.DeepEqual(list[1].Metrics, []string{"recall@5", "mrr"}) {
		t.Errorf("summary metrics = %v", list[1].Metrics)
	}

	limited, err := s.List(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 1 || limited[0].RunID != "run-newer" {
		t.Errorf("List(1) = %+v", limited)
	}

	// Saving again replaces.
	if err := s.Save(ctx, testRun("run-older", base, 0.75)); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Load(ctx, "run-older")
	if v, _ := got.Metrics.Get("recall@5"); v != 0.75 || got.Metrics.Len() != 1 {
		t.Errorf("after overwrite = %v", got.Metrics.Names())
	}

	if _, err := s.Load(ctx, "run-missing"); !errors.IsNotFound(err) {
		t.Errorf("Load(missing) error = %v, want not found", err)
	}
	if _, err := s.Load(ctx, "../etc/passwd"); !errors.IsValidation(err) {
		t.Errorf("Load(traversal) error = %v, want validation", err)
	}
	if err := s.Save(ctx, nil); !errors.IsValidation(err) {
		t.Errorf("Save(nil) error = %v, want validation", err)
	}
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(filepath.Join(t.TempDir(), "runs"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestFileStore_IgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{"), 0o644)
	if err := s.Save(context.Background(), testRun("ok", time.Now(), 1)); err != nil {
		t.Fatal(err)
	}

	list, err := s.List(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].RunID != "ok" {
		t.Errorf("List() = %+v", list)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "db", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	exerciseStore(t, s)
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	if _, err := NewRedisStore("invalid://url", 0); err == nil {
		t.Fatal("expected error for invalid URL")
	}
}

func TestNewRedisStore_ConnectionFailure(t *testing.T) {
	if _, err := NewRedisStore("redis://localhost:9999", 0); err == nil {
		t.Fatal("expected error for connection failure")
	}
}

func TestRedisStore(t *testing.T) {
	s, err := NewRedisStore("redis://localhost:6379/15", time.Hour)
	if err != nil {
		t.Skip("Redis not available:", err)
	}
	defer s.Close()

	ctx := context.Background()
	for _, id := range []string{"run-older", "run-newer"} {
		defer s.Delete(ctx, id)
	}
	// Index scores must fall inside the TTL window.
	exerciseStoreAt(t, s, time.Now().Add(-10*time.Minute).Truncate(time.Millisecond))
}

// exerciseStoreAt is exerciseStore with a caller-chosen base time.
func exerciseStoreAt(t *testing.T, s Store, base time.Time) {
	t.Helper()
	ctx := context.Background()
	if err := s.Save(ctx, testRun("run-older", base, 0.5)); err != nil {
		t.Fatal(err)
	}
	if err := s.Save(ctx, testRun("run-newer", base.Add(time.Minute), 1)); err != nil {
		t.Fatal(err)
	}
	list, err := s.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].RunID != "run-newer" {
		t.Errorf("List() = %+v", list)
	}
	if _, err := s.Load(ctx, "run-missing"); !errors.IsNotFound(err) {
		t.Errorf("Load(missing) error = %v", err)
	}
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		cfg     config.HistoryConfig
		wantNil bool
		wantErr bool
	}{
		{config.HistoryConfig{Type: "none"}, true, false},
		{config.HistoryConfig{Type: "file", Dir: filepath.Join(dir, "f")}, false, false},
		{config.HistoryConfig{Type: "sqlite", SQLitePath: filepath.Join(dir, "h.db")}, false, false},
		{config.HistoryConfig{Type: "bogus"}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.cfg.Type, func(t *testing.T) {
			s, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v", err)
			}
			if (s == nil) != tt.wantNil {
				t.Errorf("New() store = %v", s)
			}
			if s != nil {
				s.Close()
			}
		})
	}
}
