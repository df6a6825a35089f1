package history

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/pkg/security"
	"github.com/gaugekit/gauge/internal/report"
)

// FileStore keeps one JSON report per run in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		dir = "runs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.HistoryError("creating history directory", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(runID string) (string, error) {
	if err := checkRunID(runID); err != nil {
		return "", err
	}
	return security.JoinWithin(s.dir, runID+".json")
}

func (s *FileStore) Save(_ context.Context, rep *report.Report) error {
	if err := checkReport(rep); err != nil {
		return err
	}
	path, err := s.path(rep.RunID)
	if err != nil {
		return err
	}
	if err := report.WriteFile(path, report.FormatJSON, rep); err != nil {
		return errors.HistoryError("saving run "+rep.RunID, err)
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, runID string) (*report.Report, error) {
	path, err := s.path(runID)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, errors.NotFoundError("run").WithDetail("run_id", runID)
	}
	if err != nil {
		return nil, errors.HistoryError("opening run "+runID, err)
	}
	defer f.Close()

	rep, err := report.ReadJSON(f)
	if err != nil {
		return nil, errors.HistoryError("decoding run "+runID, err)
	}
	return rep, nil
}

func (s *FileStore) List(ctx context.Context, limit int) ([]Summary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.HistoryError("listing runs", err)
	}

	var out []Summary
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" || strings.HasPrefix(name, ".") {
			continue
		}
		rep, err := s.Load(ctx, strings.TrimSuffix(name, ".json"))
		if err != nil {
			// Foreign or corrupt files in the directory are not runs.
			continue
		}
		out = append(out, summarize(rep))
	}
	sortNewestFirst(out)
	return limitSummaries(out, limit), nil
}

func (s *FileStore) Close() error { return nil }
