// Package history persists completed evaluation runs.
package history

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/gaugekit/gauge/internal/config"
	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/pkg/security"
	"github.com/gaugekit/gauge/internal/report"
)

// Summary is a run listing entry.
type Summary struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	NumSamples int       `json:"num_samples"`
	Metrics    []string  `json:"metrics"`
}

// Store saves and retrieves run reports.
type Store interface {
	Save(ctx context.Context, rep *report.Report) error
	// Load returns a NotFound error for unknown run IDs.
	Load(ctx context.Context, runID string) (*report.Report, error)
	// List returns runs newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]Summary, error)
	Close() error
}

// New builds the store selected by cfg. Type "none" returns a nil store.
func New(cfg config.HistoryConfig) (Store, error) {
	ttl := time.Duration(cfg.TTLHours) * time.Hour
	switch cfg.Type {
	case "", "none":
		return nil, nil
	case "file":
		s, err := NewFileStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := NewRedisStore(cfg.RedisURL, ttl)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.ValidationError(fmt.Sprintf("unknown history type %q", cfg.Type))
	}
}

func summarize(rep *report.Report) Summary {
	s := Summary{RunID: rep.RunID, CreatedAt: rep.CreatedAt, NumSamples: rep.NumSamples}
	if rep.Metrics != nil {
		s.Metrics = rep.Metrics.Names()
	}
	return s
}

func checkRunID(runID string) error {
	if err := security.ValidateRunID(runID); err != nil {
		return errors.ValidationError(err.Error())
	}
	return nil
}

func checkReport(rep *report.Report) error {
	if rep == nil {
		return errors.ValidationError("nil report")
	}
	return checkRunID(rep.RunID)
}

// sortNewestFirst orders by creation time descending, then run ID.
func sortNewestFirst(s []Summary) {
	sort.SliceStable(s, func(i, j int) bool {
		if !s[i].CreatedAt.Equal(s[j].CreatedAt) {
			return s[i].CreatedAt.After(s[j].CreatedAt)
		}
		return s[i].RunID < s[j].RunID
	})
}

func limitSummaries(s []Summary, limit int) []Summary {
	if limit > 0 && len(s) > limit {
		return s[:limit]
	}
	return s
}
