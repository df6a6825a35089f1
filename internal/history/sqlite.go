package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/report"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	created_at  INTEGER NOT NULL,
	num_samples INTEGER NOT NULL,
	metrics     TEXT NOT NULL,
	body        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs(created_at DESC);
`

// SQLiteStore keeps runs in a single SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.HistoryError("creating history directory", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.HistoryError("opening history database", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.HistoryError("pinging history database", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, errors.HistoryError("creating history schema", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, rep *report.Report) error {
	if err := checkReport(rep); err != nil {
		return err
	}
	body, err := json.Marshal(rep)
	if err != nil {
		return errors.HistoryError("encoding run "+rep.RunID, err)
	}
	metrics, err := json.Marshal(summarize(rep).Metrics)
	if err != nil {
		return errors.HistoryError("encoding metric names", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (run_id, created_at, num_samples, metrics, body)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			created_at = excluded.created_at,
			num_samples = excluded.num_samples,
			metrics = excluded.metrics,
			body = excluded.body
	`, rep.RunID, rep.CreatedAt.UnixNano(), rep.NumSamples, string(metrics), string(body))
	if err != nil {
		return errors.HistoryError("saving run "+rep.RunID, err)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, runID string) (*report.Report, error) {
	if err := checkRunID(runID); err != nil {
		return nil, err
	}
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM runs WHERE run_id = ?`, runID).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundError("run").WithDetail("run_id", runID)
	}
	if err != nil {
		return nil, errors.HistoryError("loading run "+runID, err)
	}
	var rep report.Report
	if err := json.Unmarshal([]byte(body), &rep); err != nil {
		return nil, errors.HistoryError("decoding run "+runID, err)
	}
	return &rep, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Summary, error) {
	query := `SELECT run_id, created_at, num_samples, metrics FROM runs ORDER BY created_at DESC, run_id ASC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.HistoryError("listing runs", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum     Summary
			created int64
			metrics string
		)
		if err := rows.Scan(&sum.RunID, &created, &sum.NumSamples, &metrics); err != nil {
			return nil, errors.HistoryError("scanning run", err)
		}
		sum.CreatedAt = time.Unix(0, created).UTC()
		if err := json.Unmarshal([]byte(metrics), &sum.Metrics); err != nil {
			return nil, errors.HistoryError("decoding metric names", err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.HistoryError("listing runs", err)
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
