package server

import (
	"encoding/json"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/gaugekit/gauge/internal/engine"
	"github.com/gaugekit/gauge/internal/evaluation"
	"github.com/gaugekit/gauge/internal/history"
	"github.com/gaugekit/gauge/internal/ingest"
	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/pkg/security"
	"github.com/gaugekit/gauge/internal/registry"
	"github.com/gaugekit/gauge/internal/report"
)

// EvaluateRequest is the body of POST /v1/evaluate.
type EvaluateRequest struct {
	Metrics   []string        `json:"metrics"`
	Records   []ingest.Record `json:"records"`
	Params    map[string]any  `json:"params,omitempty"`
	Reports   []ReportTarget  `json:"reports,omitempty"`
	RunID     string          `json:"run_id,omitempty"`
	Breakdown bool            `json:"breakdown,omitempty"`
}

// ReportTarget names a report file relative to the server's report dir.
type ReportTarget struct {
	Format string `json:"format"`
	Path   string `json:"path"`
}

// EvaluateResponse is the result of POST /v1/evaluate.
type EvaluateResponse struct {
	RunID        string              `json:"run_id"`
	Metrics      *registry.Result    `json:"metrics"`
	NumSamples   int                 `json:"num_samples"`
	Coverage     evaluation.Coverage `json:"coverage"`
	DurationMS   int64               `json:"duration_ms"`
	ReportErrors []string            `json:"report_errors,omitempty"`
	Ranking      *report.Ranking     `json:"ranking,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.cfg.Version})
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if stderrors.As(err, &tooBig) {
			errors.WriteErrorWithStatus(w, http.StatusRequestEntityTooLarge,
				errors.InvalidRequestError("request body too large"))
			return
		}
		errors.WriteError(w, errors.Wrap(errors.CodeInvalidRequest, "invalid request body", err))
		return
	}

	if err := security.ValidateMetricNames(req.Metrics, s.cfg.MaxMetrics); err != nil {
		errors.WriteError(w, errors.ValidationError(err.Error()))
		return
	}
	if err := security.ValidateBatchSize(len(req.Records), s.cfg.MaxBatch); err != nil {
		errors.WriteError(w, errors.ValidationError(err.Error()))
		return
	}

	targets, err := s.reportTargets(req.Reports)
	if err != nil {
		errors.WriteError(w, err)
		return
	}

	out, err := s.engine.Run(r.Context(), engine.Request{
		Metrics:   req.Metrics,
		Records:   req.Records,
		Params:    req.Params,
		Targets:   targets,
		RunID:     req.RunID,
		Breakdown: req.Breakdown,
	})
	if out == nil {
		errors.WriteError(w, err)
		return
	}

	resp := EvaluateResponse{
		RunID:      out.RunID,
		Metrics:    out.Result,
		NumSamples: out.Report.NumSamples,
		Coverage:   out.Coverage,
		DurationMS: out.Duration.Milliseconds(),
		Ranking:    out.Report.Ranking,
	}
	if out.ReportErr != nil {
		// The scores are valid; failed targets are listed alongside them.
		resp.ReportErrors = engine.FailedTargets(out.ReportErr)
	}
	writeJSON(w, http.StatusOK, resp)
}

// reportTargets resolves requested targets inside the report dir.
func (s *Server) reportTargets(in []ReportTarget) ([]report.Target, error) {
	if len(in) == 0 {
		return nil, nil
	}
	if s.cfg.ReportDir == "" {
		return nil, errors.ValidationError("report targets are disabled on this server")
	}
	out := make([]report.Target, 0, len(in))
	for _, t := range in {
		format, err := report.ParseFormat(t.Format)
		if err != nil {
			return nil, err
		}
		path, err := security.JoinWithin(s.cfg.ReportDir, t.Path)
		if err != nil {
			return nil, errors.ValidationError(err.Error()).WithDetail("field", "reports.path")
		}
		out = append(out, report.Target{Format: format, Path: path})
	}
	return out, nil
}

func (s *Server) handleListMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"metrics": s.engine.Registry().Describe()})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	store := s.engine.History()
	if store == nil {
		errors.WriteError(w, errors.ServiceUnavailableError("run history"))
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errors.WriteError(w, errors.ValidationError("limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	runs, err := store.List(r.Context(), limit)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	if runs == nil {
		runs = []history.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	store := s.engine.History()
	if store == nil {
		errors.WriteError(w, errors.ServiceUnavailableError("run history"))
		return
	}

	id := r.PathValue("id")
	if err := security.ValidateRunID(id); err != nil {
		errors.WriteError(w, errors.ValidationError(err.Error()))
		return
	}
	rep, err := store.Load(r.Context(), id)
	if err != nil {
		errors.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
