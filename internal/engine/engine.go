// Package engine runs evaluations end to end: load, ingest, dispatch,
// report, record, announce.
package engine

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/gaugekit/gauge/internal/bus"
	"github.com/gaugekit/gauge/internal/dataset"
	"github.com/gaugekit/gauge/internal/evaluation"
	"github.com/gaugekit/gauge/internal/history"
	"github.com/gaugekit/gauge/internal/ingest"
	"github.com/gaugekit/gauge/internal/observability"
	gctx "github.com/gaugekit/gauge/internal/pkg/context"
	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/pkg/hash"
	"github.com/gaugekit/gauge/internal/pkg/logger"
	"github.com/gaugekit/gauge/internal/pkg/security"
	"github.com/gaugekit/gauge/internal/registry"
	"github.com/gaugekit/gauge/internal/report"
	"github.com/gaugekit/gauge/internal/sample"
)

// Source names the component in published events.
const Source = "gauge.engine"

// Options wires an Engine. Only Registry is required.
type Options struct {
	Registry *registry.Registry

	// Params is the base parameter map, e.g. {"retrieval.k": 10}.
	// Request parameters override it key by key.
	Params map[string]any

	// Workers bounds concurrent metric computations.
	Workers int

	// MaxSamples rejects larger batches. 0 means unlimited.
	MaxSamples int

	History history.Store
	Bus     bus.Bus
	Metrics *observability.Metrics
	Tracer  *observability.Tracer
	Log     *logger.Logger
}

// Request is one evaluation. Exactly one of DataPath, Records or Samples
// supplies the batch.
type Request struct {
	Metrics []string

	DataPath string
	Records  []ingest.Record
	Samples  []sample.EvalSample

	// Params override Options.Params for this run.
	Params map[string]any

	Targets []report.Target

	// RunID is generated when empty.
	RunID string

	// Breakdown adds per-query ranking scores at the default cutoff to the
	// report.
	Breakdown bool
}

// Outcome is what a run produced. When Run returns a report write error
// the Outcome is still complete and Result is valid.
type Outcome struct {
	RunID    string
	Result   *registry.Result
	Report   *report.Report
	Coverage evaluation.Coverage
	Duration time.Duration

	// ReportErr joins the target write failures, if any.
	ReportErr error
	// HistoryErr is set when the run could not be recorded.
	HistoryErr error
}

// Engine evaluates requests. It is safe for concurrent use.
type Engine struct {
	dispatcher *registry.Dispatcher
	normalizer *ingest.Normalizer
	emitter    *report.Emitter

	params     map[string]any
	workers    int
	maxSamples int

	history history.Store
	bus     bus.Bus
	metrics *observability.Metrics
	tracer  *observability.Tracer
	log     *logger.Logger

	now func() time.Time
}

// New builds an engine from opts.
func New(opts Options) (*Engine, error) {
	if opts.Registry == nil {
		return nil, errors.ValidationError("engine requires a metric registry")
	}
	if opts.Log == nil {
		opts.Log = logger.Discard()
	}
	norm, err := ingest.NewNormalizer()
	if err != nil {
		return nil, err
	}

	var observer registry.Observer
	if opts.Metrics != nil {
		observer = opts.Metrics
	}

	return &Engine{
		dispatcher: registry.NewDispatcher(opts.Registry, opts.Log, observer),
		normalizer: norm,
		emitter:    report.NewEmitter(opts.Log),
		params:     copyParams(opts.Params, nil),
		workers:    max(opts.Workers, 1),
		maxSamples: opts.MaxSamples,
		history:    opts.History,
		bus:        opts.Bus,
		metrics:    opts.Metrics,
		tracer:     opts.Tracer,
		log:        opts.Log,
		now:        time.Now,
	}, nil
}

// Registry returns the metric registry.
func (e *Engine) Registry() *registry.Registry { return e.dispatcher.Registry() }

// History returns the run store, or nil when history is disabled.
func (e *Engine) History() history.Store { return e.history }

// Run evaluates req. Validation and metric errors return a nil Outcome.
// Report write failures return the full Outcome together with the error.
func (e *Engine) Run(ctx context.Context, req Request) (out *Outcome, err error) {
	start := e.now()

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	ctx = gctx.WithRunID(ctx, runID)
	log := e.log.WithContext(ctx)
	ctx, span := e.tracer.StartRun(ctx, runID, len(req.Metrics))
	defer func() { observability.End(span, err) }()

	log.Info("Evaluation started", "metrics", len(req.Metrics), "data", req.DataPath)

	out, err = e.run(ctx, log, runID, start, req)
	if err != nil && out == nil {
		e.metrics.RecordRun(observability.RunError, e.now().Sub(start), 0, 0)
		log.WithError(err).Warn("Evaluation failed", "code", errors.CodeOf(err))
		e.publish(ctx, log, bus.TopicRunFailed, bus.NewEvent(bus.TypeRunFailed, Source, runID, bus.RunFailed{
			RunID: runID,
			Code:  errors.CodeOf(err),
			Error: err.Error(),
		}))
		return nil, err
	}
	return out, err
}

func (e *Engine) run(ctx context.Context, log *logger.Logger, runID string, start time.Time, req Request) (*Outcome, error) {
	if err := security.ValidateRunID(runID); err != nil {
		return nil, errors.New(errors.CodeValidation, err.Error())
	}
	if len(req.Metrics) == 0 {
		return nil, errors.ValidationError("at least one metric is required")
	}

	merged := copyParams(e.params, req.Params)
	params, err := registry.ParamsFromMap(merged, registry.Params{K: registry.DefaultK, Workers: e.workers})
	if err != nil {
		return nil, err
	}

	log.Debug("Run parameters", "params", security.MaskSensitiveMap(merged), "metrics", req.Metrics)

	batch, err := e.loadBatch(ctx, req)
	if err != nil {
		return nil, err
	}

	cov := evaluation.CoverageOf(batch)
	if cov.Excluded > 0 {
		log.Info("Samples excluded from ranking metrics", "excluded", cov.Excluded, "total", cov.Total)
	}

	dctx, dspan := e.tracer.Start(ctx, "gauge.dispatch")
	result, err := e.dispatcher.Evaluate(dctx, req.Metrics, batch, params)
	observability.End(dspan, err)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.TimeoutError("evaluation")
		}
		return nil, err
	}

	digest := ""
	if req.DataPath != "" {
		if sum, herr := hash.File(req.DataPath); herr == nil {
			digest = sum
			merged["dataset.sha256"] = sum
		}
	}
	// Runs over the same dataset file and metric list share a fingerprint.
	merged["run.fingerprint"] = hash.Fingerprint(append([]string{digest}, req.Metrics...)...)

	rep := &report.Report{
		RunID:      runID,
		CreatedAt:  start.UTC(),
		Metrics:    result,
		Config:     merged,
		NumSamples: len(batch),
		Coverage:   cov,
		DataPath:   req.DataPath,
	}
	if req.Breakdown {
		rep.Ranking = report.NewRanking(batch, params.K)
	}
	out := &Outcome{RunID: runID, Result: result, Report: rep, Coverage: cov}

	if len(req.Targets) > 0 {
		rctx, rspan := e.tracer.Start(ctx, "gauge.report")
		out.ReportErr = e.emitter.Emit(rctx, rep, req.Targets)
		observability.End(rspan, out.ReportErr)
	}

	if e.history != nil {
		if herr := e.history.Save(ctx, rep); herr != nil {
			out.HistoryErr = herr
			log.WithError(herr).Warn("Failed to record run")
		}
	}

	out.Duration = e.now().Sub(start)

	status := observability.RunOK
	if out.ReportErr != nil {
		status = observability.RunReportError
	}
	e.metrics.RecordRun(status, out.Duration, cov.Total, cov.Excluded)

	e.publish(ctx, log, bus.TopicRunCompleted, bus.NewEvent(bus.TypeRunCompleted, Source, runID, completedPayload(out)))

	log.Info("Evaluation finished",
		"samples", len(batch),
		"metrics", result.Len(),
		"duration", out.Duration,
	)
	return out, out.ReportErr
}

// loadBatch turns the request input into validated samples.
func (e *Engine) loadBatch(ctx context.Context, req Request) ([]sample.EvalSample, error) {
	inputs := 0
	for _, set := range []bool{req.DataPath != "", req.Records != nil, req.Samples != nil} {
		if set {
			inputs++
		}
	}
	if inputs != 1 {
		return nil, errors.ValidationError("exactly one of data path, records or samples is required")
	}

	_, span := e.tracer.Start(ctx, "gauge.ingest")
	batch, err := e.ingest(req)
	observability.End(span, err)
	return batch, err
}

func (e *Engine) ingest(req Request) ([]sample.EvalSample, error) {
	switch {
	case req.Samples != nil:
		if err := e.checkSize(len(req.Samples)); err != nil {
			return nil, err
		}
		return ingest.FromSamples(req.Samples)

	case req.Records != nil:
		if err := e.checkSize(len(req.Records)); err != nil {
			return nil, err
		}
		return e.normalizer.NormalizeAll(req.Records)

	default:
		limit := 0
		if e.maxSamples > 0 {
			// One extra row tells an oversized file from an exact fit.
			limit = e.maxSamples + 1
		}
		records, err := dataset.Load(req.DataPath, limit)
		if err != nil {
			return nil, err
		}
		if err := e.checkSize(len(records)); err != nil {
			return nil, err
		}
		return e.normalizer.NormalizeAll(records)
	}
}

func (e *Engine) checkSize(n int) error {
	if e.maxSamples > 0 && n > e.maxSamples {
		return errors.New(errors.CodeValidation, "batch exceeds max samples").
			WithDetail("max_samples", strconv.Itoa(e.maxSamples))
	}
	return nil
}

func (e *Engine) publish(ctx context.Context, log *logger.Logger, topic string, ev bus.Event) {
	if e.bus == nil {
		return
	}
	if err := e.bus.Publish(ctx, topic, ev); err != nil {
		log.WithError(err).Warn("Failed to publish run event", "topic", topic)
	}
}

func completedPayload(out *Outcome) bus.RunCompleted {
	p := bus.RunCompleted{
		RunID:      out.RunID,
		Scores:     out.Result.Map(),
		Metrics:    out.Result.Names(),
		NumSamples: out.Coverage.Total,
		Excluded:   out.Coverage.Excluded,
		DurationMs: out.Duration.Milliseconds(),
	}
	if out.ReportErr != nil {
		p.ReportErrors = FailedTargets(out.ReportErr)
	}
	return p
}

// FailedTargets lists the report targets named in a (possibly joined)
// report write error.
func FailedTargets(err error) []string {
	var out []string
	var walk func(error)
	walk = func(e error) {
		if j, ok := e.(interface{ Unwrap() []error }); ok {
			for _, c := range j.Unwrap() {
				walk(c)
			}
			return
		}
		if appErr, ok := errors.AsAppError(e); ok && appErr.Code == errors.CodeReportWrite {
			out = append(out, appErr.Detail("target"))
		}
	}
	if err != nil {
		walk(err)
	}
	return out
}

func copyParams(base, overlay map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
