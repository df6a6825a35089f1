package registry

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"math"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/pkg/logger"
	"github.com/gaugekit/gauge/internal/pkg/security"
	"github.com/gaugekit/gauge/internal/sample"
)

// ParamRetrievalK is the parameter-map key for the default ranking cutoff.
const ParamRetrievalK = "retrieval.k"

// DefaultK is the ranking cutoff when none is configured.
const DefaultK = 10

// Params controls one Evaluate call.
type Params struct {
	// K is the cutoff for parametrized metrics requested without @k.
	K int
	// Workers bounds concurrent metric computations. <= 1 is sequential.
	Workers int
}

// DefaultParams returns K=10, sequential.
func DefaultParams() Params {
	return Params{K: DefaultK, Workers: 1}
}

// ParamsFromMap overlays a parameter map such as {"retrieval.k": 5} on base.
// Unknown keys are ignored.
func ParamsFromMap(m map[string]any, base Params) (Params, error) {
	p := base
	raw, ok := m[ParamRetrievalK]
	if !ok || raw == nil {
		return p, nil
	}
	k, err := toInt(raw)
	if err != nil || k <= 0 {
		return p, errors.InvalidMetricParameterError(ParamRetrievalK, "must be a positive integer")
	}
	var verr *security.ValidationError
	if err := security.ValidateK(k); stderrors.As(err, &verr) {
		return p, errors.InvalidMetricParameterError(ParamRetrievalK, verr.Constraint)
	}
	p.K = k
	return p, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("not an integer: %v", n)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

// Observer receives per-metric timings keyed by base name, so recall@5 and
// recall@10 share a series. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveMetric(ctx context.Context, name string, d time.Duration, err error)
}

// Dispatcher resolves metric names against a registry and computes them.
type Dispatcher struct {
	reg      *Registry
	log      *logger.Logger
	observer Observer
}

// NewDispatcher creates a dispatcher. log and observer may be nil.
func NewDispatcher(reg *Registry, log *logger.Logger, observer Observer) *Dispatcher {
	if log == nil {
		log = logger.Discard()
	}
	return &Dispatcher{reg: reg, log: log, observer: observer}
}

// Registry returns the registry the dispatcher resolves against.
func (d *Dispatcher) Registry() *Registry { return d.reg }

type job struct {
	id     Identifier
	metric Metric
}

// Evaluate computes every requested metric over batch. All names are
// resolved and checked for availability before any computation; the first
// bad name fails the call with no result. Duplicate names are computed once.
// When computations fail, the error of the earliest failing name in request
// order is returned whatever the worker count. NaN and infinite scores are
// reported as 0.
func (d *Dispatcher) Evaluate(ctx context.Context, names []string, batch []sample.EvalSample, params Params) (*Result, error) {
	if params.K <= 0 {
		params.K = DefaultK
	}

	jobs, err := d.plan(names, params.K)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(jobs))
	errs := make([]error, len(jobs))
	// Jobs after the lowest failed index cannot change the outcome.
	var failedAt atomic.Int64
	failedAt.Store(int64(len(jobs)))

	var g errgroup.Group
	g.SetLimit(max(params.Workers, 1))

	for i, j := range jobs {
		if ctx.Err() != nil || int64(i) > failedAt.Load() {
			break
		}
		g.Go(func() error {
			v, err := d.compute(ctx, j, batch)
			if err != nil {
				errs[i] = err
				lowerTo(&failedAt, int64(i))
				return nil
			}
			scores[i] = v
			return nil
		})
	}
	_ = g.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := NewResult()
	for i, j := range jobs {
		res.Set(j.id.Raw, scores[i])
	}
	return res, nil
}

func lowerTo(v *atomic.Int64, n int64) {
	for {
		cur := v.Load()
		if n >= cur || v.CompareAndSwap(cur, n) {
			return
		}
	}
}

func (d *Dispatcher) plan(names []string, defaultK int) ([]job, error) {
	seen := make(map[string]struct{}, len(names))
	jobs := make([]job, 0, len(names))
	for _, raw := range names {
		if _, dup := seen[raw]; dup {
			continue
		}
		seen[raw] = struct{}{}

		id, m, err := d.reg.Resolve(raw, defaultK)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job{id: id, metric: m})
	}

	for _, j := range jobs {
		if c, ok := j.metric.(Checker); ok {
			if err := c.Available(); err != nil {
				return nil, errors.MetricUnavailableError(j.id.Raw, err.Error())
			}
		}
	}
	return jobs, nil
}

func (d *Dispatcher) compute(ctx context.Context, j job, batch []sample.EvalSample) (float64, error) {
	start := time.Now()
	v, err := j.metric.Compute(ctx, batch, j.id.K)
	elapsed := time.Since(start)

	if d.observer != nil {
		d.observer.ObserveMetric(ctx, j.id.Base, elapsed, err)
	}
	if err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return 0, err
		}
		return 0, errors.InternalError(fmt.Sprintf("computing metric %q", j.id.Raw), err)
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		d.log.WithMetric(j.id.Raw).Warn("Non-finite score replaced with 0", "score", v)
		v = 0
	}
	d.log.WithMetric(j.id.Raw).Debug("Metric computed", "score", v, "duration", elapsed)
	return v, nil
}
