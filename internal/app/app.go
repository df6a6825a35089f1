// Package app wires configuration into a ready engine for the gauge binaries.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/gaugekit/gauge/internal/bus"
	"github.com/gaugekit/gauge/internal/config"
	"github.com/gaugekit/gauge/internal/engine"
	"github.com/gaugekit/gauge/internal/history"
	"github.com/gaugekit/gauge/internal/observability"
	"github.com/gaugekit/gauge/internal/pkg/logger"
	"github.com/gaugekit/gauge/internal/registry"
	"github.com/gaugekit/gauge/internal/report"
	"github.com/gaugekit/gauge/internal/textsim"
)

// App holds the wired components. Close releases them in reverse order.
type App struct {
	Config  *config.Config
	Log     *logger.Logger
	Engine  *engine.Engine
	Metrics *observability.Metrics
	Bus     bus.Bus
	History history.Store

	closers []func(context.Context) error
}

// Build wires every component named by cfg. On error, anything already
// opened is closed.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger, version string) (*App, error) {
	if log == nil {
		log = logger.Discard()
	}
	a := &App{Config: cfg, Log: log}

	if err := a.build(ctx, version); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, version string) error {
	cfg := a.Config

	if cfg.Observability.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		a.Metrics = observability.NewMetrics(reg)
	}

	var tracer *observability.Tracer
	if cfg.Observability.TracingEnabled {
		t, shutdown, err := observability.NewTracer(ctx, observability.TraceConfig{
			ServiceName:    cfg.Observability.ServiceName,
			ServiceVersion: version,
			Endpoint:       cfg.Observability.TracingEndpoint,
			Insecure:       true,
		})
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		tracer = t
		a.closers = append(a.closers, shutdown)
		a.Log.Info("Tracing enabled", "endpoint", cfg.Observability.TracingEndpoint)
	}

	embedder, err := textsim.NewEmbedder(cfg.Embedding.Provider, cfg.Embedding.Dimensions)
	if err != nil {
		return fmt.Errorf("embedding: %w", err)
	}

	store, err := history.New(cfg.History)
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	if store != nil {
		a.History = store
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
	}

	b, err := bus.NewBus(cfg.Bus, a.Log)
	if err != nil {
		return fmt.Errorf("bus: %w", err)
	}
	if a.Metrics != nil {
		b = bus.NewInstrumentedBus(b, a.Metrics)
	}
	a.Bus = b
	a.closers = append(a.closers, func(context.Context) error { return b.Close() })

	eng, err := engine.New(engine.Options{
		Registry:   registry.Default(registry.Options{Embedder: embedder}),
		Params:     cfg.Params(),
		Workers:    cfg.Eval.Workers,
		MaxSamples: cfg.Eval.MaxSamples,
		History:    a.History,
		Bus:        a.Bus,
		Metrics:    a.Metrics,
		Tracer:     tracer,
		Log:        a.Log,
	})
	if err != nil {
		return err
	}
	a.Engine = eng

	a.Log.Debug("Components wired",
		"history", cfg.History.Type,
		"bus", cfg.Bus.Type,
		"embedding", cfg.Embedding.Provider,
		"metrics", a.Metrics != nil,
	)
	return nil
}

// Close releases components in reverse order of construction.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ReportTargets lists the targets configured in rc, in a fixed format order.
func ReportTargets(rc config.ReportConfig) []report.Target {
	var out []report.Target
	for _, t := range []report.Target{
		{Format: report.FormatJSON, Path: rc.JSON},
		{Format: report.FormatHTML, Path: rc.HTML},
		{Format: report.FormatXLSX, Path: rc.XLSX},
		{Format: report.FormatCSV, Path: rc.CSV},
	} {
		if t.Path != "" {
			out = append(out, t)
		}
	}
	return out
}
