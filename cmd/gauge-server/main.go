// Package main provides the gauge HTTP server binary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaugekit/gauge/internal/app"
	"github.com/gaugekit/gauge/internal/config"
	"github.com/gaugekit/gauge/internal/pkg/logger"
	"github.com/gaugekit/gauge/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gauge-server",
		Short: "gauge server - evaluation over HTTP",
		Long: `gauge-server exposes the evaluation engine over HTTP.

Endpoints:
  POST /v1/evaluate        evaluate a batch of records
  GET  /v1/metrics         list metrics and availability
  GET  /v1/runs            list recorded runs
  GET  /v1/runs/{id}       fetch a recorded run report
  GET  /healthz            liveness
  GET  /metrics            Prometheus metrics (when enabled)

Examples:
  gauge-server                        # Start with defaults
  gauge-server --port 9090            # Custom port
  gauge-server -c gauge.yaml          # Load config file`,
		RunE:         runServer,
		SilenceUsage: true,
	}

	rootCmd.Flags().StringP("config", "c", "", "config file path")
	rootCmd.Flags().BoolP("verbose", "v", false, "verbose logging")
	rootCmd.Flags().String("host", "0.0.0.0", "server host")
	rootCmd.Flags().IntP("port", "p", 8080, "HTTP server port")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gauge-server %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("host") {
		cfg.Host, _ = cmd.Flags().GetString("host")
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	log.Info("Starting gauge server", "version", version, "addr", cfg.Address())
	if cfg.IsDevelopment() {
		log.Debug("Configuration",
			"history", cfg.History.Type,
			"bus", cfg.Bus.Type,
			"embedding", cfg.Embedding.Provider,
			"workers", cfg.Eval.Workers,
			"report_dir", cfg.Report.Dir,
		)
	}

	ctx := context.Background()
	a, err := app.Build(ctx, cfg, log, version)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.Warn("Error closing components", "error", err)
		}
	}()

	srvCfg := server.DefaultConfig()
	srvCfg.Host = cfg.Host
	srvCfg.Port = cfg.Port
	srvCfg.Version = version
	srvCfg.RateLimit = cfg.Security.RateLimit
	srvCfg.MaxBatch = cfg.Security.MaxBatch
	srvCfg.MaxMetrics = cfg.Security.MaxMetrics
	srvCfg.MaxBodyBytes = cfg.Security.MaxBodyBytes
	srvCfg.ReportDir = cfg.Report.Dir
	srvCfg.MetricsPath = cfg.Observability.MetricsPath

	srv := server.New(srvCfg, a.Engine, a.Metrics, log)
	if cfg.Security.RateLimit > 0 {
		log.Info("Rate limiting enabled", "requests_per_second", cfg.Security.RateLimit)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case sig := <-sigCh:
		log.Info("Shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}
