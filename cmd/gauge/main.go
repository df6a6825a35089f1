// Package main provides the gauge command-line evaluator.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/gaugekit/gauge/internal/app"
	"github.com/gaugekit/gauge/internal/config"
	"github.com/gaugekit/gauge/internal/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "gauge",
		Short: "gauge - retrieval and generation evaluation",
		Long: `gauge scores retrieval results and generated text against references.

Examples:
  gauge run --data eval.jsonl --metrics recall@5,mrr,ndcg@10
  gauge run --data eval.csv --metrics bleu,rougeL --report-html report.html
  gauge metrics
  gauge runs list`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(
		runCmd(),
		metricsCmd(),
		runsCmd(),
		versionCmd(),
	)
	return rootCmd
}

// setup loads config and wires the app. Logs go to the command's stderr.
func setup(cmd *cobra.Command) (*app.App, error) {
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if verbose {
		cfg.Log.Level = "debug"
	}

	log := logger.NewWithWriter(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Format)
	return app.Build(cmd.Context(), cfg, log, version)
}

func closeApp(a *app.App) {
	if err := a.Close(context.Background()); err != nil {
		a.Log.Warn("Error closing components", "error", err)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "gauge %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
