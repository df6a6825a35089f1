package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaugekit/gauge/internal/app"
	"github.com/gaugekit/gauge/internal/engine"
	"github.com/gaugekit/gauge/internal/report"
)

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate a dataset",
		Long: `Evaluate a dataset file (.jsonl, .csv, .parquet, .xlsx) with the given metrics.

The score mapping is printed to stdout as JSON, in the order the metrics
were requested. A summary table goes to stderr.`,
		Args: cobra.NoArgs,
		RunE: runEvaluation,
	}

	cmd.Flags().StringP("data", "d", "", "dataset path (required)")
	cmd.Flags().StringSliceP("metrics", "m", nil, "metrics to compute, e.g. recall@5,mrr,bleu (required)")
	cmd.Flags().StringToString("param", nil, "evaluation parameter, e.g. retrieval.k=5")
	cmd.Flags().String("run-id", "", "run ID (generated when empty)")
	cmd.Flags().String("report-json", "", "write a JSON report")
	cmd.Flags().String("report-html", "", "write an HTML report")
	cmd.Flags().String("report-xlsx", "", "write an XLSX metric table")
	cmd.Flags().String("report-csv", "", "write a CSV metric table")
	cmd.Flags().Bool("breakdown", false, "add per-query ranking scores to the reports")
	cmd.Flags().Bool("no-table", false, "skip the summary table")
	cmd.Flags().Bool("no-color", false, "disable table colors")
	_ = cmd.MarkFlagRequired("data")
	_ = cmd.MarkFlagRequired("metrics")

	return cmd
}

func runEvaluation(cmd *cobra.Command, _ []string) error {
	dataPath, _ := cmd.Flags().GetString("data")
	metrics, _ := cmd.Flags().GetStringSlice("metrics")
	params, _ := cmd.Flags().GetStringToString("param")
	runID, _ := cmd.Flags().GetString("run-id")
	breakdown, _ := cmd.Flags().GetBool("breakdown")
	noTable, _ := cmd.Flags().GetBool("no-table")
	noColor, _ := cmd.Flags().GetBool("no-color")

	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer closeApp(a)

	// Flags override the configured report targets per format.
	rc := a.Config.Report
	for flag, dst := range map[string]*string{
		"report-json": &rc.JSON,
		"report-html": &rc.HTML,
		"report-xlsx": &rc.XLSX,
		"report-csv":  &rc.CSV,
	} {
		if cmd.Flags().Changed(flag) {
			*dst, _ = cmd.Flags().GetString(flag)
		}
	}

	req := engine.Request{
		Metrics:   trimAll(metrics),
		DataPath:  dataPath,
		Targets:   app.ReportTargets(rc),
		RunID:     runID,
		Breakdown: breakdown,
	}
	if len(params) > 0 {
		req.Params = make(map[string]any, len(params))
		for k, v := range params {
			req.Params[k] = v
		}
	}

	out, runErr := a.Engine.Run(cmd.Context(), req)
	if out == nil {
		return runErr
	}

	data, err := json.MarshalIndent(out.Result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))

	if !noTable {
		if err := report.RenderTable(cmd.ErrOrStderr(), out.Result, noColor); err != nil {
			return err
		}
	}

	a.Log.WithRun(out.RunID).Info("Evaluation complete",
		"samples", out.Report.NumSamples,
		"excluded", out.Coverage.Excluded,
		"duration", out.Duration,
	)
	return runErr
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
