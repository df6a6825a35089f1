package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gaugekit/gauge/internal/app"
	"github.com/gaugekit/gauge/internal/history"
	"github.com/gaugekit/gauge/internal/pkg/errors"
	"github.com/gaugekit/gauge/internal/pkg/security"
)

func metricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "List available metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			a, err := setup(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)

			infos := a.Engine.Registry().Describe()
			if asJSON {
				return writeJSON(cmd, infos)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tPARAMETRIZED\tAVAILABLE\tREASON")
			for _, m := range infos {
				name := m.Name
				if m.Parametrized {
					name += "@k"
				}
				fmt.Fprintf(tw, "%s\t%t\t%t\t%s\n", name, m.Parametrized, m.Available, m.Reason)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Bool("json", false, "print JSON")
	return cmd
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded runs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			asJSON, _ := cmd.Flags().GetBool("json")

			a, store, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)

			runs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				if runs == nil {
					runs = []history.Summary{}
				}
				return writeJSON(cmd, runs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN ID\tCREATED\tSAMPLES\tMETRICS")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n",
					r.RunID, r.CreatedAt.Format(time.RFC3339), r.NumSamples, strings.Join(r.Metrics, ","))
			}
			return tw.Flush()
		},
	}
	list.Flags().IntP("limit", "n", 20, "maximum runs to list (0 = all)")
	list.Flags().Bool("json", false, "print JSON")

	show := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a recorded run report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := security.ValidateRunID(args[0]); err != nil {
				return errors.ValidationError(err.Error())
			}

			a, store, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer closeApp(a)

			rep, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd, rep)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

func openHistory(cmd *cobra.Command) (*app.App, history.Store, error) {
	a, err := setup(cmd)
	if err != nil {
		return nil, nil, err
	}
	if a.History == nil {
		closeApp(a)
		return nil, nil, errors.ServiceUnavailableError("run history")
	}
	return a, a.History, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
