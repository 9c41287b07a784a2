package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"futurb/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored simulation runs",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, runsDBPath(cmd))
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		runs, err := st.ListRuns(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "runs list")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}
		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print the iteration statistics of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, runsDBPath(cmd))
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		series, err := st.RunStats(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}
		formatSeries(os.Stdout, series)
		return nil
	},
}

func runsDBPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = cfg.Store.Path
	}
	return path
}

func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPRESET\tSEED\tITERATIONS\tFRACTION\tSTOP\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t----\t----------\t--------\t----\t-------")
	for _, r := range runs {
		preset := r.Preset
		if preset == "" {
			preset = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.4f\t%s\t%s\n",
			r.ID,
			preset,
			r.Seed,
			r.Iterations,
			r.FinalFraction,
			r.Reason,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func init() {
	runsCmd.PersistentFlags().String("db", "", "SQLite run database (defaults to store.path)")
	runsListCmd.Flags().Int("limit", 20, "maximum runs to list")
	runsCmd.AddCommand(runsListCmd, runsShowCmd)
	rootCmd.AddCommand(runsCmd)
}
