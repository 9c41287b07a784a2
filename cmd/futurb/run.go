package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"futurb/internal/checkpoint"
	"futurb/internal/sims/isobenefit"
	"futurb/internal/store"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one growth simulation",
	Long:  "Grows a grid until the iteration budget, the target fraction or saturation stops it, then optionally writes a checkpoint and stores the statistics.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sim, preset, err := simulationConfig(cmd, cfg)
		if err != nil {
			return err
		}
		grid, err := loadGrid(cmd, cfg)
		if err != nil {
			return err
		}

		progress, _ := cmd.Flags().GetDuration("progress")
		d, err := isobenefit.New(grid, sim, isobenefit.WithLogger(zap.L()), isobenefit.WithProgress(progress))
		if err != nil {
			return err
		}
		series, err := d.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "run")
		}

		quiet, _ := cmd.Flags().GetBool("quiet")
		if !quiet {
			formatSeries(os.Stdout, series)
		}
		fmt.Printf("stopped: %s after %d iterations, urbanized fraction %.4f\n",
			d.Reason(), series[len(series)-1].Iteration, d.Grid().UrbanizedFraction())

		if out, _ := cmd.Flags().GetString("out"); out != "" {
			if err := checkpoint.Save(out, d.Snapshot()); err != nil {
				return err
			}
			zap.L().Info("checkpoint written", zap.String("path", out))
		}

		dbPath, _ := cmd.Flags().GetString("db")
		if dbPath == "" {
			dbPath = cfg.Store.Path
		}
		if dbPath == "" {
			return nil
		}
		id, err := saveRun(ctx, dbPath, store.RunRecord{Preset: preset, Config: sim, Reason: d.Reason()}, series)
		if err != nil {
			return err
		}
		fmt.Printf("run stored: %s\n", id)
		return nil
	},
}

func saveRun(ctx context.Context, dbPath string, rec store.RunRecord, series []isobenefit.IterationStats) (string, error) {
	st, err := openStore(ctx, dbPath)
	if err != nil {
		return "", err
	}
	defer st.Close() //nolint:errcheck
	return st.SaveRun(ctx, rec, series)
}

// openStore opens and migrates the SQLite run database.
func openStore(ctx context.Context, dbPath string) (store.Store, error) {
	if dbPath == "" {
		return nil, eris.New("no run database configured (set --db or store.path)")
	}
	st, err := store.NewSQLite(dbPath)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

func formatSeries(out io.Writer, series []isobenefit.IterationStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ITER\tCANDIDATES\tELIGIBLE\tCONVERTED\tCENTRES\tREVOKED\tFRACTION\tDENSITY")
	_, _ = fmt.Fprintln(w, "----\t----------\t--------\t---------\t-------\t-------\t--------\t-------")
	for _, st := range series {
		_, _ = fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%d\t%.4f\t%.4f\n",
			st.Iteration, st.Candidates, st.Eligible, st.Converted,
			st.NewCentralities, st.Revoked, st.UrbanizedFraction, st.MeanDensity)
	}
	_ = w.Flush()
}

func init() {
	addGridFlags(runCmd)
	addSimulationFlags(runCmd)
	runCmd.Flags().String("out", "", "write the final grid to this checkpoint file")
	runCmd.Flags().String("db", "", "store run statistics in this SQLite database (defaults to store.path)")
	runCmd.Flags().Duration("progress", 5*time.Second, "interval between progress log lines")
	runCmd.Flags().Bool("quiet", false, "skip the per-iteration table")
	rootCmd.AddCommand(runCmd)
}
