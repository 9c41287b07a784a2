package main

import (
	"fmt"
	"maps"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"futurb/internal/sims/isobenefit"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run a grid of parameter variants in parallel",
	Long:  "Runs one independent simulation per combination of --axis values on copies of the same starting grid and prints a summary per variant.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sim, _, err := simulationConfig(cmd, cfg)
		if err != nil {
			return err
		}
		grid, err := loadGrid(cmd, cfg)
		if err != nil {
			return err
		}

		raw, _ := cmd.Flags().GetStringArray("axis")
		axes, err := parseAxes(cfg.Sweep.Axes, raw)
		if err != nil {
			return err
		}
		workers, _ := cmd.Flags().GetInt("workers")
		if workers <= 0 {
			workers = cfg.Sweep.Workers
		}

		variants := isobenefit.CrossVariants(axes)
		zap.L().Info("starting sweep", zap.Int("variants", len(variants)), zap.Int("workers", workers))

		results, err := isobenefit.Sweep(ctx, grid, sim, variants, workers)
		if err != nil {
			return eris.Wrap(err, "sweep")
		}
		for _, r := range results {
			_, _ = fmt.Fprintln(os.Stdout, r.String())
		}
		return nil
	},
}

// parseAxes merges configured axes with key=v1,v2 flags; flags win per key.
func parseAxes(base map[string][]string, flags []string) (map[string][]string, error) {
	axes := maps.Clone(base)
	if axes == nil {
		axes = map[string][]string{}
	}
	for _, kv := range flags {
		key, values, ok := strings.Cut(kv, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, eris.Errorf("axis %q is not key=v1,v2", kv)
		}
		var list []string
		for _, v := range strings.Split(values, ",") {
			if v = strings.TrimSpace(v); v != "" {
				list = append(list, v)
			}
		}
		if len(list) == 0 {
			return nil, eris.Errorf("axis %q has no values", key)
		}
		axes[key] = list
	}
	return axes, nil
}

func init() {
	addGridFlags(sweepCmd)
	addSimulationFlags(sweepCmd)
	sweepCmd.Flags().StringArray("axis", nil, "sweep axis in key=v1,v2 form (repeatable)")
	sweepCmd.Flags().Int("workers", 0, "parallel variants (defaults to sweep.workers, then GOMAXPROCS)")
	rootCmd.AddCommand(sweepCmd)
}
