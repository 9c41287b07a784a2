package main

import (
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"futurb/internal/checkpoint"
	"futurb/internal/config"
	"futurb/internal/core"
	"futurb/internal/extents"
	"futurb/internal/sims/isobenefit"
)

// addGridFlags registers the flags that select the starting grid.
func addGridFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("grid", "", "start from a checkpoint file")
	f.String("extents", "", "rasterize a polygon shapefile of the study area")
	f.Float64("cell-size", 0, "cell size in ground units (defaults to grid.cell_size)")
	f.StringArray("centre", nil, "centrality seed at ground coordinates x,y (repeatable, extents only)")
	f.Int("rows", 0, "synthetic grid rows (defaults to grid.rows)")
	f.Int("cols", 0, "synthetic grid cols (defaults to grid.cols)")
	f.StringArray("seed-cell", nil, "centrality seed at row,col on the synthetic grid (repeatable)")
}

// addSimulationFlags registers preset and override flags.
func addSimulationFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("preset", "", "growth preset applied before overrides")
	f.StringArray("set", nil, "parameter override in key=value form (repeatable)")
}

// simulationConfig resolves the run configuration: file and environment,
// then the preset, then --set overrides.
func simulationConfig(cmd *cobra.Command, base *config.Config) (isobenefit.Config, string, error) {
	sim := base.Simulation.Clone()
	preset, _ := cmd.Flags().GetString("preset")
	if preset == "" {
		preset = base.Preset
	}
	if preset != "" {
		if err := isobenefit.ApplyPreset(&sim, preset); err != nil {
			return sim, preset, err
		}
	}
	overrides, _ := cmd.Flags().GetStringArray("set")
	if err := isobenefit.ApplyOverrides(&sim, overrides); err != nil {
		return sim, preset, err
	}
	if err := sim.Validate(); err != nil {
		return sim, preset, err
	}
	return sim, preset, nil
}

// loadGrid builds the starting grid from a checkpoint, an extents shapefile
// or a synthetic all-green rectangle, in that order of preference.
func loadGrid(cmd *cobra.Command, base *config.Config) (*core.Grid, error) {
	f := cmd.Flags()
	gridPath, _ := f.GetString("grid")
	extentsPath, _ := f.GetString("extents")
	cellSize, _ := f.GetFloat64("cell-size")
	if cellSize <= 0 {
		cellSize = base.Grid.CellSize
	}

	switch {
	case gridPath != "":
		zap.L().Info("loading checkpoint", zap.String("path", gridPath))
		return checkpoint.Load(gridPath)

	case extentsPath != "":
		zap.L().Info("rasterizing extents", zap.String("path", extentsPath), zap.Float64("cell_size", cellSize))
		g, trf, err := extents.LoadShapefile(extentsPath, cellSize)
		if err != nil {
			return nil, err
		}
		raw, _ := f.GetStringArray("centre")
		points := make([][2]float64, 0, len(raw))
		for _, s := range raw {
			x, y, err := parsePair(s, parseFloat)
			if err != nil {
				return nil, eris.Wrapf(err, "centre %q", s)
			}
			points = append(points, [2]float64{x, y})
		}
		if err := extents.SeedCentres(g, trf, points); err != nil {
			return nil, err
		}
		return g, nil

	default:
		rows, _ := f.GetInt("rows")
		cols, _ := f.GetInt("cols")
		if rows <= 0 {
			rows = base.Grid.Rows
		}
		if cols <= 0 {
			cols = base.Grid.Cols
		}
		raw, _ := f.GetStringArray("seed-cell")
		return syntheticGrid(rows, cols, cellSize, raw)
	}
}

// syntheticGrid returns an all-green grid with centrality seeds at the given
// row,col cells, or at the middle cell when none are given.
func syntheticGrid(rows, cols int, cellSize float64, seeds []string) (*core.Grid, error) {
	g, err := core.NewGrid(rows, cols, cellSize)
	if err != nil {
		return nil, err
	}
	if len(seeds) == 0 {
		seeds = []string{strconv.Itoa(rows/2) + "," + strconv.Itoa(cols/2)}
	}
	for _, s := range seeds {
		r, c, err := parsePair(s, strconv.Atoi)
		if err != nil {
			return nil, eris.Wrapf(err, "seed cell %q", s)
		}
		if err := g.Set(core.Coord{Row: r, Col: c}, core.Centrality, 1); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// parsePair splits "a,b" and parses both halves with parse.
func parsePair[T any](s string, parse func(string) (T, error)) (T, T, error) {
	var zero T
	left, right, ok := strings.Cut(s, ",")
	if !ok {
		return zero, zero, eris.Wrapf(core.ErrInvalidConfig, "expected two comma separated values, got %q", s)
	}
	a, err := parse(strings.TrimSpace(left))
	if err != nil {
		return zero, zero, eris.Wrap(core.ErrInvalidConfig, err.Error())
	}
	b, err := parse(strings.TrimSpace(right))
	if err != nil {
		return zero, zero, eris.Wrap(core.ErrInvalidConfig, err.Error())
	}
	return a, b, nil
}
