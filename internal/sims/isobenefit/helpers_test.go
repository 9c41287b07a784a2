package isobenefit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"futurb/internal/core"
)

// gridFrom builds a grid from rows of '.' green, '#' urban, '@' centrality
// and 'x' blocked. Built cells get density 1.
func gridFrom(t *testing.T, cellSize float64, rows ...string) *core.Grid {
	t.Helper()
	g, err := core.NewGrid(len(rows), len(rows[0]), cellSize)
	require.NoError(t, err)
	for r, line := range rows {
		require.Len(t, line, len(rows[0]), "row %d", r)
		for c, ch := range line {
			at := core.Coord{Row: r, Col: c}
			switch ch {
			case '.':
			case '#':
				require.NoError(t, g.Set(at, core.Urban, 1))
			case '@':
				require.NoError(t, g.Set(at, core.Centrality, 1))
			case 'x':
				require.NoError(t, g.Block(at))
			default:
				t.Fatalf("unknown cell symbol %q", ch)
			}
		}
	}
	return g
}

// seededGrid returns an all-green grid with urban seeds.
func seededGrid(t *testing.T, rows, cols int, cellSize float64, seeds ...core.Coord) *core.Grid {
	t.Helper()
	g, err := core.NewGrid(rows, cols, cellSize)
	require.NoError(t, err)
	for _, s := range seeds {
		require.NoError(t, g.Set(s, core.Urban, 1))
	}
	return g
}

// testConfig is a small-grid configuration with promotion disabled.
func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxWalkingDistance = 10
	cfg.CentralityDistance = 10
	cfg.CentralityThreshold = 0
	cfg.ContiguityRadius = 1
	cfg.DensityRadius = 1
	cfg.Rules = []string{RuleGreenAccess, RuleContiguity}
	cfg.Workers = 1
	return cfg
}

func builtCoords(g core.View) []core.Coord {
	var out []core.Coord
	size := g.Size()
	for r := 0; r < size.Rows; r++ {
		for c := 0; c < size.Cols; c++ {
			at := core.Coord{Row: r, Col: c}
			if g.Category(at).Built() {
				out = append(out, at)
			}
		}
	}
	return out
}
