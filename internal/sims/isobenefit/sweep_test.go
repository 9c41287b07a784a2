package isobenefit

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futurb/internal/core"
)

func TestCrossVariantsOrder(t *testing.T) {
	got := CrossVariants(map[string][]string{
		"seed":       {"1", "2"},
		"build_prob": {"0.1", "0.5"},
		"ignored":    nil,
	})
	labels := make([]string, len(got))
	for i, v := range got {
		labels[i] = v.Label
	}
	assert.Equal(t, []string{
		"build_prob=0.1 seed=1",
		"build_prob=0.1 seed=2",
		"build_prob=0.5 seed=1",
		"build_prob=0.5 seed=2",
	}, labels)
	assert.Equal(t, []string{"build_prob=0.5", "seed=1"}, got[2].Overrides)

	base := CrossVariants(nil)
	require.Len(t, base, 1)
	assert.Equal(t, "base", base[0].Label)
}

func TestSweepMatchesDirectRuns(t *testing.T) {
	grid := seededGrid(t, 12, 12, 1, core.Coord{Row: 6, Col: 6})
	base := testConfig()
	base.MaxWalkingDistance = 3
	base.BuildProb = 0.5
	base.MaxIterations = 15

	variants := CrossVariants(map[string][]string{"seed": {"1", "2", "3"}})
	results, err := Sweep(context.Background(), grid, base, variants, 2)
	require.NoError(t, err)
	require.Len(t, results, len(variants))

	for i, res := range results {
		assert.Equal(t, variants[i].Label, res.Variant.Label)
		cfg := base.Clone()
		require.NoError(t, ApplyOverrides(&cfg, variants[i].Overrides))
		d, err := New(grid, cfg)
		require.NoError(t, err)
		series, err := d.Run(context.Background())
		require.NoError(t, err)
		last := series[len(series)-1]
		assert.Equal(t, last.UrbanizedFraction, res.FinalFraction, res.String())
		assert.Equal(t, last.Iteration, res.Iterations)
		assert.Equal(t, d.Reason(), res.Reason)
	}
	assert.Equal(t, 1, grid.Counts().Built(), "sweep must not touch the shared grid")
}

func TestSweepReportsBadVariant(t *testing.T) {
	grid := seededGrid(t, 4, 4, 1, core.Coord{Row: 1, Col: 1})
	_, err := Sweep(context.Background(), grid, testConfig(), []Variant{
		{Label: "ok", Overrides: []string{"seed=1"}},
		{Label: "bad", Overrides: []string{"policy=teleport"}},
	}, 1)
	require.Error(t, err)
	assert.True(t, eris.Is(err, core.ErrInvalidConfig))

	_, err = Sweep(context.Background(), nil, testConfig(), nil, 1)
	assert.True(t, eris.Is(err, core.ErrInvalidConfig))
}
