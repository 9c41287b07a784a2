package isobenefit

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"futurb/internal/core"
)

func TestGreenAccessRule(t *testing.T) {
	cfg := testConfig()
	cfg.MaxWalkingDistance = 1.5

	enclosed := gridFrom(t, 1,
		"###",
		"#.#",
		"###",
	)
	v := GreenAccessRule{}.Evaluate(enclosed, core.Coord{Row: 1, Col: 1}, &cfg)
	assert.False(t, v.Pass)
	assert.NotEmpty(t, v.Reason)

	diagonal := gridFrom(t, 1,
		".##",
		"#.#",
		"###",
	)
	assert.True(t, GreenAccessRule{}.Evaluate(diagonal, core.Coord{Row: 1, Col: 1}, &cfg).Pass)
}

func TestContiguityRule(t *testing.T) {
	cfg := testConfig()
	g := gridFrom(t, 1,
		"#....",
		".....",
		".....",
	)
	assert.True(t, ContiguityRule{}.Evaluate(g, core.Coord{Row: 1, Col: 1}, &cfg).Pass)
	assert.False(t, ContiguityRule{}.Evaluate(g, core.Coord{Row: 2, Col: 2}, &cfg).Pass)

	cfg.ContiguityRadius = 2
	assert.True(t, ContiguityRule{}.Evaluate(g, core.Coord{Row: 2, Col: 2}, &cfg).Pass)
}

func TestDensityCapRule(t *testing.T) {
	cfg := testConfig()
	cfg.DensityRadius = 1
	g := gridFrom(t, 1,
		"#.#",
		"...",
		"#.#",
	)
	center := core.Coord{Row: 1, Col: 1}
	assert.InDelta(t, 0.5, LocalDensity(g, center, 1), 1e-9)

	cfg.DensityCap = 0.5
	assert.False(t, DensityCapRule{}.Evaluate(g, center, &cfg).Pass, "mean equal to the cap is rejected")
	cfg.DensityCap = 0.6
	assert.True(t, DensityCapRule{}.Evaluate(g, center, &cfg).Pass)
}

func TestLocalDensitySkipsBlocked(t *testing.T) {
	g := gridFrom(t, 1,
		"xxx",
		"x.#",
		"xxx",
	)
	assert.InDelta(t, 1.0, LocalDensity(g, core.Coord{Row: 1, Col: 1}, 1), 1e-9)
}

func TestCentralityProximityRule(t *testing.T) {
	cfg := testConfig()
	cfg.CentralityDistance = 2
	g := gridFrom(t, 1,
		"@#...",
	)
	assert.True(t, CentralityProximityRule{}.Evaluate(g, core.Coord{Row: 0, Col: 2}, &cfg).Pass)
	assert.False(t, CentralityProximityRule{}.Evaluate(g, core.Coord{Row: 0, Col: 3}, &cfg).Pass)
}

func TestGreenSpanRule(t *testing.T) {
	cfg := testConfig()
	cfg.MinShortGreenSpan = 2
	cfg.MinLongGreenSpan = 3
	g := gridFrom(t, 1,
		".......",
		".......",
		".......",
		"..#....",
		".......",
		".......",
		".......",
	)
	// west ray is 0 (built edge), east 3, north 3, south 3
	assert.True(t, GreenSpanRule{}.Evaluate(g, core.Coord{Row: 3, Col: 3}, &cfg).Pass)

	edge := gridFrom(t, 1,
		".......",
		"..#....",
		".......",
		".......",
		".......",
	)
	// north ray of 1 cell is below the short span
	v := GreenSpanRule{}.Evaluate(edge, core.Coord{Row: 1, Col: 3}, &cfg)
	assert.False(t, v.Pass)
	assert.Contains(t, v.Reason, "north-south")
}

func TestGreenAreaRule(t *testing.T) {
	cfg := testConfig()
	cfg.MinGreenArea = 4

	pocket := gridFrom(t, 1,
		"####",
		"#..#",
		"####",
	)
	assert.False(t, GreenAreaRule{}.Evaluate(pocket, core.Coord{Row: 1, Col: 1}, &cfg).Pass)

	gap := gridFrom(t, 1,
		"###",
		"#.#",
		"###",
	)
	assert.True(t, GreenAreaRule{}.Evaluate(gap, core.Coord{Row: 1, Col: 1}, &cfg).Pass, "single cell gaps may fill")

	open := gridFrom(t, 1,
		"#....",
		".....",
	)
	assert.True(t, GreenAreaRule{}.Evaluate(open, core.Coord{Row: 0, Col: 1}, &cfg).Pass)
}

func TestGreenRetentionRule(t *testing.T) {
	cfg := testConfig()
	cfg.MaxWalkingDistance = 1

	corridor := gridFrom(t, 1,
		"#..",
		"#xx",
		"#xx",
	)
	v := GreenRetentionRule{}.Evaluate(corridor, core.Coord{Row: 0, Col: 1}, &cfg)
	assert.False(t, v.Pass, "(0,0) would be left without green land")
	assert.Contains(t, v.Reason, "(0,0)")

	open := gridFrom(t, 1,
		"#..",
		"...",
		"xxx",
	)
	assert.True(t, GreenRetentionRule{}.Evaluate(open, core.Coord{Row: 0, Col: 1}, &cfg).Pass,
		"(0,0) keeps (1,0)")

	// diagonal neighbours count once the walk covers them
	cfg.MaxWalkingDistance = 1.5
	far := gridFrom(t, 1,
		"##.",
		"###",
	)
	assert.False(t, GreenRetentionRule{}.Evaluate(far, core.Coord{Row: 0, Col: 2}, &cfg).Pass)
}

func TestRulesRejectNonGreenCandidates(t *testing.T) {
	cfg := testConfig()
	g := gridFrom(t, 1,
		"#@x",
		"...",
	)
	set, err := NewRuleSet([]string{RuleGreenAccess, RuleContiguity, RuleDensityCap, RuleCentralityProximity, RuleGreenSpan, RuleGreenArea, RuleGreenRetention})
	require.NoError(t, err)
	for _, r := range set {
		for _, at := range []core.Coord{{Row: 0, Col: 0}, {Row: 0, Col: 1}, {Row: 0, Col: 2}} {
			v := r.Evaluate(g, at, &cfg)
			assert.False(t, v.Pass, "%s passed on %s", r.Name(), at)
		}
	}
}

func TestRuleSetReportsFirstFailure(t *testing.T) {
	cfg := testConfig()
	cfg.MaxWalkingDistance = 1
	set, err := NewRuleSet([]string{RuleContiguity, RuleGreenAccess})
	require.NoError(t, err)
	assert.Equal(t, []string{RuleContiguity, RuleGreenAccess}, set.Names())

	g := gridFrom(t, 1, "#.")
	v := set.Evaluate(g, core.Coord{Row: 0, Col: 1}, &cfg)
	assert.False(t, v.Pass)
	assert.Equal(t, RuleGreenAccess, v.Rule)
}

func TestNewRuleSetRejectsUnknownAndDuplicate(t *testing.T) {
	_, err := NewRuleSet([]string{"teleport"})
	assert.True(t, eris.Is(err, core.ErrInvalidConfig))
	_, err = NewRuleSet([]string{RuleContiguity, RuleContiguity})
	assert.True(t, eris.Is(err, core.ErrInvalidConfig))
}
