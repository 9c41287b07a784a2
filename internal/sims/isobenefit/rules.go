package isobenefit

import (
	"fmt"
	"math"

	"github.com/rotisserie/eris"

	"futurb/internal/core"
)

// Rule names accepted in Config.Rules.
const (
	RuleGreenAccess         = "green-access"
	RuleContiguity          = "contiguity"
	RuleDensityCap          = "density-cap"
	RuleCentralityProximity = "centrality-proximity"
	RuleGreenSpan           = "green-span"
	RuleGreenArea           = "green-area"
	RuleGreenRetention      = "green-retention"
)

// Verdict is the outcome of evaluating a rule against one candidate.
type Verdict struct {
	Pass   bool
	Rule   string
	Reason string
}

var passed = Verdict{Pass: true}

func fail(rule, format string, args ...any) Verdict {
	return Verdict{Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

// Rule is a side-effect free eligibility predicate.
type Rule interface {
	Name() string
	Evaluate(g core.View, c core.Coord, cfg *Config) Verdict
}

var ruleFactories = map[string]func() Rule{
	RuleGreenAccess:         func() Rule { return GreenAccessRule{} },
	RuleContiguity:          func() Rule { return ContiguityRule{} },
	RuleDensityCap:          func() Rule { return DensityCapRule{} },
	RuleCentralityProximity: func() Rule { return CentralityProximityRule{} },
	RuleGreenSpan:           func() Rule { return GreenSpanRule{} },
	RuleGreenArea:           func() Rule { return GreenAreaRule{} },
	RuleGreenRetention:      func() Rule { return GreenRetentionRule{} },
}

// RuleSet is an ordered conjunction of rules.
type RuleSet []Rule

// NewRuleSet resolves rule names into a RuleSet, keeping their order.
func NewRuleSet(names []string) (RuleSet, error) {
	seen := make(map[string]bool, len(names))
	set := make(RuleSet, 0, len(names))
	for _, name := range names {
		factory, ok := ruleFactories[name]
		if !ok {
			return nil, eris.Wrapf(core.ErrInvalidConfig, "isobenefit: unknown rule %q", name)
		}
		if seen[name] {
			return nil, eris.Wrapf(core.ErrInvalidConfig, "isobenefit: rule %q listed twice", name)
		}
		seen[name] = true
		set = append(set, factory())
	}
	return set, nil
}

// Names lists the rules in evaluation order.
func (s RuleSet) Names() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = r.Name()
	}
	return out
}

// Evaluate passes only when every rule passes and otherwise returns the
// first failing verdict.
func (s RuleSet) Evaluate(g core.View, c core.Coord, cfg *Config) Verdict {
	for _, r := range s {
		if v := r.Evaluate(g, c, cfg); !v.Pass {
			v.Rule = r.Name()
			return v
		}
	}
	return passed
}

// candidate rejects anything that is not open land.
func candidate(rule string, g core.View, c core.Coord) (Verdict, bool) {
	switch cat := g.Category(c); cat {
	case core.Green:
		return passed, true
	case core.Urban, core.Centrality, core.Blocked:
		return fail(rule, "cell %s is %s", c, cat), false
	default:
		return fail(rule, "cell %s has unknown category %d", c, uint8(cat)), false
	}
}

// GreenAccessRule requires open land within walking distance.
type GreenAccessRule struct{}

func (GreenAccessRule) Name() string { return RuleGreenAccess }

func (r GreenAccessRule) Evaluate(g core.View, c core.Coord, cfg *Config) Verdict {
	if v, ok := candidate(r.Name(), g, c); !ok {
		return v
	}
	if !WithinDistance(g, c, cfg.MaxWalkingDistance, IsGreen) {
		return fail(r.Name(), "no green land within %.0f", cfg.MaxWalkingDistance)
	}
	return passed
}

// GreenRetentionRule refuses a conversion that would leave a built cell
// within walking distance without any green land of its own.
type GreenRetentionRule struct{}

func (GreenRetentionRule) Name() string { return RuleGreenRetention }

func (r GreenRetentionRule) Evaluate(g core.View, c core.Coord, cfg *Config) Verdict {
	if v, ok := candidate(r.Name(), g, c); !ok {
		return v
	}
	d := cfg.MaxWalkingDistance
	var stranded core.Coord
	ok := true
	EachWithin(g, c, d, func(at core.Coord) bool {
		if !IsBuilt(g.Category(at)) || WithinDistanceExcept(g, at, c, d, IsGreen) {
			return true
		}
		stranded, ok = at, false
		return false
	})
	if !ok {
		return fail(r.Name(), "cell %s would lose its last green land within %.0f", stranded, d)
	}
	return passed
}

// ContiguityRule requires built land within the contiguity radius.
type ContiguityRule struct{}

func (ContiguityRule) Name() string { return RuleContiguity }

func (r ContiguityRule) Evaluate(g core.View, c core.Coord, cfg *Config) Verdict {
	if v, ok := candidate(r.Name(), g, c); !ok {
		return v
	}
	nbs, err := g.Neighbors(c, cfg.ContiguityRadius)
	if err != nil {
		return fail(r.Name(), "%v", err)
	}
	for _, nb := range nbs {
		if nb.Category.Built() {
			return passed
		}
	}
	return fail(r.Name(), "no built land within %d cells", cfg.ContiguityRadius)
}

// DensityCapRule keeps the mean density of the surrounding extents below the cap.
type DensityCapRule struct{}

func (DensityCapRule) Name() string { return RuleDensityCap }

func (r DensityCapRule) Evaluate(g core.View, c core.Coord, cfg *Config) Verdict {
	if v, ok := candidate(r.Name(), g, c); !ok {
		return v
	}
	local := LocalDensity(g, c, cfg.DensityRadius)
	if local >= cfg.DensityCap {
		return fail(r.Name(), "local density %.3f reaches cap %.3f", local, cfg.DensityCap)
	}
	return passed
}

// LocalDensity averages density over the non-blocked cells within radius of
// c. Green cells contribute zero.
func LocalDensity(g core.View, c core.Coord, radius int) float64 {
	nbs, err := g.Neighbors(c, radius)
	if err != nil {
		return 0
	}
	var sum float64
	var n int
	for _, nb := range nbs {
		switch nb.Category {
		case core.Green:
			n++
		case core.Urban, core.Centrality:
			sum += nb.Density
			n++
		case core.Blocked:
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// CentralityProximityRule biases growth towards hubs.
type CentralityProximityRule struct{}

func (CentralityProximityRule) Name() string { return RuleCentralityProximity }

func (r CentralityProximityRule) Evaluate(g core.View, c core.Coord, cfg *Config) Verdict {
	if v, ok := candidate(r.Name(), g, c); !ok {
		return v
	}
	if !WithinDistance(g, c, cfg.CentralityDistance, IsCentrality) {
		return fail(r.Name(), "no centrality within %.0f", cfg.CentralityDistance)
	}
	return passed
}

// GreenSpanRule looks along the row and column through the candidate and
// requires the open land on either side to stay wide enough. A side with no
// green at all is allowed, so single cell gaps and one-sided edges can fill.
type GreenSpanRule struct{}

func (GreenSpanRule) Name() string { return RuleGreenSpan }

func (r GreenSpanRule) Evaluate(g core.View, c core.Coord, cfg *Config) Verdict {
	if v, ok := candidate(r.Name(), g, c); !ok {
		return v
	}
	cs := g.CellSize()
	west, east := greenRay(g, c, 0, -1), greenRay(g, c, 0, 1)
	north, south := greenRay(g, c, -1, 0), greenRay(g, c, 1, 0)
	xShort, xLong := min(west, east), max(west, east)
	yShort, yLong := min(north, south), max(north, south)

	if xShort != 0 && float64(xShort)*cs < cfg.MinShortGreenSpan {
		return fail(r.Name(), "east-west span %d cells below short span", xShort)
	}
	if yShort != 0 && float64(yShort)*cs < cfg.MinShortGreenSpan {
		return fail(r.Name(), "north-south span %d cells below short span", yShort)
	}
	if float64(max(xLong, yLong))*cs < cfg.MinLongGreenSpan {
		return fail(r.Name(), "longest span %d cells below long span", max(xLong, yLong))
	}
	if float64(min(xLong, yLong))*cs < cfg.MinShortGreenSpan {
		return fail(r.Name(), "secondary span %d cells below short span", min(xLong, yLong))
	}
	return passed
}

// greenRay counts consecutive green cells from c (exclusive) in one direction.
func greenRay(g core.View, c core.Coord, dRow, dCol int) int {
	n := 0
	for at := (core.Coord{Row: c.Row + dRow, Col: c.Col + dCol}); g.InBounds(at); at = (core.Coord{Row: at.Row + dRow, Col: at.Col + dCol}) {
		if g.Category(at) != core.Green {
			break
		}
		n++
	}
	return n
}

// GreenAreaRule protects small green patches: the rook-connected green
// region around the candidate must either be the candidate alone or cover at
// least MinGreenArea.
type GreenAreaRule struct{}

func (GreenAreaRule) Name() string { return RuleGreenArea }

func (r GreenAreaRule) Evaluate(g core.View, c core.Coord, cfg *Config) Verdict {
	if v, ok := candidate(r.Name(), g, c); !ok {
		return v
	}
	cellArea := g.CellSize() * g.CellSize()
	need := int(math.Ceil(cfg.MinGreenArea / cellArea))
	if need <= 1 {
		return passed
	}
	n := greenRegionSize(g, c, need)
	if n == 1 || n >= need {
		return passed
	}
	return fail(r.Name(), "green region of %d cells below %d", n, need)
}

var rookOffsets = [4][2]int{{-1, 0}, {0, -1}, {0, 1}, {1, 0}}

// greenRegionSize counts the rook-connected green cells reachable from c,
// stopping once limit cells have been found.
func greenRegionSize(g core.View, c core.Coord, limit int) int {
	seen := map[core.Coord]bool{c: true}
	queue := []core.Coord{c}
	for qi := 0; qi < len(queue) && len(seen) < limit; qi++ {
		u := queue[qi]
		for _, d := range rookOffsets {
			v := core.Coord{Row: u.Row + d[0], Col: u.Col + d[1]}
			if seen[v] || !g.InBounds(v) || g.Category(v) != core.Green {
				continue
			}
			seen[v] = true
			queue = append(queue, v)
		}
	}
	return len(seen)
}
