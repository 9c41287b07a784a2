package isobenefit

import (
	"cmp"
	"math"
	"slices"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"futurb/internal/core"
)

// Phase enumerates the states of one growth iteration.
type Phase uint8

const (
	PhaseCollecting Phase = iota
	PhaseEvaluating
	PhaseApplying
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseCollecting:
		return "collecting"
	case PhaseEvaluating:
		return "evaluating"
	case PhaseApplying:
		return "applying"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// IterationStats records the outcome of one iteration. Iteration 0 describes
// the seeded grid before any growth.
type IterationStats struct {
	Iteration         int     `json:"iteration" yaml:"iteration"`
	Candidates        int     `json:"candidates" yaml:"candidates"`
	Eligible          int     `json:"eligible" yaml:"eligible"`
	Converted         int     `json:"converted" yaml:"converted"`
	NewCentralities   int     `json:"new_centralities" yaml:"new_centralities"`
	Revoked           int     `json:"revoked" yaml:"revoked"`
	UrbanizedFraction float64 `json:"urbanized_fraction" yaml:"urbanized_fraction"`
	MeanDensity       float64 `json:"mean_density" yaml:"mean_density"`
	Saturated         bool    `json:"saturated" yaml:"saturated"`
}

// Stepper advances a grid by one growth iteration at a time.
type Stepper struct {
	cfg   Config
	rules RuleSet
	rng   *core.RNG
	phase Phase
	iter  int
}

// NewStepper validates cfg and prepares its rule set. The stepper draws all
// randomness from rng.
func NewStepper(cfg Config, rng *core.RNG) (*Stepper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rules, err := NewRuleSet(cfg.Rules)
	if err != nil {
		return nil, err
	}
	if rng == nil {
		rng = core.NewRNG(cfg.Seed)
	}
	return &Stepper{cfg: cfg.Clone(), rules: rules, rng: rng, phase: PhaseCollecting}, nil
}

// Phase reports the current state of the stepper.
func (s *Stepper) Phase() Phase { return s.phase }

// Rules exposes the active rule set.
func (s *Stepper) Rules() RuleSet { return s.rules }

// Candidates lists, in row-major order, the green cells that share an edge
// with built land. Growth never happens anywhere else.
func Candidates(g core.View) []core.Coord {
	size := g.Size()
	var out []core.Coord
	for r := 0; r < size.Rows; r++ {
		for c := 0; c < size.Cols; c++ {
			at := core.Coord{Row: r, Col: c}
			if g.Category(at) != core.Green {
				continue
			}
			for _, d := range rookOffsets {
				if g.Category(core.Coord{Row: r + d[0], Col: c + d[1]}).Built() {
					out = append(out, at)
					break
				}
			}
		}
	}
	return out
}

// Step runs one iteration against g: it collects boundary candidates,
// evaluates the rule set over them in parallel, then converts the selected
// cells sequentially in a deterministic order. Every selected cell is checked
// again against the live grid right before it converts.
func (s *Stepper) Step(g *core.Grid) (IterationStats, error) {
	s.iter++
	stats := IterationStats{Iteration: s.iter}
	if s.phase == PhaseDone {
		return s.finish(g, stats), nil
	}

	s.phase = PhaseCollecting
	cands := Candidates(g)
	stats.Candidates = len(cands)

	s.phase = PhaseEvaluating
	verdicts, err := s.evaluate(g, cands)
	if err != nil {
		return stats, err
	}
	eligible := make([]core.Coord, 0, len(cands))
	for i, v := range verdicts {
		if v.Pass {
			eligible = append(eligible, cands[i])
		}
	}
	stats.Eligible = len(eligible)
	if len(eligible) == 0 {
		s.phase = PhaseDone
		return s.finish(g, stats), nil
	}

	s.phase = PhaseApplying
	switch s.cfg.Policy {
	case PolicyFixed:
		err = s.applyFixed(g, eligible, &stats)
	case PolicyStochastic:
		err = s.applyStochastic(g, eligible, &stats)
	default:
		err = eris.Wrapf(core.ErrInvalidConfig, "isobenefit: unknown policy %q", s.cfg.Policy)
	}
	if err != nil {
		return stats, err
	}

	s.phase = PhaseCollecting
	return s.finish(g, stats), nil
}

func (s *Stepper) finish(g *core.Grid, stats IterationStats) IterationStats {
	stats.Saturated = s.phase == PhaseDone
	stats.UrbanizedFraction = g.UrbanizedFraction()
	stats.MeanDensity = g.MeanDensity()
	return stats
}

// evaluate splits candidates into contiguous chunks, one per worker. Each
// worker writes only its own slots of the verdict slice.
func (s *Stepper) evaluate(g core.View, cands []core.Coord) ([]Verdict, error) {
	verdicts := make([]Verdict, len(cands))
	if len(cands) == 0 {
		return verdicts, nil
	}
	workers := min(s.cfg.EffectiveWorkers(), len(cands))
	chunk := (len(cands) + workers - 1) / workers

	var eg errgroup.Group
	eg.SetLimit(workers)
	for start := 0; start < len(cands); start += chunk {
		end := min(start+chunk, len(cands))
		eg.Go(func() error {
			for i := start; i < end; i++ {
				verdicts[i] = s.rules.Evaluate(g, cands[i], &s.cfg)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, eris.Wrap(err, "isobenefit: evaluate candidates")
	}
	return verdicts, nil
}

type ranked struct {
	at   core.Coord
	dist float64
}

// applyFixed converts up to ConversionsPerIteration cells, nearest to a
// centrality first, breaking ties by row then column.
func (s *Stepper) applyFixed(g *core.Grid, eligible []core.Coord, stats *IterationStats) error {
	order := make([]ranked, len(eligible))
	for i, at := range eligible {
		dist := math.Inf(1)
		if _, d, ok := Nearest(g, at, s.cfg.CentralityDistance, IsCentrality); ok {
			dist = d
		}
		order[i] = ranked{at: at, dist: dist}
	}
	slices.SortStableFunc(order, func(a, b ranked) int {
		if c := cmp.Compare(a.dist, b.dist); c != 0 {
			return c
		}
		if c := cmp.Compare(a.at.Row, b.at.Row); c != 0 {
			return c
		}
		return cmp.Compare(a.at.Col, b.at.Col)
	})

	for _, r := range order {
		if stats.Converted >= s.cfg.ConversionsPerIteration {
			break
		}
		if err := s.convert(g, r.at, s.promotes(g, r.at), stats); err != nil {
			return err
		}
	}
	return nil
}

// applyStochastic walks eligible cells in row-major order and converts each
// with BuildProb, or CentralityProb for cells that would become a new hub.
func (s *Stepper) applyStochastic(g *core.Grid, eligible []core.Coord, stats *IterationStats) error {
	for _, at := range eligible {
		promote := s.promotes(g, at)
		p := s.cfg.BuildProb
		if promote {
			p = s.cfg.CentralityProb
		}
		if !s.rng.Chance(p) {
			continue
		}
		if err := s.convert(g, at, promote, stats); err != nil {
			return err
		}
	}
	return nil
}

// promotes reports whether a conversion at c should found a new centrality:
// promotion is enabled and no hub lies within the threshold.
func (s *Stepper) promotes(g core.View, c core.Coord) bool {
	if s.cfg.CentralityThreshold <= 0 {
		return false
	}
	return !WithinDistance(g, c, s.cfg.CentralityThreshold, IsCentrality)
}

func (s *Stepper) convert(g *core.Grid, at core.Coord, promote bool, stats *IterationStats) error {
	if v := s.rules.Evaluate(g, at, &s.cfg); !v.Pass {
		stats.Revoked++
		return nil
	}
	cat := core.Urban
	if promote {
		cat = core.Centrality
	}
	density := s.cfg.DensityLevels[s.rng.Pick(s.cfg.DensityWeights)]
	if err := g.Convert(at, cat, density); err != nil {
		return eris.Wrapf(err, "isobenefit: iteration %d", s.iter)
	}
	stats.Converted++
	if cat == core.Centrality {
		stats.NewCentralities++
	}
	return nil
}
