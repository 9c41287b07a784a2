package isobenefit

import (
	"math"
	"runtime"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"futurb/internal/core"
)

// Selection policies for the applying phase.
const (
	PolicyFixed      = "fixed"
	PolicyStochastic = "stochastic"
)

// Config is the immutable configuration of a growth run. Distances are in
// ground units, radii in cells.
type Config struct {
	MaxWalkingDistance  float64 `yaml:"max_walking_distance" mapstructure:"max_walking_distance"`
	ContiguityRadius    int     `yaml:"contiguity_radius" mapstructure:"contiguity_radius"`
	DensityRadius       int     `yaml:"density_radius" mapstructure:"density_radius"`
	DensityCap          float64 `yaml:"density_cap" mapstructure:"density_cap"`
	CentralityDistance  float64 `yaml:"centrality_distance" mapstructure:"centrality_distance"`
	CentralityThreshold float64 `yaml:"centrality_threshold" mapstructure:"centrality_threshold"`

	MaxIterations  int     `yaml:"max_iterations" mapstructure:"max_iterations"`
	TargetFraction float64 `yaml:"target_fraction" mapstructure:"target_fraction"`
	Seed           int64   `yaml:"seed" mapstructure:"seed"`
	Workers        int     `yaml:"workers" mapstructure:"workers"`

	Rules                   []string `yaml:"rules" mapstructure:"rules"`
	Policy                  string   `yaml:"policy" mapstructure:"policy"`
	ConversionsPerIteration int      `yaml:"conversions_per_iteration" mapstructure:"conversions_per_iteration"`
	BuildProb               float64  `yaml:"build_prob" mapstructure:"build_prob"`
	CentralityProb          float64  `yaml:"centrality_prob" mapstructure:"centrality_prob"`

	DensityLevels  []float64 `yaml:"density_levels" mapstructure:"density_levels"`
	DensityWeights []float64 `yaml:"density_weights" mapstructure:"density_weights"`

	MinLongGreenSpan  float64 `yaml:"min_long_green_span" mapstructure:"min_long_green_span"`
	MinShortGreenSpan float64 `yaml:"min_short_green_span" mapstructure:"min_short_green_span"`
	MinGreenArea      float64 `yaml:"min_green_area" mapstructure:"min_green_area"`
}

// DefaultConfig returns the standard configuration: a 1 km walk to green
// space, stochastic boundary growth and the high/medium/low density mix of
// the isobenefit land model.
func DefaultConfig() Config {
	return Config{
		MaxWalkingDistance:      1000,
		ContiguityRadius:        1,
		DensityRadius:           2,
		DensityCap:              0.5,
		CentralityDistance:      1000,
		CentralityThreshold:     1000,
		MaxIterations:           50,
		TargetFraction:          1,
		Seed:                    0,
		Workers:                 0,
		Rules:                   []string{RuleGreenAccess, RuleContiguity},
		Policy:                  PolicyStochastic,
		ConversionsPerIteration: 10,
		BuildProb:               0.1,
		CentralityProb:          0.05,
		DensityLevels:           []float64{1, 0.1, 0.01},
		DensityWeights:          []float64{0.7, 0.3, 0},
		MinLongGreenSpan:        500,
		MinShortGreenSpan:       100,
		MinGreenArea:            5_000_000,
	}
}

// Clone returns a copy that shares no slices with c.
func (c Config) Clone() Config {
	out := c
	out.Rules = slices.Clone(c.Rules)
	out.DensityLevels = slices.Clone(c.DensityLevels)
	out.DensityWeights = slices.Clone(c.DensityWeights)
	return out
}

// EffectiveWorkers resolves Workers=0 to GOMAXPROCS.
func (c Config) EffectiveWorkers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Validate checks every field and reports the first problem as ErrInvalidConfig.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return eris.Wrapf(core.ErrInvalidConfig, "isobenefit: "+format, args...)
	}
	if !positive(c.MaxWalkingDistance) {
		return invalid("max_walking_distance %v must be positive", c.MaxWalkingDistance)
	}
	if c.ContiguityRadius <= 0 {
		return invalid("contiguity_radius %d must be positive", c.ContiguityRadius)
	}
	if c.DensityRadius <= 0 {
		return invalid("density_radius %d must be positive", c.DensityRadius)
	}
	if c.DensityCap < 0 || math.IsNaN(c.DensityCap) {
		return invalid("density_cap %v must be non-negative", c.DensityCap)
	}
	if !positive(c.CentralityDistance) {
		return invalid("centrality_distance %v must be positive", c.CentralityDistance)
	}
	if c.CentralityThreshold < 0 || math.IsNaN(c.CentralityThreshold) {
		return invalid("centrality_threshold %v must be non-negative", c.CentralityThreshold)
	}
	if c.MaxIterations <= 0 {
		return invalid("max_iterations %d must be positive", c.MaxIterations)
	}
	if !(c.TargetFraction > 0 && c.TargetFraction <= 1) {
		return invalid("target_fraction %v must lie in (0,1]", c.TargetFraction)
	}
	if c.Workers < 0 {
		return invalid("workers %d must not be negative", c.Workers)
	}
	if len(c.Rules) == 0 {
		return invalid("at least one rule must be active")
	}
	if _, err := NewRuleSet(c.Rules); err != nil {
		return err
	}
	if slices.Contains(c.Rules, RuleDensityCap) && c.DensityCap <= 0 {
		return invalid("density_cap must be positive while %s is active", RuleDensityCap)
	}
	switch c.Policy {
	case PolicyFixed:
		if c.ConversionsPerIteration <= 0 {
			return invalid("conversions_per_iteration %d must be positive for the fixed policy", c.ConversionsPerIteration)
		}
	case PolicyStochastic:
	default:
		return invalid("unknown policy %q", c.Policy)
	}
	if !probability(c.BuildProb) {
		return invalid("build_prob %v must lie in [0,1]", c.BuildProb)
	}
	if !probability(c.CentralityProb) {
		return invalid("centrality_prob %v must lie in [0,1]", c.CentralityProb)
	}
	if len(c.DensityLevels) == 0 || len(c.DensityLevels) != len(c.DensityWeights) {
		return invalid("density_levels (%d) and density_weights (%d) must be non-empty and equal length",
			len(c.DensityLevels), len(c.DensityWeights))
	}
	var total float64
	for i, lvl := range c.DensityLevels {
		if lvl < 0 || math.IsNaN(lvl) || math.IsInf(lvl, 0) {
			return invalid("density_levels[%d] %v must be finite and non-negative", i, lvl)
		}
		w := c.DensityWeights[i]
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return invalid("density_weights[%d] %v must be finite and non-negative", i, w)
		}
		total += w
	}
	if total <= 0 {
		return invalid("density_weights must sum to a positive value")
	}
	if c.MinLongGreenSpan < 0 || c.MinShortGreenSpan < 0 || c.MinGreenArea < 0 {
		return invalid("green span and area thresholds must not be negative")
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

func probability(v float64) bool {
	return v >= 0 && v <= 1
}

// FromMap populates the config from a string map (flag-style key/value pairs).
func FromMap(cfg map[string]string) (Config, error) {
	c := DefaultConfig()
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := ApplyOverride(&c, k, cfg[k]); err != nil {
			return Config{}, err
		}
	}
	return c, nil
}

// ApplyOverrides applies key=value pairs in order.
func ApplyOverrides(c *Config, pairs []string) error {
	for _, kv := range pairs {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return eris.Wrapf(core.ErrInvalidConfig, "isobenefit: override %q is not key=value", kv)
		}
		if err := ApplyOverride(c, strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return err
		}
	}
	return nil
}

// ApplyOverride sets the field named by key from its textual value. Keys
// match the yaml tags of Config.
func ApplyOverride(c *Config, key, value string) error {
	var err error
	switch key {
	case "max_walking_distance":
		c.MaxWalkingDistance, err = strconv.ParseFloat(value, 64)
	case "contiguity_radius":
		c.ContiguityRadius, err = strconv.Atoi(value)
	case "density_radius":
		c.DensityRadius, err = strconv.Atoi(value)
	case "density_cap":
		c.DensityCap, err = strconv.ParseFloat(value, 64)
	case "centrality_distance":
		c.CentralityDistance, err = strconv.ParseFloat(value, 64)
	case "centrality_threshold":
		c.CentralityThreshold, err = strconv.ParseFloat(value, 64)
	case "max_iterations":
		c.MaxIterations, err = strconv.Atoi(value)
	case "target_fraction":
		c.TargetFraction, err = strconv.ParseFloat(value, 64)
	case "seed":
		c.Seed, err = strconv.ParseInt(value, 10, 64)
	case "workers":
		c.Workers, err = strconv.Atoi(value)
	case "rules":
		c.Rules = splitList(value)
	case "policy":
		c.Policy = value
	case "conversions_per_iteration":
		c.ConversionsPerIteration, err = strconv.Atoi(value)
	case "build_prob":
		c.BuildProb, err = strconv.ParseFloat(value, 64)
	case "centrality_prob":
		c.CentralityProb, err = strconv.ParseFloat(value, 64)
	case "density_levels":
		c.DensityLevels, err = parseFloats(value)
	case "density_weights":
		c.DensityWeights, err = parseFloats(value)
	case "min_long_green_span":
		c.MinLongGreenSpan, err = strconv.ParseFloat(value, 64)
	case "min_short_green_span":
		c.MinShortGreenSpan, err = strconv.ParseFloat(value, 64)
	case "min_green_area":
		c.MinGreenArea, err = strconv.ParseFloat(value, 64)
	default:
		return eris.Wrapf(core.ErrInvalidConfig, "isobenefit: unknown parameter %q", key)
	}
	if err != nil {
		return eris.Wrapf(core.ErrInvalidConfig, "isobenefit: parse %s=%q: %v", key, value, err)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseFloats(value string) ([]float64, error) {
	parts := splitList(value)
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
