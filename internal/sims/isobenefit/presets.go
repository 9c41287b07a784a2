package isobenefit

import (
	"sort"

	"github.com/rotisserie/eris"

	"futurb/internal/core"
)

// Preset adjusts a configuration towards a named growth model.
type Preset func(*Config)

var presets = map[string]Preset{}

// RegisterPreset adds a preset under the provided name.
func RegisterPreset(name string, p Preset) {
	if name == "" || p == nil {
		return
	}
	presets[name] = p
}

// PresetNames lists the registered presets alphabetically.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset applies the named preset on top of cfg.
func ApplyPreset(cfg *Config, name string) error {
	p, ok := presets[name]
	if !ok {
		return eris.Wrapf(core.ErrInvalidConfig, "isobenefit: unknown preset %q", name)
	}
	p(cfg)
	return nil
}

func init() {
	RegisterPreset("isobenefit", func(c *Config) {
		c.Rules = []string{RuleGreenAccess, RuleContiguity, RuleGreenRetention, RuleGreenSpan, RuleGreenArea}
		c.Policy = PolicyStochastic
		if c.CentralityThreshold <= 0 {
			c.CentralityThreshold = c.MaxWalkingDistance
		}
	})
	RegisterPreset("compact", func(c *Config) {
		c.Rules = []string{RuleGreenAccess, RuleContiguity, RuleDensityCap}
		c.Policy = PolicyFixed
	})
	RegisterPreset("classical", func(c *Config) {
		c.Rules = []string{RuleContiguity}
		c.Policy = PolicyStochastic
		c.CentralityThreshold = 0
	})
}
