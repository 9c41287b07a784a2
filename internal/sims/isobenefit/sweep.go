package isobenefit

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"futurb/internal/core"
)

// Variant is one point of a parameter sweep: key=value overrides applied on
// top of the base configuration.
type Variant struct {
	Label     string
	Overrides []string
}

// SweepResult summarises the run of one variant.
type SweepResult struct {
	Variant       Variant
	Config        Config
	Iterations    int
	Converted     int
	Centralities  int
	FinalFraction float64
	MeanDensity   float64
	Reason        StopReason
}

func (r SweepResult) String() string {
	return fmt.Sprintf("%s: iterations=%d converted=%d centralities=%d fraction=%.4f density=%.4f stop=%s",
		r.Variant.Label, r.Iterations, r.Converted, r.Centralities, r.FinalFraction, r.MeanDensity, r.Reason)
}

// CrossVariants expands every combination of the axis values, ordered by
// axis name and then by the order of each axis' values.
func CrossVariants(axes map[string][]string) []Variant {
	keys := make([]string, 0, len(axes))
	for k, vals := range axes {
		if len(vals) > 0 {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	variants := []Variant{{}}
	for _, k := range keys {
		next := make([]Variant, 0, len(variants)*len(axes[k]))
		for _, v := range variants {
			for _, val := range axes[k] {
				overrides := append(append([]string(nil), v.Overrides...), k+"="+val)
				next = append(next, Variant{Overrides: overrides})
			}
		}
		variants = next
	}
	for i := range variants {
		variants[i].Label = strings.Join(variants[i].Overrides, " ")
		if variants[i].Label == "" {
			variants[i].Label = "base"
		}
	}
	return variants
}

// Sweep runs one independent Driver per variant over its own copy of grid,
// at most workers at a time. Results keep the order of variants. The first
// failing variant cancels the remaining ones.
func Sweep(ctx context.Context, grid *core.Grid, base Config, variants []Variant, workers int) ([]SweepResult, error) {
	if grid == nil {
		return nil, eris.Wrap(core.ErrInvalidConfig, "isobenefit: sweep needs a grid")
	}
	if workers <= 0 {
		workers = base.EffectiveWorkers()
	}
	results := make([]SweepResult, len(variants))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, v := range variants {
		eg.Go(func() error {
			cfg := base.Clone()
			if err := ApplyOverrides(&cfg, v.Overrides); err != nil {
				return eris.Wrapf(err, "isobenefit: variant %q", v.Label)
			}
			// each variant already runs on its own goroutine
			cfg.Workers = 1
			d, err := New(grid, cfg, WithLogger(zap.L().With(zap.String("variant", v.Label))))
			if err != nil {
				return eris.Wrapf(err, "isobenefit: variant %q", v.Label)
			}
			series, err := d.Run(gctx)
			if err != nil {
				return eris.Wrapf(err, "isobenefit: variant %q", v.Label)
			}
			res := SweepResult{Variant: v, Config: cfg, Reason: d.Reason()}
			for _, st := range series {
				res.Converted += st.Converted
				res.Centralities += st.NewCentralities
			}
			last := series[len(series)-1]
			res.Iterations = last.Iteration
			res.FinalFraction = last.UrbanizedFraction
			res.MeanDensity = last.MeanDensity
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
