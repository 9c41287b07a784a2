package isobenefit

import (
	"context"
	"iter"
	"slices"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"futurb/internal/core"
)

// StopReason explains why a run finished.
type StopReason string

const (
	StopNone          StopReason = ""
	StopMaxIterations StopReason = "max-iterations"
	StopTarget        StopReason = "target-fraction"
	StopSaturated     StopReason = "saturated"
	StopFailed        StopReason = "failed"
)

// Option customises a Driver.
type Option func(*Driver)

// WithLogger sets the logger used for per-iteration and summary output.
func WithLogger(l *zap.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.log = l
		}
	}
}

// WithProgress logs an info-level progress line at most once per interval.
func WithProgress(every time.Duration) Option {
	return func(d *Driver) {
		d.progress = core.NewThrottle(every)
	}
}

// Driver owns a grid for the duration of a run and steps it until a stop
// condition holds. The stats series starts with a baseline record
// (iteration 0) and MaxIterations bounds its length.
type Driver struct {
	cfg      Config
	grid     *core.Grid
	stepper  *Stepper
	series   []IterationStats
	reason   StopReason
	log      *zap.Logger
	progress *core.Throttle
}

// New validates cfg and takes a private copy of grid, which must already hold
// at least one urban or centrality seed.
func New(grid *core.Grid, cfg Config, opts ...Option) (*Driver, error) {
	if grid == nil {
		return nil, eris.Wrap(core.ErrInvalidConfig, "isobenefit: nil grid")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if grid.Counts().Built() == 0 {
		return nil, eris.Wrap(core.ErrInvalidConfig, "isobenefit: grid holds no urban seed")
	}
	if slices.Contains(cfg.Rules, RuleGreenArea) {
		area := float64(grid.Rows()*grid.Cols()) * grid.CellSize() * grid.CellSize()
		if area < 2*cfg.MinGreenArea {
			return nil, eris.Wrapf(core.ErrInvalidConfig,
				"isobenefit: grid area %.0f is below twice min_green_area %.0f", area, cfg.MinGreenArea)
		}
	}
	stepper, err := NewStepper(cfg, core.NewRNG(cfg.Seed))
	if err != nil {
		return nil, err
	}
	d := &Driver{
		cfg:     cfg.Clone(),
		grid:    grid.Clone(),
		stepper: stepper,
		log:     zap.L(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.With(zap.Int64("seed", cfg.Seed), zap.String("policy", cfg.Policy))
	d.log.Debug("isobenefit: driver ready",
		zap.Strings("rules", stepper.Rules().Names()),
		zap.Int("rows", grid.Rows()),
		zap.Int("cols", grid.Cols()),
	)

	baseline := IterationStats{
		Iteration:         0,
		UrbanizedFraction: d.grid.UrbanizedFraction(),
		MeanDensity:       d.grid.MeanDensity(),
	}
	d.series = append(d.series, baseline)
	d.reason = d.stopReason(baseline)
	return d, nil
}

// Config returns a copy of the run configuration.
func (d *Driver) Config() Config { return d.cfg.Clone() }

// Grid exposes the live grid read-only.
func (d *Driver) Grid() core.View { return d.grid }

// Snapshot returns a deep copy of the current grid, suitable for checkpoints.
func (d *Driver) Snapshot() *core.Grid { return d.grid.Clone() }

// Stats returns a copy of the series recorded so far.
func (d *Driver) Stats() []IterationStats { return slices.Clone(d.series) }

// Done reports whether a stop condition has been reached.
func (d *Driver) Done() bool { return d.reason != StopNone }

// Reason reports why the run stopped, or StopNone while it can continue.
func (d *Driver) Reason() StopReason { return d.reason }

// Step runs a single growth iteration. The returned bool is true once the
// run is finished; further calls return the last record unchanged.
func (d *Driver) Step() (IterationStats, bool, error) {
	if d.Done() {
		return d.series[len(d.series)-1], true, nil
	}
	st, err := d.stepper.Step(d.grid)
	if err != nil {
		d.reason = StopFailed
		return st, true, err
	}
	d.series = append(d.series, st)
	d.reason = d.stopReason(st)
	d.log.Debug("isobenefit: iteration complete",
		zap.Int("iteration", st.Iteration),
		zap.Stringer("phase", d.stepper.Phase()),
		zap.Int("candidates", st.Candidates),
		zap.Int("eligible", st.Eligible),
		zap.Int("added_blocks", st.Converted-st.NewCentralities),
		zap.Int("added_centralities", st.NewCentralities),
		zap.Int("revoked", st.Revoked),
		zap.Float64("fraction", st.UrbanizedFraction),
	)
	if d.progress != nil && d.progress.Ready() {
		d.log.Info("isobenefit: progress",
			zap.Int("iteration", st.Iteration),
			zap.Float64("fraction", st.UrbanizedFraction),
		)
	}
	return st, d.Done(), nil
}

// Run steps until a stop condition holds. The context is only consulted
// between iterations.
func (d *Driver) Run(ctx context.Context) ([]IterationStats, error) {
	for !d.Done() {
		if err := ctx.Err(); err != nil {
			return d.Stats(), eris.Wrap(err, "isobenefit: run interrupted")
		}
		if _, _, err := d.Step(); err != nil {
			return d.Stats(), err
		}
	}
	last := d.series[len(d.series)-1]
	d.log.Info("isobenefit: run finished",
		zap.String("reason", string(d.reason)),
		zap.Int("iterations", last.Iteration),
		zap.Float64("fraction", last.UrbanizedFraction),
		zap.Float64("mean_density", last.MeanDensity),
	)
	return d.Stats(), nil
}

// All yields the recorded series and then keeps stepping until the run
// finishes or the consumer stops pulling.
func (d *Driver) All() iter.Seq2[IterationStats, error] {
	return func(yield func(IterationStats, error) bool) {
		for _, st := range d.Stats() {
			if !yield(st, nil) {
				return
			}
		}
		for !d.Done() {
			st, _, err := d.Step()
			if err != nil {
				yield(st, err)
				return
			}
			if !yield(st, nil) {
				return
			}
		}
	}
}

func (d *Driver) stopReason(st IterationStats) StopReason {
	switch {
	case st.Saturated:
		return StopSaturated
	case st.UrbanizedFraction >= d.cfg.TargetFraction:
		return StopTarget
	case len(d.series) >= d.cfg.MaxIterations:
		return StopMaxIterations
	default:
		return StopNone
	}
}
