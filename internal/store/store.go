package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"futurb/internal/sims/isobenefit"
)

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = eris.New("store: run not found")

// RunRecord describes a finished run to be persisted.
type RunRecord struct {
	Preset string
	Config isobenefit.Config
	Reason isobenefit.StopReason
}

// Run is a stored run summary.
type Run struct {
	ID            string
	Preset        string
	Seed          int64
	Config        isobenefit.Config
	Iterations    int
	FinalFraction float64
	Reason        isobenefit.StopReason
	CreatedAt     time.Time
}

// Store persists run summaries and their per-iteration statistics.
type Store interface {
	Migrate(ctx context.Context) error
	SaveRun(ctx context.Context, rec RunRecord, series []isobenefit.IterationStats) (string, error)
	ListRuns(ctx context.Context, limit int) ([]Run, error)
	RunStats(ctx context.Context, runID string) ([]isobenefit.IterationStats, error)
	Close() error
}
