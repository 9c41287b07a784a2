package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"futurb/internal/sims/isobenefit"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	preset         TEXT NOT NULL DEFAULT '',
	seed           INTEGER NOT NULL,
	config         TEXT NOT NULL,
	iterations     INTEGER NOT NULL,
	final_fraction REAL NOT NULL,
	reason         TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS iteration_stats (
	run_id       TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	iteration    INTEGER NOT NULL,
	candidates   INTEGER NOT NULL,
	eligible     INTEGER NOT NULL,
	converted    INTEGER NOT NULL,
	centralities INTEGER NOT NULL,
	revoked      INTEGER NOT NULL,
	fraction     REAL NOT NULL,
	mean_density REAL NOT NULL,
	saturated    INTEGER NOT NULL,
	PRIMARY KEY (run_id, iteration)
);

CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRun stores the run summary and its full series in one transaction and
// returns the new run id.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec RunRecord, series []isobenefit.IterationStats) (string, error) {
	if len(series) == 0 {
		return "", eris.New("sqlite: save run: empty series")
	}
	id := uuid.New().String()
	now := time.Now().UTC()
	last := series[len(series)-1]

	cfgJSON, err := json.Marshal(rec.Config)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: marshal config")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin")
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, preset, seed, config, iterations, final_fraction, reason, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.Preset, rec.Config.Seed, string(cfgJSON), last.Iteration, last.UrbanizedFraction, string(rec.Reason), now,
	)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: insert run")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO iteration_stats (run_id, iteration, candidates, eligible, converted, centralities, revoked, fraction, mean_density, saturated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: prepare stats insert")
	}
	defer stmt.Close()

	for _, st := range series {
		_, err := stmt.ExecContext(ctx, id, st.Iteration, st.Candidates, st.Eligible, st.Converted,
			st.NewCentralities, st.Revoked, st.UrbanizedFraction, st.MeanDensity, st.Saturated)
		if err != nil {
			return "", eris.Wrapf(err, "sqlite: insert stats for iteration %d", st.Iteration)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: commit run")
	}
	return id, nil
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, preset, seed, config, iterations, final_fraction, reason, created_at
		 FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// RunStats returns the series of a stored run in iteration order.
func (s *SQLiteStore) RunStats(ctx context.Context, runID string) ([]isobenefit.IterationStats, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrRunNotFound, "sqlite: run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: lookup run %s", runID)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT iteration, candidates, eligible, converted, centralities, revoked, fraction, mean_density, saturated
		 FROM iteration_stats WHERE run_id = ? ORDER BY iteration`, runID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: query stats %s", runID)
	}
	defer rows.Close()

	var series []isobenefit.IterationStats
	for rows.Next() {
		var st isobenefit.IterationStats
		if err := rows.Scan(&st.Iteration, &st.Candidates, &st.Eligible, &st.Converted, &st.NewCentralities,
			&st.Revoked, &st.UrbanizedFraction, &st.MeanDensity, &st.Saturated); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stats")
		}
		series = append(series, st)
	}
	return series, eris.Wrap(rows.Err(), "sqlite: stats iterate")
}

// helpers

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var r Run
	var cfgJSON, reason string

	err := row.Scan(&r.ID, &r.Preset, &r.Seed, &cfgJSON, &r.Iterations, &r.FinalFraction, &reason, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	r.Reason = isobenefit.StopReason(reason)

	if err := json.Unmarshal([]byte(cfgJSON), &r.Config); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal config")
	}
	return &r, nil
}
