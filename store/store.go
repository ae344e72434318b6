// Package store keeps a SQLite history of batch summaries so rotations
// can be compared across runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nathoo/aplcore/engine/batch"
)

const schema = `
CREATE TABLE IF NOT EXISTS batch_runs (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	rotation    TEXT    NOT NULL,
	iterations  INTEGER NOT NULL,
	horizon_ms  INTEGER NOT NULL,
	base_seed   INTEGER NOT NULL,
	dps_mean    REAL    NOT NULL,
	hps_mean    REAL    NOT NULL,
	stats       TEXT    NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS batch_runs_rotation ON batch_runs (rotation, created_at);
`

// Run is one stored batch summary.
type Run struct {
	ID        int64
	CreatedAt time.Time
	Summary   batch.Summary
}

// stats is the JSON column holding the per-rate statistics.
type stats struct {
	DPS   batch.Stat `json:"dps"`
	HPS   batch.Stat `json:"hps"`
	APS   batch.Stat `json:"aps"`
	Casts batch.Stat `json:"casts"`
}

// Store provides SQLite-backed batch history.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// Open opens a history database, creating the schema if needed.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close releases the SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveSummary persists one batch summary and returns its row ID.
func (s *Store) SaveSummary(ctx context.Context, sum batch.Summary) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(sum.Rotation) == "" {
		return 0, fmt.Errorf("rotation name is required")
	}
	if sum.Iterations <= 0 {
		return 0, fmt.Errorf("summary has no iterations")
	}

	blob, err := json.Marshal(stats{DPS: sum.DPS, HPS: sum.HPS, APS: sum.APS, Casts: sum.Casts})
	if err != nil {
		return 0, fmt.Errorf("encode stats: %w", err)
	}
	res, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO batch_runs (
	rotation,
	iterations,
	horizon_ms,
	base_seed,
	dps_mean,
	hps_mean,
	stats,
	created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`,
		sum.Rotation,
		sum.Iterations,
		sum.Horizon.Milliseconds(),
		sum.BaseSeed,
		sum.DPS.Mean,
		sum.HPS.Mean,
		string(blob),
		s.now().UTC().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("save summary: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save summary: %w", err)
	}
	return id, nil
}

const selectRun = `
SELECT
	id,
	rotation,
	iterations,
	horizon_ms,
	base_seed,
	stats,
	created_at
FROM batch_runs
`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (Run, error) {
	var (
		r         Run
		horizonMS int64
		blob      string
		createdMS int64
	)
	if err := sc.Scan(&r.ID, &r.Summary.Rotation, &r.Summary.Iterations, &horizonMS, &r.Summary.BaseSeed, &blob, &createdMS); err != nil {
		return Run{}, err
	}
	var st stats
	if err := json.Unmarshal([]byte(blob), &st); err != nil {
		return Run{}, fmt.Errorf("decode stats for run %d: %w", r.ID, err)
	}
	r.Summary.Horizon = time.Duration(horizonMS) * time.Millisecond
	r.Summary.DPS, r.Summary.HPS, r.Summary.APS, r.Summary.Casts = st.DPS, st.HPS, st.APS, st.Casts
	r.CreatedAt = time.UnixMilli(createdMS).UTC()
	return r, nil
}

// ListRuns lists stored summaries newest first. An empty rotation lists
// every rotation.
func (s *Store) ListRuns(ctx context.Context, rotation string, limit int) ([]Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, selectRun+`
WHERE ? = '' OR rotation = ?
ORDER BY created_at DESC, id DESC
LIMIT ?
`, rotation, rotation, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Best returns the stored run with the highest combined mean DPS and HPS
// for a rotation. ok is false when none is stored.
func (s *Store) Best(ctx context.Context, rotation string) (Run, bool, error) {
	if err := ctx.Err(); err != nil {
		return Run{}, false, err
	}
	if s == nil || s.sqlDB == nil {
		return Run{}, false, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx, selectRun+`
WHERE rotation = ?
ORDER BY dps_mean + hps_mean DESC, id ASC
LIMIT 1
`, rotation)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("best run: %w", err)
	}
	return r, true, nil
}
