// Package runlog keeps a history of cycle preparations in PostgreSQL.
package runlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Run is one cycle preparation.
type Run struct {
	ID             int64     `json:"id"`
	Cycle          string    `json:"cycle"`
	WindowBegin    time.Time `json:"window_begin"`
	Status         string    `json:"status"`
	States         int       `json:"states"`
	RepairFailures int       `json:"repair_failures"`
	Error          string    `json:"error,omitempty"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// Recorder stores finished runs.
type Recorder interface {
	Record(ctx context.Context, run *Run) error
	Recent(ctx context.Context, limit int) ([]Run, error)
}

const schema = `CREATE TABLE IF NOT EXISTS cycle_prep_runs (
	id              BIGSERIAL PRIMARY KEY,
	cycle           TEXT        NOT NULL,
	window_begin    TIMESTAMPTZ NOT NULL,
	status          TEXT        NOT NULL,
	states          INTEGER     NOT NULL DEFAULT 0,
	repair_failures INTEGER     NOT NULL DEFAULT 0,
	error           TEXT        NOT NULL DEFAULT '',
	started_at      TIMESTAMPTZ NOT NULL,
	finished_at     TIMESTAMPTZ NOT NULL
)`

// Store is a Recorder backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to PostgreSQL with a lib/pq DSN.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewStore(db), nil
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate creates the runs table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create cycle_prep_runs: %w", err)
	}
	return nil
}

// Record inserts run and sets its ID.
func (s *Store) Record(ctx context.Context, run *Run) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO cycle_prep_runs
			(cycle, window_begin, status, states, repair_failures, error, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		run.Cycle, run.WindowBegin, run.Status, run.States, run.RepairFailures,
		run.Error, run.StartedAt, run.FinishedAt,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to record run for cycle %s: %w", run.Cycle, err)
	}
	return nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, cycle, window_begin, status, states, repair_failures, error, started_at, finished_at
		FROM cycle_prep_runs
		ORDER BY started_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Cycle, &r.WindowBegin, &r.Status, &r.States,
			&r.RepairFailures, &r.Error, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	return runs, nil
}

// Nop discards runs.
type Nop struct{}

func (Nop) Record(context.Context, *Run) error         { return nil }
func (Nop) Recent(context.Context, int) ([]Run, error) { return []Run{}, nil }
