package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"deliveryScrapper/pkg/availability"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by Load before any state was saved
var ErrNotFound = errors.New("state not found")

// Run is one recorded check
type Run struct {
	ID      int64
	RanAt   time.Time
	Dates   []string
	Emitted string
	Changed bool
}

// DB persists the run state between checks in SQLite
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the database at path
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer
	conn.SetMaxOpenConns(1)

	db := &DB{conn: conn}
	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS run_state (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		previous_dates TEXT NOT NULL DEFAULT '',
		last_found INTEGER NOT NULL,
		last_not_found INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ran_at INTEGER NOT NULL,
		dates TEXT NOT NULL DEFAULT '',
		emitted TEXT NOT NULL DEFAULT '',
		changed INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_ran_at ON runs(ran_at);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Load returns the saved run state
func (db *DB) Load(ctx context.Context) (availability.RunState, error) {
	var (
		prev string
		st   availability.RunState
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT previous_dates, last_found, last_not_found FROM run_state WHERE id = 1`,
	).Scan(&prev, &st.LastFound, &st.LastNotFound)
	if errors.Is(err, sql.ErrNoRows) {
		return availability.RunState{}, ErrNotFound
	}
	if err != nil {
		return availability.RunState{}, fmt.Errorf("load state: %w", err)
	}
	st.PreviousDates = availability.ParseDateList(prev)
	return st, nil
}

// LoadOrDefault returns the saved state, or a first-run state with both
// timestamps set to now
func (db *DB) LoadOrDefault(ctx context.Context, now time.Time) (availability.RunState, error) {
	st, err := db.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return availability.NewRunState("", "", "", now), nil
	}
	return st, err
}

// Save replaces the run state
func (db *DB) Save(ctx context.Context, st availability.RunState) error {
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO run_state (id, previous_dates, last_found, last_not_found)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			previous_dates = excluded.previous_dates,
			last_found = excluded.last_found,
			last_not_found = excluded.last_not_found`,
		strings.Join(st.PreviousDates, "\n"), st.LastFound, st.LastNotFound,
	)
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// RecordRun appends a check to the history
func (db *DB) RecordRun(ctx context.Context, ranAt time.Time, d availability.Decision) error {
	changed := 0
	if d.Changed {
		changed = 1
	}
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO runs (ran_at, dates, emitted, changed) VALUES (?, ?, ?, ?)`,
		ranAt.Unix(), d.Dates.Join("\n"), d.Text, changed,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first
func (db *DB) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, ran_at, dates, emitted, changed FROM runs ORDER BY ran_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r       Run
			ranAt   int64
			dates   string
			changed int
		)
		if err := rows.Scan(&r.ID, &ranAt, &dates, &r.Emitted, &changed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.RanAt = time.Unix(ranAt, 0)
		r.Dates = availability.ParseDateList(dates)
		r.Changed = changed == 1
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
