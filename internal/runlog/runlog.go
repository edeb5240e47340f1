// Package runlog keeps a history of per-run statistics in SQLite so past
// runs can be inspected after the fact (the lifecycle store only holds the
// latest state).
package runlog

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one run's bookkeeping line.
type Entry struct {
	RanAt      time.Time
	Scraped    int
	Unique     int
	NewlyAdded int
	MailedNew  int
	Reminders  int
	Closed     int
	Applied    int
	Ignored    int
	StateTotal int
	DryRun     bool
}

// RunLog records run statistics in a SQLite database.
type RunLog struct {
	db *sql.DB
}

// Open opens (or creates) the run log at dbPath and ensures the runs table
// exists.
func Open(dbPath string) (*RunLog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening run log db: %w", err)
	}

	// Verify the connection is alive.
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging run log db: %w", err)
	}

	createTable := `CREATE TABLE IF NOT EXISTS runs (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		ran_at       DATETIME NOT NULL,
		scraped      INTEGER NOT NULL,
		unique_seen  INTEGER NOT NULL,
		newly_added  INTEGER NOT NULL,
		mailed_new   INTEGER NOT NULL,
		reminders    INTEGER NOT NULL,
		closed       INTEGER NOT NULL,
		applied      INTEGER NOT NULL,
		ignored      INTEGER NOT NULL,
		state_total  INTEGER NOT NULL,
		dry_run      INTEGER NOT NULL
	)`
	if _, err := db.Exec(createTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}

	return &RunLog{db: db}, nil
}

// Record appends one run's statistics.
func (r *RunLog) Record(e Entry) error {
	_, err := r.db.Exec(
		`INSERT INTO runs (ran_at, scraped, unique_seen, newly_added, mailed_new,
			reminders, closed, applied, ignored, state_total, dry_run)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RanAt, e.Scraped, e.Unique, e.NewlyAdded, e.MailedNew,
		e.Reminders, e.Closed, e.Applied, e.Ignored, e.StateTotal, boolToInt(e.DryRun),
	)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Recent returns the latest n runs, newest first.
func (r *RunLog) Recent(n int) ([]Entry, error) {
	rows, err := r.db.Query(
		`SELECT ran_at, scraped, unique_seen, newly_added, mailed_new,
			reminders, closed, applied, ignored, state_total, dry_run
		 FROM runs ORDER BY id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent runs: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var dry int
		if err := rows.Scan(&e.RanAt, &e.Scraped, &e.Unique, &e.NewlyAdded, &e.MailedNew,
			&e.Reminders, &e.Closed, &e.Applied, &e.Ignored, &e.StateTotal, &dry); err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		e.DryRun = dry != 0
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading recent runs: %w", err)
	}
	return out, nil
}

// Close closes the underlying database connection.
func (r *RunLog) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
