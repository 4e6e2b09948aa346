package db

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Run describes one replay ingest session.
type Run struct {
	ID         string
	Source     string
	StartedAt  string
	FinishedAt *string
	Events     int64
	Malformed  int64
	// Tuning holds the classifier limits the decoder ran with, as JSON,
	// when the ingest recorded them. Empty means unknown.
	Tuning string
}

func (r *Run) String() string {
	return fmt.Sprintf("Run: %s, Source: %s, Events: %d, Malformed: %d", r.ID, r.Source, r.Events, r.Malformed)
}

// Event is one decoded replay event row.
type Event struct {
	Kind    string
	Name    string
	Tick    int64
	NetTick int64
	Payload string
}

// BeginRun records the start of an ingest session over source and
// returns the new run ID.
func (db *DB) BeginRun(source string) (string, error) {
	runID := uuid.New().String()
	_, err := db.Exec("INSERT INTO ingest_runs (run_id, source) VALUES (?, ?)", runID, source)
	if err != nil {
		return "", fmt.Errorf("begin run: %w", err)
	}
	return runID, nil
}

// RecordRunTuning stores the classifier limits the decoder ran with, as
// JSON, so a stored run keeps the provenance of its filtering.
func (db *DB) RecordRunTuning(runID, tuning string) error {
	res, err := db.Exec("UPDATE ingest_runs SET tuning = ? WHERE run_id = ?", tuning, runID)
	if err != nil {
		return fmt.Errorf("record tuning: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("record tuning: unknown run %s", runID)
	}
	return nil
}

// InsertEvents stores a batch of events under runID in one transaction.
func (db *DB) InsertEvents(runID string, events []Event) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO events (run_id, kind, name, tick, net_tick, payload)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(runID, ev.Kind, ev.Name, ev.Tick, ev.NetTick, ev.Payload); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// FinishRun stamps the run's completion time and final counts.
func (db *DB) FinishRun(runID string, events, malformed int64) error {
	res, err := db.Exec(`UPDATE ingest_runs
		SET finished_at = CURRENT_TIMESTAMP, events = ?, malformed = ?
		WHERE run_id = ?`, events, malformed, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish run: unknown run %s", runID)
	}
	return nil
}

// GetRun returns a single run by ID.
func (db *DB) GetRun(runID string) (*Run, error) {
	var (
		run      Run
		finished sql.NullString
	)

	err := db.QueryRow(`SELECT run_id, source, started_at, finished_at, events, malformed, tuning
		FROM ingest_runs WHERE run_id = ?`, runID).Scan(
		&run.ID, &run.Source, &run.StartedAt, &finished, &run.Events, &run.Malformed, &run.Tuning)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("unknown run %s", runID)
	}
	if err != nil {
		return nil, err
	}

	if finished.Valid {
		run.FinishedAt = &finished.String
	}
	return &run, nil
}

// Runs lists all recorded runs, most recent first.
func (db *DB) Runs() ([]Run, error) {
	rows, err := db.Query(`SELECT run_id, source, started_at, finished_at, events, malformed, tuning
		FROM ingest_runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run      Run
			finished sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.Source, &run.StartedAt, &finished, &run.Events, &run.Malformed, &run.Tuning); err != nil {
			return nil, err
		}
		if finished.Valid {
			run.FinishedAt = &finished.String
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}
