package db

import (
	"database/sql"
	"fmt"
)

// TickCount is the number of events observed at one tick.
type TickCount struct {
	Tick  int64
	Count int64
}

// TickCounts returns per-tick event counts for a run in tick order.
func (db *DB) TickCounts(runID string) ([]TickCount, error) {
	rows, err := db.Query(`SELECT tick, COUNT(*) FROM events
		WHERE run_id = ? GROUP BY tick ORDER BY tick`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []TickCount
	for rows.Next() {
		var tc TickCount
		if err := rows.Scan(&tc.Tick, &tc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// NameCount pairs an event name with its frequency.
type NameCount struct {
	Name  string
	Count int64
}

// NameCounts returns event frequencies for a run, most frequent first.
// A limit of zero or less returns all names.
func (db *DB) NameCounts(runID string, limit int) ([]NameCount, error) {
	query := `SELECT name, COUNT(*) FROM events
		WHERE run_id = ? GROUP BY name ORDER BY COUNT(*) DESC, name`
	args := []any{runID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []NameCount
	for rows.Next() {
		var nc NameCount
		if err := rows.Scan(&nc.Name, &nc.Count); err != nil {
			return nil, err
		}
		counts = append(counts, nc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

// RunSummary aggregates one run for reporting.
type RunSummary struct {
	RunID      string
	Source     string
	Events     int64
	Malformed  int64
	Callbacks  int64
	GameEvents int64
	FirstTick  int64
	LastTick   int64
}

// Summary aggregates stored events for a run.
func (db *DB) Summary(runID string) (*RunSummary, error) {
	s := RunSummary{RunID: runID}

	err := db.QueryRow(`SELECT r.source, r.events, r.malformed,
			COALESCE(SUM(CASE WHEN e.kind = 'callback' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN e.kind = 'game_event' THEN 1 ELSE 0 END), 0),
			COALESCE(MIN(e.tick), 0),
			COALESCE(MAX(e.tick), 0)
		FROM ingest_runs r
		LEFT JOIN events e ON e.run_id = r.run_id
		WHERE r.run_id = ?
		GROUP BY r.run_id`, runID).Scan(
		&s.Source, &s.Events, &s.Malformed,
		&s.Callbacks, &s.GameEvents, &s.FirstTick, &s.LastTick)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("unknown run %s", runID)
	}
	if err != nil {
		return nil, err
	}

	return &s, nil
}
