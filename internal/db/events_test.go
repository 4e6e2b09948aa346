package db

import (
	"os"
	"strings"
	"testing"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	fname := t.Name() + ".db"
	_ = os.Remove(fname)

	db, err := Open(fname)
	if err != nil {
		t.Fatalf("failed to open test DB: %v", err)
	}

	migrationsFS, err := Migrations()
	if err != nil {
		t.Fatalf("failed to load migrations: %v", err)
	}
	if err := db.MigrateUp(migrationsFS); err != nil {
		t.Fatalf("failed to migrate test DB: %v", err)
	}

	return db
}

func sampleEvents() []Event {
	return []Event{
		{Kind: "callback", Name: "CDOTAUserMsg_ChatEvent", Tick: 100, NetTick: 200, Payload: `{"value":1}`},
		{Kind: "callback", Name: "CDOTAUserMsg_ChatEvent", Tick: 100, NetTick: 200, Payload: `{"value":2}`},
		{Kind: "game_event", Name: "dota_combatlog", Tick: 100},
		{Kind: "callback", Name: "CMsgDOTACombatLogEntry", Tick: 140, NetTick: 280, Payload: `{"type":"DOTA_COMBATLOG_ABILITY"}`},
		{Kind: "game_event", Name: "dota_combatlog", Tick: 180},
	}
}

func TestBeginRunAssignsUniqueIDs(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	first, err := db.BeginRun("replay_a.jsonl")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	second, err := db.BeginRun("replay_b.jsonl")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	if first == "" || second == "" {
		t.Fatal("expected non-empty run IDs")
	}
	if first == second {
		t.Errorf("expected distinct run IDs, both were %q", first)
	}
}

func TestInsertAndGetRun(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	runID, err := db.BeginRun("match.jsonl")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	events := sampleEvents()
	if err := db.InsertEvents(runID, events); err != nil {
		t.Fatalf("InsertEvents failed: %v", err)
	}

	run, err := db.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Source != "match.jsonl" {
		t.Errorf("Source = %q, want %q", run.Source, "match.jsonl")
	}
	if run.StartedAt == "" {
		t.Error("expected StartedAt to be set")
	}
	if run.FinishedAt != nil {
		t.Error("expected FinishedAt to be nil before FinishRun")
	}
	if run.Tuning != "" {
		t.Errorf("Tuning = %q, want empty before RecordRunTuning", run.Tuning)
	}

	var count int64
	if err := db.QueryRow("SELECT COUNT(*) FROM events WHERE run_id = ?", runID).Scan(&count); err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if count != int64(len(events)) {
		t.Errorf("stored %d events, want %d", count, len(events))
	}
}

func TestFinishRun(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	runID, err := db.BeginRun("match.jsonl")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	if err := db.FinishRun(runID, 5, 2); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	run, err := db.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Events != 5 {
		t.Errorf("Events = %d, want 5", run.Events)
	}
	if run.Malformed != 2 {
		t.Errorf("Malformed = %d, want 2", run.Malformed)
	}
	if run.FinishedAt == nil {
		t.Error("expected FinishedAt to be set after FinishRun")
	}
}

func TestRecordRunTuning(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	runID, err := db.BeginRun("match.jsonl")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	tuning := `{"max_depth":4,"list_sample":8,"map_entries":16,"printable_ratio":0.85}`
	if err := db.RecordRunTuning(runID, tuning); err != nil {
		t.Fatalf("RecordRunTuning failed: %v", err)
	}

	run, err := db.GetRun(runID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.Tuning != tuning {
		t.Errorf("Tuning = %q, want %q", run.Tuning, tuning)
	}
}

func TestRecordRunTuningUnknownID(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	err := db.RecordRunTuning("no-such-run", "{}")
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
	if !strings.Contains(err.Error(), "unknown run") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestFinishRunUnknownID(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	err := db.FinishRun("no-such-run", 0, 0)
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
	if !strings.Contains(err.Error(), "unknown run") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestInsertEventsEmptyBatch(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	runID, err := db.BeginRun("empty.jsonl")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	if err := db.InsertEvents(runID, nil); err != nil {
		t.Fatalf("InsertEvents with empty batch failed: %v", err)
	}
}

func TestRunsListsMostRecentFirst(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	if _, err := db.BeginRun("first.jsonl"); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if _, err := db.BeginRun("second.jsonl"); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	runs, err := db.Runs()
	if err != nil {
		t.Fatalf("Runs failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
}
