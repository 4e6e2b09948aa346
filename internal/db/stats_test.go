package db

import (
	"testing"
)

func seedRun(t *testing.T, db *DB) string {
	t.Helper()

	runID, err := db.BeginRun("match.jsonl")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := db.InsertEvents(runID, sampleEvents()); err != nil {
		t.Fatalf("InsertEvents failed: %v", err)
	}
	if err := db.FinishRun(runID, int64(len(sampleEvents())), 0); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}
	return runID
}

func TestTickCounts(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)
	runID := seedRun(t, db)

	counts, err := db.TickCounts(runID)
	if err != nil {
		t.Fatalf("TickCounts failed: %v", err)
	}

	want := []TickCount{
		{Tick: 100, Count: 3},
		{Tick: 140, Count: 1},
		{Tick: 180, Count: 1},
	}
	if len(counts) != len(want) {
		t.Fatalf("got %d tick buckets, want %d", len(counts), len(want))
	}
	for i := range want {
		if counts[i] != want[i] {
			t.Errorf("bucket %d = %+v, want %+v", i, counts[i], want[i])
		}
	}
}

func TestNameCounts(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)
	runID := seedRun(t, db)

	counts, err := db.NameCounts(runID, 0)
	if err != nil {
		t.Fatalf("NameCounts failed: %v", err)
	}

	if len(counts) != 3 {
		t.Fatalf("got %d names, want 3", len(counts))
	}
	// ChatEvent and dota_combatlog tie at 2; ties break alphabetically.
	if counts[0].Name != "CDOTAUserMsg_ChatEvent" || counts[0].Count != 2 {
		t.Errorf("top name = %+v, want CDOTAUserMsg_ChatEvent x2", counts[0])
	}
	if counts[1].Name != "dota_combatlog" || counts[1].Count != 2 {
		t.Errorf("second name = %+v, want dota_combatlog x2", counts[1])
	}
}

func TestNameCountsLimit(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)
	runID := seedRun(t, db)

	counts, err := db.NameCounts(runID, 1)
	if err != nil {
		t.Fatalf("NameCounts failed: %v", err)
	}
	if len(counts) != 1 {
		t.Fatalf("got %d names with limit 1, want 1", len(counts))
	}
}

func TestSummary(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)
	runID := seedRun(t, db)

	summary, err := db.Summary(runID)
	if err != nil {
		t.Fatalf("Summary failed: %v", err)
	}

	if summary.Source != "match.jsonl" {
		t.Errorf("Source = %q, want %q", summary.Source, "match.jsonl")
	}
	if summary.Callbacks != 3 {
		t.Errorf("Callbacks = %d, want 3", summary.Callbacks)
	}
	if summary.GameEvents != 2 {
		t.Errorf("GameEvents = %d, want 2", summary.GameEvents)
	}
	if summary.FirstTick != 100 {
		t.Errorf("FirstTick = %d, want 100", summary.FirstTick)
	}
	if summary.LastTick != 180 {
		t.Errorf("LastTick = %d, want 180", summary.LastTick)
	}
}

func TestSummaryUnknownRun(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	_, err := db.Summary("no-such-run")
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestTickCountsEmptyRun(t *testing.T) {
	db := setupTestDB(t)
	defer cleanupTestDB(t, db)

	runID, err := db.BeginRun("empty.jsonl")
	if err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}

	counts, err := db.TickCounts(runID)
	if err != nil {
		t.Fatalf("TickCounts failed: %v", err)
	}
	if len(counts) != 0 {
		t.Errorf("expected no tick buckets for empty run, got %d", len(counts))
	}
}
