package dem

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// captureSink collects written records in order.
type captureSink struct {
	recs []Record
}

func (s *captureSink) Write(rec Record) error {
	s.recs = append(s.recs, rec)
	return nil
}

// failingSink accepts n writes and then fails every call.
type failingSink struct {
	n     int
	wrote int
}

var errSinkClosed = errors.New("sink closed")

func (s *failingSink) Write(Record) error {
	if s.wrote >= s.n {
		return errSinkClosed
	}
	s.wrote++
	return nil
}

func rec(name string, tick uint32) Record {
	return Record{Kind: KindCallback, Name: name, Tick: tick}
}

func names(recs []Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Name)
	}
	return out
}

func TestPassthroughWritesImmediatelyInOrder(t *testing.T) {
	sink := &captureSink{}
	gate := NewTickGate(sink, false)

	ticks := []uint32{5, 5, 7, 7, 7}
	for i, tick := range ticks {
		if err := gate.Add(tick, rec(string(rune('a'+i)), tick), false); err != nil {
			t.Fatalf("Add(%d) error: %v", tick, err)
		}
	}
	if err := gate.FlushFinal(); err != nil {
		t.Fatalf("FlushFinal error: %v", err)
	}

	want := []string{"a", "b", "c", "d", "e"}
	if diff := cmp.Diff(want, names(sink.recs)); diff != "" {
		t.Errorf("emitted records mismatch (-want +got):\n%s", diff)
	}
}

func TestFilteringEmitsMatchedTickWholeDropsOthers(t *testing.T) {
	sink := &captureSink{}
	gate := NewTickGate(sink, true)

	// Tick 5 matches on its first record, tick 7 never matches.
	adds := []struct {
		tick    uint32
		name    string
		matches bool
	}{
		{5, "a", true},
		{5, "b", false},
		{7, "c", false},
		{7, "d", false},
	}
	for _, a := range adds {
		if err := gate.Add(a.tick, rec(a.name, a.tick), a.matches); err != nil {
			t.Fatalf("Add(%s) error: %v", a.name, err)
		}
	}
	if err := gate.FlushFinal(); err != nil {
		t.Fatalf("FlushFinal error: %v", err)
	}

	want := []string{"a", "b"}
	if diff := cmp.Diff(want, names(sink.recs)); diff != "" {
		t.Errorf("emitted records mismatch (-want +got):\n%s", diff)
	}
}

func TestFilteringMatchAnywhereInTickEmitsWholeTick(t *testing.T) {
	sink := &captureSink{}
	gate := NewTickGate(sink, true)

	// The match arrives on the last record of the tick; the earlier
	// records must still come out, in arrival order.
	if err := gate.Add(3, rec("a", 3), false); err != nil {
		t.Fatal(err)
	}
	if err := gate.Add(3, rec("b", 3), true); err != nil {
		t.Fatal(err)
	}
	if err := gate.Add(4, rec("c", 4), false); err != nil {
		t.Fatal(err)
	}
	if err := gate.FlushFinal(); err != nil {
		t.Fatal(err)
	}

	want := []string{"a", "b"}
	if diff := cmp.Diff(want, names(sink.recs)); diff != "" {
		t.Errorf("emitted records mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalFlushEmitsOpenMatchedWindow(t *testing.T) {
	sink := &captureSink{}
	gate := NewTickGate(sink, true)

	if err := gate.Add(9, rec("a", 9), true); err != nil {
		t.Fatal(err)
	}
	if len(sink.recs) != 0 {
		t.Fatalf("window emitted before flush: %v", names(sink.recs))
	}
	if err := gate.FlushFinal(); err != nil {
		t.Fatal(err)
	}
	if got := names(sink.recs); len(got) != 1 || got[0] != "a" {
		t.Errorf("emitted = %v, want [a]", got)
	}
}

func TestFinalFlushDropsOpenUnmatchedWindow(t *testing.T) {
	sink := &captureSink{}
	gate := NewTickGate(sink, true)

	if err := gate.Add(9, rec("a", 9), false); err != nil {
		t.Fatal(err)
	}
	if err := gate.FlushFinal(); err != nil {
		t.Fatal(err)
	}
	if len(sink.recs) != 0 {
		t.Errorf("unmatched window emitted: %v", names(sink.recs))
	}
}

func TestFinalFlushLeavesGateEmpty(t *testing.T) {
	sink := &captureSink{}
	gate := NewTickGate(sink, true)

	if err := gate.Add(9, rec("a", 9), true); err != nil {
		t.Fatal(err)
	}
	if err := gate.FlushFinal(); err != nil {
		t.Fatal(err)
	}

	// A record for the same tick after the final flush opens a fresh
	// window, which must earn its own match.
	if err := gate.Add(9, rec("b", 9), false); err != nil {
		t.Fatal(err)
	}
	if err := gate.FlushFinal(); err != nil {
		t.Fatal(err)
	}

	want := []string{"a"}
	if diff := cmp.Diff(want, names(sink.recs)); diff != "" {
		t.Errorf("emitted records mismatch (-want +got):\n%s", diff)
	}
}

func TestFinalFlushOnEmptyGateIsNoop(t *testing.T) {
	sink := &captureSink{}
	for _, filtering := range []bool{false, true} {
		gate := NewTickGate(sink, filtering)
		if err := gate.FlushFinal(); err != nil {
			t.Errorf("filtering=%v: FlushFinal error: %v", filtering, err)
		}
	}
	if len(sink.recs) != 0 {
		t.Errorf("empty gate emitted records: %v", names(sink.recs))
	}
}

func TestSinkErrorAbortsFlushMidWindow(t *testing.T) {
	sink := &failingSink{n: 1}
	gate := NewTickGate(sink, true)

	for _, name := range []string{"a", "b", "c"} {
		if err := gate.Add(2, rec(name, 2), true); err != nil {
			t.Fatalf("Add(%s) error: %v", name, err)
		}
	}
	err := gate.Add(3, rec("d", 3), false)
	if !errors.Is(err, errSinkClosed) {
		t.Fatalf("Add after sink failure = %v, want %v", err, errSinkClosed)
	}
	if sink.wrote != 1 {
		t.Errorf("writes before abort = %d, want 1", sink.wrote)
	}
}

func TestSinkErrorSurfacesFromFinalFlush(t *testing.T) {
	gate := NewTickGate(&failingSink{n: 0}, true)
	if err := gate.Add(2, rec("a", 2), true); err != nil {
		t.Fatal(err)
	}
	if err := gate.FlushFinal(); !errors.Is(err, errSinkClosed) {
		t.Fatalf("FlushFinal = %v, want %v", err, errSinkClosed)
	}
}

func TestPassthroughSinkErrorReturnsVerbatim(t *testing.T) {
	gate := NewTickGate(&failingSink{n: 0}, false)
	if err := gate.Add(1, rec("a", 1), false); err != errSinkClosed {
		t.Fatalf("Add = %v, want the sink's own error", err)
	}
}
