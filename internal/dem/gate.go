package dem

// Sink consumes finished records. *Writer is the production sink.
type Sink interface {
	Write(rec Record) error
}

// TickGate groups records by tick and applies all-or-nothing emission.
//
// With filtering disabled every record passes straight through to the
// sink. With filtering enabled, records accumulate until the first
// record of a different tick arrives; the buffered tick is then written
// in arrival order if any record in it matched, or dropped whole.
// At most one window is open at a time.
//
// A sink error aborts a flush mid-way and leaves the gate's buffer in an
// undefined state. Callers must treat the error as fatal and stop the
// run; there is no retry.
type TickGate struct {
	sink      Sink
	filtering bool

	hasTick     bool
	currentTick uint32
	buffer      []Record
	matched     bool
}

// NewTickGate builds a gate in front of sink. With filtering false the
// gate is a passthrough.
func NewTickGate(sink Sink, filtering bool) *TickGate {
	return &TickGate{
		sink:      sink,
		filtering: filtering,
	}
}

// Add offers one record for tick. The matches flag marks the whole tick
// as emission-worthy.
func (g *TickGate) Add(tick uint32, rec Record, matches bool) error {
	if !g.filtering {
		return g.sink.Write(rec)
	}

	if g.hasTick && tick != g.currentTick {
		if err := g.flushWindow(); err != nil {
			return err
		}
	}
	if !g.hasTick {
		g.hasTick = true
		g.currentTick = tick
	}

	g.buffer = append(g.buffer, rec)
	if matches {
		g.matched = true
	}
	return nil
}

// FlushFinal drains any open window at end of stream, applying the same
// write-or-discard rule as a tick boundary, and leaves the gate empty.
func (g *TickGate) FlushFinal() error {
	return g.flushWindow()
}

func (g *TickGate) flushWindow() error {
	if !g.hasTick {
		return nil
	}
	if g.matched {
		for _, rec := range g.buffer {
			if err := g.sink.Write(rec); err != nil {
				return err
			}
		}
	}
	g.hasTick = false
	g.buffer = g.buffer[:0]
	g.matched = false
	return nil
}
