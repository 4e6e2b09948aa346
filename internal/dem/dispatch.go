package dem

import (
	"reflect"
	"strings"

	"github.com/proger/faeton/internal/monitoring"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// transportPrefixes mark the low-level network and demo-command message
// families. Their payloads are compressed or framed wire data, so they
// are skipped unless binary inclusion is requested.
var transportPrefixes = []string{"CNETMsg_", "CSVCMsg_", "CDemo"}

func isTransportName(name string) bool {
	for _, p := range transportPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// DispatcherConfig wires a Dispatcher to its collaborators.
type DispatcherConfig struct {
	// Gate receives every accepted record.
	Gate *TickGate
	// Classifier gates payloads on readability. Nil means stock limits.
	Classifier *Classifier
	// Match flags records whose tick should be emitted when filtering.
	// Nil means nothing matches.
	Match Matcher
	// IncludeBinary disables both the transport-prefix skip and the
	// classifier gate.
	IncludeBinary bool
	// Ticks reports the parser's current tick and net tick, read at
	// callback-fire time.
	Ticks func() (tick, netTick uint32)
}

// Dispatcher attaches one generic handler to every hook the parser
// exposes and normalizes fired events into records. It owns the
// registration table and the write counter; both live for the run and
// are touched only on the parser's goroutine.
type Dispatcher struct {
	gate          *TickGate
	classify      *Classifier
	match         Matcher
	includeBinary bool
	ticks         func() (uint32, uint32)

	registered map[string]bool
	wrote      int
}

// NewDispatcher builds a dispatcher from cfg. Gate and Ticks are
// required; Classifier defaults to DefaultLimits.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	classify := cfg.Classifier
	if classify == nil {
		classify = NewClassifier(DefaultLimits())
	}
	return &Dispatcher{
		gate:          cfg.Gate,
		classify:      classify,
		match:         cfg.Match,
		includeBinary: cfg.IncludeBinary,
		ticks:         cfg.Ticks,
		registered:    make(map[string]bool),
	}
}

// Wrote returns the number of records accepted for emission so far.
// When filtering, records later dropped with their tick still count;
// classifier-rejected and transport-skipped payloads never do.
func (d *Dispatcher) Wrote() int {
	return d.wrote
}

// RegisterAll discovers hook-registration methods on callbacks by shape
// and installs the generic handler on each.
//
// A qualifying method is named On<Event>, takes exactly one argument of
// type func(T) error, and returns nothing. Anything else is skipped
// silently, so discovery keeps working as the parser grows hooks whose
// shapes this package has never seen. A hook name already present in
// the registration table is left alone, making repeat registration a
// no-op.
func (d *Dispatcher) RegisterAll(callbacks any) {
	cbValue := reflect.ValueOf(callbacks)
	if !cbValue.IsValid() {
		return
	}
	cbType := cbValue.Type()
	for i := 0; i < cbValue.NumMethod(); i++ {
		method := cbValue.Method(i)
		name := cbType.Method(i).Name
		if !strings.HasPrefix(name, "On") {
			continue
		}

		mt := method.Type()
		if mt.NumIn() != 1 || mt.NumOut() != 0 {
			continue
		}
		fnType := mt.In(0)
		if fnType.Kind() != reflect.Func {
			continue
		}
		if fnType.NumIn() != 1 || fnType.NumOut() != 1 || fnType.Out(0) != errorType {
			continue
		}

		if d.registered[name] {
			continue
		}
		d.registered[name] = true

		event := strings.TrimPrefix(name, "On")
		handler := reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
			if err := d.handleCallback(event, args[0].Interface()); err != nil {
				return []reflect.Value{reflect.ValueOf(err)}
			}
			return []reflect.Value{reflect.Zero(errorType)}
		})
		method.Call([]reflect.Value{handler})
	}
}

// handleCallback normalizes one fired event into a record and offers it
// to the gate. Gate errors become the handler's error and abort the
// parse.
func (d *Dispatcher) handleCallback(name string, payload any) error {
	if !d.includeBinary {
		if isTransportName(name) {
			return nil
		}
		if d.classify.HasUnreadableBinary(payload) {
			return nil
		}
	}

	d.wrote++
	tick, netTick := d.ticks()
	matched := d.match != nil && d.match(name, payload)
	if matched {
		monitoring.Logf("matched %s at tick %d", name, tick)
	}
	rec := Record{
		Kind:    KindCallback,
		Name:    name,
		Tick:    tick,
		NetTick: netTick,
		Payload: payload,
	}
	return d.gate.Add(tick, rec, matched)
}
