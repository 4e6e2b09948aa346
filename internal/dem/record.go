package dem

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// Kind discriminates the two record shapes in the output log.
type Kind string

const (
	// KindCallback records carry a full parser message payload.
	KindCallback Kind = "callback"
	// KindGameEvent records are minimal named game-event markers.
	KindGameEvent Kind = "game_event"
)

// Record is one normalized pipeline event. A record is built once by the
// dispatcher and from then on owned by whichever stage currently holds
// it; it is never shared across goroutines.
type Record struct {
	Kind    Kind
	Name    string
	Tick    uint32
	NetTick uint32
	Payload any
}

// protoJSON renders proto payloads under their schema field names.
var protoJSON = protojson.MarshalOptions{UseProtoNames: true}

// MarshalJSON emits the wire shape for the record's kind: game_event
// records carry only kind, tick and event_name, callback records carry
// kind, name, tick, net_tick and the payload.
func (r Record) MarshalJSON() ([]byte, error) {
	if r.Kind == KindGameEvent {
		return json.Marshal(map[string]any{
			"kind":       string(r.Kind),
			"tick":       r.Tick,
			"event_name": r.Name,
		})
	}
	payload, err := payloadJSON(r.Payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]any{
		"kind":     string(r.Kind),
		"name":     r.Name,
		"tick":     r.Tick,
		"net_tick": r.NetTick,
		"payload":  payload,
	})
}

// payloadJSON serializes a payload once so the record marshal can embed
// it verbatim. Proto messages go through protojson; messages protojson
// rejects (strings with invalid UTF-8 do show up in replays) fall back
// to the plain encoder rather than failing the run.
func payloadJSON(payload any) (json.RawMessage, error) {
	if m, ok := payload.(proto.Message); ok {
		if b, err := protoJSON.Marshal(m); err == nil {
			return json.RawMessage(b), nil
		}
	}
	return json.Marshal(payload)
}

// UnmarshalJSON accepts both wire shapes; the report tooling reads logs
// back with it. A callback payload, when present, is retained as raw
// JSON and re-marshals byte-identically.
func (r *Record) UnmarshalJSON(b []byte) error {
	var wire struct {
		Kind      Kind            `json:"kind"`
		Name      string          `json:"name"`
		EventName string          `json:"event_name"`
		Tick      uint32          `json:"tick"`
		NetTick   uint32          `json:"net_tick"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	r.Kind = wire.Kind
	r.Tick = wire.Tick
	r.NetTick = wire.NetTick
	if wire.Kind == KindGameEvent {
		r.Name = wire.EventName
		r.Payload = nil
		return nil
	}
	r.Name = wire.Name
	r.Payload = nil
	if len(wire.Payload) > 0 {
		r.Payload = wire.Payload
	}
	return nil
}

// Validate reports whether the record has a usable shape for ingest.
func (r Record) Validate() error {
	switch r.Kind {
	case KindCallback, KindGameEvent:
	default:
		return fmt.Errorf("unknown record kind %q", r.Kind)
	}
	if r.Name == "" {
		return fmt.Errorf("%s record without a name", r.Kind)
	}
	return nil
}
