package dem

import (
	"github.com/dotabuff/manta"
	"github.com/dotabuff/manta/dota"
)

// GameEventSource registers handlers for named game events discovered at
// parse time. *manta.Parser satisfies it.
type GameEventSource interface {
	OnGameEvent(name string, handler manta.GameEventHandler)
}

// SubscribeGameEvents returns the handler for the source-1 legacy game
// event descriptor list, the one message that enumerates named events
// outside the static hook set. Every descriptor name not yet in the
// registration table gets a handler on src emitting a minimal game_event
// record; such records carry no payload and no net tick, so the
// classifier never runs for them.
//
// Install it alongside the generic hooks:
//
//	parser.Callbacks.OnCMsgSource1LegacyGameEventList(d.SubscribeGameEvents(parser))
func (d *Dispatcher) SubscribeGameEvents(src GameEventSource) func(*dota.CMsgSource1LegacyGameEventList) error {
	return func(m *dota.CMsgSource1LegacyGameEventList) error {
		for _, desc := range m.GetDescriptors() {
			name := desc.GetName()
			if name == "" || d.registered[name] {
				continue
			}
			d.registered[name] = true
			event := name
			src.OnGameEvent(event, func(*manta.GameEvent) error {
				return d.handleGameEvent(event)
			})
		}
		return nil
	}
}

func (d *Dispatcher) handleGameEvent(name string) error {
	d.wrote++
	tick, _ := d.ticks()
	rec := Record{
		Kind: KindGameEvent,
		Name: name,
		Tick: tick,
	}
	return d.gate.Add(tick, rec, false)
}
