package dem

import (
	"github.com/dotabuff/manta/dota"
)

// combatLogTable is the string table resolving combat-log name indexes.
const combatLogTable = "CombatLogNames"

// combatLogEntryName is the hook name carrying combat-log entries.
const combatLogEntryName = "CMsgDOTACombatLogEntry"

// StringTable resolves compact name indexes recorded in replay messages.
// *manta.Parser satisfies it.
type StringTable interface {
	LookupStringByIndex(table string, index int32) (string, bool)
}

// Matcher flags a fired callback as emission-worthy for its whole tick.
// Any boolean test over a hook name and payload can be plugged in; the
// gate only ever sees the boolean.
type Matcher func(name string, payload any) bool

// combatLogName resolves idx through the CombatLogNames table. Index 0
// means "absent" and resolves to the empty string, as does a lookup
// miss.
func combatLogName(st StringTable, idx uint32) string {
	if idx == 0 {
		return ""
	}
	name, ok := st.LookupStringByIndex(combatLogTable, int32(idx))
	if !ok {
		return ""
	}
	return name
}

// EclipseCast returns the matcher for Luna casting Eclipse: an ability
// or ability-trigger combat-log entry whose inflictor resolves to
// luna_eclipse and whose attacker resolves to npc_dota_hero_luna.
func EclipseCast(st StringTable) Matcher {
	return func(name string, payload any) bool {
		if name != combatLogEntryName {
			return false
		}
		entry, ok := payload.(*dota.CMsgDOTACombatLogEntry)
		if !ok {
			return false
		}
		t := entry.GetType()
		if t != dota.DOTA_COMBATLOG_TYPES_DOTA_COMBATLOG_ABILITY &&
			t != dota.DOTA_COMBATLOG_TYPES_DOTA_COMBATLOG_ABILITY_TRIGGER {
			return false
		}
		if combatLogName(st, entry.GetInflictorName()) != "luna_eclipse" {
			return false
		}
		return combatLogName(st, entry.GetAttackerName()) == "npc_dota_hero_luna"
	}
}
