// Package dem converts the typed event stream fired by the manta replay
// parser into a filtered JSON Lines event log.
//
// Hooks are discovered by shape at runtime (Dispatcher.RegisterAll), so
// the pipeline keeps working as the parser grows message types. Payloads
// pass a bounded structural readability test (Classifier) unless binary
// inclusion is requested, and records flow through an all-or-nothing
// per-tick gate (TickGate) before reaching the sink (Writer).
//
// Everything here runs on the parser's goroutine. The package adds no
// locking and assumes delivery is already serialized.
package dem
