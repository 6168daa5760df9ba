// Package telemetry collects the console output a page emits during a session.
//
// The Sink is an append-only, ordered store. Every event is stamped with the
// sink's next sequence number under the same lock that appends it, so
// sequence order and emission order are the same thing.
//
// Events arrive from the browser's event goroutine while the scenario runner
// is blocked in a settle wait. Record is the only mutating operation and is
// atomic at the granularity of one event; callers never lock.
package telemetry
