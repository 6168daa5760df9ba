// Package journal stores finished runs in a SQLite file.
//
// The journal is optional. When a run is given one, the runner's report and
// the full telemetry stream are appended once the run ends, so filtered
// logs can be re-queried later with different tags without driving the
// browser again.
//
// Tables: runs, steps, events, captures. All reads are ordered
// deterministically (by sequence, then by primary key).
package journal
