package telemetry

import "strings"

// Level is the console method a page used to emit an event.
type Level string

const (
	LevelLog   Level = "log"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
	LevelInfo  Level = "info"
)

// ParseLevel maps a console API type ("log", "warning", "error", "info",
// "debug", ...) to a Level. Anything unrecognised is recorded as LevelLog.
func ParseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "warn", "warning":
		return LevelWarn
	case "error", "assert":
		return LevelError
	case "info":
		return LevelInfo
	default:
		return LevelLog
	}
}

// LogEvent is one console line captured from the page.
// Events are values; nothing mutates them after Record returns.
type LogEvent struct {
	Seq   int64  `json:"seq"`
	Level Level  `json:"level"`
	Text  string `json:"text"`
}
