// Package session binds one browser page to one telemetry sink for the
// lifetime of a single scenario run.
package session

import (
	"github.com/roach88/uiprobe/internal/browser"
	"github.com/roach88/uiprobe/internal/telemetry"
)

// Session is the live connection to one page under test.
// It is used by exactly one runner and is not reused across runs.
type Session struct {
	ID   string
	Page browser.Page
	Sink *telemetry.Sink
}

// New creates a session with a fresh sink subscribed to page's console.
func New(page browser.Page, ids IDGenerator) *Session {
	s := &Session{
		ID:   ids.Generate(),
		Page: page,
		Sink: telemetry.NewSink(),
	}
	page.OnConsole(func(level, text string) {
		s.Sink.Record(telemetry.ParseLevel(level), text)
	})
	return s
}

// Close closes the underlying page. The sink's events stay readable.
func (s *Session) Close() error {
	return s.Page.Close()
}
