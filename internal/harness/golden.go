package harness

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/uiprobe/internal/step"
	"github.com/roach88/uiprobe/internal/telemetry"
)

// Snapshot is the reproducible part of a Report. Timings are dropped and
// screenshot paths are reduced to file names, so two runs of the same
// scenario against the same page produce identical snapshots.
type Snapshot struct {
	Scenario    string            `json:"scenario"`
	RunID       string            `json:"run_id"`
	State       State             `json:"state"`
	Transitions []State           `json:"transitions"`
	Steps       []StepSnapshot    `json:"steps"`
	Captures    []CaptureSnapshot `json:"captures"`
	EventCount  int               `json:"event_count"`
}

// StepSnapshot is a step outcome without timing.
type StepSnapshot struct {
	Index      int         `json:"index"`
	Step       string      `json:"step"`
	Action     step.Action `json:"action"`
	Status     step.Status `json:"status"`
	Candidates int         `json:"candidates,omitempty"`
	Failure    string      `json:"failure,omitempty"`
}

// CaptureSnapshot is a capture result with a portable screenshot name.
type CaptureSnapshot struct {
	Checkpoint  string          `json:"checkpoint"`
	Screenshot  string          `json:"screenshot,omitempty"`
	NoTelemetry bool            `json:"no_telemetry,omitempty"`
	NotObserved bool            `json:"not_observed,omitempty"`
	Matched     []MatchSnapshot `json:"matched,omitempty"`
	Errors      []string        `json:"errors,omitempty"`
}

// MatchSnapshot is one matched event as displayed.
type MatchSnapshot struct {
	Seq   int64           `json:"seq"`
	Level telemetry.Level `json:"level"`
	Text  string          `json:"text"`
	Tags  []string        `json:"tags"`
}

// NewSnapshot reduces a report to its reproducible part.
func NewSnapshot(r *Report) Snapshot {
	s := Snapshot{
		Scenario:    r.Scenario,
		RunID:       r.RunID,
		State:       r.State,
		Transitions: r.Transitions,
		Steps:       make([]StepSnapshot, len(r.Steps)),
		Captures:    make([]CaptureSnapshot, len(r.Captures)),
		EventCount:  r.EventCount,
	}
	for i, o := range r.Steps {
		s.Steps[i] = StepSnapshot{
			Index:      o.Index,
			Step:       o.Step,
			Action:     o.Action,
			Status:     o.Status,
			Candidates: o.Candidates,
		}
		if o.Failure != nil {
			s.Steps[i].Failure = string(o.Failure.Code)
		}
	}
	for i, c := range r.Captures {
		cs := CaptureSnapshot{Checkpoint: c.Checkpoint, Errors: c.Errors}
		if c.ScreenshotPath != "" {
			cs.Screenshot = filepath.Base(c.ScreenshotPath)
		}
		if c.Matched != nil {
			cs.NoTelemetry = c.Matched.NoTelemetry()
			cs.NotObserved = c.Matched.NotObserved()
			for _, h := range c.Matched.Hits {
				cs.Matched = append(cs.Matched, MatchSnapshot{
					Seq:   h.Event.Seq,
					Level: h.Event.Level,
					Text:  h.Display,
					Tags:  h.Tags,
				})
			}
		}
		s.Captures[i] = cs
	}
	return s
}

// AssertGolden compares the report's snapshot against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func AssertGolden(t *testing.T, name string, r *Report) {
	t.Helper()

	data, err := json.MarshalIndent(NewSnapshot(r), "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal snapshot: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, append(data, '\n'))
}
