package harness

import (
	"github.com/roach88/uiprobe/internal/evidence"
	"github.com/roach88/uiprobe/internal/step"
)

// State is the lifecycle position of a run.
type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StateCapturing State = "capturing"
	StateCompleted State = "completed"
	StateCancelled State = "cancelled"
)

// Report is the outcome of a scenario run. It carries no verdict: failed
// steps and empty matches are evidence for a human, not a failure.
type Report struct {
	Scenario string `json:"scenario"`
	RunID    string `json:"run_id"`
	URL      string `json:"url"`

	State State `json:"state"`

	// Transitions lists every state the run entered, in order.
	Transitions []State `json:"transitions"`

	Steps    []step.Outcome           `json:"steps"`
	Captures []evidence.CaptureResult `json:"captures"`

	// ReportPaths lists persisted checkpoint reports, if any were written.
	ReportPaths []string `json:"report_paths,omitempty"`

	// EventCount is the number of telemetry events seen by the end of the run.
	EventCount int `json:"event_count"`
}

func newReport(scenario *Scenario, runID string) *Report {
	return &Report{
		Scenario:    scenario.Name,
		RunID:       runID,
		URL:         scenario.URL,
		State:       StateIdle,
		Transitions: []State{StateIdle},
		Steps:       []step.Outcome{},
		Captures:    []evidence.CaptureResult{},
	}
}

// FailedSteps returns the outcomes of steps that failed, in run order.
func (r *Report) FailedSteps() []step.Outcome {
	var out []step.Outcome
	for _, o := range r.Steps {
		if o.Failed() {
			out = append(out, o)
		}
	}
	return out
}

// Capture returns the capture recorded for checkpoint, or nil.
func (r *Report) Capture(checkpoint string) *evidence.CaptureResult {
	for i := range r.Captures {
		if r.Captures[i].Checkpoint == checkpoint {
			return &r.Captures[i]
		}
	}
	return nil
}
