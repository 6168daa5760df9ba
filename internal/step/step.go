// Package step implements the atomic UI interaction a scenario is made of:
// locate an element, act on it, then wait for the page to settle.
//
// A step never returns an error to its caller. Failure to find or act on an
// element is reported as a StepFailed inside the Outcome, and no action is
// performed, so the runner can record it and continue.
package step

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/uiprobe/internal/browser"
)

// Action is what a step does once its target is located.
type Action string

const (
	ActionClick       Action = "click"
	ActionDoubleClick Action = "dblclick"
	ActionWait        Action = "wait"
)

// Status is the result of executing a step.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// Step is one interaction. Steps are defined before a run and never hold
// session state.
type Step struct {
	Name   string   `yaml:"name" json:"name"`
	Action Action   `yaml:"action" json:"action"`
	Target *Locator `yaml:"target,omitempty" json:"target,omitempty"`
	Settle Settle   `yaml:"settle,omitempty" json:"settle,omitempty"`
}

// Outcome records what happened when a step ran.
type Outcome struct {
	// Index is the 1-based position of the step in its scenario.
	Index  int    `json:"index"`
	Step   string `json:"step"`
	Action Action `json:"action"`
	Status Status `json:"status"`

	// Candidates is how many elements matched the locator.
	Candidates int `json:"candidates,omitempty"`

	// Settled is false when a stability condition timed out and the fixed
	// fallback was used, or when the wait was interrupted.
	Settled bool `json:"settled"`

	Failure *StepFailed   `json:"failure,omitempty"`
	Elapsed time.Duration `json:"elapsed_ns"`
}

// Failed reports whether the step failed.
func (o Outcome) Failed() bool {
	return o.Status == StatusFailed
}

// Validate checks the step definition.
func (s *Step) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	switch s.Action {
	case ActionClick, ActionDoubleClick:
		if s.Target == nil {
			return fmt.Errorf("target is required for %s", s.Action)
		}
		if err := s.Target.Validate(); err != nil {
			return fmt.Errorf("target: %w", err)
		}
	case ActionWait:
		if s.Settle.Duration <= 0 && s.Settle.Stable == "" {
			return fmt.Errorf("wait requires settle.duration or settle.stable")
		}
	case "":
		return fmt.Errorf("action is required")
	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	return nil
}

// Execute runs the step against page.
func (s *Step) Execute(ctx context.Context, page browser.Page, sleeper Sleeper) (out Outcome) {
	start := time.Now()
	out = Outcome{
		Step:   s.Name,
		Action: s.Action,
		Status: StatusOK,
	}
	defer func() { out.Elapsed = time.Since(start) }()

	switch s.Action {
	case ActionWait:
		// Nothing to locate; the settle spec is the whole step.

	case ActionClick, ActionDoubleClick:
		if s.Target == nil {
			out.fail(notFound(s.Name, "step has no target", nil))
			return out
		}
		el, n, err := s.Target.Resolve(ctx, page)
		out.Candidates = n
		if err != nil {
			out.fail(notFound(s.Name, err.Error(), err))
			return out
		}
		if s.Action == ActionDoubleClick {
			err = el.DoubleClick(ctx)
		} else {
			err = el.Click(ctx)
		}
		if err != nil {
			out.fail(actionFailed(s.Name, err))
			return out
		}

	default:
		out.fail(actionFailed(s.Name, fmt.Errorf("unknown action %q", s.Action)))
		return out
	}

	settled, err := s.Settle.Wait(ctx, page, sleeper)
	out.Settled = settled && err == nil
	return out
}

func (o *Outcome) fail(sf *StepFailed) {
	o.Status = StatusFailed
	o.Failure = sf
}
