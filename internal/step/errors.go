package step

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes step failures.
type ErrorCode string

const (
	// ErrCodeElementNotFound indicates the locator matched no element.
	ErrCodeElementNotFound ErrorCode = "ELEMENT_NOT_FOUND"

	// ErrCodeActionFailed indicates the element was found but could not be
	// acted on (covered, detached, timed out).
	ErrCodeActionFailed ErrorCode = "ACTION_FAILED"
)

// StepFailed is the non-fatal failure of one step.
//
// The runner records it and moves on; it never aborts a scenario.
type StepFailed struct {
	Step   string    `json:"step"`
	Code   ErrorCode `json:"code"`
	Reason string    `json:"reason"`

	Err error `json:"-"`
}

// Error implements the error interface.
func (e *StepFailed) Error() string {
	return fmt.Sprintf("%s: %s (step=%s)", e.Code, e.Reason, e.Step)
}

func (e *StepFailed) Unwrap() error {
	return e.Err
}

// IsElementNotFound returns true if err is, or wraps, an element-not-found failure.
func IsElementNotFound(err error) bool {
	var sf *StepFailed
	if errors.As(err, &sf) {
		return sf.Code == ErrCodeElementNotFound
	}
	return false
}

// IsActionFailed returns true if err is, or wraps, an action failure.
func IsActionFailed(err error) bool {
	var sf *StepFailed
	if errors.As(err, &sf) {
		return sf.Code == ErrCodeActionFailed
	}
	return false
}

func notFound(step, reason string, err error) *StepFailed {
	return &StepFailed{Step: step, Code: ErrCodeElementNotFound, Reason: reason, Err: err}
}

func actionFailed(step string, err error) *StepFailed {
	return &StepFailed{Step: step, Code: ErrCodeActionFailed, Reason: err.Error(), Err: err}
}
