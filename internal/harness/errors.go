package harness

import (
	"errors"
	"fmt"
	"strings"
)

// Validation error codes (E100-E199)
const (
	ErrSchemaViolation     = "E101" // document does not satisfy the schema
	ErrInvalidStep         = "E102" // step definition is inconsistent
	ErrCheckpointRange     = "E103" // checkpoint after is beyond the last step
	ErrCheckpointDuplicate = "E104" // two checkpoints write the same files
	ErrInvalidURL          = "E105" // url cannot be parsed or resolved
)

// ValidationError is one problem found in a scenario file.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// ScenarioError reports every validation error in one scenario file.
type ScenarioError struct {
	Path   string
	Errors []ValidationError
}

func (e *ScenarioError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ve := range e.Errors {
		msgs[i] = ve.Error()
	}
	return fmt.Sprintf("invalid scenario %s: %s", e.Path, strings.Join(msgs, "; "))
}

// IsScenarioError returns true if err is, or wraps, a ScenarioError.
func IsScenarioError(err error) bool {
	var se *ScenarioError
	return errors.As(err, &se)
}

// NavigationError is the fatal failure to load the scenario's page.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// IsNavigationError returns true if err is, or wraps, a NavigationError.
func IsNavigationError(err error) bool {
	var ne *NavigationError
	return errors.As(err, &ne)
}
