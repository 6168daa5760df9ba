package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/uiprobe/internal/harness"
)

// ValidationResult is the validation outcome for one scenario file.
type ValidationResult struct {
	Path   string                    `json:"path"`
	Valid  bool                      `json:"valid"`
	Steps  int                       `json:"steps,omitempty"`
	Errors []harness.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <scenario.yaml>...",
		Short: "Check scenario files without opening a browser",
		Long: `Check scenario files against the scenario schema and report every problem
with its line number. Nothing is launched and nothing is written.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	results := make([]ValidationResult, 0, len(paths))
	invalid := 0
	for _, path := range paths {
		formatter.VerboseLog("Validating %s", path)
		res := validateFile(path)
		if !res.Valid {
			invalid++
		}
		results = append(results, res)
	}

	if formatter.IsJSON() {
		if invalid == 0 {
			if err := formatter.Success(results); err != nil {
				return err
			}
			return nil
		}
		if err := formatter.encode(CLIResponse{
			Status: "error",
			Data:   results,
			Error: &CLIError{
				Code:    ErrCodeInvalidScenario,
				Message: fmt.Sprintf("%d of %d scenario(s) invalid", invalid, len(paths)),
			},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) invalid", invalid))
	}

	w := formatter.Writer
	for _, res := range results {
		if res.Valid {
			fmt.Fprintf(w, "✓ %s (%d step(s))\n", res.Path, res.Steps)
			continue
		}
		fmt.Fprintf(w, "✗ %s\n", res.Path)
		for _, ve := range res.Errors {
			if ve.Line > 0 {
				fmt.Fprintf(w, "  line %d: %s: %s: %s\n", ve.Line, ve.Code, ve.Field, ve.Message)
			} else {
				fmt.Fprintf(w, "  %s: %s: %s\n", ve.Code, ve.Field, ve.Message)
			}
		}
	}
	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) invalid", invalid))
	}
	return nil
}

func validateFile(path string) ValidationResult {
	res := ValidationResult{Path: path}
	scenario, err := harness.LoadScenario(path)
	if err == nil {
		res.Valid = true
		res.Steps = len(scenario.Steps)
		return res
	}

	var se *harness.ScenarioError
	if errors.As(err, &se) {
		res.Errors = se.Errors
		return res
	}
	res.Errors = []harness.ValidationError{{Field: "file", Message: err.Error(), Code: ErrCodeGeneric}}
	return res
}
