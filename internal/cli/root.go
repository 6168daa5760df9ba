package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/uiprobe/internal/config"
	"github.com/roach88/uiprobe/internal/logging"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"

	// Config holds environment defaults; flags override them.
	Config config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the uiprobe CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{Config: config.Load()}

	cmd := &cobra.Command{
		Use:   "uiprobe",
		Short: "uiprobe - scripted UI diagnostics",
		Long: `Drive a live web UI through a scripted scenario, capture its console
telemetry, and write screenshots and tag-filtered logs for a human to inspect.

uiprobe never decides pass or fail: failed steps are reported and the run
continues, so the evidence shows how far the UI got.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewLogsCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// newFormatter builds the formatter every command writes through.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// newLogger returns the command logger: stderr, JSON when output is JSON,
// Debug when verbose.
func newLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	level := logging.ParseLevel(opts.Config.LogLevel)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	return logging.New(cmd.ErrOrStderr(), opts.Format == "json", level)
}
