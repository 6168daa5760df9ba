package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/uiprobe/internal/journal"
	"github.com/roach88/uiprobe/internal/query"
)

// LogsOptions holds flags for the logs command.
type LogsOptions struct {
	*RootOptions
	Journal string
	RunID   string
	Tags    []string
	MaxLen  int
	Tail    int
	List    bool
}

// LogsResult is the JSON payload of the logs command.
type LogsResult struct {
	Run    journal.Run   `json:"run"`
	Result *query.Result `json:"result"`
}

// NewLogsCommand creates the logs command.
func NewLogsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Query telemetry of a journaled run",
		Long: `Re-query the console telemetry of a run recorded with --journal, without
driving the browser again. Without --run the latest run is used. Without
--tag every event is printed.

Example:
  uiprobe logs --journal runs.db --tag "Front Space Filter" --tag columnsCount
  uiprobe logs --journal runs.db --run 0192... --tag "spaceInfo 기둥 정보" --tail 3
  uiprobe logs --journal runs.db --list`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogs(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", rootOpts.Config.Journal, "SQLite journal to read (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID (default: latest run)")
	cmd.Flags().StringArrayVarP(&opts.Tags, "tag", "t", nil, "tag to match (repeatable)")
	cmd.Flags().IntVar(&opts.MaxLen, "max-len", query.DefaultMaxLen, "display width per event (negative: unlimited)")
	cmd.Flags().IntVar(&opts.Tail, "tail", 0, "show only the last N matches of each tag")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list journaled runs instead of events")

	return cmd
}

func runLogs(opts *LogsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Journal == "" {
		_ = formatter.Error(ErrCodeJournal, "--journal is required", nil)
		return NewExitError(ExitCommandError, "--journal is required")
	}
	if opts.Tail < 0 {
		_ = formatter.Error(ErrCodeGeneric, "--tail must be non-negative", nil)
		return NewExitError(ExitCommandError, "--tail must be non-negative")
	}

	j, err := journal.Open(opts.Journal)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.List {
		return listRuns(ctx, j, formatter)
	}

	run, err := findRun(ctx, j, opts.RunID)
	if err != nil {
		code := ErrCodeJournal
		if errors.Is(err, journal.ErrRunNotFound) {
			code = ErrCodeRunNotFound
		}
		_ = formatter.Error(code, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to find run", err)
	}
	formatter.VerboseLog("Run %s (%s), %d event(s)", run.ID, run.Scenario, run.EventCount)

	events, err := j.Events(ctx, run.ID)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	qopts := query.Options{MaxLen: opts.MaxLen, Tail: opts.Tail}
	if len(opts.Tags) == 0 {
		result := query.All(events, qopts)
		if formatter.IsJSON() {
			return formatter.SuccessRun(run.ID, LogsResult{Run: run, Result: result})
		}
		w := formatter.Writer
		fmt.Fprintf(w, "run %s  %s  %s\n", run.ID, run.Scenario, run.State)
		if result.NoTelemetry() {
			fmt.Fprintln(w, "(no telemetry captured)")
		}
		for _, h := range result.Hits {
			fmt.Fprintf(w, "#%d %s %s\n", h.Event.Seq, h.Event.Level, h.Display)
		}
		return nil
	}

	result := query.Match(events, opts.Tags, qopts)
	if formatter.IsJSON() {
		return formatter.SuccessRun(run.ID, LogsResult{Run: run, Result: result})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "run %s  %s  %s\n", run.ID, run.Scenario, run.State)
	if result.NoTelemetry() {
		fmt.Fprintln(w, "(no telemetry captured)")
		return nil
	}
	for _, tag := range result.Tags {
		fmt.Fprintf(w, "=== %s ===\n", tag)
		hits := result.ForTag(tag)
		if len(hits) == 0 {
			fmt.Fprintln(w, "(not observed)")
			continue
		}
		for _, h := range hits {
			fmt.Fprintf(w, "#%d %s %s\n", h.Event.Seq, h.Event.Level, h.Display)
		}
	}
	return nil
}

func findRun(ctx context.Context, j *journal.Journal, id string) (journal.Run, error) {
	if id == "" {
		return j.LatestRun(ctx)
	}
	return j.Run(ctx, id)
}

func listRuns(ctx context.Context, j *journal.Journal, formatter *OutputFormatter) error {
	runs, err := j.Runs(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if formatter.IsJSON() {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "(no runs)")
		return nil
	}
	for _, r := range runs {
		fmt.Fprintf(formatter.Writer, "%s  %s  %-9s  %d event(s)  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.State, r.EventCount, r.Scenario)
	}
	return nil
}
