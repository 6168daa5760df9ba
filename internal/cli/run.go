package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/uiprobe/internal/browser"
	"github.com/roach88/uiprobe/internal/evidence"
	"github.com/roach88/uiprobe/internal/harness"
	"github.com/roach88/uiprobe/internal/journal"
	"github.com/roach88/uiprobe/internal/report"
	"github.com/roach88/uiprobe/internal/session"
	"github.com/roach88/uiprobe/internal/step"
)

// Viewport used when a scenario does not declare one.
const (
	defaultWidth  = 1920
	defaultHeight = 1080
)

// PageLauncher opens the page a scenario runs against.
type PageLauncher func(ctx context.Context, opts browser.Options) (browser.Page, error)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	OutDir        string
	Journal       string
	BaseURL       string
	Headless      bool
	WriteReports  bool
	ChromePath    string
	ActionTimeout time.Duration

	// Launch allows overriding the browser (for testing).
	// If nil, Chrome is started through chromedp.
	Launch PageLauncher

	// Sleeper allows overriding settle waits (for testing).
	Sleeper step.Sleeper

	// IDs allows overriding the run ID generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDs session.IDGenerator

	// Now allows overriding the clock used for journal timestamps.
	Now func() time.Time
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cfg := opts.Config

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run a scenario against a live page",
		Long: `Open the scenario's page in Chrome, perform its steps in order and capture
evidence at each checkpoint.

A step that cannot find or click its element is reported and the run goes
on. Only a failed initial page load stops the run (exit code 1).

Example:
  uiprobe run scenarios/column-front-space.yaml --base-url http://localhost:3000
  uiprobe run scenario.yaml --out ./shots --journal runs.db --report --headless=false`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.OutDir, "out", "o", cfg.OutDir, "directory for screenshots and checkpoint reports")
	cmd.Flags().StringVar(&opts.Journal, "journal", cfg.Journal, "SQLite journal to append the run to")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", cfg.BaseURL, "base URL for relative scenario URLs")
	cmd.Flags().BoolVar(&opts.Headless, "headless", cfg.Headless, "run the browser without a window")
	cmd.Flags().BoolVar(&opts.WriteReports, "report", false, "write a JSON report next to each checkpoint screenshot")
	cmd.Flags().StringVar(&opts.ChromePath, "chrome", cfg.ChromePath, "path to the Chrome binary")
	cmd.Flags().DurationVar(&opts.ActionTimeout, "action-timeout", cfg.ActionTimeout, "timeout for a single locate, click or screenshot")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		var se *harness.ScenarioError
		if errors.As(err, &se) {
			_ = formatter.Error(ErrCodeInvalidScenario, "invalid scenario", se.Errors)
		} else {
			_ = formatter.Error(ErrCodeInvalidScenario, err.Error(), nil)
		}
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	formatter.VerboseLog("Loaded %s: %d step(s), %d checkpoint(s)", scenario.Name, len(scenario.Steps), len(scenario.Checkpoints))

	scenario.URL, err = scenario.ResolveURL(opts.BaseURL)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to resolve scenario URL", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	page, err := opts.launch(ctx, scenario.Viewport)
	if err != nil {
		_ = formatter.Error(ErrCodeBrowser, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to launch browser", err)
	}

	ids := opts.IDs
	if ids == nil {
		ids = session.UUIDv7Generator{}
	}
	sess := session.New(page, ids)
	defer func() {
		if closeErr := sess.Close(); closeErr != nil {
			logger.Error("error closing browser", "error", closeErr)
		}
	}()

	capturer := evidence.NewCapturer(opts.OutDir, logger)
	capturer.WriteReports = opts.WriteReports
	runner := harness.NewRunner(harness.Options{
		Capturer: capturer,
		Sleeper:  opts.Sleeper,
		Logger:   logger,
		OnState: func(s harness.State) {
			logger.Debug("state", "run_id", sess.ID, "state", s)
		},
	})

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	started := now()
	rep, runErr := runner.Run(ctx, sess, scenario)
	finished := now()

	if runErr != nil && rep == nil {
		_ = formatter.Error(ErrCodeNavigation, runErr.Error(), map[string]string{"url": scenario.URL, "run_id": sess.ID})
		return WrapExitError(ExitFailure, "run aborted", runErr)
	}

	if opts.Journal != "" {
		if err := writeJournal(ctx, opts.Journal, journal.Entry{
			Report:     rep,
			Events:     sess.Sink.All(),
			StartedAt:  started,
			FinishedAt: finished,
		}, logger); err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write journal", err)
		}
	}

	if runErr != nil {
		// Cancelled: the partial report is still the evidence.
		if formatter.IsJSON() {
			if err := formatter.encode(CLIResponse{
				Status: "error",
				Data:   rep,
				RunID:  rep.RunID,
				Error: &CLIError{
					Code:    ErrCodeCancelled,
					Message: runErr.Error(),
					Details: map[string]int{"steps_run": len(rep.Steps)},
				},
			}); err != nil {
				return err
			}
		} else {
			if err := report.Render(formatter.Writer, rep); err != nil {
				return err
			}
			_ = formatter.Error(ErrCodeCancelled, fmt.Sprintf("run cancelled after %d step(s): %v", len(rep.Steps), runErr), nil)
		}
		return WrapExitError(ExitFailure, "run cancelled", runErr)
	}

	if formatter.IsJSON() {
		return formatter.SuccessRun(rep.RunID, rep)
	}
	return report.Render(formatter.Writer, rep)
}

// launch opens the page with the scenario's viewport.
func (o *RunOptions) launch(ctx context.Context, vp harness.Viewport) (browser.Page, error) {
	bopts := browser.Options{
		Headless:          o.Headless,
		ExecPath:          o.ChromePath,
		Width:             vp.Width,
		Height:            vp.Height,
		DeviceScaleFactor: vp.Scale,
		ActionTimeout:     o.ActionTimeout,
	}
	if bopts.Width == 0 || bopts.Height == 0 {
		bopts.Width, bopts.Height = defaultWidth, defaultHeight
	}

	if o.Launch != nil {
		return o.Launch(ctx, bopts)
	}
	page, err := browser.Launch(ctx, bopts)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func writeJournal(ctx context.Context, path string, entry journal.Entry, logger *slog.Logger) error {
	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	// The run context may already be cancelled; the journal write should
	// still land.
	if err := j.WriteRun(context.WithoutCancel(ctx), entry); err != nil {
		return fmt.Errorf("journal %s: %w", path, err)
	}
	logger.Info("run journaled", "journal", path, "run_id", entry.Report.RunID, "events", len(entry.Events))
	return nil
}
