package harness

import (
	"context"
	"log/slog"

	"github.com/roach88/uiprobe/internal/evidence"
	"github.com/roach88/uiprobe/internal/logging"
	"github.com/roach88/uiprobe/internal/session"
	"github.com/roach88/uiprobe/internal/step"
)

// Options configures a Runner.
type Options struct {
	// Capturer writes checkpoint evidence. Required.
	Capturer *evidence.Capturer

	// Sleeper performs settle waits. Defaults to real time.
	Sleeper step.Sleeper

	// Logger receives step progress. Defaults to discarding.
	Logger *slog.Logger

	// OnState, when set, is called on every state transition.
	OnState func(State)
}

// Runner executes scenarios. A Runner holds no per-run state and may run
// several scenarios one after another, each on its own session.
type Runner struct {
	capturer *evidence.Capturer
	sleeper  step.Sleeper
	logger   *slog.Logger
	onState  func(State)
}

// NewRunner creates a runner.
func NewRunner(opts Options) *Runner {
	r := &Runner{
		capturer: opts.Capturer,
		sleeper:  opts.Sleeper,
		logger:   opts.Logger,
		onState:  opts.OnState,
	}
	if r.sleeper == nil {
		r.sleeper = step.RealSleeper{}
	}
	if r.logger == nil {
		r.logger = logging.Discard()
	}
	if r.capturer == nil {
		r.capturer = evidence.NewCapturer("", r.logger)
	}
	return r
}

// run carries the state of one scenario execution.
type run struct {
	*Runner
	ctx      context.Context
	sess     *session.Session
	scenario *Scenario
	report   *Report
}

// Run executes scenario on sess.
//
// Navigation failure is fatal: Run returns a *NavigationError and no
// report. Step failures never are. If ctx is cancelled, Run stops before
// the next step and returns the partial report in StateCancelled together
// with ctx.Err(); evidence already written stays on disk.
func (r *Runner) Run(ctx context.Context, sess *session.Session, scenario *Scenario) (*Report, error) {
	x := &run{
		Runner:   r,
		ctx:      ctx,
		sess:     sess,
		scenario: scenario,
		report:   newReport(scenario, sess.ID),
	}
	x.transition(StateRunning)

	logger := r.logger.With("scenario", scenario.Name, "run_id", sess.ID)
	logger.Info("navigating", "url", scenario.URL, "timeout", scenario.Timeout())
	if err := sess.Page.Navigate(ctx, scenario.URL, scenario.Timeout()); err != nil {
		logger.Error("navigation failed", "url", scenario.URL, "error", err)
		return nil, &NavigationError{URL: scenario.URL, Err: err}
	}

	if scenario.SettleAfterLoad > 0 {
		if err := r.sleeper.Sleep(ctx, scenario.SettleAfterLoad); err != nil {
			return x.cancel(logger)
		}
	}
	x.checkpoints(0)

	for i := range scenario.Steps {
		if ctx.Err() != nil {
			return x.cancel(logger)
		}

		st := &scenario.Steps[i]
		out := st.Execute(ctx, sess.Page, r.sleeper)
		out.Index = i + 1
		x.report.Steps = append(x.report.Steps, out)

		if out.Failed() {
			logger.Warn("step failed",
				"index", out.Index,
				"step", st.Name,
				"code", out.Failure.Code,
				"reason", out.Failure.Reason,
			)
		} else {
			logger.Info("step done",
				"index", out.Index,
				"step", st.Name,
				"action", st.Action,
				"candidates", out.Candidates,
				"settled", out.Settled,
				"elapsed", out.Elapsed,
			)
		}

		if ctx.Err() != nil {
			return x.cancel(logger)
		}
		x.checkpoints(i + 1)
	}

	x.report.EventCount = sess.Sink.Len()
	x.transition(StateCompleted)
	logger.Info("scenario completed",
		"steps", len(x.report.Steps),
		"failed", len(x.report.FailedSteps()),
		"captures", len(x.report.Captures),
		"events", x.report.EventCount,
	)
	return x.report, nil
}

// checkpoints captures every checkpoint declared after n steps.
func (x *run) checkpoints(n int) {
	for _, cp := range x.scenario.CheckpointsAfter(n) {
		x.transition(StateCapturing)
		res := x.capturer.Capture(x.ctx, x.sess, cp.Spec())
		x.report.Captures = append(x.report.Captures, res)

		path, err := x.capturer.PersistReport(x.scenario.Name, x.sess.ID, res)
		if err != nil {
			x.logger.Warn("checkpoint report not written", "checkpoint", cp.Name, "error", err)
		} else if path != "" {
			x.report.ReportPaths = append(x.report.ReportPaths, path)
		}
		x.transition(StateRunning)
	}
}

func (x *run) cancel(logger *slog.Logger) (*Report, error) {
	x.report.EventCount = x.sess.Sink.Len()
	x.transition(StateCancelled)
	logger.Warn("scenario cancelled", "steps_run", len(x.report.Steps), "error", x.ctx.Err())
	return x.report, x.ctx.Err()
}

func (x *run) transition(s State) {
	x.report.State = s
	x.report.Transitions = append(x.report.Transitions, s)
	if x.onState != nil {
		x.onState(s)
	}
}
