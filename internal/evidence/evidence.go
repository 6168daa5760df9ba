// Package evidence records what a human needs to inspect at a checkpoint:
// a screenshot written to a predictable path and a filtered slice of the
// session's telemetry.
//
// Paths depend only on the output directory and the checkpoint name, so a
// repeated run overwrites the previous run's files instead of piling up new
// ones. A failed screenshot degrades the result rather than failing the run.
package evidence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/roach88/uiprobe/internal/logging"
	"github.com/roach88/uiprobe/internal/query"
	"github.com/roach88/uiprobe/internal/session"
)

// Spec declares what to capture at one checkpoint.
type Spec struct {
	Name       string
	Tags       []string
	Screenshot bool
	FullPage   bool
	MaxLen     int
	Tail       int
}

// CaptureResult is the evidence recorded for one checkpoint.
// It is never modified after Capture returns it.
type CaptureResult struct {
	Checkpoint string `json:"checkpoint"`

	// ScreenshotPath is empty when no screenshot was requested or the
	// capture failed.
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	// Matched is nil when no tags were requested.
	Matched *query.Result `json:"matched,omitempty"`

	// Seq is the sink position at capture time: telemetry up to and
	// including this sequence number was visible to the query.
	Seq int64 `json:"seq"`

	// Errors lists degradations (for example a failed screenshot write).
	Errors []string `json:"errors,omitempty"`
}

// Degraded reports whether part of the capture failed.
func (r *CaptureResult) Degraded() bool {
	return len(r.Errors) > 0
}

// Capturer writes checkpoint evidence under Dir.
type Capturer struct {
	Dir string

	// WriteReports additionally persists a JSON report per checkpoint.
	WriteReports bool

	Logger *slog.Logger

	// Now stamps persisted reports. Defaults to time.Now.
	Now func() time.Time
}

// NewCapturer creates a capturer writing into dir.
func NewCapturer(dir string, logger *slog.Logger) *Capturer {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Capturer{Dir: dir, Logger: logger, Now: time.Now}
}

// Capture records the evidence spec asks for.
func (c *Capturer) Capture(ctx context.Context, sess *session.Session, spec Spec) CaptureResult {
	result := CaptureResult{Checkpoint: spec.Name}

	if spec.Screenshot {
		path, err := c.screenshot(ctx, sess, spec)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("screenshot: %v", err))
			c.Logger.Warn("screenshot failed", "checkpoint", spec.Name, "error", err)
		} else {
			result.ScreenshotPath = path
			c.Logger.Info("screenshot saved", "checkpoint", spec.Name, "path", path)
		}
	}

	// Snapshot after the screenshot so the logs cover at least what the
	// picture shows.
	events := sess.Sink.All()
	if n := len(events); n > 0 {
		result.Seq = events[n-1].Seq
	}
	if len(spec.Tags) > 0 {
		result.Matched = query.Match(events, spec.Tags, query.Options{MaxLen: spec.MaxLen, Tail: spec.Tail})
		c.Logger.Debug("telemetry snapshot",
			"checkpoint", spec.Name,
			"events", len(events),
			"matched", len(result.Matched.Hits),
		)
	}

	return result
}

func (c *Capturer) screenshot(ctx context.Context, sess *session.Session, spec Spec) (string, error) {
	buf, err := sess.Page.Screenshot(ctx, spec.FullPage)
	if err != nil {
		return "", err
	}
	path := ScreenshotPath(c.Dir, spec.Name)
	if err := writeFile(path, buf); err != nil {
		return "", err
	}
	return path, nil
}

// Report is the persisted form of one checkpoint.
type Report struct {
	Scenario  string        `json:"scenario"`
	RunID     string        `json:"run_id"`
	Timestamp string        `json:"timestamp"`
	Result    CaptureResult `json:"result"`
}

// PersistReport writes result as <dir>/<slug>-report.json and returns the
// path. It is a no-op returning "" unless WriteReports is set.
func (c *Capturer) PersistReport(scenario, runID string, result CaptureResult) (string, error) {
	if !c.WriteReports {
		return "", nil
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	data, err := json.MarshalIndent(Report{
		Scenario:  scenario,
		RunID:     runID,
		Timestamp: now().UTC().Format(time.RFC3339),
		Result:    result,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	path := ReportPath(c.Dir, result.Checkpoint)
	if err := writeFile(path, append(data, '\n')); err != nil {
		return "", err
	}
	return path, nil
}

// ScreenshotPath returns where the screenshot for checkpoint is written.
func ScreenshotPath(dir, checkpoint string) string {
	return filepath.Join(dir, Slug(checkpoint)+".png")
}

// ReportPath returns where the JSON report for checkpoint is written.
func ReportPath(dir, checkpoint string) string {
	return filepath.Join(dir, Slug(checkpoint)+"-report.json")
}

// Slug turns a checkpoint name into a file name: letters (any script) and
// digits are lowercased and kept, '_' is kept, every other run of
// characters becomes a single '-'.
func Slug(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			b.WriteRune(unicode.ToLower(r))
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "checkpoint"
	}
	return slug
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
