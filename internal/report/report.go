// Package report renders a run for a human reading a terminal.
//
// Styling is decided by the writer: a terminal gets colour, anything else
// (files, pipes, test buffers) gets plain text with identical layout.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/roach88/uiprobe/internal/evidence"
	"github.com/roach88/uiprobe/internal/harness"
	"github.com/roach88/uiprobe/internal/step"
)

type styles struct {
	title lipgloss.Style
	ok    lipgloss.Style
	fail  lipgloss.Style
	warn  lipgloss.Style
	dim   lipgloss.Style
	tag   lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title: r.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
		ok:    r.NewStyle().Foreground(lipgloss.Color("42")),
		fail:  r.NewStyle().Foreground(lipgloss.Color("196")),
		warn:  r.NewStyle().Foreground(lipgloss.Color("214")),
		dim:   r.NewStyle().Foreground(lipgloss.Color("245")),
		tag:   r.NewStyle().Bold(true),
	}
}

// Render writes the report for r to w.
func Render(w io.Writer, r *harness.Report) error {
	s := newStyles(w)
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", s.title.Render("Scenario"), r.Scenario)
	fmt.Fprintf(&b, "%s\n", s.dim.Render(fmt.Sprintf("run %s  url %s", r.RunID, r.URL)))

	b.WriteString("\n")
	b.WriteString(s.title.Render("Steps"))
	b.WriteString("\n")
	if len(r.Steps) == 0 {
		fmt.Fprintf(&b, "  %s\n", s.dim.Render("(no steps run)"))
	}
	for _, o := range r.Steps {
		writeStep(&b, s, o)
	}

	for _, c := range r.Captures {
		b.WriteString("\n")
		writeCapture(&b, s, c)
	}

	b.WriteString("\n")
	failed := len(r.FailedSteps())
	summary := fmt.Sprintf("%s: %d step(s), %d failed, %d checkpoint(s), %d event(s)",
		r.State, len(r.Steps), failed, len(r.Captures), r.EventCount)
	if failed > 0 || r.State == harness.StateCancelled {
		b.WriteString(s.warn.Render(summary))
	} else {
		b.WriteString(s.ok.Render(summary))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func writeStep(b *strings.Builder, s styles, o step.Outcome) {
	elapsed := s.dim.Render(fmt.Sprintf("(%s)", o.Elapsed.Round(time.Millisecond)))
	if o.Failed() {
		fmt.Fprintf(b, "  %s %d. %s [%s] %s\n", s.fail.Render("✗"), o.Index, o.Step, o.Action, elapsed)
		fmt.Fprintf(b, "      %s %s\n", s.fail.Render(string(o.Failure.Code)), o.Failure.Reason)
		return
	}
	note := ""
	if !o.Settled {
		note = " " + s.warn.Render("not settled")
	}
	fmt.Fprintf(b, "  %s %d. %s [%s] %s%s\n", s.ok.Render("✓"), o.Index, o.Step, o.Action, elapsed, note)
}

func writeCapture(b *strings.Builder, s styles, c evidence.CaptureResult) {
	fmt.Fprintf(b, "%s %s\n", s.title.Render("Checkpoint"), c.Checkpoint)
	if c.ScreenshotPath != "" {
		fmt.Fprintf(b, "  screenshot: %s\n", c.ScreenshotPath)
	}
	for _, e := range c.Errors {
		fmt.Fprintf(b, "  %s %s\n", s.warn.Render("degraded:"), e)
	}

	m := c.Matched
	if m == nil {
		return
	}
	if m.NoTelemetry() {
		fmt.Fprintf(b, "  %s\n", s.dim.Render("(no telemetry captured)"))
		return
	}
	for _, tag := range m.Tags {
		fmt.Fprintf(b, "  %s\n", s.tag.Render("=== "+tag+" ==="))
		hits := m.ForTag(tag)
		if len(hits) == 0 {
			fmt.Fprintf(b, "  %s\n", s.dim.Render("(not observed)"))
			continue
		}
		for _, h := range hits {
			fmt.Fprintf(b, "  %s %s\n", s.dim.Render(fmt.Sprintf("#%d %s", h.Event.Seq, h.Event.Level)), h.Display)
		}
	}
}
