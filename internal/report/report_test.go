package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/uiprobe/internal/evidence"
	"github.com/roach88/uiprobe/internal/harness"
	"github.com/roach88/uiprobe/internal/query"
	"github.com/roach88/uiprobe/internal/step"
	"github.com/roach88/uiprobe/internal/telemetry"
)

func events() []telemetry.LogEvent {
	return []telemetry.LogEvent{
		{Seq: 1, Level: telemetry.LevelLog, Text: "app ready"},
		{Seq: 2, Level: telemetry.LevelLog, Text: "🏗️ spaceInfo 기둥 정보: columnsCount=1"},
		{Seq: 3, Level: telemetry.LevelWarn, Text: "Front Space Filter: slot=2 width=600 depth=580"},
	}
}

func sampleReport() *harness.Report {
	evs := events()
	return &harness.Report{
		Scenario: "column-front-space",
		RunID:    "test-run-1",
		URL:      "http://localhost:3000/configurator",
		State:    harness.StateCompleted,
		Steps: []step.Outcome{
			{Index: 1, Step: "open columns tab", Action: step.ActionClick, Status: step.StatusOK, Candidates: 1, Settled: true, Elapsed: 1002 * time.Millisecond},
			{Index: 2, Step: "place column", Action: step.ActionDoubleClick, Status: step.StatusFailed, Elapsed: 15 * time.Millisecond, Failure: &step.StepFailed{
				Step:   "place column",
				Code:   step.ErrCodeElementNotFound,
				Reason: `no element matched selector="[draggable=\"true\"]" title~["Column C" "300×300"] (2 under selector)`,
			}},
			{Index: 3, Step: "pick first module", Action: step.ActionClick, Status: step.StatusOK, Candidates: 3, Settled: false, Elapsed: 5 * time.Second},
		},
		Captures: []evidence.CaptureResult{
			{
				Checkpoint:     "after column",
				ScreenshotPath: "out/after-column.png",
				Matched:        query.Match(evs, []string{"기둥 정보", "Front Space Debug"}, query.Options{}),
				Seq:            3,
			},
			{
				Checkpoint: "final",
				Errors:     []string{"screenshot: target closed"},
				Matched:    query.Match(evs, []string{"Front Space Filter"}, query.Options{MaxLen: 26}),
				Seq:        3,
			},
		},
		EventCount: 3,
	}
}

func TestRender_Golden(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "report", buf.Bytes())
}

func TestRender_NoTelemetry(t *testing.T) {
	r := &harness.Report{
		Scenario: "empty",
		RunID:    "r",
		State:    harness.StateCompleted,
		Captures: []evidence.CaptureResult{{
			Checkpoint: "start",
			Matched:    query.Match(nil, []string{"columnsCount"}, query.Options{}),
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r))

	out := buf.String()
	assert.Contains(t, out, "(no steps run)")
	assert.Contains(t, out, "(no telemetry captured)")
	assert.NotContains(t, out, "=== columnsCount ===")
}

func TestRender_Cancelled(t *testing.T) {
	r := &harness.Report{Scenario: "x", RunID: "r", State: harness.StateCancelled}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r))
	assert.Contains(t, buf.String(), "cancelled: 0 step(s)")
}

func TestRender_PlainOutputForNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, sampleReport()))
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestRender_TailKeepsEveryObservedTag(t *testing.T) {
	evs := []telemetry.LogEvent{
		{Seq: 1, Level: telemetry.LevelLog, Text: "columnsCount=1"},
		{Seq: 2, Level: telemetry.LevelLog, Text: "Front Space Filter: slot=2"},
	}
	r := &harness.Report{
		Scenario: "tail",
		RunID:    "r",
		State:    harness.StateCompleted,
		Captures: []evidence.CaptureResult{{
			Checkpoint: "end",
			Matched:    query.Match(evs, []string{"columnsCount", "Front Space Filter"}, query.Options{Tail: 1}),
		}},
	}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, r))

	out := buf.String()
	assert.Contains(t, out, "=== columnsCount ===\n  #1 log columnsCount=1")
	assert.Contains(t, out, "=== Front Space Filter ===\n  #2 log Front Space Filter: slot=2")
	assert.NotContains(t, out, "(not observed)")
}
