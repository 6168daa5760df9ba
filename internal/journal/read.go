package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/uiprobe/internal/telemetry"
)

// Run is the summary row of a journaled run.
type Run struct {
	ID         string    `json:"id"`
	Scenario   string    `json:"scenario"`
	URL        string    `json:"url"`
	State      string    `json:"state"`
	EventCount int       `json:"event_count"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// StepRecord is one journaled step outcome.
type StepRecord struct {
	Index      int           `json:"index"`
	Name       string        `json:"name"`
	Action     string        `json:"action"`
	Status     string        `json:"status"`
	Candidates int           `json:"candidates"`
	ErrorCode  string        `json:"error_code,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	Elapsed    time.Duration `json:"elapsed_ns"`
}

// CaptureRecord is one journaled checkpoint capture.
type CaptureRecord struct {
	Checkpoint     string   `json:"checkpoint"`
	ScreenshotPath string   `json:"screenshot_path,omitempty"`
	Tags           []string `json:"tags"`
	MatchedSeqs    []int64  `json:"matched_seqs"`
	Errors         []string `json:"errors,omitempty"`
	Seq            int64    `json:"seq"`
}

// Runs returns every run, oldest first.
//
// Returns an empty slice (not nil) if the journal has no runs.
func (j *Journal) Runs(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT id, scenario, url, state, event_count, started_at, finished_at
		FROM runs
		ORDER BY started_at ASC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Run returns one run by ID, or ErrRunNotFound.
func (j *Journal) Run(ctx context.Context, id string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, scenario, url, state, event_count, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// LatestRun returns the most recently started run, or ErrRunNotFound if
// the journal is empty.
func (j *Journal) LatestRun(ctx context.Context) (Run, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT id, scenario, url, state, event_count, started_at, finished_at
		FROM runs
		ORDER BY started_at DESC, id COLLATE BINARY DESC
		LIMIT 1
	`)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrRunNotFound
	}
	return r, err
}

// Events returns a run's telemetry in sequence order.
func (j *Journal) Events(ctx context.Context, runID string) ([]telemetry.LogEvent, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT seq, level, text FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []telemetry.LogEvent{}
	for rows.Next() {
		var ev telemetry.LogEvent
		var level string
		if err := rows.Scan(&ev.Seq, &level, &ev.Text); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Level = telemetry.Level(level)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// Steps returns a run's step outcomes in execution order.
func (j *Journal) Steps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT idx, name, action, status, candidates, error_code, reason, elapsed_ns
		FROM steps
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query steps: %w", err)
	}
	defer rows.Close()

	steps := []StepRecord{}
	for rows.Next() {
		var s StepRecord
		var elapsed int64
		if err := rows.Scan(&s.Index, &s.Name, &s.Action, &s.Status, &s.Candidates, &s.ErrorCode, &s.Reason, &elapsed); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		s.Elapsed = time.Duration(elapsed)
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate steps: %w", err)
	}
	return steps, nil
}

// Captures returns a run's checkpoint captures in capture order.
func (j *Journal) Captures(ctx context.Context, runID string) ([]CaptureRecord, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT checkpoint, screenshot_path, tags, matched_seqs, errors, seq
		FROM captures
		WHERE run_id = ?
		ORDER BY ord ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query captures: %w", err)
	}
	defer rows.Close()

	captures := []CaptureRecord{}
	for rows.Next() {
		var c CaptureRecord
		var tags, seqs, errs string
		if err := rows.Scan(&c.Checkpoint, &c.ScreenshotPath, &tags, &seqs, &errs, &c.Seq); err != nil {
			return nil, fmt.Errorf("scan capture: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &c.Tags); err != nil {
			return nil, fmt.Errorf("decode capture tags: %w", err)
		}
		if err := json.Unmarshal([]byte(seqs), &c.MatchedSeqs); err != nil {
			return nil, fmt.Errorf("decode capture matches: %w", err)
		}
		if err := json.Unmarshal([]byte(errs), &c.Errors); err != nil {
			return nil, fmt.Errorf("decode capture errors: %w", err)
		}
		if len(c.Errors) == 0 {
			c.Errors = nil
		}
		captures = append(captures, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate captures: %w", err)
	}
	return captures, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	var started, finished string
	if err := s.Scan(&r.ID, &r.Scenario, &r.URL, &r.State, &r.EventCount, &started, &finished); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	var err error
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, fmt.Errorf("parse started_at: %w", err)
	}
	if r.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return Run{}, fmt.Errorf("parse finished_at: %w", err)
	}
	return r, nil
}
