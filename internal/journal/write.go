package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/uiprobe/internal/harness"
	"github.com/roach88/uiprobe/internal/telemetry"
)

// Entry is everything recorded about one finished run.
type Entry struct {
	Report     *harness.Report
	Events     []telemetry.LogEvent
	StartedAt  time.Time
	FinishedAt time.Time
}

// WriteRun appends a run in one transaction. Writing the same run ID twice
// is a no-op for rows that already exist.
func (j *Journal) WriteRun(ctx context.Context, e Entry) error {
	r := e.Report
	if r == nil {
		return fmt.Errorf("write run: nil report")
	}

	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, url, state, event_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.RunID,
		r.Scenario,
		r.URL,
		string(r.State),
		r.EventCount,
		formatTime(e.StartedAt),
		formatTime(e.FinishedAt),
	); err != nil {
		return fmt.Errorf("write run: %w", err)
	}

	for _, o := range r.Steps {
		var code, reason string
		if o.Failure != nil {
			code, reason = string(o.Failure.Code), o.Failure.Reason
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO steps (run_id, idx, name, action, status, candidates, error_code, reason, elapsed_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, r.RunID, o.Index, o.Step, string(o.Action), string(o.Status), o.Candidates, code, reason, int64(o.Elapsed)); err != nil {
			return fmt.Errorf("write step %d: %w", o.Index, err)
		}
	}

	for _, ev := range e.Events {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO events (run_id, seq, level, text)
			VALUES (?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, r.RunID, ev.Seq, string(ev.Level), ev.Text); err != nil {
			return fmt.Errorf("write event %d: %w", ev.Seq, err)
		}
	}

	for i, c := range r.Captures {
		var tags []string
		seqs := []int64{}
		if c.Matched != nil {
			tags = c.Matched.Tags
			for _, h := range c.Matched.Hits {
				seqs = append(seqs, h.Event.Seq)
			}
		}
		tagsJSON, err := marshalList(tags)
		if err != nil {
			return fmt.Errorf("write capture %q: %w", c.Checkpoint, err)
		}
		seqsJSON, err := json.Marshal(seqs)
		if err != nil {
			return fmt.Errorf("write capture %q: %w", c.Checkpoint, err)
		}
		errsJSON, err := marshalList(c.Errors)
		if err != nil {
			return fmt.Errorf("write capture %q: %w", c.Checkpoint, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO captures (run_id, ord, checkpoint, screenshot_path, tags, matched_seqs, errors, seq)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, r.RunID, i, c.Checkpoint, c.ScreenshotPath, tagsJSON, string(seqsJSON), errsJSON, c.Seq); err != nil {
			return fmt.Errorf("write capture %q: %w", c.Checkpoint, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write run: commit: %w", err)
	}
	return nil
}

func marshalList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
