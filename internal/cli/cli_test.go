package cli

import (
	"bytes"
	"context"
	"time"

	"github.com/roach88/uiprobe/internal/browser"
	"github.com/roach88/uiprobe/internal/browser/browsertest"
	"github.com/roach88/uiprobe/internal/testutil"
)

// smokePage answers testdata/smoke.yaml: #go logs a filter line, #missing
// does not exist.
func smokePage() *browsertest.Page {
	page := browsertest.NewPage()
	page.OnNavigate = func(p *browsertest.Page) {
		p.Emit("log", "boot")
	}
	page.Add("#go", &browsertest.Element{OnClick: func(p *browsertest.Page) {
		p.Emit("warning", "Front Space filter: slot=2")
	}})
	return page
}

// newTestRun builds a run command whose browser, sleeps, run IDs and clock
// are fakes.
func newTestRun(format string, page *browsertest.Page) (*RunOptions, *bytes.Buffer, *bytes.Buffer) {
	opts := &RunOptions{
		RootOptions: &RootOptions{Format: format},
		Launch: func(ctx context.Context, bopts browser.Options) (browser.Page, error) {
			return page, nil
		},
		Sleeper: testutil.NewRecordingSleeper(),
		IDs:     testutil.NewFixedIDGenerator("cli-run-1"),
		Now: func() time.Time {
			return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
		},
	}
	return opts, &bytes.Buffer{}, &bytes.Buffer{}
}
