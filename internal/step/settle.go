package step

import (
	"context"
	"time"

	"github.com/roach88/uiprobe/internal/browser"
)

// Settle defaults for condition-based waits.
const (
	DefaultSettleTimeout = 5 * time.Second
	DefaultSettlePoll    = 250 * time.Millisecond
)

// Sleeper suspends the caller. It returns early with ctx's error when ctx
// is cancelled.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealSleeper sleeps on the wall clock.
type RealSleeper struct{}

// Sleep implements Sleeper.
func (RealSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Settle describes how long to wait after an action for the UI to catch up.
//
// With only Duration set this is a fixed sleep. With Stable set, the
// element count under that selector is polled until two consecutive polls
// agree; if that does not happen within Timeout, Duration is slept as a
// fallback.
type Settle struct {
	Duration time.Duration `yaml:"duration,omitempty" json:"duration,omitempty"`
	Stable   string        `yaml:"stable,omitempty" json:"stable,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Poll     time.Duration `yaml:"poll,omitempty" json:"poll,omitempty"`
}

// Wait blocks until the page is considered settled.
// It reports whether the stability condition was met (always true for a
// fixed sleep) and returns an error only when ctx was cancelled.
func (s Settle) Wait(ctx context.Context, page browser.Page, sleeper Sleeper) (bool, error) {
	if s.Stable == "" {
		return true, sleeper.Sleep(ctx, s.Duration)
	}

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultSettleTimeout
	}
	poll := s.Poll
	if poll <= 0 {
		poll = DefaultSettlePoll
	}

	prev := -1
	for waited := time.Duration(0); waited <= timeout; waited += poll {
		els, err := page.Locate(ctx, s.Stable)
		if err == nil {
			if len(els) == prev {
				return true, nil
			}
			prev = len(els)
		}
		if err := sleeper.Sleep(ctx, poll); err != nil {
			return false, err
		}
	}

	return false, sleeper.Sleep(ctx, s.Duration)
}
