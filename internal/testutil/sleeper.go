// Package testutil provides deterministic stand-ins for wall-clock waits and
// run identifiers so harness tests run instantly and reproducibly.
package testutil

import (
	"context"
	"sync"
	"time"
)

// RecordingSleeper implements step.Sleeper on virtual time.
//
// Sleep never blocks; it records the requested duration and advances the
// virtual clock. An optional hook runs on every call, which lets a test
// emit console lines "while" the runner waits.
//
// Thread-safety: all methods are safe for concurrent use.
type RecordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
	now    time.Duration

	// OnSleep runs after each recorded sleep with the call's 1-based ordinal.
	OnSleep func(call int, d time.Duration)
}

// NewRecordingSleeper creates a sleeper at virtual time 0.
func NewRecordingSleeper() *RecordingSleeper {
	return &RecordingSleeper{}
}

// Sleep records d and returns immediately, or returns ctx's error if ctx is
// already done.
func (s *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	if d > 0 {
		s.now += d
	}
	call := len(s.sleeps)
	hook := s.OnSleep
	s.mu.Unlock()

	if hook != nil {
		hook(call, d)
	}
	return nil
}

// Sleeps returns every requested duration in call order.
func (s *RecordingSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.sleeps...)
}

// Elapsed returns the total virtual time slept.
func (s *RecordingSleeper) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// Reset clears recorded sleeps and rewinds virtual time to 0.
func (s *RecordingSleeper) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = nil
	s.now = 0
}
