package telemetry

import "sync"

// Sink holds every event recorded during one session, in emission order.
// There is no removal operation.
type Sink struct {
	mu     sync.Mutex
	seq    int64
	events []LogEvent
}

// NewSink creates an empty sink. The first recorded event gets Seq 1.
func NewSink() *Sink {
	return &Sink{}
}

// Record appends an event with the next sequence number and returns it.
//
// The sequence number is taken while holding the lock so that concurrent
// callers can never append out of sequence order.
func (s *Sink) Record(level Level, text string) LogEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	ev := LogEvent{
		Seq:   s.seq,
		Level: level,
		Text:  text,
	}
	s.events = append(s.events, ev)
	return ev
}

// All returns a copy of every recorded event in order.
func (s *Sink) All() []LogEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]LogEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Since returns a copy of the events with Seq greater than seq.
func (s *Sink) Since(seq int64) []LogEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Seq starts at 1 and has no gaps, so it doubles as an index.
	if seq < 0 {
		seq = 0
	}
	if seq >= int64(len(s.events)) {
		return []LogEvent{}
	}
	out := make([]LogEvent, len(s.events)-int(seq))
	copy(out, s.events[seq:])
	return out
}

// Len returns the number of recorded events.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
