// Package query selects telemetry events by tag.
//
// A tag is an opaque substring; the engine never parses the text beyond
// substring search. Both the event text and the tag are NFC-normalized
// before comparison, so precomposed and decomposed Hangul (or accented
// Latin) spellings of the same tag match each other.
//
// Truncation is for display only. Matching always runs against the full
// text, and the returned hits keep the original event untouched alongside
// the truncated Display string.
package query

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/uiprobe/internal/telemetry"
)

// DefaultMaxLen is the display width used when Options.MaxLen is zero.
const DefaultMaxLen = 600

// Options controls how matches are presented.
type Options struct {
	// MaxLen bounds the Display text in characters.
	// Zero means DefaultMaxLen; negative disables truncation.
	MaxLen int

	// Tail keeps only the last N hits of each tag when positive.
	Tail int
}

// Hit is one event selected by at least one tag.
type Hit struct {
	Event   telemetry.LogEvent `json:"event"`
	Display string             `json:"display"`
	Tags    []string           `json:"tags"`
}

// Result is the outcome of a query over a snapshot of events.
type Result struct {
	Tags []string `json:"tags"`

	// Scanned is the number of events the query ran against.
	Scanned int `json:"scanned"`

	Hits []Hit `json:"hits"`
}

// NoTelemetry reports whether the query ran against an empty event list.
func (r *Result) NoTelemetry() bool {
	return r.Scanned == 0
}

// NotObserved reports whether events were captured but none matched.
func (r *Result) NotObserved() bool {
	return r.Scanned > 0 && len(r.Hits) == 0
}

// Events returns the matched events, untruncated, in original order.
func (r *Result) Events() []telemetry.LogEvent {
	out := make([]telemetry.LogEvent, len(r.Hits))
	for i, h := range r.Hits {
		out[i] = h.Event
	}
	return out
}

// ForTag returns the hits selected by tag, in original order.
func (r *Result) ForTag(tag string) []Hit {
	var out []Hit
	for _, h := range r.Hits {
		for _, t := range h.Tags {
			if t == tag {
				out = append(out, h)
				break
			}
		}
	}
	return out
}

// Match returns every event whose text contains at least one of tags.
//
// The result is a subsequence of events: original order, no duplicates
// (an event matching several tags appears once, listing each tag).
// Duplicate tags in the input are ignored.
func Match(events []telemetry.LogEvent, tags []string, opts Options) *Result {
	tags = dedupe(tags)
	result := &Result{
		Tags:    tags,
		Scanned: len(events),
		Hits:    []Hit{},
	}
	if len(tags) == 0 {
		return result
	}

	normTags := make([]string, len(tags))
	for i, tag := range tags {
		normTags[i] = norm.NFC.String(tag)
	}

	maxLen := opts.MaxLen
	if maxLen == 0 {
		maxLen = DefaultMaxLen
	}

	for _, ev := range events {
		text := norm.NFC.String(ev.Text)
		var matched []string
		for i, tag := range normTags {
			if strings.Contains(text, tag) {
				matched = append(matched, tags[i])
			}
		}
		if len(matched) == 0 {
			continue
		}
		result.Hits = append(result.Hits, Hit{
			Event:   ev,
			Display: Truncate(ev.Text, maxLen),
			Tags:    matched,
		})
	}

	if opts.Tail > 0 {
		result.Hits = tailPerTag(result.Hits, tags, opts.Tail)
	}
	return result
}

// tailPerTag keeps the last n hits of each tag. A surviving hit lists only
// the tags it is among the last n of, so ForTag never exceeds n and a tag
// with hits is never left empty.
func tailPerTag(hits []Hit, tags []string, n int) []Hit {
	seen := make(map[string]int, len(tags))
	kept := make([][]string, len(hits))
	for i := len(hits) - 1; i >= 0; i-- {
		for _, tag := range hits[i].Tags {
			if seen[tag] < n {
				seen[tag]++
				kept[i] = append(kept[i], tag)
			}
		}
	}

	out := make([]Hit, 0, len(hits))
	for i, h := range hits {
		if len(kept[i]) == 0 {
			continue
		}
		// kept[i] was filled in hit tag order.
		h.Tags = kept[i]
		out = append(out, h)
	}
	return out
}

// All presents every event as an untagged hit, applying the same display
// and tail rules as Match.
func All(events []telemetry.LogEvent, opts Options) *Result {
	maxLen := opts.MaxLen
	if maxLen == 0 {
		maxLen = DefaultMaxLen
	}
	result := &Result{
		Tags:    []string{},
		Scanned: len(events),
		Hits:    make([]Hit, 0, len(events)),
	}
	for _, ev := range events {
		result.Hits = append(result.Hits, Hit{
			Event:   ev,
			Display: Truncate(ev.Text, maxLen),
			Tags:    []string{},
		})
	}
	if opts.Tail > 0 && len(result.Hits) > opts.Tail {
		result.Hits = result.Hits[len(result.Hits)-opts.Tail:]
	}
	return result
}

// MatchTag is Match for a single tag.
func MatchTag(events []telemetry.LogEvent, tag string, opts Options) *Result {
	return Match(events, []string{tag}, opts)
}

// Truncate returns the first maxLen characters of s.
// A negative maxLen returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen < 0 || utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i]
		}
		n++
	}
	return s
}

func dedupe(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}
