package step

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/uiprobe/internal/browser"
)

// DefaultTextSelector is searched when a locator matches by text without
// naming a selector.
const DefaultTextSelector = `button, [role="tab"], a, li, span, div`

// Locator selects one element on the page.
//
// Selector narrows the candidates. Text and Attribute/Contains filter them;
// when both are set an element must pass both. Index picks the nth
// surviving candidate.
type Locator struct {
	Selector string `yaml:"selector,omitempty" json:"selector,omitempty"`

	// Text requires the element to be visible and its trimmed rendered text
	// to equal it exactly. Of nested matches only the innermost count.
	Text string `yaml:"text,omitempty" json:"text,omitempty"`

	// Attribute names the attribute Contains is matched against.
	// A missing attribute reads as "".
	Attribute string `yaml:"attribute,omitempty" json:"attribute,omitempty"`

	// Contains lists acceptable substrings of the attribute; any one of them
	// is enough. Empty means the attribute only has to be present.
	Contains []string `yaml:"contains,omitempty" json:"contains,omitempty"`

	// Index is the 0-based position among matching candidates.
	Index int `yaml:"index,omitempty" json:"index,omitempty"`
}

// Validate checks that the locator can select anything at all.
func (l *Locator) Validate() error {
	if l.Selector == "" && l.Text == "" {
		return fmt.Errorf("selector or text is required")
	}
	if len(l.Contains) > 0 && l.Attribute == "" {
		return fmt.Errorf("contains requires attribute")
	}
	if l.Index < 0 {
		return fmt.Errorf("index must be non-negative")
	}
	return nil
}

// String renders the locator for diagnostics.
func (l *Locator) String() string {
	var parts []string
	if l.Selector != "" {
		parts = append(parts, fmt.Sprintf("selector=%q", l.Selector))
	}
	if l.Text != "" {
		parts = append(parts, fmt.Sprintf("text=%q", l.Text))
	}
	if l.Attribute != "" {
		if len(l.Contains) > 0 {
			parts = append(parts, fmt.Sprintf("%s~%q", l.Attribute, l.Contains))
		} else {
			parts = append(parts, fmt.Sprintf("has %s", l.Attribute))
		}
	}
	if l.Index > 0 {
		parts = append(parts, fmt.Sprintf("index=%d", l.Index))
	}
	return strings.Join(parts, " ")
}

// Resolve finds the element the locator points at.
// It returns the element and how many candidates matched.
func (l *Locator) Resolve(ctx context.Context, page browser.Page) (browser.Element, int, error) {
	selector := l.Selector
	if selector == "" {
		selector = DefaultTextSelector
	}

	els, err := page.Locate(ctx, selector)
	if err != nil {
		return nil, 0, err
	}

	var candidates []browser.Element
	for _, el := range els {
		if l.matches(ctx, el) {
			candidates = append(candidates, el)
		}
	}
	if l.Text != "" {
		candidates = innermost(ctx, candidates)
	}

	if len(candidates) == 0 {
		return nil, 0, fmt.Errorf("no element matched %s (%d under selector)", l, len(els))
	}
	if l.Index >= len(candidates) {
		return nil, len(candidates), fmt.Errorf("%d element(s) matched %s, want index %d", len(candidates), l, l.Index)
	}
	return candidates[l.Index], len(candidates), nil
}

func (l *Locator) matches(ctx context.Context, el browser.Element) bool {
	if l.Text != "" {
		if visible, err := el.Visible(ctx); err != nil || !visible {
			return false
		}
		text, err := el.Text(ctx)
		if err != nil || strings.TrimSpace(text) != l.Text {
			return false
		}
	}
	if l.Attribute != "" {
		value, present := el.Attribute(l.Attribute)
		if len(l.Contains) == 0 {
			return present
		}
		value = norm.NFC.String(value)
		for _, alt := range l.Contains {
			if strings.Contains(value, norm.NFC.String(alt)) {
				return true
			}
		}
		return false
	}
	return true
}

// innermost drops every element that contains another element of els, so
// a wrapper whose text equals its child's never shadows the child.
func innermost(ctx context.Context, els []browser.Element) []browser.Element {
	if len(els) < 2 {
		return els
	}
	out := make([]browser.Element, 0, len(els))
	for i, el := range els {
		wrapper := false
		for j, other := range els {
			if i == j {
				continue
			}
			if ok, err := el.Contains(ctx, other); err == nil && ok {
				wrapper = true
				break
			}
		}
		if !wrapper {
			out = append(out, el)
		}
	}
	return out
}
