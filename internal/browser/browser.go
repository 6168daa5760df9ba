// Package browser defines the capabilities the harness needs from a browser
// page, and a chromedp-backed implementation of them.
//
// The harness only ever talks to Page and Element. Anything beyond this set
// (tabs, cookies, network interception) is out of reach on purpose so that a
// scripted fake (see browsertest) can stand in for a real browser in tests.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrNavigationTimeout is returned by Navigate when the page did not load
// within the requested timeout.
var ErrNavigationTimeout = errors.New("navigation timed out")

// ConsoleHandler receives one console message. Level is the raw console API
// type reported by the page ("log", "warning", "error", ...).
//
// Handlers are called from the browser's event goroutine and must not block.
type ConsoleHandler func(level, text string)

// Page is one live browser page.
type Page interface {
	// Navigate loads url and waits for it, giving up after timeout.
	Navigate(ctx context.Context, url string, timeout time.Duration) error

	// Locate returns every element matching the CSS selector, in document
	// order. Zero matches is not an error.
	Locate(ctx context.Context, selector string) ([]Element, error)

	// Screenshot returns PNG bytes of the viewport, or of the whole page
	// when fullPage is true.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	// OnConsole subscribes fn to console output.
	OnConsole(fn ConsoleHandler)

	Close() error
}

// Element is a handle to one DOM element.
type Element interface {
	Click(ctx context.Context) error
	DoubleClick(ctx context.Context) error

	// Attribute returns the attribute value and whether it was present.
	Attribute(name string) (string, bool)

	// Text returns the element's rendered text (innerText).
	Text(ctx context.Context) (string, error)

	// Visible reports whether the element is rendered with a non-empty box.
	Visible(ctx context.Context) (bool, error)

	// Contains reports whether other is a descendant of this element.
	Contains(ctx context.Context, other Element) (bool, error)
}

