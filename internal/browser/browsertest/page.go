// Package browsertest provides a scripted in-memory browser.Page.
//
// Elements are registered under the exact selector string the code under
// test will pass to Locate. Click handlers can emit console lines, which is
// how tests simulate an application reacting to UI actions.
package browsertest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/roach88/uiprobe/internal/browser"
)

// PNG is the payload returned by Screenshot.
var PNG = []byte("\x89PNG\r\n\x1a\nfake")

// Page is a fake browser.Page. The zero value is not usable; call NewPage.
type Page struct {
	mu       sync.Mutex
	elements map[string][]*Element
	handlers []browser.ConsoleHandler

	// NavigateErr, when set, is returned by Navigate.
	NavigateErr error
	// LocateErr, when set, is returned by Locate.
	LocateErr error
	// ScreenshotErr, when set, is returned by Screenshot.
	ScreenshotErr error
	// OnNavigate runs after a successful Navigate.
	OnNavigate func(p *Page)

	navigations []string
	locates     []string
	screenshots []bool
	closed      bool
}

// NewPage creates an empty page.
func NewPage() *Page {
	return &Page{elements: make(map[string][]*Element)}
}

// Add registers elements under selector, appending to any already there.
func (p *Page) Add(selector string, els ...*Element) *Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, el := range els {
		el.page = p
	}
	p.elements[selector] = append(p.elements[selector], els...)
	return p
}

// Set replaces the elements registered under selector.
func (p *Page) Set(selector string, els ...*Element) *Page {
	p.mu.Lock()
	delete(p.elements, selector)
	p.mu.Unlock()
	return p.Add(selector, els...)
}

// Emit delivers a console message to every subscriber.
func (p *Page) Emit(level, text string) {
	p.mu.Lock()
	handlers := append([]browser.ConsoleHandler(nil), p.handlers...)
	p.mu.Unlock()
	for _, fn := range handlers {
		fn(level, text)
	}
}

// Navigate implements browser.Page.
func (p *Page) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.NavigateErr != nil {
		return p.NavigateErr
	}
	p.mu.Lock()
	p.navigations = append(p.navigations, url)
	p.mu.Unlock()
	if p.OnNavigate != nil {
		p.OnNavigate(p)
	}
	return nil
}

// Locate implements browser.Page.
func (p *Page) Locate(ctx context.Context, selector string) ([]browser.Element, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.locates = append(p.locates, selector)
	if p.LocateErr != nil {
		return nil, p.LocateErr
	}
	els := p.elements[selector]
	out := make([]browser.Element, len(els))
	for i, el := range els {
		out[i] = el
	}
	return out, nil
}

// Screenshot implements browser.Page.
func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	p.mu.Lock()
	p.screenshots = append(p.screenshots, fullPage)
	p.mu.Unlock()
	return PNG, nil
}

// OnConsole implements browser.Page.
func (p *Page) OnConsole(fn browser.ConsoleHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, fn)
}

// Close implements browser.Page.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("page already closed")
	}
	p.closed = true
	return nil
}

// Navigations returns every URL passed to a successful Navigate.
func (p *Page) Navigations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.navigations...)
}

// Locates returns every selector passed to Locate.
func (p *Page) Locates() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.locates...)
}

// Screenshots returns the fullPage flag of every screenshot taken.
func (p *Page) Screenshots() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.screenshots...)
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Element is a fake browser.Element.
type Element struct {
	page *Page

	Content string
	Attrs   map[string]string

	// Hidden elements report Visible false. Clicking one fails, as it
	// would in a browser.
	Hidden bool

	// Parent makes this element a descendant of another for Contains.
	Parent *Element

	// ClickErr, when set, is returned by Click and DoubleClick.
	ClickErr error
	// TextErr, when set, is returned by Text.
	TextErr error

	OnClick       func(p *Page)
	OnDoubleClick func(p *Page)

	mu           sync.Mutex
	clicks       int
	doubleClicks int
}

// ErrNotVisible is returned when a hidden element is clicked.
var ErrNotVisible = errors.New("element is not visible")

// Click implements browser.Element.
func (e *Element) Click(ctx context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	if e.Hidden {
		return ErrNotVisible
	}
	e.mu.Lock()
	e.clicks++
	e.mu.Unlock()
	if e.OnClick != nil {
		e.OnClick(e.page)
	}
	return nil
}

// DoubleClick implements browser.Element.
func (e *Element) DoubleClick(ctx context.Context) error {
	if e.ClickErr != nil {
		return e.ClickErr
	}
	if e.Hidden {
		return ErrNotVisible
	}
	e.mu.Lock()
	e.doubleClicks++
	e.mu.Unlock()
	if e.OnDoubleClick != nil {
		e.OnDoubleClick(e.page)
	}
	return nil
}

// Attribute implements browser.Element.
func (e *Element) Attribute(name string) (string, bool) {
	v, ok := e.Attrs[name]
	return v, ok
}

// Text implements browser.Element.
func (e *Element) Text(ctx context.Context) (string, error) {
	if e.TextErr != nil {
		return "", e.TextErr
	}
	return e.Content, nil
}

// Visible implements browser.Element.
func (e *Element) Visible(ctx context.Context) (bool, error) {
	return !e.Hidden, nil
}

// Contains implements browser.Element.
func (e *Element) Contains(ctx context.Context, other browser.Element) (bool, error) {
	o, ok := other.(*Element)
	if !ok {
		return false, nil
	}
	for p := o.Parent; p != nil; p = p.Parent {
		if p == e {
			return true, nil
		}
	}
	return false, nil
}

// Clicks returns the number of successful single clicks.
func (e *Element) Clicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clicks
}

// DoubleClicks returns the number of successful double clicks.
func (e *Element) DoubleClicks() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.doubleClicks
}

// Text is a convenience constructor for an element with text content.
func Text(content string) *Element {
	return &Element{Content: content}
}

// Wrap makes outer the parent of each inner element and returns outer.
func Wrap(outer *Element, inner ...*Element) *Element {
	for _, el := range inner {
		el.Parent = outer
	}
	return outer
}

// Titled is a convenience constructor for an element with a title attribute.
func Titled(title string) *Element {
	return &Element{Attrs: map[string]string{"title": title}}
}
