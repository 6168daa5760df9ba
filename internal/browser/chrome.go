package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// DefaultActionTimeout bounds every element action and lookup.
const DefaultActionTimeout = 10 * time.Second

// Options configures a Chrome launch.
type Options struct {
	Headless bool

	// ExecPath overrides the Chrome binary. Empty uses chromedp's lookup.
	ExecPath string

	Width  int
	Height int

	// DeviceScaleFactor > 0 emulates a HiDPI screen for sharper screenshots.
	DeviceScaleFactor float64

	ActionTimeout time.Duration
}

// ChromePage drives a single Chrome tab through the DevTools protocol.
type ChromePage struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	timeout     time.Duration

	mu       sync.Mutex
	handlers []ConsoleHandler
}

// Launch starts Chrome and opens one tab.
// The returned page must be closed to stop the browser.
func Launch(ctx context.Context, opts Options) (*ChromePage, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
	)
	if opts.Width > 0 && opts.Height > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.Width, opts.Height))
	}
	if opts.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	timeout := opts.ActionTimeout
	if timeout <= 0 {
		timeout = DefaultActionTimeout
	}
	p := &ChromePage{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		timeout:     timeout,
	}
	chromedp.ListenTarget(tabCtx, p.handleEvent)

	// An empty Run starts the browser and attaches to the tab.
	if err := chromedp.Run(tabCtx); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	if opts.DeviceScaleFactor > 0 && opts.Width > 0 && opts.Height > 0 {
		err := chromedp.Run(tabCtx, emulation.SetDeviceMetricsOverride(
			int64(opts.Width), int64(opts.Height), opts.DeviceScaleFactor, false,
		))
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("failed to set device metrics: %w", err)
		}
	}
	return p, nil
}

// Navigate implements Page.
func (p *ChromePage) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	runCtx, cancel := p.runContext(ctx, timeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %s after %s", ErrNavigationTimeout, url, timeout)
		}
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// Locate implements Page.
func (p *ChromePage) Locate(ctx context.Context, selector string) ([]Element, error) {
	runCtx, cancel := p.runContext(ctx, p.timeout)
	defer cancel()

	var nodes []*cdp.Node
	err := chromedp.Run(runCtx,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("locate %q: %w", selector, err)
	}

	out := make([]Element, len(nodes))
	for i, n := range nodes {
		out[i] = &chromeElement{page: p, node: n}
	}
	return out, nil
}

// Screenshot implements Page.
func (p *ChromePage) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	runCtx, cancel := p.runContext(ctx, p.timeout)
	defer cancel()

	var buf []byte
	var action chromedp.Action = chromedp.CaptureScreenshot(&buf)
	if fullPage {
		// Quality 100 keeps the PNG encoding.
		action = chromedp.FullScreenshot(&buf, 100)
	}
	if err := chromedp.Run(runCtx, action); err != nil {
		return nil, fmt.Errorf("failed to capture screenshot: %w", err)
	}
	return buf, nil
}

// OnConsole implements Page.
func (p *ChromePage) OnConsole(fn ConsoleHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, fn)
}

// Close stops the tab and the browser process.
func (p *ChromePage) Close() error {
	p.cancel()
	p.allocCancel()
	return nil
}

func (p *ChromePage) handleEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		text := consoleText(ev.Args)
		p.mu.Lock()
		handlers := p.handlers
		p.mu.Unlock()
		for _, fn := range handlers {
			fn(string(ev.Type), text)
		}
	}
}

// runContext derives a chromedp context bounded by timeout that is also
// cancelled when the caller's ctx is.
func (p *ChromePage) runContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(p.ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(p.ctx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

// consoleText joins console arguments the way DevTools prints them:
// strings unquoted, everything else by value or description.
func consoleText(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case arg.Type == runtime.TypeString && len(arg.Value) > 0:
			var s string
			if err := json.Unmarshal([]byte(arg.Value), &s); err == nil {
				parts = append(parts, s)
				continue
			}
			parts = append(parts, string(arg.Value))
		case len(arg.Value) > 0:
			parts = append(parts, string(arg.Value))
		case arg.UnserializableValue != "":
			parts = append(parts, string(arg.UnserializableValue))
		case arg.Description != "":
			parts = append(parts, arg.Description)
		default:
			parts = append(parts, string(arg.Type))
		}
	}
	return strings.Join(parts, " ")
}

type chromeElement struct {
	page *ChromePage
	node *cdp.Node
}

func (e *chromeElement) Click(ctx context.Context) error {
	return e.click(ctx, 1)
}

func (e *chromeElement) DoubleClick(ctx context.Context) error {
	return e.click(ctx, 2)
}

func (e *chromeElement) click(ctx context.Context, count int) error {
	runCtx, cancel := e.page.runContext(ctx, e.page.timeout)
	defer cancel()

	if err := chromedp.Run(runCtx, chromedp.MouseClickNode(e.node, chromedp.ClickCount(count))); err != nil {
		return fmt.Errorf("click %s: %w", e.node.NodeName, err)
	}
	return nil
}

func (e *chromeElement) Attribute(name string) (string, bool) {
	return e.node.Attribute(name)
}

func (e *chromeElement) Text(ctx context.Context) (string, error) {
	runCtx, cancel := e.page.runContext(ctx, e.page.timeout)
	defer cancel()

	var text string
	err := chromedp.Run(runCtx,
		chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID),
	)
	if err != nil {
		return "", fmt.Errorf("text of %s: %w", e.node.NodeName, err)
	}
	return text, nil
}

// visibleJS mirrors what a user can see: a laid-out box that is neither
// display:none nor visibility:hidden, including through ancestors.
const visibleJS = `function() {
	if (typeof this.checkVisibility === "function") {
		if (!this.checkVisibility({visibilityProperty: true})) return false;
	}
	const r = this.getBoundingClientRect();
	return r.width > 0 && r.height > 0;
}`

const containsJS = `function(other) { return this !== other && this.contains(other); }`

func (e *chromeElement) Visible(ctx context.Context) (bool, error) {
	var visible bool
	if err := e.call(ctx, visibleJS, &visible); err != nil {
		return false, fmt.Errorf("visibility of %s: %w", e.node.NodeName, err)
	}
	return visible, nil
}

func (e *chromeElement) Contains(ctx context.Context, other Element) (bool, error) {
	o, ok := other.(*chromeElement)
	if !ok {
		return false, nil
	}
	var contains bool
	if err := e.call(ctx, containsJS, &contains, o.node.NodeID); err != nil {
		return false, fmt.Errorf("containment of %s: %w", e.node.NodeName, err)
	}
	return contains, nil
}

// call runs fn with this element as `this` and the given nodes as
// arguments, decoding the returned value into res.
func (e *chromeElement) call(ctx context.Context, fn string, res interface{}, args ...cdp.NodeID) error {
	runCtx, cancel := e.page.runContext(ctx, e.page.timeout)
	defer cancel()

	return chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		self, err := dom.ResolveNode().WithNodeID(e.node.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		callArgs := make([]*runtime.CallArgument, 0, len(args))
		for _, id := range args {
			obj, err := dom.ResolveNode().WithNodeID(id).Do(ctx)
			if err != nil {
				return err
			}
			callArgs = append(callArgs, &runtime.CallArgument{ObjectID: obj.ObjectID})
		}

		return chromedp.CallFunctionOn(fn, res,
			func(p *runtime.CallFunctionOnParams) *runtime.CallFunctionOnParams {
				p = p.WithObjectID(self.ObjectID)
				if len(callArgs) > 0 {
					p = p.WithArguments(callArgs)
				}
				return p
			},
		).Do(ctx)
	}))
}
