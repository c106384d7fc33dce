package page

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	errs "twinkscan/pkg/errors"
	"twinkscan/pkg/factions"
	"twinkscan/pkg/logger"
	"twinkscan/pkg/retry"
)

// ChromeOptions configures the browser session
type ChromeOptions struct {
	URL              string
	WorklistSelector string
	UserAgent        string
	Headless         bool
	NoSandbox        bool
	ChromePath       string
	UserDataDir      string
	CardWait         time.Duration
	Timeout          time.Duration
	Cookies          []Cookie
}

// Chrome drives a Chrome tab through the DevTools protocol
type Chrome struct {
	opts ChromeOptions
	log  logger.Logger

	ctx         context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc
}

// NewChrome launches Chrome, installs session cookies and opens the roster page
func NewChrome(ctx context.Context, opts ChromeOptions, log logger.Logger) (*Chrome, error) {
	if opts.URL == "" {
		return nil, errors.New("page URL is required")
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", opts.Headless),
		chromedp.Flag("no-sandbox", opts.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("window-size", "1366,900"),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}
	if opts.UserDataDir != "" {
		allocOpts = append(allocOpts, chromedp.UserDataDir(opts.UserDataDir))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			log.Debug(fmt.Sprintf(format, args...))
		}),
	)

	c := &Chrome{
		opts:        opts,
		log:         log,
		ctx:         tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}

	if err := c.open(); err != nil {
		c.Close()
		return nil, err
	}

	c.checkCompatibility()
	return c, nil
}

func (c *Chrome) open() error {
	navigate := func() error {
		return c.run(c.ctx,
			network.Enable(),
			chromedp.ActionFunc(func(ctx context.Context) error {
				for _, cookie := range c.opts.Cookies {
					err := network.SetCookie(cookie.Name, cookie.Value).
						WithDomain(cookie.Domain).
						WithPath("/").
						Do(ctx)
					if err != nil {
						return fmt.Errorf("failed to set cookie %s: %w", cookie.Name, err)
					}
				}
				return nil
			}),
			chromedp.Navigate(c.opts.URL),
			chromedp.WaitReady("body", chromedp.ByQuery),
		)
	}

	cfg := retry.DefaultConfig()
	cfg.Context = c.ctx
	cfg.Logger = c.log
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		c.log.WithError(err).WithField("attempt", attempt).Warn("Roster page did not load, retrying in " + delay.String())
	}
	if err := retry.Do(navigate, cfg); err != nil {
		return errs.Page("open", err)
	}

	c.log.WithField("url", c.opts.URL).Info("Roster page opened")
	return nil
}

// checkCompatibility logs page traits that make automation easy to spot
func (c *Chrome) checkCompatibility() {
	var webdriver bool
	var plugins int
	err := c.run(c.ctx,
		chromedp.Evaluate(`navigator.webdriver === true`, &webdriver),
		chromedp.Evaluate(`navigator.plugins.length`, &plugins),
	)
	if err != nil {
		c.log.WithError(err).Debug("Compatibility check skipped")
		return
	}

	if webdriver {
		c.log.Warn("navigator.webdriver is exposed on the page")
	}
	if plugins == 0 {
		c.log.Warn("Browser reports no plugins")
	}
}

func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}
	return chromedp.Run(ctx, actions...)
}

// tab binds the caller's cancellation to the browser tab
func (c *Chrome) tab(ctx context.Context) (context.Context, context.CancelFunc) {
	tabCtx, cancel := context.WithCancel(c.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return tabCtx, func() {
		stop()
		cancel()
	}
}

func (c *Chrome) itemExpr(item Item, body string) string {
	sel, _ := json.Marshal(c.opts.WorklistSelector)
	return fmt.Sprintf(`(() => {
		const el = document.querySelectorAll(%s)[%d];
		if (!el) { return false; }
		%s
		return true;
	})()`, sel, item.Index, body)
}

// QueryWorklist captures the member links matched by the worklist selector
func (c *Chrome) QueryWorklist(ctx context.Context) ([]Item, error) {
	tabCtx, cancel := c.tab(ctx)
	defer cancel()

	sel, _ := json.Marshal(c.opts.WorklistSelector)
	var labels []string
	expr := fmt.Sprintf(`Array.from(document.querySelectorAll(%s)).map(e => (e.textContent || '').trim())`, sel)
	if err := c.run(tabCtx, chromedp.Evaluate(expr, &labels)); err != nil {
		return nil, errs.Page("query_worklist", err)
	}

	items := make([]Item, len(labels))
	for i, label := range labels {
		items[i] = Item{Index: i, Label: label}
	}
	return items, nil
}

// ExtractCards waits briefly for cards to render and parses them
func (c *Chrome) ExtractCards(ctx context.Context) ([]factions.Record, error) {
	tabCtx, cancel := c.tab(ctx)
	defer cancel()

	if c.opts.CardWait > 0 {
		waitCtx, waitCancel := context.WithTimeout(tabCtx, c.opts.CardWait)
		// no cards within the wait is a valid outcome
		_ = chromedp.Run(waitCtx, chromedp.WaitVisible(".card", chromedp.ByQuery))
		waitCancel()
	}

	snap, err := c.snapshot(tabCtx)
	if err != nil {
		return nil, errs.Extraction("extract_cards", err)
	}
	return ParseCards(snap), nil
}

func (c *Chrome) dispatch(ctx context.Context, op string, item Item, body string) error {
	tabCtx, cancel := c.tab(ctx)
	defer cancel()

	var found bool
	if err := c.run(tabCtx, chromedp.Evaluate(c.itemExpr(item, body), &found)); err != nil {
		return errs.Page(op, err)
	}
	if !found {
		return errs.Page(op, fmt.Errorf("worklist item %d is no longer on the page", item.Index))
	}
	return nil
}

// Hover fires the pointer-enter events a real cursor would
func (c *Chrome) Hover(ctx context.Context, item Item) error {
	return c.dispatch(ctx, "hover", item, `
		el.dispatchEvent(new MouseEvent('mouseover', {bubbles: true}));
		el.dispatchEvent(new MouseEvent('mouseenter', {bubbles: false}));`)
}

// Click activates the item
func (c *Chrome) Click(ctx context.Context, item Item) error {
	return c.dispatch(ctx, "click", item, `el.click();`)
}

// MoveMouse moves the pointer to page coordinates
func (c *Chrome) MoveMouse(ctx context.Context, x, y float64) error {
	tabCtx, cancel := c.tab(ctx)
	defer cancel()

	if err := c.run(tabCtx, input.DispatchMouseEvent(input.MouseMoved, x, y)); err != nil {
		return errs.Page("move_mouse", err)
	}
	return nil
}

// Scroll turns the wheel by deltaY pixels at the centre of the viewport
func (c *Chrome) Scroll(ctx context.Context, deltaY float64) error {
	vp, err := c.Viewport(ctx)
	if err != nil {
		return err
	}

	tabCtx, cancel := c.tab(ctx)
	defer cancel()

	wheel := input.DispatchMouseEvent(input.MouseWheel, vp.Width/2, vp.Height/2).
		WithDeltaX(0).
		WithDeltaY(deltaY)
	if err := c.run(tabCtx, wheel); err != nil {
		return errs.Page("scroll", err)
	}
	return nil
}

// Viewport returns the inner window size
func (c *Chrome) Viewport(ctx context.Context) (Viewport, error) {
	tabCtx, cancel := c.tab(ctx)
	defer cancel()

	var size []float64
	if err := c.run(tabCtx, chromedp.Evaluate(`[window.innerWidth, window.innerHeight]`, &size)); err != nil {
		return Viewport{}, errs.Page("viewport", err)
	}
	if len(size) != 2 {
		return Viewport{}, errs.Page("viewport", errors.New("unexpected viewport shape"))
	}
	return Viewport{Width: size[0], Height: size[1]}, nil
}

// Snapshot captures the current page
func (c *Chrome) Snapshot(ctx context.Context) (*Snapshot, error) {
	tabCtx, cancel := c.tab(ctx)
	defer cancel()

	snap, err := c.snapshot(tabCtx)
	if err != nil {
		return nil, errs.Page("snapshot", err)
	}
	return snap, nil
}

func (c *Chrome) snapshot(ctx context.Context) (*Snapshot, error) {
	var url, title, html string
	err := c.run(ctx,
		chromedp.Location(&url),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(url, title, html)
}

// Reload refreshes the page
func (c *Chrome) Reload(ctx context.Context) error {
	tabCtx, cancel := c.tab(ctx)
	defer cancel()

	err := c.run(tabCtx,
		chromedp.Reload(),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return errs.Page("reload", err)
	}
	c.log.Info("Page reloaded")
	return nil
}

// Close shuts the tab and the browser
func (c *Chrome) Close() {
	c.cancelTab()
	c.cancelAlloc()
}
