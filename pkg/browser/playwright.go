package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightDriver launches Chromium through Playwright.
type PlaywrightDriver struct {
	installOnce sync.Once
	installErr  error
	runOpts     *playwright.RunOptions
}

// NewPlaywrightDriver creates the default driver. Browsers are installed on
// first launch if missing.
func NewPlaywrightDriver() *PlaywrightDriver {
	return &PlaywrightDriver{
		// Discard output to avoid interfering with the TUI
		runOpts: &playwright.RunOptions{
			Browsers: []string{"chromium"},
			Verbose:  false,
			Stdout:   io.Discard,
			Stderr:   io.Discard,
		},
	}
}

// Name implements Driver.
func (d *PlaywrightDriver) Name() string { return "playwright" }

// Launch implements Driver.
func (d *PlaywrightDriver) Launch(ctx context.Context, opts Options) (Engine, error) {
	d.installOnce.Do(func() {
		if err := playwright.Install(d.runOpts); err != nil {
			d.installErr = fmt.Errorf("failed to install playwright: %w", err)
		}
	})
	if d.installErr != nil {
		return nil, d.installErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run(d.runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Viewport.Width,
			Height: opts.Viewport.Height,
		},
	})
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = bctx.Close()
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(float64(opts.Timeout.Milliseconds()))

	e := &playwrightEngine{
		pw:      pw,
		browser: browser,
		page:    page,
		closed:  make(chan struct{}),
	}
	page.OnClose(func(playwright.Page) { e.markClosed() })
	browser.OnDisconnected(func(playwright.Browser) { e.markClosed() })
	return e, nil
}

type playwrightEngine struct {
	pw        *playwright.Playwright
	browser   playwright.Browser
	page      playwright.Page
	closed    chan struct{}
	closeOnce sync.Once
}

func (e *playwrightEngine) markClosed() {
	e.closeOnce.Do(func() { close(e.closed) })
}

// do runs op and returns early if ctx ends. Playwright calls are bounded by
// the page's default timeout, so an abandoned op finishes on its own.
func (e *playwrightEngine) do(ctx context.Context, op func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- op() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *playwrightEngine) Goto(ctx context.Context, url string) error {
	return e.do(ctx, func() error {
		_, err := e.page.Goto(url)
		return err
	})
}

func (e *playwrightEngine) Click(ctx context.Context, selector string) error {
	return e.do(ctx, func() error {
		return e.page.Locator(selector).First().Click()
	})
}

func (e *playwrightEngine) Type(ctx context.Context, selector, text string) error {
	return e.do(ctx, func() error {
		return e.page.Locator(selector).First().PressSequentially(text)
	})
}

func (e *playwrightEngine) InnerText(ctx context.Context, selector string) (string, error) {
	var text string
	err := e.do(ctx, func() error {
		var err error
		text, err = e.page.Locator(selector).First().InnerText()
		return err
	})
	return text, err
}

func (e *playwrightEngine) WaitForClose(ctx context.Context) error {
	if e.page.IsClosed() || !e.browser.IsConnected() {
		e.markClosed()
	}
	select {
	case <-e.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *playwrightEngine) Close() error {
	var errs []error
	if e.browser.IsConnected() {
		if err := e.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if err := e.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop playwright: %w", err))
	}
	e.markClosed()
	return errors.Join(errs...)
}
