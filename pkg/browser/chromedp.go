package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
)

// ChromedpDriver launches a local Chrome through the DevTools protocol.
type ChromedpDriver struct {
	execPath string
}

// NewChromedpDriver creates a chromedp-backed driver. An empty execPath uses
// the Chrome found on PATH.
func NewChromedpDriver(execPath string) *ChromedpDriver {
	return &ChromedpDriver{execPath: execPath}
}

// Name implements Driver.
func (d *ChromedpDriver) Name() string { return "chromedp" }

// Launch implements Driver.
func (d *ChromedpDriver) Launch(ctx context.Context, opts Options) (Engine, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.WindowSize(opts.Viewport.Width, opts.Viewport.Height),
	)
	if d.execPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(d.execPath))
	}

	// The browser lives until Close, not until the launching ctx ends.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	e := &chromedpEngine{
		browserCtx:    browserCtx,
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
		timeout:       opts.Timeout,
		closed:        make(chan struct{}),
	}

	chromedp.ListenTarget(browserCtx, func(ev interface{}) {
		switch ev.(type) {
		case *inspector.EventDetached, *target.EventDetachedFromTarget:
			e.markClosed()
		}
	})

	// The first Run starts the browser and opens the initial tab.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to launch chrome: %w", err)
	}

	go func() {
		<-browserCtx.Done()
		e.markClosed()
	}()
	return e, nil
}

type chromedpEngine struct {
	browserCtx    context.Context
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	timeout       time.Duration
	closed        chan struct{}
	closeOnce     sync.Once
	cancelOnce    sync.Once
}

func (e *chromedpEngine) markClosed() {
	e.closeOnce.Do(func() { close(e.closed) })
}

// run executes actions on the page, bounded by the per-operation timeout and
// by the caller's ctx.
func (e *chromedpEngine) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(e.browserCtx, e.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (e *chromedpEngine) Goto(ctx context.Context, url string) error {
	return e.run(ctx, chromedp.Navigate(url))
}

func (e *chromedpEngine) Click(ctx context.Context, selector string) error {
	return e.run(ctx, chromedp.Click(selector, chromedp.NodeVisible))
}

func (e *chromedpEngine) Type(ctx context.Context, selector, text string) error {
	return e.run(ctx, chromedp.SendKeys(selector, text, chromedp.NodeVisible))
}

func (e *chromedpEngine) InnerText(ctx context.Context, selector string) (string, error) {
	var text string
	if err := e.run(ctx, chromedp.Text(selector, &text, chromedp.NodeVisible)); err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (e *chromedpEngine) WaitForClose(ctx context.Context) error {
	select {
	case <-e.closed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *chromedpEngine) Close() error {
	e.cancelOnce.Do(func() {
		// Cancelling the browser context closes the tab and the process.
		e.browserCancel()
		e.allocCancel()
	})
	e.markClosed()
	return nil
}
