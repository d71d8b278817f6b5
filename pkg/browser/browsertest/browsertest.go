// Package browsertest provides an in-memory browser.Driver for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/entrhq/brain/pkg/browser"
)

// Call records one engine operation.
type Call struct {
	Op     string
	Target string
	Text   string
}

// Driver is a scripted browser.Driver. The zero value launches engines whose
// operations all succeed and whose window is closed as soon as it is waited on.
type Driver struct {
	// LaunchErr makes every Launch fail.
	LaunchErr error

	// Texts maps selectors to InnerText results. Missing selectors fail.
	Texts map[string]string

	// Fail maps "op selector-or-url" (e.g. "click #go") to the error that
	// operation returns.
	Fail map[string]error

	// HoldOpen makes WaitForClose block until CloseWindow or ctx cancellation.
	HoldOpen bool

	// CloseErr is returned by Engine.Close.
	CloseErr error

	mu       sync.Mutex
	launches int
	engines  []*Engine
}

// Name implements browser.Driver.
func (d *Driver) Name() string { return "fake" }

// Launch implements browser.Driver.
func (d *Driver) Launch(ctx context.Context, opts browser.Options) (browser.Engine, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.launches++
	if d.LaunchErr != nil {
		return nil, d.LaunchErr
	}
	e := &Engine{driver: d, Opts: opts, window: make(chan struct{})}
	if !d.HoldOpen {
		close(e.window)
	}
	d.engines = append(d.engines, e)
	return e, nil
}

// Launches returns the number of Launch calls.
func (d *Driver) Launches() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.launches
}

// Engines returns the engines launched so far.
func (d *Driver) Engines() []*Engine {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*Engine(nil), d.engines...)
}

// Last returns the most recently launched engine, or nil.
func (d *Driver) Last() *Engine {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.engines) == 0 {
		return nil
	}
	return d.engines[len(d.engines)-1]
}

// Engine is a fake browser page.
type Engine struct {
	Opts browser.Options

	driver     *Driver
	mu         sync.Mutex
	calls      []Call
	closes     int
	waiting    bool
	window     chan struct{}
	windowOnce sync.Once
}

func (e *Engine) record(c Call) error {
	e.mu.Lock()
	e.calls = append(e.calls, c)
	e.mu.Unlock()

	key := c.Op + " " + c.Target
	if err, ok := e.driver.Fail[key]; ok {
		return err
	}
	return nil
}

func (e *Engine) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.record(Call{Op: "goto", Target: url})
}

func (e *Engine) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.record(Call{Op: "click", Target: selector})
}

func (e *Engine) Type(ctx context.Context, selector, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.record(Call{Op: "type", Target: selector, Text: text})
}

func (e *Engine) InnerText(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := e.record(Call{Op: "text", Target: selector}); err != nil {
		return "", err
	}
	text, ok := e.driver.Texts[selector]
	if !ok {
		return "", fmt.Errorf("timeout waiting for selector %q", selector)
	}
	return text, nil
}

func (e *Engine) WaitForClose(ctx context.Context) error {
	e.mu.Lock()
	e.waiting = true
	e.mu.Unlock()

	select {
	case <-e.window:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) Close() error {
	e.mu.Lock()
	e.closes++
	e.mu.Unlock()
	e.CloseWindow()
	return e.driver.CloseErr
}

// CloseWindow simulates the user closing the browser window.
func (e *Engine) CloseWindow() {
	e.windowOnce.Do(func() {
		select {
		case <-e.window:
		default:
			close(e.window)
		}
	})
}

// Calls returns the recorded operations in order.
func (e *Engine) Calls() []Call {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Call(nil), e.calls...)
}

// Closes returns how many times Close was called.
func (e *Engine) Closes() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closes
}

// Waiting reports whether WaitForClose has been entered.
func (e *Engine) Waiting() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waiting
}
