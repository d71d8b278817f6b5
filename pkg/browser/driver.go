package browser

import "context"

// Driver launches browsers.
type Driver interface {
	// Name identifies the driver in logs.
	Name() string

	// Launch starts a browser and opens one page.
	Launch(ctx context.Context, opts Options) (Engine, error)
}

// Engine is one launched browser with a single page.
type Engine interface {
	// Goto loads url in the page.
	Goto(ctx context.Context, url string) error

	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error

	// Type sends text as keystrokes to the element matching selector.
	Type(ctx context.Context, selector, text string) error

	// InnerText returns the rendered text of the element matching selector.
	InnerText(ctx context.Context, selector string) (string, error)

	// WaitForClose blocks until the page is closed or the browser goes away.
	// It returns ctx.Err() if ctx ends first.
	WaitForClose(ctx context.Context) error

	// Close shuts the browser down.
	Close() error
}
