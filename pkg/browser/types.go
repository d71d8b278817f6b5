package browser

import "time"

// Options configures a browser launch.
type Options struct {
	// Headless controls whether the browser runs without a visible window.
	// Sessions are visible by default so the user can watch and close them.
	Headless bool

	// KeepOpen makes WaitForClose block until the user closes the window.
	// When false the wait returns immediately.
	KeepOpen bool

	// Viewport sets the initial viewport size
	Viewport Viewport

	// Timeout bounds each page operation.
	Timeout time.Duration
}

// Viewport represents the browser viewport dimensions.
type Viewport struct {
	Width  int
	Height int
}

// Default values for launches
const (
	DefaultTimeout        = 30 * time.Second
	DefaultViewportWidth  = 1280
	DefaultViewportHeight = 720
)

// DefaultOptions returns a visible browser that stays open after the plan.
func DefaultOptions() Options {
	return Options{
		KeepOpen: true,
		Viewport: Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight},
		Timeout:  DefaultTimeout,
	}
}

// withDefaults fills zero values.
func (o Options) withDefaults() Options {
	if o.Viewport.Width <= 0 || o.Viewport.Height <= 0 {
		o.Viewport = Viewport{Width: DefaultViewportWidth, Height: DefaultViewportHeight}
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	return o
}
