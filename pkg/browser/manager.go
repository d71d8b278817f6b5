package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/entrhq/brain/pkg/logging"
)

// ErrAcquire is matched by every *AcquireError.
var ErrAcquire = errors.New("browser session acquisition failed")

// AcquireError reports that the driver could not start a browser or page.
type AcquireError struct {
	Driver string
	Err    error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("failed to start %s browser: %v", e.Driver, e.Err)
}

func (e *AcquireError) Unwrap() error { return e.Err }

func (e *AcquireError) Is(target error) bool { return target == ErrAcquire }

// Manager hands out browser sessions and tracks how many are live.
type Manager struct {
	mu       sync.Mutex
	driver   Driver
	opts     Options
	logger   *logging.Logger
	acquired int
	released int
}

// NewManager creates a session manager for driver. A nil logger discards.
func NewManager(driver Driver, opts Options, logger *logging.Logger) *Manager {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Manager{
		driver: driver,
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Options returns the launch options used for new sessions.
func (m *Manager) Options() Options {
	return m.opts
}

// Acquire launches a browser and returns a session bound to its only page.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, &AcquireError{Driver: m.driver.Name(), Err: err}
	}

	engine, err := m.driver.Launch(ctx, m.opts)
	if err != nil {
		m.logger.Errorf("launch via %s failed: %v", m.driver.Name(), err)
		return nil, &AcquireError{Driver: m.driver.Name(), Err: err}
	}

	m.mu.Lock()
	m.acquired++
	m.mu.Unlock()

	s := &Session{
		ID:         uuid.NewString()[:8],
		CreatedAt:  time.Now(),
		CurrentURL: "about:blank",
		engine:     engine,
		mgr:        m,
		keepOpen:   m.opts.KeepOpen,
	}
	m.logger.Infof("session %s started (driver=%s headless=%v)", s.ID, m.driver.Name(), m.opts.Headless)
	return s, nil
}

// Acquired returns the number of sessions ever acquired.
func (m *Manager) Acquired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired
}

// Released returns the number of sessions released.
func (m *Manager) Released() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}

// Active returns the number of sessions not yet released.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.acquired - m.released
}

func (m *Manager) markReleased() {
	m.mu.Lock()
	m.released++
	m.mu.Unlock()
}

// Session is one acquired browser with a single page.
type Session struct {
	// ID is a short identifier used in logs.
	ID string

	// CreatedAt is the timestamp when the session was created
	CreatedAt time.Time

	// CurrentURL is the last URL navigated to.
	CurrentURL string

	engine      Engine
	mgr         *Manager
	keepOpen    bool
	releaseOnce sync.Once
	releaseErr  error
}

// Goto loads url in the session's page.
func (s *Session) Goto(ctx context.Context, url string) error {
	if err := s.engine.Goto(ctx, url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	s.CurrentURL = url
	return nil
}

// Click clicks the first element matching selector.
func (s *Session) Click(ctx context.Context, selector string) error {
	if err := s.engine.Click(ctx, selector); err != nil {
		return fmt.Errorf("click failed: %w", err)
	}
	return nil
}

// Type sends text as keystrokes to the element matching selector.
func (s *Session) Type(ctx context.Context, selector, text string) error {
	if err := s.engine.Type(ctx, selector, text); err != nil {
		return fmt.Errorf("type failed: %w", err)
	}
	return nil
}

// InnerText reads the rendered text of the element matching selector.
func (s *Session) InnerText(ctx context.Context, selector string) (string, error) {
	text, err := s.engine.InnerText(ctx, selector)
	if err != nil {
		return "", fmt.Errorf("text extraction failed: %w", err)
	}
	return text, nil
}

// WaitForClose blocks until the user closes the browser window. It returns
// immediately when the session was not launched to stay open.
func (s *Session) WaitForClose(ctx context.Context) error {
	if !s.keepOpen {
		return nil
	}
	return s.engine.WaitForClose(ctx)
}

// Release closes the browser. Only the first call does anything; later calls
// return the first call's result.
func (s *Session) Release() error {
	s.releaseOnce.Do(func() {
		s.releaseErr = s.engine.Close()
		s.mgr.markReleased()
		if s.releaseErr != nil {
			s.mgr.logger.Warnf("session %s release: %v", s.ID, s.releaseErr)
		} else {
			s.mgr.logger.Infof("session %s released", s.ID)
		}
	})
	return s.releaseErr
}
