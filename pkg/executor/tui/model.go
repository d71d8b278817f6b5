package tui

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/entrhq/brain/pkg/agent"
	"github.com/entrhq/brain/pkg/logging"
	"github.com/entrhq/brain/pkg/types"
)

// model represents the state of the TUI application.
type model struct {
	// Bubble Tea components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// Run integration
	ctx     context.Context
	cancel  context.CancelFunc
	runner  agent.Runner
	updates <-chan *types.Update
	logger  *logging.Logger

	// Content buffer for the viewport
	content *strings.Builder

	// Run state
	busy           bool
	loadingMessage string
	lastResult     string
	runs           int

	// Example commands cycled with Tab
	examples   []string
	exampleIdx int

	// copyText writes to the system clipboard.
	copyText func(string) error

	// Status bar
	modelName string
	toast     *toastNotification

	// Window dimensions
	width  int
	height int
	ready  bool
}

// updateMsg carries one update from the active run.
type updateMsg struct{ update *types.Update }

// runDoneMsg signals that the active run's update stream closed.
type runDoneMsg struct{}

// toastNotification represents a temporary notification message
type toastNotification struct {
	message   string
	isError   bool
	showUntil time.Time
}

func newModel(ctx context.Context, runner agent.Runner, modelName string, examples []string) *model {
	ta := textarea.New()
	ta.Placeholder = "e.g., Go to google.com and search for 'Gemini AI'"
	ta.Prompt = "> "
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.MaxHeight = 5
	ta.SetHeight(1)
	ta.Focus()

	ctx, cancel := context.WithCancel(ctx)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = loadingStyle

	return &model{
		viewport:  viewport.New(80, 10),
		textarea:  ta,
		spinner:   sp,
		ctx:       ctx,
		cancel:    cancel,
		runner:    runner,
		logger:    logging.Discard(),
		content:   &strings.Builder{},
		examples:  examples,
		copyText:  clipboard.WriteAll,
		modelName: modelName,
	}
}

// stop cancels the active run and waits for its update stream to close. The
// orchestrator closes the stream only after the browser session is released.
func (m *model) stop() {
	m.cancel()
	if m.updates == nil {
		return
	}
	for range m.updates {
	}
	m.updates = nil
	m.busy = false
}
