// Package tui provides the interactive terminal interface: an instruction
// box, a scrolling view of each run's plan and execution log, and example
// commands.
//
// The TUI codebase is split into multiple files:
// - executor.go: program lifecycle
// - model.go: model state and messages
// - update.go: Bubble Tea Update function and key handling
// - view.go: Bubble Tea View function and rendering
// - render.go: plan highlighting and log formatting
// - styles.go: color scheme
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/brain/pkg/agent"
	"github.com/entrhq/brain/pkg/logging"
)

// DefaultExamples are offered in the input box with Tab.
var DefaultExamples = []string{
	"Go to amazon.com and search for wireless headphones",
	"Go to amazon.com, search for 'smartwatch', and extract the title of the first result",
	"Go to Github and search for the 'gradio' repository",
}

// Executor runs the interactive TUI until the user quits.
type Executor struct {
	runner   agent.Runner
	model    string
	examples []string
	logger   *logging.Logger
}

// Option configures an Executor.
type Option func(*Executor)

// WithExamples replaces the example commands.
func WithExamples(examples []string) Option {
	return func(e *Executor) {
		if len(examples) > 0 {
			e.examples = examples
		}
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *logging.Logger) Option {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates a TUI executor. modelName is shown in the status bar.
func NewExecutor(runner agent.Runner, modelName string, opts ...Option) *Executor {
	e := &Executor{
		runner:   runner,
		model:    modelName,
		examples: DefaultExamples,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run starts the TUI and blocks until the user exits or ctx is cancelled.
func (e *Executor) Run(ctx context.Context) error {
	e.logger.Infof("TUI starting (model=%s)", e.model)

	m := newModel(ctx, e.runner, e.model, e.examples)
	m.logger = e.logger

	program := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	_, err := program.Run()

	// Quitting mid-run must still release the browser session.
	if m.busy {
		e.logger.Infof("cancelling active run")
	}
	m.stop()

	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to run TUI program: %w", err)
	}

	e.logger.Infof("TUI stopped")
	return nil
}
