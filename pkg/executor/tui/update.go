package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/entrhq/brain/pkg/types"
)

const toastDuration = 3 * time.Second

// Init starts the cursor blink.
func (m *model) Init() tea.Cmd {
	return textarea.Blink
}

// Update handles all state updates for the TUI model.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowResize(msg)

	case tea.KeyMsg:
		if next, cmd, handled := m.handleKeyPress(msg); handled {
			return next, cmd
		}

	case updateMsg:
		return m.handleUpdate(msg.update)

	case runDoneMsg:
		return m.handleRunDone()

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)
	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	m.updateTextAreaHeight()
	return m, tea.Batch(tiCmd, vpCmd)
}

// handleKeyPress handles keys the TUI owns. Other keys go to the textarea.
func (m *model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit, true

	case tea.KeyEnter:
		if msg.Alt {
			return m, nil, false
		}
		next, cmd := m.handleEnter()
		return next, cmd, true

	case tea.KeyTab:
		return m.handleTab(), nil, true

	case tea.KeyCtrlY:
		next, cmd := m.handleCopy()
		return next, cmd, true
	}
	return m, nil, false
}

// handleEnter starts a run for the current input.
func (m *model) handleEnter() (tea.Model, tea.Cmd) {
	input := strings.TrimSpace(m.textarea.Value())
	if input == "" {
		return m, nil
	}
	if m.busy {
		m.showToast("A run is in progress; close the browser window first", true)
		return m, nil
	}

	m.runs++
	m.appendEntry(renderInstruction(input, m.width))
	m.textarea.Reset()
	m.updateTextAreaHeight()

	m.busy = true
	m.loadingMessage = "Translating instruction into a plan..."
	m.logger.Infof("run %d: %q", m.runs, input)

	m.updates = m.runner.Run(m.ctx, input)
	m.recalculateLayout()
	return m, tea.Batch(m.spinner.Tick, waitForUpdate(m.updates))
}

// handleTab fills the input with the next example command.
func (m *model) handleTab() tea.Model {
	if len(m.examples) == 0 {
		return m
	}
	m.textarea.SetValue(m.examples[m.exampleIdx])
	m.textarea.CursorEnd()
	m.exampleIdx = (m.exampleIdx + 1) % len(m.examples)
	m.updateTextAreaHeight()
	return m
}

// handleCopy copies the last run result to the clipboard.
func (m *model) handleCopy() (tea.Model, tea.Cmd) {
	if m.lastResult == "" {
		m.showToast("Nothing to copy yet", true)
		return m, nil
	}
	if err := m.copyText(m.lastResult); err != nil {
		m.logger.Warnf("clipboard: %v", err)
		m.showToast("Could not copy: "+err.Error(), true)
		return m, nil
	}
	m.showToast("Copied last result to clipboard", false)
	return m, nil
}

func (m *model) handleUpdate(u *types.Update) (tea.Model, tea.Cmd) {
	switch u.Type {
	case types.UpdateTypePlanGenerated:
		m.appendEntry(renderPlan(u.Content, m.width))
		m.loadingMessage = "Executing plan... close the browser window when you are done"

	case types.UpdateTypeFinal:
		m.lastResult = u.Content
		m.appendEntry(renderResult(u, m.width))
		m.logger.Infof("run %s finished: %s", u.RunID, u.Status)
	}
	m.recalculateLayout()
	return m, waitForUpdate(m.updates)
}

func (m *model) handleRunDone() (tea.Model, tea.Cmd) {
	m.busy = false
	m.updates = nil
	m.loadingMessage = ""
	m.recalculateLayout()
	return m, nil
}

// waitForUpdate reads the next update from ch.
func waitForUpdate(ch <-chan *types.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return runDoneMsg{}
		}
		return updateMsg{update: u}
	}
}

func (m *model) showToast(message string, isError bool) {
	m.toast = &toastNotification{
		message:   message,
		isError:   isError,
		showUntil: time.Now().Add(toastDuration),
	}
}

func (m *model) appendEntry(text string) {
	m.content.WriteString(strings.TrimRight(text, "\n"))
	m.content.WriteString("\n\n")
}

// handleWindowResize processes window size change events
func (m *model) handleWindowResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	m.viewport.Width = m.width - 4
	m.textarea.SetWidth(m.width - 8)
	m.ready = true
	m.recalculateLayout()
	return m, nil
}

// calculateViewportHeight computes the viewport height from the current state
func (m *model) calculateViewportHeight() int {
	headerHeight := 9                      // ASCII art (6) + subtitle (1) + tips (1) + blank line (1)
	inputHeight := m.textarea.Height() + 2 // textarea height + border
	statusBarHeight := 1
	loadingHeight := 0
	if m.busy {
		loadingHeight = 1
	}

	viewportHeight := m.height - headerHeight - inputHeight - statusBarHeight - loadingHeight
	if viewportHeight < 5 {
		viewportHeight = 5
	}
	return viewportHeight
}

// recalculateLayout updates viewport content and scrolls to bottom
func (m *model) recalculateLayout() {
	m.viewport.Height = m.calculateViewportHeight()
	m.viewport.SetContent(m.content.String())
	m.viewport.GotoBottom()
}

// updateTextAreaHeight grows the textarea with its content, up to MaxHeight.
func (m *model) updateTextAreaHeight() {
	width := m.textarea.Width() - len(m.textarea.Prompt)
	if width <= 0 {
		width = 78
	}

	visualLines := 0
	for _, line := range strings.Split(m.textarea.Value(), "\n") {
		visualLines += max(1, (len(line)+width-1)/width)
	}
	visualLines = min(max(visualLines, 1), m.textarea.MaxHeight)

	if visualLines != m.textarea.Height() {
		m.textarea.SetHeight(visualLines)
		m.recalculateLayout()
	}
}
