package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI interface.
func (m *model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	sections := []string{
		m.buildHeader(),
		m.buildTips(),
		"",
		m.viewport.View(),
	}
	if m.busy {
		sections = append(sections, m.buildLoadingIndicator())
	}
	sections = append(sections, m.buildInputBox(), m.buildBottomBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// buildHeader renders the ASCII art header and subtitle
func (m *model) buildHeader() string {
	return headerStyle.Render(`
	██████╗ ██████╗  █████╗ ██╗███╗   ██╗
	██╔══██╗██╔══██╗██╔══██╗██║████╗  ██║
	██████╔╝██████╔╝███████║██║██╔██╗ ██║
	██╔══██╗██╔══██╗██╔══██║██║██║╚██╗██║
	██████╔╝██║  ██║██║  ██║██║██║ ╚████║`) + "\n" +
		subtitleStyle.Render("  Browser Retrieval and Automation Intelligent Network")
}

// buildTips renders usage tips
func (m *model) buildTips() string {
	return tipsStyle.Render("  Tips: Describe a browser task • Enter to run • Tab for examples • Ctrl+Y to copy the last result • Esc or Ctrl+C to exit")
}

// buildLoadingIndicator renders the spinner while a run is active
func (m *model) buildLoadingIndicator() string {
	return loadingStyle.
		Width(m.width-4).
		Padding(0, 2).
		Render(fmt.Sprintf("%s %s", m.spinner.View(), m.loadingMessage))
}

// buildInputBox renders the text input area
func (m *model) buildInputBox() string {
	return inputBoxStyle.Width(m.width - 4).Render(m.textarea.View())
}

// buildBottomBar renders the bottom status bar
func (m *model) buildBottomBar() string {
	left := "B.R.A.I.N"
	center := m.buildToast()
	if center == "" {
		center = fmt.Sprintf("Runs: %d", m.runs)
	}
	right := "◆ Model: " + m.modelName

	used := lipgloss.Width(left) + lipgloss.Width(center) + lipgloss.Width(right)
	leftPadding := max((m.width-used)/3, 2)
	rightPadding := max(m.width-used-leftPadding*2, 2)

	return statusBarStyle.Width(m.width).Render(
		left +
			strings.Repeat(" ", leftPadding) +
			center +
			strings.Repeat(" ", rightPadding) +
			right,
	)
}

// buildToast renders the active toast, or "" once it has expired.
func (m *model) buildToast() string {
	if m.toast == nil || time.Now().After(m.toast.showUntil) {
		return ""
	}
	if m.toast.isError {
		return errorStyle.Render("✗ " + m.toast.message)
	}
	return successStyle.Render("✓ " + m.toast.message)
}
