package tui

import (
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"

	"github.com/entrhq/brain/pkg/types"
)

const (
	planPrefix = "Generated Plan:\n"
	planSuffix = "\n\nExecuting..."
)

// highlightJSON colors src for a 256-color terminal.
func highlightJSON(src string) (string, error) {
	var b strings.Builder
	if err := quick.Highlight(&b, src, "json", "terminal256", "monokai"); err != nil {
		return "", err
	}
	return b.String(), nil
}

func renderInstruction(input string, width int) string {
	return userStyle.Render("You: ") + wrap(logStyle, input, width-5)
}

// renderPlan renders a plan_generated update with the plan JSON highlighted.
// Content that does not have the expected framing is shown as is.
func renderPlan(content string, width int) string {
	if !strings.HasPrefix(content, planPrefix) || !strings.HasSuffix(content, planSuffix) {
		return wrap(logStyle, content, width)
	}
	body := strings.TrimSuffix(strings.TrimPrefix(content, planPrefix), planSuffix)

	highlighted, err := highlightJSON(body)
	if err != nil {
		highlighted = body
	}
	return planTitleStyle.Render("Generated Plan:") + "\n" +
		strings.TrimRight(highlighted, "\n") + "\n\n" +
		tipsStyle.Render("Executing...")
}

// renderResult renders a final update line by line.
func renderResult(u *types.Update, width int) string {
	switch u.Status {
	case types.StatusBusy:
		return wrap(warnStyle, "⏳ "+u.Content, width)
	case types.StatusInvalidPlan:
		return wrap(errorStyle, "✗ "+u.Content, width)
	}

	lines := strings.Split(u.Content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, wrap(lineStyle(line), line, width))
	}
	return strings.Join(out, "\n")
}

func lineStyle(line string) lipgloss.Style {
	switch {
	case strings.HasPrefix(line, "An error occurred"), strings.HasPrefix(line, "An execution error occurred"):
		return errorStyle
	case strings.HasPrefix(line, "Task finished"), strings.HasPrefix(line, "Extracted Data"), strings.HasPrefix(line, "✅"):
		return successStyle
	case strings.HasPrefix(line, "Step limit"), strings.HasPrefix(line, "Close the browser"):
		return warnStyle
	default:
		return logStyle
	}
}

func wrap(style lipgloss.Style, text string, width int) string {
	if width > 10 {
		style = style.Width(width)
	}
	return style.Render(text)
}
