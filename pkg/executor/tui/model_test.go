package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/brain/pkg/types"
)

type fakeRunner struct {
	instructions []string
	updates      []*types.Update
}

func (r *fakeRunner) Run(ctx context.Context, instruction string) <-chan *types.Update {
	r.instructions = append(r.instructions, instruction)
	ch := make(chan *types.Update, len(r.updates))
	for _, u := range r.updates {
		ch <- u
	}
	close(ch)
	return ch
}

func newTestModel(runner *fakeRunner) *model {
	m := newModel(context.Background(), runner, "fake-model", DefaultExamples)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m
}

// drain feeds the active run's updates back into the model until it finishes.
func drain(t *testing.T, m *model) {
	t.Helper()
	for i := 0; m.busy; i++ {
		require.Less(t, i, 10, "run did not finish")
		m.Update(waitForUpdate(m.updates)())
	}
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func TestTabCyclesExamples(t *testing.T) {
	m := newTestModel(&fakeRunner{})

	for i := 0; i < len(DefaultExamples)+1; i++ {
		m.Update(key(tea.KeyTab))
		assert.Equal(t, DefaultExamples[i%len(DefaultExamples)], m.textarea.Value())
	}
}

func TestEnterRunsInstruction(t *testing.T) {
	runner := &fakeRunner{updates: []*types.Update{
		types.NewPlanGeneratedUpdate("r1", "Generated Plan:\n[{\"action\": \"navigate\", \"url\": \"https://github.com\"}]\n\nExecuting...", 9),
		types.NewFinalUpdate("r1", types.StatusSuccess, "Navigated to https://github.com\nTask finished: done"),
	}}
	m := newTestModel(runner)

	m.textarea.SetValue("  open github  ")
	_, cmd := m.Update(key(tea.KeyEnter))
	require.NotNil(t, cmd)
	assert.True(t, m.busy)
	assert.Equal(t, []string{"open github"}, runner.instructions)
	assert.Empty(t, m.textarea.Value())
	assert.Contains(t, m.View(), "Translating instruction")

	drain(t, m)

	assert.False(t, m.busy)
	assert.Equal(t, "Navigated to https://github.com\nTask finished: done", m.lastResult)
	content := m.content.String()
	assert.Contains(t, content, "open github")
	assert.Contains(t, content, "Generated Plan:")
	assert.Contains(t, content, "navigate")
	assert.Contains(t, content, "Task finished: done")
	assert.Contains(t, m.View(), "Runs: 1")
}

func TestEnterIgnoresEmptyInput(t *testing.T) {
	runner := &fakeRunner{}
	m := newTestModel(runner)

	m.textarea.SetValue("   ")
	_, cmd := m.Update(key(tea.KeyEnter))

	assert.Nil(t, cmd)
	assert.False(t, m.busy)
	assert.Empty(t, runner.instructions)
}

func TestEnterWhileBusyShowsToast(t *testing.T) {
	runner := &fakeRunner{updates: []*types.Update{
		types.NewFinalUpdate("r1", types.StatusSuccess, "ok"),
	}}
	m := newTestModel(runner)

	m.textarea.SetValue("first")
	m.Update(key(tea.KeyEnter))
	m.textarea.SetValue("second")
	m.Update(key(tea.KeyEnter))

	assert.Equal(t, []string{"first"}, runner.instructions)
	require.NotNil(t, m.toast)
	assert.True(t, m.toast.isError)
	assert.Equal(t, "second", m.textarea.Value())
}

func TestCopyLastResult(t *testing.T) {
	m := newTestModel(&fakeRunner{})
	var copied string
	m.copyText = func(s string) error {
		copied = s
		return nil
	}

	m.Update(key(tea.KeyCtrlY))
	require.NotNil(t, m.toast)
	assert.Equal(t, "Nothing to copy yet", m.toast.message)

	m.lastResult = "Extracted Data (Title): Watch"
	m.Update(key(tea.KeyCtrlY))
	assert.Equal(t, "Extracted Data (Title): Watch", copied)
	assert.False(t, m.toast.isError)

	m.copyText = func(string) error { return errors.New("no clipboard utility") }
	m.Update(key(tea.KeyCtrlY))
	assert.True(t, m.toast.isError)
	assert.Contains(t, m.toast.message, "no clipboard utility")
}

func TestQuitKeys(t *testing.T) {
	m := newTestModel(&fakeRunner{})

	_, cmd := m.Update(key(tea.KeyCtrlC))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestRenderPlan(t *testing.T) {
	out := renderPlan("Generated Plan:\n[{\"action\": \"end\", \"message\": \"bye\"}]\n\nExecuting...", 100)
	assert.Contains(t, out, "Generated Plan:")
	assert.Contains(t, out, "bye")
	assert.Contains(t, out, "Executing...")

	// Unframed content is shown as is.
	assert.Contains(t, renderPlan("something else", 100), "something else")
}

func TestRenderResultStatuses(t *testing.T) {
	busy := renderResult(types.NewFinalUpdate("r", types.StatusBusy, "busy now"), 100)
	assert.Contains(t, busy, "busy now")

	failed := renderResult(types.NewFinalUpdate("r", types.StatusFailed, "Navigated to x\nAn error occurred: boom"), 100)
	assert.Equal(t, 2, strings.Count(failed, "\n")+1)
	assert.Contains(t, failed, "An error occurred: boom")
}

func TestViewBeforeResize(t *testing.T) {
	m := newModel(context.Background(), &fakeRunner{}, "fake-model", nil)
	assert.Equal(t, "Initializing...", m.View())

	// No examples: Tab is a no-op.
	m.Update(key(tea.KeyTab))
	assert.Empty(t, m.textarea.Value())
}
