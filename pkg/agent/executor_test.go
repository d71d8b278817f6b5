package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/brain/pkg/browser"
	"github.com/entrhq/brain/pkg/browser/browsertest"
	"github.com/entrhq/brain/pkg/plan"
	"github.com/entrhq/brain/pkg/security/navigation"
)

func TestExecute_SearchPlan(t *testing.T) {
	h := newHarness(t, nil)
	p := decode(t, `[
		{"action":"navigate","url":"https://google.com"},
		{"action":"type","selector":"textarea[name=q]","text":"Gemini AI"},
		{"action":"click","selector":"input[name=btnK]"},
		{"action":"end","message":"Search done"}
	]`)

	res := h.executor.Execute(context.Background(), p)

	want := ExecutionLog{
		"Navigated to https://google.com",
		"Typed 'Gemini AI' into 'textarea[name=q]'",
		"Clicked on 'input[name=btnK]'",
		"Task finished: Search done",
		PausedLine,
		CloseLine,
	}
	if diff := cmp.Diff(want, res.Log); diff != "" {
		t.Errorf("log mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, StateFinishedNormal, res.State)
	assert.NoError(t, res.Err)
	assert.Equal(t, 4, res.Steps)
	assert.NotEmpty(t, res.SessionID)

	assert.Equal(t, []browsertest.Call{
		{Op: "goto", Target: "https://google.com"},
		{Op: "type", Target: "textarea[name=q]", Text: "Gemini AI"},
		{Op: "click", Target: "input[name=btnK]"},
	}, h.driver.Last().Calls())
	assert.True(t, h.driver.Last().Waiting())
	assert.Equal(t, 1, h.driver.Last().Closes())
}

func TestExecute_ExtractText(t *testing.T) {
	h := newHarness(t, &browsertest.Driver{Texts: map[string]string{"h1": "Example Domain"}})
	p := decode(t, `[
		{"action":"navigate","url":"https://example.com"},
		{"action":"extract_text","selector":"h1","description":"Heading"},
		{"action":"end","message":"ok"}
	]`)

	res := h.executor.Execute(context.Background(), p)

	assert.Equal(t, "Navigated to https://example.com\nExtracted Data (Heading): Example Domain\nTask finished: ok\n"+PausedLine+"\n"+CloseLine, res.Log.String())
}

func TestExecute_StepFailure(t *testing.T) {
	h := newHarness(t, &browsertest.Driver{
		Fail: map[string]error{"click #nope": errors.New("Timeout 30000ms exceeded")},
	})
	p := decode(t, `[
		{"action":"navigate","url":"https://a.test"},
		{"action":"click","selector":"#nope"},
		{"action":"end","message":"never"}
	]`)

	res := h.executor.Execute(context.Background(), p)

	require.Len(t, res.Log, 4)
	assert.Equal(t, "Navigated to https://a.test", res.Log[0])
	assert.Equal(t, "An error occurred: step 2 (click): click failed: Timeout 30000ms exceeded", res.Log[1])
	assert.Equal(t, PausedLine, res.Log[2])
	assert.Equal(t, CloseLine, res.Log[3])
	assert.Equal(t, StateFinishedError, res.State)

	var stepErr *StepError
	require.ErrorAs(t, res.Err, &stepErr)
	assert.ErrorIs(t, res.Err, ErrStep)
	assert.Equal(t, 1, stepErr.Index)
	assert.Equal(t, plan.KindClick, stepErr.Kind)

	// Nothing after the failing step reaches the browser.
	assert.Len(t, h.driver.Last().Calls(), 2)
	assert.Equal(t, 0, h.manager.Active())
}

func TestExecute_AcquireFailure(t *testing.T) {
	h := newHarness(t, &browsertest.Driver{LaunchErr: errors.New("chromium not found")})
	p := decode(t, `[{"action":"navigate","url":"https://a.test"}]`)

	res := h.executor.Execute(context.Background(), p)

	assert.Equal(t, ExecutionLog{"An error occurred: failed to start fake browser: chromium not found"}, res.Log)
	assert.Equal(t, StateFinishedError, res.State)
	assert.ErrorIs(t, res.Err, browser.ErrAcquire)
	assert.Empty(t, res.SessionID)
	assert.Equal(t, 0, h.manager.Acquired())
}

func TestExecute_EndStopsExecution(t *testing.T) {
	h := newHarness(t, nil)
	p := decode(t, `[
		{"action":"end","message":"first"},
		{"action":"navigate","url":"https://never.test"},
		{"action":"end","message":"second"}
	]`)

	res := h.executor.Execute(context.Background(), p)

	assert.Equal(t, ExecutionLog{"Task finished: first", PausedLine, CloseLine}, res.Log)
	assert.Empty(t, h.driver.Last().Calls())
	assert.Equal(t, 1, res.Steps)
}

func TestExecute_UnknownActionsAreSkipped(t *testing.T) {
	h := newHarness(t, nil)
	p := decode(t, `[
		{"action":"scroll","amount":3},
		{"url":"https://no-action.test"},
		{"action":"click","selector":"#a"}
	]`)

	res := h.executor.Execute(context.Background(), p)

	assert.Equal(t, ExecutionLog{"Clicked on '#a'", PausedLine, CloseLine}, res.Log)
	assert.Equal(t, StateFinishedNormal, res.State)
	assert.Equal(t, 3, res.Steps)
}

func TestExecute_EmptyPlan(t *testing.T) {
	h := newHarness(t, nil)

	res := h.executor.Execute(context.Background(), plan.Plan{})

	assert.Equal(t, ExecutionLog{PausedLine, CloseLine}, res.Log)
	assert.Equal(t, StateFinishedNormal, res.State)
	assert.Equal(t, 1, h.manager.Released())
}

func TestExecute_MissingFieldIsStepError(t *testing.T) {
	h := newHarness(t, nil)
	p := decode(t, `[{"action":"type","selector":"#q"}]`)

	res := h.executor.Execute(context.Background(), p)

	assert.Equal(t, StateFinishedError, res.State)
	assert.Equal(t, "An error occurred: step 1 (type): type: missing required field(s) text", res.Log[0])
	var missing *plan.MissingFieldError
	assert.ErrorAs(t, res.Err, &missing)
	assert.Empty(t, h.driver.Last().Calls())
}

func TestExecute_EndWithoutMessage(t *testing.T) {
	h := newHarness(t, nil)

	res := h.executor.Execute(context.Background(), decode(t, `[{"action":"end"}]`))

	assert.Equal(t, "Task finished: ", res.Log[0])
	assert.Equal(t, StateFinishedNormal, res.State)
}

func TestExecute_StepLimit(t *testing.T) {
	h := newHarness(t, nil, WithMaxSteps(2))
	p := decode(t, `[
		{"action":"click","selector":"#1"},
		{"action":"click","selector":"#2"},
		{"action":"click","selector":"#3"},
		{"action":"end","message":"x"}
	]`)

	res := h.executor.Execute(context.Background(), p)

	assert.Equal(t, ExecutionLog{
		"Clicked on '#1'",
		"Clicked on '#2'",
		"Step limit reached (2); remaining actions skipped",
		PausedLine,
		CloseLine,
	}, res.Log)
	assert.Equal(t, StateFinishedNormal, res.State)
}

func TestExecute_StepLimitNotReachedWhenPlanFits(t *testing.T) {
	h := newHarness(t, nil, WithMaxSteps(2))
	p := decode(t, `[{"action":"click","selector":"#1"},{"action":"end","message":"x"}]`)

	res := h.executor.Execute(context.Background(), p)

	for _, line := range res.Log {
		assert.NotContains(t, line, "Step limit")
	}
}

func TestWithMaxSteps_Clamps(t *testing.T) {
	assert.Equal(t, MinMaxSteps, NewExecutor(nil, WithMaxSteps(0)).MaxSteps())
	assert.Equal(t, MaxMaxSteps, NewExecutor(nil, WithMaxSteps(500)).MaxSteps())
	assert.Equal(t, 10, NewExecutor(nil, WithMaxSteps(10)).MaxSteps())
	assert.Equal(t, DefaultMaxSteps, NewExecutor(nil).MaxSteps())
}

func TestExecute_NavigationGuard(t *testing.T) {
	guard, err := navigation.NewGuard([]string{"**.example.com", "example.com"}, nil)
	require.NoError(t, err)
	h := newHarness(t, nil, WithNavigationGuard(guard))
	p := decode(t, `[
		{"action":"navigate","url":"https://www.example.com"},
		{"action":"navigate","url":"https://evil.test"}
	]`)

	res := h.executor.Execute(context.Background(), p)

	assert.Equal(t, StateFinishedError, res.State)
	assert.ErrorIs(t, res.Err, navigation.ErrBlocked)
	assert.Equal(t, []browsertest.Call{{Op: "goto", Target: "https://www.example.com"}}, h.driver.Last().Calls())
}

func TestExecute_ReleasesExactlyOnce(t *testing.T) {
	plans := []string{
		`[]`,
		`[{"action":"end","message":"x"}]`,
		`[{"action":"click","selector":"#fail"}]`,
		`[{"action":"type"}]`,
		`[{"action":"navigate","url":"https://a.test"},{"action":"bogus"}]`,
	}
	h := newHarness(t, &browsertest.Driver{Fail: map[string]error{"click #fail": errors.New("boom")}})

	for i, text := range plans {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			h.executor.Execute(context.Background(), decode(t, text))
			assert.Equal(t, i+1, h.manager.Acquired())
			assert.Equal(t, i+1, h.manager.Released())
			assert.Equal(t, 1, h.driver.Last().Closes())
		})
	}
	assert.Equal(t, 0, h.manager.Active())
}

func TestExecute_WaitsForWindowClose(t *testing.T) {
	h := newHarness(t, &browsertest.Driver{HoldOpen: true})

	done := make(chan *Result, 1)
	go func() {
		done <- h.executor.Execute(context.Background(), decode(t, `[{"action":"end","message":"x"}]`))
	}()

	waitFor(t, func() bool {
		e := h.driver.Last()
		return e != nil && e.Waiting()
	})
	select {
	case <-done:
		t.Fatal("Execute returned while the window was still open")
	default:
	}
	assert.Equal(t, 1, h.manager.Active())

	h.driver.Last().CloseWindow()
	res := <-done
	assert.Equal(t, StateFinishedNormal, res.State)
	assert.Equal(t, 0, h.manager.Active())
}

func TestExecute_CancelledContext(t *testing.T) {
	h := newHarness(t, &browsertest.Driver{HoldOpen: true})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan *Result, 1)
	go func() {
		done <- h.executor.Execute(ctx, decode(t, `[{"action":"click","selector":"#a"}]`))
	}()

	waitFor(t, func() bool {
		e := h.driver.Last()
		return e != nil && e.Waiting()
	})
	cancel()

	res := <-done
	assert.Equal(t, StateFinishedNormal, res.State)
	assert.Equal(t, 1, h.manager.Released())
}

func TestExecutionLog_String(t *testing.T) {
	assert.Equal(t, "", ExecutionLog(nil).String())
	assert.Equal(t, "a\nb", ExecutionLog{"a", "b"}.String())
	assert.True(t, strings.HasPrefix(PausedLine, "\n"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "finished", StateFinishedNormal.String())
	assert.Equal(t, "error", StateFinishedError.String())
	assert.Equal(t, "State(9)", State(9).String())
}
