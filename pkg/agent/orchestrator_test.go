package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/brain/pkg/agent/prompts"
	"github.com/entrhq/brain/pkg/browser/browsertest"
	"github.com/entrhq/brain/pkg/types"
)

const searchPlan = "```json\n" + `[
  {"action": "navigate", "url": "https://google.com"},
  {"action": "type", "selector": "textarea[name=q]", "text": "Gemini AI"},
  {"action": "click", "selector": "input[name=btnK]"},
  {"action": "end", "message": "Search done"}
]` + "\n```"

func TestRun_Success(t *testing.T) {
	h := newHarness(t, nil)
	provider := &fakeProvider{response: searchPlan}
	orch := NewOrchestrator(provider, h.executor, WithTokenCounter(wordCount))

	updates := collect(t, orch.Run(context.Background(), "search google for Gemini AI"))
	require.Len(t, updates, 2)

	planUpdate, final := updates[0], updates[1]
	assert.Equal(t, types.UpdateTypePlanGenerated, planUpdate.Type)
	assert.Equal(t, types.StatusRunning, planUpdate.Status)
	assert.True(t, strings.HasPrefix(planUpdate.Content, "Generated Plan:\n[\n"))
	assert.True(t, strings.HasSuffix(planUpdate.Content, "]\n\nExecuting..."))
	assert.NotContains(t, planUpdate.Content, "```")
	assert.Positive(t, planUpdate.PlanTokens)
	assert.Equal(t, "fake-model", planUpdate.Metadata["model"])

	assert.True(t, final.Succeeded())
	assert.Equal(t, planUpdate.RunID, final.RunID)
	assert.Equal(t, strings.Join([]string{
		"Navigated to https://google.com",
		"Typed 'Gemini AI' into 'textarea[name=q]'",
		"Clicked on 'input[name=btnK]'",
		"Task finished: Search done",
		PausedLine,
		CloseLine,
	}, "\n"), final.Content)
	assert.Equal(t, "finished", final.Metadata["state"])
	assert.Equal(t, 4, final.Metadata["steps"])
	assert.NotEmpty(t, final.Metadata["session"])

	assert.Equal(t, 1, h.manager.Released())
	assert.Equal(t, 0, h.manager.Active())

	// The prompt carries the instruction and the vocabulary.
	sent := provider.Prompts()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], `User Request: "search google for Gemini AI"`)
	assert.Contains(t, sent[0], `"extract_text"`)
}

func TestRun_UndecodablePlan(t *testing.T) {
	h := newHarness(t, nil)
	orch := NewOrchestrator(&fakeProvider{response: "Sure! Here is what I would do."}, h.executor, WithTokenCounter(wordCount))

	updates := collect(t, orch.Run(context.Background(), "do something"))
	require.Len(t, updates, 2)

	final := updates[1]
	assert.Equal(t, types.StatusInvalidPlan, final.Status)
	assert.Equal(t, "Error: Could not decode the plan from the LLM. Raw response:\nSure! Here is what I would do.", final.Content)
	assert.Equal(t, 0, h.driver.Launches())
}

func TestRun_StepFailure(t *testing.T) {
	h := newHarness(t, &browsertest.Driver{
		Fail: map[string]error{"click #missing": errors.New("Timeout 30000ms exceeded")},
	})
	provider := &fakeProvider{response: `[{"action":"navigate","url":"https://example.com"},{"action":"click","selector":"#missing"},{"action":"end","message":"done"}]`}
	orch := NewOrchestrator(provider, h.executor, WithTokenCounter(wordCount))

	updates := collect(t, orch.Run(context.Background(), "click the missing thing"))
	require.Len(t, updates, 2)

	final := updates[1]
	assert.Equal(t, types.StatusFailed, final.Status)
	assert.Equal(t, "Navigated to https://example.com\n"+
		"An error occurred: step 2 (click): click failed: Timeout 30000ms exceeded\n"+
		PausedLine+"\n"+CloseLine, final.Content)
	assert.NotContains(t, final.Content, "Task finished")
	assert.Equal(t, "error", final.Metadata["state"])
	assert.Equal(t, 1, h.manager.Released())
}

func TestRun_AcquireFailure(t *testing.T) {
	h := newHarness(t, &browsertest.Driver{LaunchErr: errors.New("executable doesn't exist")})
	orch := NewOrchestrator(&fakeProvider{response: searchPlan}, h.executor, WithTokenCounter(wordCount))

	updates := collect(t, orch.Run(context.Background(), "search"))
	require.Len(t, updates, 2)

	final := updates[1]
	assert.Equal(t, types.StatusFailed, final.Status)
	assert.Equal(t, "An error occurred: failed to start fake browser: executable doesn't exist", final.Content)
	assert.Equal(t, "", final.Metadata["session"])
}

func TestRun_TranslatorError(t *testing.T) {
	h := newHarness(t, nil)
	orch := NewOrchestrator(&fakeProvider{err: errors.New("quota exceeded")}, h.executor, WithTokenCounter(wordCount))

	updates := collect(t, orch.Run(context.Background(), "search"))
	require.Len(t, updates, 1)

	final := updates[0]
	assert.True(t, final.IsFinal())
	assert.Equal(t, types.StatusFailed, final.Status)
	assert.Equal(t, "An execution error occurred: fake translator failed (model fake-model): quota exceeded", final.Content)
	assert.Equal(t, 0, h.driver.Launches())
}

func TestRun_PanicBecomesFinalUpdate(t *testing.T) {
	h := newHarness(t, nil)
	orch := NewOrchestrator(&fakeProvider{panicVal: "nil map"}, h.executor, WithTokenCounter(wordCount))

	updates := collect(t, orch.Run(context.Background(), "search"))
	require.Len(t, updates, 1)
	assert.Equal(t, types.StatusFailed, updates[0].Status)
	assert.Equal(t, "An execution error occurred: nil map", updates[0].Content)

	// The run slot is freed after a panic.
	again := collect(t, orch.Run(context.Background(), "again"))
	require.NotEmpty(t, again)
	assert.NotEqual(t, types.StatusBusy, again[len(again)-1].Status)
}

func TestRun_RejectsConcurrentRun(t *testing.T) {
	h := newHarness(t, &browsertest.Driver{HoldOpen: true})
	orch := NewOrchestrator(&fakeProvider{response: `[{"action":"end","message":"ok"}]`}, h.executor, WithTokenCounter(wordCount))

	first := orch.Run(context.Background(), "first")
	waitFor(t, func() bool {
		e := h.driver.Last()
		return e != nil && e.Waiting()
	})

	busy := collect(t, orch.Run(context.Background(), "second"))
	require.Len(t, busy, 1)
	assert.Equal(t, types.StatusBusy, busy[0].Status)
	assert.Equal(t, BusyMessage, busy[0].Content)
	assert.Equal(t, 1, h.driver.Launches())

	h.driver.Last().CloseWindow()
	updates := collect(t, first)
	require.Len(t, updates, 2)
	assert.True(t, updates[1].Succeeded())

	// A new run is accepted once the window is closed.
	next := orch.Run(context.Background(), "third")
	waitFor(t, func() bool { return h.driver.Launches() == 2 && h.driver.Last().Waiting() })
	h.driver.Last().CloseWindow()
	updates = collect(t, next)
	assert.True(t, updates[len(updates)-1].Succeeded())
}

func TestRun_CancelUnblocksWait(t *testing.T) {
	h := newHarness(t, &browsertest.Driver{HoldOpen: true})
	orch := NewOrchestrator(&fakeProvider{response: `[{"action":"navigate","url":"https://example.com"}]`}, h.executor, WithTokenCounter(wordCount))

	ctx, cancel := context.WithCancel(context.Background())
	ch := orch.Run(ctx, "open example")
	waitFor(t, func() bool {
		e := h.driver.Last()
		return e != nil && e.Waiting()
	})
	cancel()

	updates := collect(t, ch)
	require.Len(t, updates, 2)
	assert.Equal(t, types.StatusSuccess, updates[1].Status)
	assert.Equal(t, 0, h.manager.Active())
}

func TestRun_SequentialRunsReleaseEverySession(t *testing.T) {
	h := newHarness(t, &browsertest.Driver{Fail: map[string]error{"click #bad": errors.New("detached")}})
	responses := []string{
		searchPlan,
		`[{"action":"click","selector":"#bad"}]`,
		`not json`,
		`[{"action":"type","selector":"#q"}]`,
		`[]`,
	}

	for _, resp := range responses {
		orch := NewOrchestrator(&fakeProvider{response: resp}, h.executor, WithTokenCounter(wordCount))
		updates := collect(t, orch.Run(context.Background(), "go"))
		require.NotEmpty(t, updates)
		assert.True(t, updates[len(updates)-1].IsFinal())
	}

	// Four plans decoded and each got exactly one session.
	assert.Equal(t, 4, h.manager.Acquired())
	assert.Equal(t, 4, h.manager.Released())
	for _, e := range h.driver.Engines() {
		assert.Equal(t, 1, e.Closes())
	}
}

func TestRun_ConcurrentCallersGetOneSlot(t *testing.T) {
	h := newHarness(t, &browsertest.Driver{HoldOpen: true})
	orch := NewOrchestrator(&fakeProvider{response: `[{"action":"end","message":"ok"}]`}, h.executor, WithTokenCounter(wordCount))

	const callers = 8
	chans := make([]<-chan *types.Update, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			chans[i] = orch.Run(context.Background(), "go")
		}()
	}
	wg.Wait()

	waitFor(t, func() bool {
		e := h.driver.Last()
		return e != nil && e.Waiting()
	})
	h.driver.Last().CloseWindow()

	results := make([][]*types.Update, callers)
	for i, ch := range chans {
		results[i] = collect(t, ch)
	}

	var succeeded, busy int
	for _, updates := range results {
		switch updates[len(updates)-1].Status {
		case types.StatusSuccess:
			succeeded++
		case types.StatusBusy:
			busy++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, busy)
	assert.Equal(t, 1, h.driver.Launches())
}

func TestRun_CustomPromptBuilder(t *testing.T) {
	h := newHarness(t, nil)
	provider := &fakeProvider{response: `[]`}
	orch := NewOrchestrator(provider, h.executor,
		WithTokenCounter(wordCount),
		WithPromptBuilder(prompts.NewPromptBuilder().WithMaxSteps(3)))

	collect(t, orch.Run(context.Background(), "x"))

	require.Len(t, provider.Prompts(), 1)
	assert.Contains(t, provider.Prompts()[0], "Use at most 3 actions")
}

func TestRun_DefaultPromptAdvertisesStepCap(t *testing.T) {
	h := newHarness(t, nil, WithMaxSteps(7))
	provider := &fakeProvider{response: `[]`}
	orch := NewOrchestrator(provider, h.executor, WithTokenCounter(wordCount))

	collect(t, orch.Run(context.Background(), "x"))

	assert.Contains(t, provider.Prompts()[0], "Use at most 7 actions")
}

func TestErrors(t *testing.T) {
	base := errors.New("boom")

	terr := &TranslatorError{Provider: "gemini", Err: base}
	assert.ErrorIs(t, terr, ErrTranslator)
	assert.ErrorIs(t, terr, base)
	assert.Equal(t, "gemini translator failed: boom", terr.Error())

	terr.Model = "gemini-1.5-flash-latest"
	assert.Equal(t, "gemini translator failed (model gemini-1.5-flash-latest): boom", terr.Error())

	serr := &StepError{Index: 0, Kind: "navigate", Err: base}
	assert.ErrorIs(t, serr, ErrStep)
	assert.ErrorIs(t, serr, base)
	assert.Equal(t, "step 1 (navigate): boom", serr.Error())
}
