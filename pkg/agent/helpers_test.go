package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/entrhq/brain/pkg/browser"
	"github.com/entrhq/brain/pkg/browser/browsertest"
	"github.com/entrhq/brain/pkg/llm"
	"github.com/entrhq/brain/pkg/plan"
	"github.com/entrhq/brain/pkg/types"
)

// fakeProvider returns a fixed response or error.
type fakeProvider struct {
	mu       sync.Mutex
	response string
	err      error
	panicVal any
	prompts  []string
}

func (p *fakeProvider) StreamCompletion(ctx context.Context, messages []*types.Message) (<-chan *llm.StreamChunk, error) {
	ch := make(chan *llm.StreamChunk, 1)
	ch <- &llm.StreamChunk{Content: p.response, Finished: true}
	close(ch)
	return ch, nil
}

func (p *fakeProvider) Complete(ctx context.Context, messages []*types.Message) (*types.Message, error) {
	p.mu.Lock()
	for _, m := range messages {
		p.prompts = append(p.prompts, m.Content)
	}
	p.mu.Unlock()

	if p.panicVal != nil {
		panic(p.panicVal)
	}
	if p.err != nil {
		return nil, p.err
	}
	return types.NewAssistantMessage(p.response), nil
}

func (p *fakeProvider) GetModelInfo() *types.ModelInfo {
	return &types.ModelInfo{Provider: "fake", Name: "fake-model"}
}

func (p *fakeProvider) GetModel() string { return "fake-model" }

func (p *fakeProvider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}

func wordCount(s string) int { return len(s) / 4 }

// harness wires a fake driver through a real Manager and Executor.
type harness struct {
	driver   *browsertest.Driver
	manager  *browser.Manager
	executor *Executor
}

func newHarness(t *testing.T, drv *browsertest.Driver, opts ...ExecutorOption) *harness {
	t.Helper()
	if drv == nil {
		drv = &browsertest.Driver{}
	}
	mgr := browser.NewManager(drv, browser.DefaultOptions(), nil)
	return &harness{
		driver:   drv,
		manager:  mgr,
		executor: NewExecutor(mgr, opts...),
	}
}

func decode(t *testing.T, text string) plan.Plan {
	t.Helper()
	p, err := plan.Decode(text)
	require.NoError(t, err)
	return p
}

// collect drains a run's updates, failing the test if it takes too long.
func collect(t *testing.T, ch <-chan *types.Update) []*types.Update {
	t.Helper()
	var updates []*types.Update
	timeout := time.After(5 * time.Second)
	for {
		select {
		case u, ok := <-ch:
			if !ok {
				return updates
			}
			updates = append(updates, u)
		case <-timeout:
			t.Fatal("run did not finish")
			return nil
		}
	}
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, 5*time.Millisecond)
}
