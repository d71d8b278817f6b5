// Package agent turns a natural-language instruction into browser actions.
//
// An Orchestrator asks an llm.Provider for a plan, decodes it with package
// plan, and hands it to an Executor, which walks the actions in a single
// browser session:
//
//	mgr := browser.NewManager(browser.NewPlaywrightDriver(), browser.DefaultOptions(), logger)
//	exec := agent.NewExecutor(mgr, agent.WithMaxSteps(25))
//	orch := agent.NewOrchestrator(provider, exec)
//
//	for update := range orch.Run(ctx, "Go to example.com and read the heading") {
//	    fmt.Println(update.Content)
//	}
package agent

import (
	"context"

	"github.com/entrhq/brain/pkg/types"
)

// Runner runs one instruction and streams its updates. The channel carries
// zero or one plan_generated update followed by exactly one final update, and
// is closed afterwards.
type Runner interface {
	Run(ctx context.Context, instruction string) <-chan *types.Update
}

var _ Runner = (*Orchestrator)(nil)
