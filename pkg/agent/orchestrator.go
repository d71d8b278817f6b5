package agent

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/entrhq/brain/pkg/agent/prompts"
	"github.com/entrhq/brain/pkg/llm"
	"github.com/entrhq/brain/pkg/logging"
	"github.com/entrhq/brain/pkg/plan"
	"github.com/entrhq/brain/pkg/types"
)

// BusyMessage is the final update of a run rejected because another is active.
const BusyMessage = "Another automation is still running; close the browser window before starting a new command."

// Orchestrator sequences translate, decode and execute for each instruction.
// Only one run is active at a time.
type Orchestrator struct {
	provider llm.Provider
	executor *Executor
	prompts  *prompts.PromptBuilder
	logger   *logging.Logger
	active   *semaphore.Weighted
	tokens   func(string) int
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the diagnostic logger. Each run logs through a copy tagged
// with its run ID.
func WithLogger(l *logging.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPromptBuilder replaces the default prompt builder.
func WithPromptBuilder(pb *prompts.PromptBuilder) OrchestratorOption {
	return func(o *Orchestrator) {
		o.prompts = pb
	}
}

// WithTokenCounter replaces the tokenizer used to size generated plans.
func WithTokenCounter(count func(string) int) OrchestratorOption {
	return func(o *Orchestrator) {
		if count != nil {
			o.tokens = count
		}
	}
}

// NewOrchestrator creates an orchestrator. The default prompt advertises the
// executor's step cap.
func NewOrchestrator(provider llm.Provider, executor *Executor, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		provider: provider,
		executor: executor,
		prompts:  prompts.NewPromptBuilder().WithMaxSteps(executor.MaxSteps()),
		logger:   logging.Discard(),
		active:   semaphore.NewWeighted(1),
		tokens:   llm.CountTokens,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run starts a run for instruction and returns its update stream.
//
// Errors never escape: translator, decode, session and step failures, and
// panics, all end the stream with a final update describing them. A call made
// while another run is active gets a single busy update.
func (o *Orchestrator) Run(ctx context.Context, instruction string) <-chan *types.Update {
	runID := uuid.NewString()

	// At most two updates are ever sent, so sends never block.
	out := make(chan *types.Update, 2)

	if !o.active.TryAcquire(1) {
		o.logger.Warnf("run %s rejected: another run is active", runID)
		out <- types.NewFinalUpdate(runID, types.StatusBusy, BusyMessage)
		close(out)
		return out
	}

	go func() {
		defer close(out)
		defer o.active.Release(1)

		r := &run{
			id:     runID,
			out:    out,
			logger: o.logger.WithRun(runID),
		}
		defer r.recover()

		o.execute(ctx, r, instruction)
	}()

	return out
}

// run tracks the updates of one Run call.
type run struct {
	id        string
	out       chan<- *types.Update
	logger    *logging.Logger
	finalSent bool
}

func (r *run) progress(u *types.Update) {
	r.out <- u
}

func (r *run) final(status types.RunStatus, content string) {
	r.finish(types.NewFinalUpdate(r.id, status, content))
}

// finish sends the terminal update. u must not be modified afterwards.
func (r *run) finish(u *types.Update) {
	r.out <- u
	r.finalSent = true
}

func (r *run) recover() {
	p := recover()
	if p == nil {
		return
	}
	r.logger.Errorf("panic: %v\n%s", p, debug.Stack())
	if !r.finalSent {
		r.final(types.StatusFailed, fmt.Sprintf("An execution error occurred: %v", p))
	}
}

func (o *Orchestrator) execute(ctx context.Context, r *run, instruction string) {
	r.logger.Infof("instruction: %q", instruction)

	resp, err := o.provider.Complete(ctx, o.prompts.BuildMessages(instruction))
	if err != nil {
		terr := &TranslatorError{Provider: o.providerName(), Model: o.provider.GetModel(), Err: err}
		r.logger.Errorf("%v", terr)
		r.final(types.StatusFailed, fmt.Sprintf("An execution error occurred: %v", terr))
		return
	}

	text := plan.Clean(resp.Content)
	tokens := o.tokens(text)
	r.logger.Infof("plan received (%d tokens)", tokens)
	r.progress(types.NewPlanGeneratedUpdate(r.id, fmt.Sprintf("Generated Plan:\n%s\n\nExecuting...", text), tokens).
		WithMetadata("model", o.provider.GetModel()))

	p, err := plan.Decode(text)
	if err != nil {
		if errors.Is(err, plan.ErrDecode) {
			r.logger.Warnf("%v", err)
			r.final(types.StatusInvalidPlan, fmt.Sprintf("Error: Could not decode the plan from the LLM. Raw response:\n%s", text))
			return
		}
		r.logger.Errorf("decode: %v", err)
		r.final(types.StatusFailed, fmt.Sprintf("An execution error occurred: %v", err))
		return
	}
	r.logger.Infof("decoded %d actions: %v", len(p), p.Kinds())

	res := o.executor.WithLogger(r.logger).Execute(ctx, p)

	status := types.StatusSuccess
	if res.State != StateFinishedNormal {
		status = types.StatusFailed
	}
	r.finish(types.NewFinalUpdate(r.id, status, res.Log.String()).
		WithMetadata("state", res.State.String()).
		WithMetadata("steps", res.Steps).
		WithMetadata("session", res.SessionID).
		WithMetadata("duration", res.Duration.String()))
}

// providerName returns the backend name reported by the provider.
func (o *Orchestrator) providerName() string {
	if info := o.provider.GetModelInfo(); info != nil && info.Provider != "" {
		return info.Provider
	}
	return "llm"
}
