package headless

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/brain/pkg/agent"
	"github.com/entrhq/brain/pkg/types"
)

// ErrRunFailed is returned by Run when the final update is not a success.
var ErrRunFailed = errors.New("run did not succeed")

// RunSummary records one headless run.
type RunSummary struct {
	Instruction string          `json:"instruction"`
	RunID       string          `json:"run_id"`
	Status      types.RunStatus `json:"status"`
	Plan        string          `json:"plan,omitempty"`
	PlanTokens  int             `json:"plan_tokens"`
	Log         string          `json:"log"`
	Error       string          `json:"error,omitempty"`
	Steps       int             `json:"steps"`
	SessionID   string          `json:"session_id,omitempty"`
	StartTime   time.Time       `json:"start_time"`
	EndTime     time.Time       `json:"end_time"`
	Duration    time.Duration   `json:"duration"`
}

// Executor runs one instruction and prints its updates.
type Executor struct {
	runner    agent.Runner
	logger    *Logger
	artifacts *ArtifactWriter
}

// Option configures an Executor.
type Option func(*Executor)

// WithArtifacts writes run artifacts to dir after each run.
func WithArtifacts(dir string) Option {
	return func(e *Executor) {
		if dir != "" {
			e.artifacts = NewArtifactWriter(dir)
		}
	}
}

// NewExecutor creates a headless executor around runner.
func NewExecutor(runner agent.Runner, logger *Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = NewLogger(LogLevelNormal)
	}
	e := &Executor{runner: runner, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run executes instruction and blocks until its final update. The returned
// error wraps ErrRunFailed for any status other than success.
func (e *Executor) Run(ctx context.Context, instruction string) (*RunSummary, error) {
	summary := &RunSummary{
		Instruction: instruction,
		Status:      types.StatusRunning,
		StartTime:   time.Now(),
	}

	e.logger.Header("B.R.A.I.N")
	e.logger.Infof("Instruction: %s", instruction)

	for u := range e.runner.Run(ctx, instruction) {
		summary.RunID = u.RunID
		e.logger.Debugf("update type=%s status=%s", u.Type, u.Status)

		switch u.Type {
		case types.UpdateTypePlanGenerated:
			summary.Plan = u.Content
			summary.PlanTokens = u.PlanTokens
			e.logger.Section("Plan")
			e.logger.Block(u.Content)
			e.logger.Verbosef("plan is %d tokens", u.PlanTokens)

		case types.UpdateTypeFinal:
			e.finish(summary, u)
		}
	}

	summary.EndTime = time.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)
	e.logger.Summary(summary)

	if e.artifacts != nil {
		if err := e.artifacts.WriteAll(summary); err != nil {
			e.logger.Warningf("failed to write artifacts: %v", err)
		} else {
			e.logger.Verbosef("artifacts written to %s", e.artifacts.Dir())
		}
	}

	if summary.Status != types.StatusSuccess {
		return summary, fmt.Errorf("%w: %s", ErrRunFailed, summary.Status)
	}
	return summary, nil
}

func (e *Executor) finish(summary *RunSummary, u *types.Update) {
	summary.Status = u.Status
	summary.Log = u.Content
	if steps, ok := u.Metadata["steps"].(int); ok {
		summary.Steps = steps
	}
	if session, ok := u.Metadata["session"].(string); ok {
		summary.SessionID = session
	}

	switch u.Status {
	case types.StatusSuccess:
		e.logger.Section("Execution")
		e.logger.Block(u.Content)
		e.logger.Successf("Plan finished")
	case types.StatusBusy:
		summary.Error = u.Content
		e.logger.Warningf("%s", u.Content)
	case types.StatusInvalidPlan:
		summary.Error = "translator output was not a plan"
		e.logger.Errorf("%s", u.Content)
	default:
		summary.Error = lastErrorLine(u.Content)
		e.logger.Section("Execution")
		e.logger.Block(u.Content)
	}
}

// lastErrorLine returns the last "An error occurred" style line of a log, or
// the whole text when there is none.
func lastErrorLine(log string) string {
	lines := strings.Split(log, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.Contains(lines[i], "error occurred") {
			return lines[i]
		}
	}
	return strings.TrimSpace(log)
}
