package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/entrhq/brain/pkg/browser"
	"github.com/entrhq/brain/pkg/logging"
	"github.com/entrhq/brain/pkg/plan"
	"github.com/entrhq/brain/pkg/security/navigation"
)

// Step cap bounds.
const (
	DefaultMaxSteps = 25
	MinMaxSteps     = 1
	MaxMaxSteps     = 50
)

// Trailing lines appended once the walk is over.
const (
	PausedLine = "\n✅ Automation finished. The browser is now paused."
	CloseLine  = "Close the browser window manually to run a new command."
)

// State is the lifecycle state of one plan execution.
type State int

const (
	StateRunning State = iota
	StateFinishedNormal
	StateFinishedError
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateFinishedNormal:
		return "finished"
	case StateFinishedError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ExecutionLog holds the human-readable lines of a run, in order.
type ExecutionLog []string

// String joins the lines with newlines.
func (l ExecutionLog) String() string {
	return strings.Join(l, "\n")
}

// Result is the outcome of Executor.Execute.
type Result struct {
	Log   ExecutionLog
	State State

	// Err is the acquisition or step error that ended the run, if any.
	Err error

	// Steps is the number of actions dispatched, including skipped unknown ones.
	Steps int

	// SessionID identifies the browser session, empty if none was acquired.
	SessionID string

	Duration time.Duration
}

func (r *Result) appendf(format string, args ...any) {
	r.Log = append(r.Log, fmt.Sprintf(format, args...))
}

func (r *Result) fail(err error) {
	r.Err = err
	r.State = StateFinishedError
	r.appendf("An error occurred: %v", err)
}

// SessionSource hands out browser sessions. *browser.Manager implements it.
type SessionSource interface {
	Acquire(ctx context.Context) (*browser.Session, error)
}

// Executor runs decoded plans against a browser session.
type Executor struct {
	sessions SessionSource
	guard    *navigation.Guard
	logger   *logging.Logger
	maxSteps int
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithMaxSteps caps the number of actions a plan may run. Values outside
// [MinMaxSteps, MaxMaxSteps] are clamped.
func WithMaxSteps(n int) ExecutorOption {
	return func(e *Executor) {
		e.maxSteps = min(max(n, MinMaxSteps), MaxMaxSteps)
	}
}

// WithNavigationGuard checks every navigate URL before it is loaded.
func WithNavigationGuard(g *navigation.Guard) ExecutorOption {
	return func(e *Executor) {
		e.guard = g
	}
}

// WithExecutorLogger sets the diagnostic logger.
func WithExecutorLogger(l *logging.Logger) ExecutorOption {
	return func(e *Executor) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewExecutor creates an executor that takes sessions from sessions.
func NewExecutor(sessions SessionSource, opts ...ExecutorOption) *Executor {
	e := &Executor{
		sessions: sessions,
		logger:   logging.Discard(),
		maxSteps: DefaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxSteps returns the configured step cap.
func (e *Executor) MaxSteps() int {
	return e.maxSteps
}

// WithLogger returns a copy of e that logs to l.
func (e *Executor) WithLogger(l *logging.Logger) *Executor {
	c := *e
	c.logger = l
	return &c
}

// Execute runs p in a fresh browser session and returns the log once the
// session has been released.
//
// If the session cannot be acquired the log holds a single error line. Otherwise
// actions run in order until an end action, the first failure, the step cap or
// the end of the plan. The two trailing lines are then appended, the call
// blocks until the user closes the browser window, and the session is released.
func (e *Executor) Execute(ctx context.Context, p plan.Plan) *Result {
	start := time.Now()
	res := &Result{State: StateRunning}
	defer func() { res.Duration = time.Since(start) }()

	sess, err := e.sessions.Acquire(ctx)
	if err != nil {
		e.logger.Errorf("acquire: %v", err)
		res.fail(err)
		return res
	}
	res.SessionID = sess.ID
	defer func() {
		if err := sess.Release(); err != nil {
			e.logger.Warnf("release session %s: %v", sess.ID, err)
		}
	}()

	e.walk(ctx, sess, p, res)
	e.logger.Infof("plan %s after %d of %d actions", res.State, res.Steps, len(p))

	res.Log = append(res.Log, PausedLine, CloseLine)

	if err := sess.WaitForClose(ctx); err != nil {
		e.logger.Warnf("wait for close: %v", err)
	}
	return res
}

func (e *Executor) walk(ctx context.Context, sess *browser.Session, p plan.Plan, res *Result) {
	for i, action := range p {
		if i >= e.maxSteps {
			res.appendf("Step limit reached (%d); remaining actions skipped", e.maxSteps)
			res.State = StateFinishedNormal
			return
		}
		res.Steps++

		line, done, err := e.dispatch(ctx, sess, action)
		if err != nil {
			e.logger.Warnf("step %d (%s) failed: %v", i+1, action.Kind(), err)
			res.fail(&StepError{Index: i, Kind: action.Kind(), Err: err})
			return
		}
		if line != "" {
			res.Log = append(res.Log, line)
		}
		if done {
			res.State = StateFinishedNormal
			return
		}
	}
	res.State = StateFinishedNormal
}

// dispatch performs one action and returns its log line. done reports an end action.
func (e *Executor) dispatch(ctx context.Context, sess *browser.Session, action plan.Action) (line string, done bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if err := action.Validate(); err != nil {
		return "", false, err
	}

	switch a := action.(type) {
	case *plan.Navigate:
		if err := e.guard.Allow(a.URL); err != nil {
			return "", false, err
		}
		if err := sess.Goto(ctx, a.URL); err != nil {
			return "", false, err
		}
		return fmt.Sprintf("Navigated to %s", a.URL), false, nil

	case *plan.Type:
		if err := sess.Type(ctx, a.Selector, a.Text); err != nil {
			return "", false, err
		}
		return fmt.Sprintf("Typed '%s' into '%s'", a.Text, a.Selector), false, nil

	case *plan.Click:
		if err := sess.Click(ctx, a.Selector); err != nil {
			return "", false, err
		}
		return fmt.Sprintf("Clicked on '%s'", a.Selector), false, nil

	case *plan.ExtractText:
		text, err := sess.InnerText(ctx, a.Selector)
		if err != nil {
			return "", false, err
		}
		return fmt.Sprintf("Extracted Data (%s): %s", a.Description, text), false, nil

	case *plan.End:
		return fmt.Sprintf("Task finished: %s", a.Message), true, nil

	case *plan.Unknown:
		e.logger.Debugf("skipping unknown action %q", a.Name)
		return "", false, nil

	default:
		e.logger.Debugf("skipping unhandled action type %T", action)
		return "", false, nil
	}
}
