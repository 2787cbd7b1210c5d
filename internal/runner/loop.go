// Package runner drives the select, solve, review and close loop against an
// external tracker and agent.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lambdamechanic/trudger-sub000/internal/exec"
	"github.com/lambdamechanic/trudger-sub000/internal/notify"
	"github.com/lambdamechanic/trudger-sub000/internal/tracing"
	"github.com/lambdamechanic/trudger-sub000/internal/tracker"
)

// Tracker is the subset of tracker.Client the loop needs.
type Tracker interface {
	NextTask(ctx context.Context, env []string) (tracker.TaskID, error)
	Show(ctx context.Context, id tracker.TaskID, env []string) (string, error)
	Status(ctx context.Context, id tracker.TaskID, env []string) (tracker.TaskStatus, bool, error)
	UpdateStatus(ctx context.Context, id tracker.TaskID, status tracker.TaskStatus, env []string) error
}

type Agent interface {
	Solve(ctx context.Context, taskID string, resume bool, env []string) error
	Review(ctx context.Context, taskID string, env []string) error
}

type Notifier interface {
	Dispatch(ctx context.Context, n notify.Notification)
}

type Interrupter interface {
	Interrupted() bool
}

// Reporter prints operator-facing progress lines.
type Reporter interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Hook roles.
const (
	RoleOnCompleted     = "on_completed"
	RoleOnRequiresHuman = "on_requires_human"
)

type Hooks struct {
	OnCompleted     string
	OnRequiresHuman string
}

type Deps struct {
	Tracker Tracker
	Agent   Agent
	// Commands runs the completion and escalation hooks.
	Commands  exec.Runner
	Notifier  Notifier
	Interrupt Interrupter
	Logger    Logger
	Reporter  Reporter
}

type Options struct {
	ReviewLoopLimit ReviewLoopLimit
	// SkipLimit bounds consecutive not-ready candidates from next_task.
	SkipLimit int
	Hooks     Hooks
}

const DefaultSkipLimit = 5

type Runner struct {
	deps    Deps
	options Options
	now     func() time.Time
}

func New(deps Deps, options Options) (*Runner, error) {
	if deps.Tracker == nil {
		return nil, errors.New("runner requires a tracker")
	}
	if deps.Agent == nil {
		return nil, errors.New("runner requires an agent")
	}
	if deps.Commands == nil {
		return nil, errors.New("runner requires a command runner for hooks")
	}
	if options.ReviewLoopLimit <= 0 {
		return nil, fmt.Errorf("review loop limit must be greater than 0, got %d", options.ReviewLoopLimit)
	}
	if options.SkipLimit < 0 {
		return nil, fmt.Errorf("skip limit must not be negative, got %d", options.SkipLimit)
	}
	if options.SkipLimit == 0 {
		options.SkipLimit = DefaultSkipLimit
	}
	if deps.Notifier == nil {
		deps.Notifier = noopNotifier{}
	}
	if deps.Interrupt == nil {
		deps.Interrupt = neverInterrupted{}
	}
	if deps.Logger == nil {
		deps.Logger = discardLogger{}
	}
	if deps.Reporter == nil {
		deps.Reporter = silentReporter{}
	}
	return &Runner{deps: deps, options: options, now: time.Now}, nil
}

// Execute wraps Run with the run_start and run_end notifications and the
// reset of an abandoned in-progress task.
func (r *Runner) Execute(ctx context.Context, state *RunState) Quit {
	ctx, span := tracing.StartRun(ctx)
	state.RunStartedAt = r.now()
	r.logEvent("info", EventRunStarted, "", map[string]interface{}{
		"manual_tasks": len(state.ManualTasks),
	})
	r.notify(ctx, state, notify.EventRunStart, 0, "")

	quit := r.Run(ctx, state)

	r.resetOnExit(ctx, state, quit)
	state.ExitCode = quit.Code
	r.notify(ctx, state, notify.EventRunEnd, quit.Code, quit.Message)
	r.logEvent(levelFor(quit), EventRunFinished, string(quit.TaskID), map[string]interface{}{
		"exit_code": quit.Code,
		"reason":    quit.Reason,
		"message":   quit.Message,
		"completed": joinIDs(state.Completed),
		"escalated": joinIDs(state.Escalated),
	})
	tracing.EndWithOutcome(span, quit.Code, quit.Reason)
	return quit
}

// Run processes manual tasks then tracker-selected tasks until a Quit.
func (r *Runner) Run(ctx context.Context, state *RunState) Quit {
	if r.interrupted() {
		return interruptedQuit("")
	}
	if quit, stop := r.precheckManualTasks(ctx, state); stop {
		return quit
	}
	for {
		state.clearCurrentTask()
		id, status, quit, stop := r.selectTask(ctx, state)
		if stop {
			return quit
		}
		if quit, stop := r.runTask(ctx, state, id, status); stop {
			return quit
		}
	}
}

func (r *Runner) runTask(ctx context.Context, state *RunState, id tracker.TaskID, status tracker.TaskStatus) (Quit, bool) {
	ctx, span := tracing.StartTask(ctx, string(id))
	state.setCurrentTask(id, status, r.now())
	r.logEvent("info", EventTaskSelected, string(id), map[string]interface{}{"status": status.String()})
	r.deps.Reporter.Infof("working on %s", id)
	r.notify(ctx, state, notify.EventTaskStart, 0, "")

	quit, stop := r.cycle(ctx, state, id)

	r.notify(ctx, state, notify.EventTaskEnd, 0, quit.Message)
	state.clearCurrentTask()
	if stop {
		tracing.EndWithOutcome(span, quit.Code, quit.Reason)
	} else {
		tracing.EndWithOutcome(span, ExitOK, "")
	}
	return quit, stop
}

// MirrorLog forwards transition log lines as "log" notifications.
func (r *Runner) MirrorLog(state *RunState) func(level string, line string) {
	return func(level string, line string) {
		r.notify(context.Background(), state, notify.EventLog, 0, line)
	}
}

func (r *Runner) notify(ctx context.Context, state *RunState, event notify.Event, exitCode int, message string) {
	since := state.RunStartedAt
	if event == notify.EventTaskStart || event == notify.EventTaskEnd {
		since = state.TaskStartedAt
	}
	r.deps.Notifier.Dispatch(ctx, notify.Notification{
		Event:    event,
		Since:    since,
		TaskID:   string(state.CurrentTaskID),
		TaskShow: state.CurrentTaskShow,
		ExitCode: exitCode,
		Message:  message,
		Env:      state.Env(),
	})
}

func (r *Runner) interrupted() bool {
	return r.deps.Interrupt.Interrupted()
}

func levelFor(quit Quit) string {
	switch quit.Code {
	case ExitOK:
		return "info"
	case ExitInterrupted:
		return "warn"
	default:
		return "error"
	}
}

type noopNotifier struct{}

func (noopNotifier) Dispatch(context.Context, notify.Notification) {}

type neverInterrupted struct{}

func (neverInterrupted) Interrupted() bool { return false }

type silentReporter struct{}

func (silentReporter) Infof(string, ...interface{}) {}
func (silentReporter) Warnf(string, ...interface{}) {}
