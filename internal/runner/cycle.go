package runner

import (
	"context"
	"fmt"

	"github.com/lambdamechanic/trudger-sub000/internal/exec"
	"github.com/lambdamechanic/trudger-sub000/internal/tracing"
	"github.com/lambdamechanic/trudger-sub000/internal/tracker"
)

// cycle runs solve and review passes on id until the tracker reports it
// closed or blocked, or the review loop limit forces it blocked. A false
// stop means the task was finished and the loop should select again.
func (r *Runner) cycle(ctx context.Context, state *RunState, id tracker.TaskID) (Quit, bool) {
	var inFlight tracker.TaskID
	limit := r.options.ReviewLoopLimit.Int()

	for iteration := 0; ; iteration++ {
		if r.interrupted() {
			return interruptedQuit(inFlight), true
		}
		err := r.step(ctx, StepMarkInProgress, id, func(ctx context.Context) error {
			return r.deps.Tracker.UpdateStatus(ctx, id, tracker.InProgress, state.Env())
		})
		if err != nil {
			return fatalQuit(taskReason(ReasonTaskUpdateFailed, id), inFlight, err), true
		}
		inFlight = id
		state.CurrentTaskStatus = tracker.InProgress.String()

		if quit, stop := r.refreshShow(ctx, state, id, StepShow); stop {
			return quit, true
		}

		if r.interrupted() {
			return interruptedQuit(inFlight), true
		}
		resume := iteration > 0
		err = r.step(ctx, StepSolve, id, func(ctx context.Context) error {
			return r.deps.Agent.Solve(ctx, string(id), resume, state.Env())
		})
		if err != nil {
			return fatalQuit(taskReason(ReasonSolveFailed, id), inFlight, err), true
		}

		if quit, stop := r.refreshShow(ctx, state, id, StepReshow); stop {
			return quit, true
		}

		if r.interrupted() {
			return interruptedQuit(inFlight), true
		}
		err = r.step(ctx, StepReview, id, func(ctx context.Context) error {
			return r.deps.Agent.Review(ctx, string(id), state.Env())
		})
		if err != nil {
			return fatalQuit(taskReason(ReasonReviewFailed, id), inFlight, err), true
		}

		if r.interrupted() {
			return interruptedQuit(inFlight), true
		}
		status, quit, stop := r.readStatus(ctx, state, id)
		if stop {
			quit.TaskID = inFlight
			return quit, true
		}
		state.CurrentTaskStatus = status.String()
		if status.IsUnknown() {
			r.logEvent("warn", EventTaskStatusUnknown, string(id), map[string]interface{}{"status": status.String()})
		}

		switch status.Kind() {
		case tracker.StatusClosed:
			return r.complete(ctx, state, id)
		case tracker.StatusBlocked:
			return r.escalate(ctx, state, id, "blocked by review")
		}

		if iteration+1 < limit {
			r.logEvent("info", EventReviewRetry, string(id), map[string]interface{}{
				"status":    status.String(),
				"iteration": iteration + 1,
				"limit":     limit,
			})
			continue
		}

		if r.interrupted() {
			return interruptedQuit(inFlight), true
		}
		err = r.step(ctx, StepForceBlocked, id, func(ctx context.Context) error {
			return r.deps.Tracker.UpdateStatus(ctx, id, tracker.Blocked, state.Env())
		})
		if err != nil {
			return fatalQuit(taskReason(ReasonTaskUpdateFailed, id), inFlight, err), true
		}
		state.CurrentTaskStatus = tracker.Blocked.String()
		return r.escalate(ctx, state, id, fmt.Sprintf("review loop limit %d reached", limit))
	}
}

func (r *Runner) refreshShow(ctx context.Context, state *RunState, id tracker.TaskID, step string) (Quit, bool) {
	if r.interrupted() {
		return interruptedQuit(id), true
	}
	var show string
	err := r.step(ctx, step, id, func(ctx context.Context) error {
		var err error
		show, err = r.deps.Tracker.Show(ctx, id, state.Env())
		return err
	})
	if err != nil {
		return fatalQuit(taskReason(ReasonTaskShowFailed, id), id, err), true
	}
	state.CurrentTaskShow = show
	return Quit{}, false
}

func (r *Runner) complete(ctx context.Context, state *RunState, id tracker.TaskID) (Quit, bool) {
	state.Completed = append(state.Completed, id)
	r.logEvent("info", EventTaskCompleted, string(id), nil)
	r.deps.Reporter.Infof("%s closed", id)
	if err := r.runHook(ctx, state, RoleOnCompleted, r.options.Hooks.OnCompleted, id); err != nil {
		return fatalQuit(ReasonHookFailed+":"+taskReason(RoleOnCompleted, id), "", err), true
	}
	return Quit{}, false
}

func (r *Runner) escalate(ctx context.Context, state *RunState, id tracker.TaskID, why string) (Quit, bool) {
	state.Escalated = append(state.Escalated, id)
	r.logEvent("warn", EventTaskEscalated, string(id), map[string]interface{}{"message": why})
	r.deps.Reporter.Warnf("%s needs a human: %s", id, why)
	if err := r.runHook(ctx, state, RoleOnRequiresHuman, r.options.Hooks.OnRequiresHuman, id); err != nil {
		return fatalQuit(ReasonHookFailed+":"+taskReason(RoleOnRequiresHuman, id), "", err), true
	}
	return Quit{}, false
}

// runHook runs an optional hook with the task id as $1. An unset hook succeeds.
func (r *Runner) runHook(ctx context.Context, state *RunState, role string, script string, id tracker.TaskID) error {
	if script == "" {
		return nil
	}
	return r.step(ctx, role, id, func(ctx context.Context) error {
		result, err := r.deps.Commands.Run(ctx, exec.Command{
			Role:   role,
			Script: script,
			Args:   []string{string(id)},
			Env:    state.Env(),
		})
		if err != nil {
			return fmt.Errorf("%s: %w", role, err)
		}
		if result.ExitCode != 0 {
			return fmt.Errorf("%s %s exited with code %d", role, id, result.ExitCode)
		}
		return nil
	})
}

// step wraps one blocking call in a span and a pair of debug log lines.
func (r *Runner) step(ctx context.Context, name string, id tracker.TaskID, fn func(ctx context.Context) error) error {
	ctx, span := tracing.StartStep(ctx, name, string(id))
	r.logEvent("debug", EventStepStarted, string(id), map[string]interface{}{"step": name})
	err := fn(ctx)
	fields := map[string]interface{}{"step": name}
	if err != nil {
		fields["error"] = err.Error()
		tracing.EndWithOutcome(span, ExitFatal, name+"_failed")
	} else {
		tracing.EndWithOutcome(span, ExitOK, "")
	}
	r.logEvent("debug", EventStepFinished, string(id), fields)
	return err
}
