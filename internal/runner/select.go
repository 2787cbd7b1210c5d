package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/lambdamechanic/trudger-sub000/internal/tracker"
)

// precheckManualTasks verifies every manual task is ready before any work
// starts, so a bad list fails before the tracker is consulted.
func (r *Runner) precheckManualTasks(ctx context.Context, state *RunState) (Quit, bool) {
	for _, id := range state.ManualTasks {
		if r.interrupted() {
			return interruptedQuit(""), true
		}
		status, quit, stop := r.requireReady(ctx, state, id)
		if stop {
			return quit, true
		}
		r.logEvent("debug", EventManualChecked, string(id), map[string]interface{}{"status": status.String()})
	}
	return Quit{}, false
}

// selectTask returns the next ready task: manual tasks first, in order,
// then candidates from next_task.
func (r *Runner) selectTask(ctx context.Context, state *RunState) (tracker.TaskID, tracker.TaskStatus, Quit, bool) {
	if r.interrupted() {
		return "", tracker.TaskStatus{}, interruptedQuit(""), true
	}
	if id, ok := state.popManualTask(); ok {
		status, quit, stop := r.requireReady(ctx, state, id)
		if stop {
			return "", tracker.TaskStatus{}, quit, true
		}
		return id, status, Quit{}, false
	}

	for skipped := 0; ; {
		if r.interrupted() {
			return "", tracker.TaskStatus{}, interruptedQuit(""), true
		}
		id, err := r.deps.Tracker.NextTask(ctx, state.Env())
		if err != nil {
			quit := r.nextTaskQuit(err)
			return "", tracker.TaskStatus{}, quit, true
		}

		status, quit, stop := r.readStatus(ctx, state, id)
		if stop {
			return "", tracker.TaskStatus{}, quit, true
		}
		if status.IsReady() {
			return id, status, Quit{}, false
		}

		if status.IsUnknown() {
			r.logEvent("warn", EventTaskStatusUnknown, string(id), map[string]interface{}{"status": status.String()})
		}
		skipped++
		r.logEvent("info", EventTaskSkipped, string(id), map[string]interface{}{
			"status":  status.String(),
			"skipped": skipped,
		})
		r.deps.Reporter.Infof("skipping %s (status %s)", id, status)
		if skipped >= r.options.SkipLimit {
			return "", tracker.TaskStatus{}, idleQuit(ReasonNoReadyTask, fmt.Sprintf("no ready task found after %d attempts", skipped)), true
		}
	}
}

func (r *Runner) nextTaskQuit(err error) Quit {
	if errors.Is(err, tracker.ErrNoTask) {
		return idleQuit(ReasonNoTask, "no task available")
	}
	if errors.Is(err, tracker.ErrInvalidTaskID) {
		return fatalQuit(ReasonInvalidTaskID, "", err)
	}
	quit := fatalQuit(ReasonNextTaskFailed, "", err)
	var commandErr *tracker.CommandError
	if errors.As(err, &commandErr) {
		quit.Code = commandErr.ExitCode
	}
	return quit
}

// requireReady reads id's status and fails the run unless it is ready.
func (r *Runner) requireReady(ctx context.Context, state *RunState, id tracker.TaskID) (tracker.TaskStatus, Quit, bool) {
	status, quit, stop := r.readStatus(ctx, state, id)
	if stop {
		return status, quit, true
	}
	if !status.IsReady() {
		err := fmt.Errorf("task %s is not ready (status %s)", id, status)
		return status, fatalQuit(taskReason(ReasonTaskNotReady, id), "", err), true
	}
	return status, Quit{}, false
}

// readStatus maps a failing or silent task_status to a fatal Quit. An
// unrecognized token is returned as an unknown status.
func (r *Runner) readStatus(ctx context.Context, state *RunState, id tracker.TaskID) (tracker.TaskStatus, Quit, bool) {
	var status tracker.TaskStatus
	var ok bool
	err := r.step(ctx, StepStatus, id, func(ctx context.Context) error {
		var err error
		status, ok, err = r.deps.Tracker.Status(ctx, id, state.Env())
		return err
	})
	if err != nil {
		return status, fatalQuit(taskReason(ReasonTaskStatusFailed, id), "", err), true
	}
	if !ok {
		err := fmt.Errorf("task_status for %s printed nothing: status parser contract violated", id)
		return status, fatalQuit(taskReason(ReasonTaskStatusMissing, id), "", err), true
	}
	return status, Quit{}, false
}
