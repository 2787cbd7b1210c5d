package runner

import (
	"context"

	"github.com/lambdamechanic/trudger-sub000/internal/tracker"
)

// resetOnExit returns a task this run left in progress to open so another
// run can pick it up. Failures are logged and otherwise ignored.
func (r *Runner) resetOnExit(ctx context.Context, state *RunState, quit Quit) {
	if quit.Code == ExitOK || quit.TaskID == "" {
		return
	}
	id := quit.TaskID
	status, ok, err := r.deps.Tracker.Status(ctx, id, state.Env())
	if err != nil {
		r.resetFailed(id, err.Error())
		return
	}
	if !ok || status.Kind() != tracker.StatusInProgress {
		return
	}
	if err := r.deps.Tracker.UpdateStatus(ctx, id, tracker.Open, state.Env()); err != nil {
		r.resetFailed(id, err.Error())
		return
	}
	r.logEvent("info", EventTaskReset, string(id), map[string]interface{}{"status": tracker.Open.String()})
	r.deps.Reporter.Infof("reset %s to %s", id, tracker.Open)
}

func (r *Runner) resetFailed(id tracker.TaskID, message string) {
	r.logEvent("warn", EventResetFailed, string(id), map[string]interface{}{"message": message})
	r.deps.Reporter.Warnf("could not reset %s: %s", id, message)
}
