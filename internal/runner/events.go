package runner

import "github.com/lambdamechanic/trudger-sub000/internal/logging"

// EventType names a transition written to the structured log.
type EventType string

const (
	EventRunStarted        EventType = "run_started"
	EventRunFinished       EventType = "run_finished"
	EventManualChecked     EventType = "manual_task_checked"
	EventTaskSelected      EventType = "task_selected"
	EventTaskSkipped       EventType = "task_skipped"
	EventTaskStatusUnknown EventType = "task_status_unknown"
	EventStepStarted       EventType = "step_started"
	EventStepFinished      EventType = "step_finished"
	EventReviewRetry       EventType = "review_retry"
	EventTaskCompleted     EventType = "task_completed"
	EventTaskEscalated     EventType = "task_escalated"
	EventTaskReset         EventType = "task_reset"
	EventResetFailed       EventType = "reset_failed"
)

// Step names for the blocking calls of the solve/review cycle.
const (
	StepMarkInProgress = "mark_in_progress"
	StepShow           = "task_show"
	StepSolve          = "agent_solve"
	StepReshow         = "task_reshow"
	StepReview         = "agent_review"
	StepStatus         = "task_status"
	StepForceBlocked   = "force_blocked"
)

// Logger receives structured transition lines.
type Logger interface {
	Log(level string, fields map[string]interface{}) error
}

type discardLogger struct{}

func (discardLogger) Log(string, map[string]interface{}) error { return nil }

func (r *Runner) logEvent(level string, event EventType, taskID string, fields map[string]interface{}) {
	entry := map[string]interface{}{"event": string(event)}
	if taskID != "" {
		entry["task_id"] = taskID
	}
	for key, value := range fields {
		if text, ok := value.(string); ok && (key == "message" || key == "error") {
			value = logging.Redact(text)
		}
		entry[key] = value
	}
	_ = r.deps.Logger.Log(level, entry)
}
