package runner

import (
	"fmt"

	"github.com/lambdamechanic/trudger-sub000/internal/interrupt"
	"github.com/lambdamechanic/trudger-sub000/internal/tracker"
)

const (
	ExitOK          = 0
	ExitFatal       = 1
	ExitInterrupted = interrupt.ExitCode
)

// Reason tokens. Task-scoped reasons are suffixed with ":<task id>".
const (
	ReasonInterrupted       = "interrupted"
	ReasonNoTask            = "no_task"
	ReasonNoReadyTask       = "no_ready_task"
	ReasonNextTaskFailed    = "next_task_failed"
	ReasonInvalidTaskID     = "invalid_task_id"
	ReasonTaskNotReady      = "task_not_ready"
	ReasonTaskStatusFailed  = "task_status_failed"
	ReasonTaskStatusMissing = "task_status_missing"
	ReasonTaskUpdateFailed  = "task_update_failed"
	ReasonTaskShowFailed    = "task_show_failed"
	ReasonSolveFailed       = "solve_failed"
	ReasonReviewFailed      = "review_failed"
	ReasonHookFailed        = "hook_failed"
)

// Quit ends the run. Every exit from the loop is expressed as one.
type Quit struct {
	Code int
	// Reason is a short machine-readable token such as "solve_failed:tr-1".
	Reason string
	// Message is the human-readable explanation.
	Message string
	// TaskID is the task this run marked in progress and had not finished.
	TaskID tracker.TaskID
}

func (q Quit) String() string {
	return fmt.Sprintf("exit %d (%s): %s", q.Code, q.Reason, q.Message)
}

func taskReason(reason string, id tracker.TaskID) string {
	return reason + ":" + string(id)
}

func interruptedQuit(inFlight tracker.TaskID) Quit {
	return Quit{Code: ExitInterrupted, Reason: ReasonInterrupted, Message: "interrupted", TaskID: inFlight}
}

func idleQuit(reason string, message string) Quit {
	return Quit{Code: ExitOK, Reason: reason, Message: message}
}

func fatalQuit(reason string, inFlight tracker.TaskID, err error) Quit {
	return Quit{Code: ExitFatal, Reason: reason, Message: err.Error(), TaskID: inFlight}
}
