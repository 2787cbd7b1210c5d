package runner

import (
	"strings"
	"time"

	"github.com/lambdamechanic/trudger-sub000/internal/tracker"
)

// Environment variables exported to every command.
const (
	EnvConfigPath = "TRUDGER_CONFIG_PATH"
	EnvTaskID     = "TRUDGER_TASK_ID"
	EnvTaskShow   = "TRUDGER_TASK_SHOW"
	EnvTaskStatus = "TRUDGER_TASK_STATUS"
	EnvCompleted  = "TRUDGER_COMPLETED"
	EnvNeedsHuman = "TRUDGER_NEEDS_HUMAN"
)

// RunState is the mutable session shared by the loop and its helpers. It is
// created once per process and only touched from the loop goroutine.
type RunState struct {
	ConfigPath  string
	ManualTasks []tracker.TaskID
	Completed   []tracker.TaskID
	Escalated   []tracker.TaskID

	CurrentTaskID     tracker.TaskID
	CurrentTaskShow   string
	CurrentTaskStatus string

	RunStartedAt  time.Time
	TaskStartedAt time.Time
	ExitCode      int
}

func NewRunState(configPath string, manualTasks []tracker.TaskID, startedAt time.Time) *RunState {
	return &RunState{
		ConfigPath:   configPath,
		ManualTasks:  append([]tracker.TaskID(nil), manualTasks...),
		RunStartedAt: startedAt,
	}
}

func (s *RunState) setCurrentTask(id tracker.TaskID, status tracker.TaskStatus, startedAt time.Time) {
	s.CurrentTaskID = id
	s.CurrentTaskShow = ""
	s.CurrentTaskStatus = status.String()
	s.TaskStartedAt = startedAt
}

func (s *RunState) clearCurrentTask() {
	s.CurrentTaskID = ""
	s.CurrentTaskShow = ""
	s.CurrentTaskStatus = ""
	s.TaskStartedAt = time.Time{}
}

func (s *RunState) popManualTask() (tracker.TaskID, bool) {
	if len(s.ManualTasks) == 0 {
		return "", false
	}
	id := s.ManualTasks[0]
	s.ManualTasks = s.ManualTasks[1:]
	return id, true
}

// Env returns the context variables passed to every command.
func (s *RunState) Env() []string {
	return []string{
		EnvConfigPath + "=" + s.ConfigPath,
		EnvTaskID + "=" + string(s.CurrentTaskID),
		EnvTaskShow + "=" + s.CurrentTaskShow,
		EnvTaskStatus + "=" + s.CurrentTaskStatus,
		EnvCompleted + "=" + joinIDs(s.Completed),
		EnvNeedsHuman + "=" + joinIDs(s.Escalated),
	}
}

func joinIDs(ids []tracker.TaskID) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, string(id))
	}
	return strings.Join(parts, ",")
}
