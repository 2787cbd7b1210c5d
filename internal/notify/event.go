package notify

import (
	"fmt"
	"strings"

	"github.com/lambdamechanic/trudger-sub000/internal/config"
)

type Event string

const (
	EventRunStart  Event = "run_start"
	EventRunEnd    Event = "run_end"
	EventTaskStart Event = "task_start"
	EventTaskEnd   Event = "task_end"
	// EventLog mirrors a transition log line; only the all_logs scope sends it.
	EventLog Event = "log"
)

func (e Event) isEnd() bool {
	return e == EventRunEnd || e == EventTaskEnd
}

// Scope decides which events reach the notification hook.
type Scope string

const (
	ScopeTaskBoundaries Scope = config.ScopeTaskBoundaries
	ScopeRunBoundaries  Scope = config.ScopeRunBoundaries
	ScopeAllLogs        Scope = config.ScopeAllLogs
)

func ParseScope(raw string) (Scope, error) {
	normalized, err := config.NormalizeScope(raw)
	if err != nil {
		return "", fmt.Errorf("notification scope %q: %w", strings.TrimSpace(raw), err)
	}
	return Scope(normalized), nil
}

func (s Scope) Allows(event Event) bool {
	switch s {
	case ScopeRunBoundaries:
		return event == EventRunStart || event == EventRunEnd
	case ScopeAllLogs:
		return true
	default:
		return event == EventTaskStart || event == EventTaskEnd
	}
}

// MirrorsLogs reports whether transition log lines are forwarded.
func (s Scope) MirrorsLogs() bool { return s == ScopeAllLogs }
