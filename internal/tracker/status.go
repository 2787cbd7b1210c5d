package tracker

import "strings"

type StatusKind int

const (
	// StatusAbsent is the zero kind, held by a status that was never read.
	StatusAbsent StatusKind = iota
	StatusReady
	StatusOpen
	StatusInProgress
	StatusClosed
	StatusBlocked
	StatusUnknown
)

// Wire tokens understood by the tracker commands.
const (
	TokenReady      = "ready"
	TokenOpen       = "open"
	TokenInProgress = "in_progress"
	TokenClosed     = "closed"
	TokenBlocked    = "blocked"
)

// TaskStatus is one of the known tracker states or an unknown token kept
// verbatim. The zero value is absent and never ready.
type TaskStatus struct {
	kind StatusKind
	raw  string
}

var (
	Ready      = TaskStatus{kind: StatusReady}
	Open       = TaskStatus{kind: StatusOpen}
	InProgress = TaskStatus{kind: StatusInProgress}
	Closed     = TaskStatus{kind: StatusClosed}
	Blocked    = TaskStatus{kind: StatusBlocked}
)

func Unknown(raw string) TaskStatus {
	return TaskStatus{kind: StatusUnknown, raw: raw}
}

// ParseStatus parses the first token of a status command's output. It
// reports false when the token is empty, which callers treat as a broken
// status command rather than an unknown status.
func ParseStatus(token string) (TaskStatus, bool) {
	trimmed := strings.TrimSpace(token)
	switch trimmed {
	case "":
		return TaskStatus{}, false
	case TokenReady:
		return Ready, true
	case TokenOpen:
		return Open, true
	case TokenInProgress:
		return InProgress, true
	case TokenClosed:
		return Closed, true
	case TokenBlocked:
		return Blocked, true
	default:
		return Unknown(trimmed), true
	}
}

func (s TaskStatus) Kind() StatusKind { return s.kind }

func (s TaskStatus) IsReady() bool {
	switch s.kind {
	case StatusReady, StatusOpen:
		return true
	case StatusAbsent, StatusInProgress, StatusClosed, StatusBlocked, StatusUnknown:
		return false
	}
	return false
}

func (s TaskStatus) IsUnknown() bool { return s.kind == StatusUnknown }

func (s TaskStatus) String() string {
	switch s.kind {
	case StatusReady:
		return TokenReady
	case StatusOpen:
		return TokenOpen
	case StatusInProgress:
		return TokenInProgress
	case StatusClosed:
		return TokenClosed
	case StatusBlocked:
		return TokenBlocked
	case StatusUnknown:
		return s.raw
	}
	return ""
}
