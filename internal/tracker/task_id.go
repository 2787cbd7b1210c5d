package tracker

import (
	"errors"
	"fmt"
)

const maxTaskIDLength = 200

var ErrInvalidTaskID = errors.New("invalid task id")

// TaskID is a validated tracker task identifier.
type TaskID string

// ParseTaskID validates raw as a task id: 1-200 characters, an ASCII
// alphanumeric first character, then alphanumerics or one of "-_.:".
func ParseTaskID(raw string) (TaskID, error) {
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTaskID)
	}
	if len(raw) > maxTaskIDLength {
		return "", fmt.Errorf("%w: longer than %d characters", ErrInvalidTaskID, maxTaskIDLength)
	}
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if isAlphanumeric(c) {
			continue
		}
		if i > 0 && (c == '-' || c == '_' || c == '.' || c == ':') {
			continue
		}
		return "", fmt.Errorf("%w: %q has invalid character %q at position %d", ErrInvalidTaskID, raw, c, i)
	}
	return TaskID(raw), nil
}

func (id TaskID) String() string { return string(id) }

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
