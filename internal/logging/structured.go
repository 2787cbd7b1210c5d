package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type logLevel int

const (
	logLevelDebug logLevel = iota
	logLevelInfo
	logLevelWarn
	logLevelError
)

// MirrorFunc receives every emitted line after it is written.
type MirrorFunc func(level string, line string)

type StructuredLogger struct {
	mu       sync.Mutex
	w        io.Writer
	closer   io.Closer
	minLevel logLevel
	defaults LoggingSchemaFields
	mirror   MirrorFunc
	now      func() time.Time
}

// NewStructuredLogger returns a logger that writes structured JSON lines to w.
// A nil writer discards lines but still feeds the mirror.
func NewStructuredLogger(w io.Writer, minLevel string, defaults LoggingSchemaFields) *StructuredLogger {
	return &StructuredLogger{
		w:        w,
		minLevel: parseLevelOrDefault(minLevel),
		defaults: populateRequiredLogFields(defaults, defaults.TaskID),
		now:      time.Now,
	}
}

// OpenTransitionLog appends to the file at path, creating parent directories.
// An empty path yields a logger that writes nowhere.
func OpenTransitionLog(path string, minLevel string, defaults LoggingSchemaFields) (*StructuredLogger, error) {
	if strings.TrimSpace(path) == "" {
		return NewStructuredLogger(nil, minLevel, defaults), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transition log: %w", err)
	}
	logger := NewStructuredLogger(file, minLevel, defaults)
	logger.closer = file
	return logger, nil
}

// SetMirror installs fn to observe every emitted line.
func (l *StructuredLogger) SetMirror(fn MirrorFunc) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mirror = fn
}

// Log writes a single structured JSON line when level passes the configured threshold.
func (l *StructuredLogger) Log(level string, fields map[string]interface{}) error {
	if l == nil {
		return nil
	}

	entryLevel := normalizeLogLevel(level)
	entrySeverity, ok := parseLogLevel(entryLevel)
	if !ok {
		return fmt.Errorf("invalid log level %q", level)
	}

	if entrySeverity < l.minLevel {
		return nil
	}

	entry := map[string]interface{}{}
	for key, value := range fields {
		entry[key] = value
	}

	entry["timestamp"] = l.now().UTC().Format(time.RFC3339)
	entry["level"] = entryLevel
	entry["component"] = chooseField(entry["component"], l.defaults.Component)
	entry["task_id"] = chooseField(entry["task_id"], l.defaults.TaskID)
	entry["run_id"] = chooseField(entry["run_id"], l.defaults.RunID)

	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	l.mu.Lock()
	if l.w != nil {
		_, err = l.w.Write(append(payload, '\n'))
	}
	mirror := l.mirror
	l.mu.Unlock()

	// Outside the lock so the mirror may log without deadlocking.
	if mirror != nil {
		mirror(entryLevel, string(payload))
	}
	return err
}

func (l *StructuredLogger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func parseLevelOrDefault(raw string) logLevel {
	parsed, ok := parseLogLevel(normalizeLogLevel(raw))
	if !ok {
		return logLevelInfo
	}
	return parsed
}

func normalizeLogLevel(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

func parseLogLevel(raw string) (logLevel, bool) {
	switch raw {
	case "debug":
		return logLevelDebug, true
	case "info":
		return logLevelInfo, true
	case "warn":
		return logLevelWarn, true
	case "warning":
		return logLevelWarn, true
	case "error":
		return logLevelError, true
	default:
		return 0, false
	}
}

func chooseField(raw interface{}, fallback string) string {
	value, ok := raw.(string)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
