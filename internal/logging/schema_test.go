package logging

import (
	"strings"
	"testing"
)

func TestValidateStructuredLogLineAcceptsTransitionLines(t *testing.T) {
	lines := strings.TrimSpace(`{"timestamp":"2026-03-14T09:00:00Z","level":"info","component":"trudger","task_id":"none","run_id":"run-1","event":"run_started","manual_tasks":0}
{"timestamp":"2026-03-14T09:00:02Z","level":"debug","component":"trudger","task_id":"tr-1","run_id":"run-1","event":"step_finished","step":"agent_solve"}
{"timestamp":"2026-03-14T09:00:09Z","level":"warn","component":"trudger","task_id":"tr-1","run_id":"run-1","event":"task_escalated","message":"review loop limit 3 reached"}`)

	for _, line := range strings.Split(lines, "\n") {
		if err := ValidateStructuredLogLine([]byte(line)); err != nil {
			t.Fatalf("expected %s to validate: %v", line, err)
		}
	}
}

func TestValidateStructuredLogLineRejectsBadLines(t *testing.T) {
	cases := map[string]string{
		"blank":             "",
		"whitespace":        "   \n",
		"not json":          "run_started tr-1",
		"missing run_id":    `{"timestamp":"2026-03-14T09:00:00Z","level":"info","component":"trudger","task_id":"tr-1"}`,
		"empty component":   `{"timestamp":"2026-03-14T09:00:00Z","level":"info","component":" ","task_id":"tr-1","run_id":"run-1"}`,
		"numeric task id":   `{"timestamp":"2026-03-14T09:00:00Z","level":"info","component":"trudger","task_id":7,"run_id":"run-1"}`,
		"invalid timestamp": `{"timestamp":"yesterday","level":"info","component":"trudger","task_id":"tr-1","run_id":"run-1"}`,
	}
	for name, line := range cases {
		if err := ValidateStructuredLogLine([]byte(line)); err == nil {
			t.Fatalf("%s: expected validation failure", name)
		}
	}
}

func TestPopulateRequiredLogFieldsDefaults(t *testing.T) {
	fields := populateRequiredLogFields(LoggingSchemaFields{}, "")
	if fields.Component != "trudger" || fields.TaskID != "none" {
		t.Fatalf("unexpected defaults %+v", fields)
	}
	if fields.RunID != "none" {
		t.Fatalf("expected run id to fall back to the task id, got %q", fields.RunID)
	}

	fields = populateRequiredLogFields(LoggingSchemaFields{RunID: "run-7"}, "tr-2")
	if fields.TaskID != "tr-2" || fields.RunID != "run-7" {
		t.Fatalf("expected explicit values to win, got %+v", fields)
	}
}
