package tracker

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/lambdamechanic/trudger-sub000/internal/exec"
)

func TestParseTaskID(t *testing.T) {
	tests := []struct {
		name  string
		input string
		valid bool
	}{
		{name: "simple", input: "tr-1", valid: true},
		{name: "all separators", input: "a1-b_c.d:e", valid: true},
		{name: "digit first", input: "9abc", valid: true},
		{name: "max length", input: strings.Repeat("a", 200), valid: true},
		{name: "empty", input: "", valid: false},
		{name: "too long", input: strings.Repeat("a", 201), valid: false},
		{name: "separator first", input: "-tr", valid: false},
		{name: "space", input: "tr 1", valid: false},
		{name: "slash", input: "tr/1", valid: false},
		{name: "non ascii", input: "tré", valid: false},
		{name: "shell metachar", input: "tr;rm", valid: false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := ParseTaskID(tc.input)
			if tc.valid {
				if err != nil {
					t.Fatalf("expected valid id, got %v", err)
				}
				if id.String() != tc.input {
					t.Fatalf("expected %q, got %q", tc.input, id)
				}
				return
			}
			if !errors.Is(err, ErrInvalidTaskID) {
				t.Fatalf("expected ErrInvalidTaskID, got %v", err)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		input   string
		present bool
		kind    StatusKind
		ready   bool
		text    string
	}{
		{input: "ready", present: true, kind: StatusReady, ready: true, text: "ready"},
		{input: " open\n", present: true, kind: StatusOpen, ready: true, text: "open"},
		{input: "in_progress", present: true, kind: StatusInProgress, text: "in_progress"},
		{input: "closed", present: true, kind: StatusClosed, text: "closed"},
		{input: "blocked", present: true, kind: StatusBlocked, text: "blocked"},
		{input: "deferred", present: true, kind: StatusUnknown, text: "deferred"},
		{input: "READY", present: true, kind: StatusUnknown, text: "READY"},
		{input: "", present: false, kind: StatusAbsent},
		{input: "  \t", present: false, kind: StatusAbsent},
	}
	for _, tc := range tests {
		status, ok := ParseStatus(tc.input)
		if ok != tc.present {
			t.Fatalf("ParseStatus(%q) present=%v, want %v", tc.input, ok, tc.present)
		}
		if status.Kind() != tc.kind {
			t.Fatalf("ParseStatus(%q) kind=%v, want %v", tc.input, status.Kind(), tc.kind)
		}
		if status.IsReady() != tc.ready {
			t.Fatalf("ParseStatus(%q) ready=%v, want %v", tc.input, status.IsReady(), tc.ready)
		}
		if status.IsUnknown() != (tc.kind == StatusUnknown) {
			t.Fatalf("ParseStatus(%q) unknown mismatch", tc.input)
		}
		if status.String() != tc.text {
			t.Fatalf("ParseStatus(%q) text=%q, want %q", tc.input, status.String(), tc.text)
		}
	}
}

func TestZeroTaskStatusIsNotReady(t *testing.T) {
	var status TaskStatus
	if status.Kind() != StatusAbsent {
		t.Fatalf("expected absent kind, got %v", status.Kind())
	}
	if status.IsReady() || status.IsUnknown() {
		t.Fatal("expected an unset status to be neither ready nor unknown")
	}
	if status.String() != "" {
		t.Fatalf("expected empty text, got %q", status.String())
	}
}

func newTestClient(runner exec.Runner) *Client {
	return New(runner, Commands{
		NextTask:         "bd-next",
		TaskShow:         "bd-show",
		TaskStatus:       "bd-status",
		TaskUpdateStatus: "bd-update",
	})
}

func TestNextTaskReturnsFirstToken(t *testing.T) {
	runner := exec.NewFakeRunner().Script(RoleNextTask, "tr-7 extra words\nsecond line\n")
	client := newTestClient(runner)

	id, err := client.NextTask(context.Background(), []string{"TRUDGER_TASK_ID="})
	if err != nil {
		t.Fatalf("next task: %v", err)
	}
	if id != "tr-7" {
		t.Fatalf("expected tr-7, got %q", id)
	}
	call := runner.Calls()[0]
	if call.Script != "bd-next" || !call.Capture || len(call.Args) != 0 {
		t.Fatalf("unexpected command: %#v", call)
	}
	if !reflect.DeepEqual(call.Env, []string{"TRUDGER_TASK_ID="}) {
		t.Fatalf("expected env to be forwarded, got %#v", call.Env)
	}
}

func TestNextTaskNoTaskSignals(t *testing.T) {
	for name, runner := range map[string]*exec.FakeRunner{
		"exit one":     exec.NewFakeRunner().ScriptExit(RoleNextTask, 1),
		"empty output": exec.NewFakeRunner().Script(RoleNextTask, "  \n"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := newTestClient(runner).NextTask(context.Background(), nil)
			if !errors.Is(err, ErrNoTask) {
				t.Fatalf("expected ErrNoTask, got %v", err)
			}
		})
	}
}

func TestNextTaskOtherExitIsCommandError(t *testing.T) {
	runner := exec.NewFakeRunner().ScriptExit(RoleNextTask, 4)

	_, err := newTestClient(runner).NextTask(context.Background(), nil)
	var commandErr *CommandError
	if !errors.As(err, &commandErr) {
		t.Fatalf("expected CommandError, got %v", err)
	}
	if commandErr.ExitCode != 4 || commandErr.Role != RoleNextTask {
		t.Fatalf("unexpected error: %#v", commandErr)
	}
}

func TestNextTaskInvalidID(t *testing.T) {
	runner := exec.NewFakeRunner().Script(RoleNextTask, "../etc/passwd\n")

	_, err := newTestClient(runner).NextTask(context.Background(), nil)
	if !errors.Is(err, ErrInvalidTaskID) {
		t.Fatalf("expected ErrInvalidTaskID, got %v", err)
	}
}

func TestNextTaskSpawnFailureIsReturned(t *testing.T) {
	spawnErr := errors.New("fork failed")
	runner := exec.NewFakeRunner().ScriptResult(RoleNextTask, exec.FakeResult{Err: spawnErr})

	_, err := newTestClient(runner).NextTask(context.Background(), nil)
	if !errors.Is(err, spawnErr) {
		t.Fatalf("expected spawn error, got %v", err)
	}
}

func TestShowStatusAndUpdateArguments(t *testing.T) {
	runner := exec.NewFakeRunner().
		Script(RoleTaskShow, "Title\nBody\n").
		Script(RoleTaskStatus, "in_progress\n").
		Script(RoleTaskUpdateStatus, "")
	client := newTestClient(runner)
	ctx := context.Background()

	show, err := client.Show(ctx, "tr-1", nil)
	if err != nil || show != "Title\nBody\n" {
		t.Fatalf("show: %q %v", show, err)
	}
	status, ok, err := client.Status(ctx, "tr-1", nil)
	if err != nil || !ok || status.Kind() != StatusInProgress {
		t.Fatalf("status: %v %v %v", status, ok, err)
	}
	if err := client.UpdateStatus(ctx, "tr-1", Blocked, nil); err != nil {
		t.Fatalf("update: %v", err)
	}

	calls := runner.Calls()
	want := [][]string{{"tr-1"}, {"tr-1"}, {"tr-1", "--status", "blocked"}}
	for i, call := range calls {
		if !reflect.DeepEqual(call.Args, want[i]) {
			t.Fatalf("call %d args %#v, want %#v", i, call.Args, want[i])
		}
	}
}

func TestStatusAbsentOutput(t *testing.T) {
	runner := exec.NewFakeRunner().Script(RoleTaskStatus, "")

	status, ok, err := newTestClient(runner).Status(context.Background(), "tr-1", nil)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if ok || status.IsReady() {
		t.Fatalf("expected absent status, got %q ok=%v", status, ok)
	}
}

func TestFailingCommandsReturnCommandError(t *testing.T) {
	runner := exec.NewFakeRunner().
		ScriptExit(RoleTaskShow, 2).
		ScriptExit(RoleTaskStatus, 3).
		ScriptExit(RoleTaskUpdateStatus, 5)
	client := newTestClient(runner)
	ctx := context.Background()

	_, showErr := client.Show(ctx, "tr-1", nil)
	_, _, statusErr := client.Status(ctx, "tr-1", nil)
	updateErr := client.UpdateStatus(ctx, "tr-1", InProgress, nil)

	for code, err := range map[int]error{2: showErr, 3: statusErr, 5: updateErr} {
		var commandErr *CommandError
		if !errors.As(err, &commandErr) {
			t.Fatalf("expected CommandError, got %v", err)
		}
		if commandErr.ExitCode != code || commandErr.TaskID != "tr-1" {
			t.Fatalf("unexpected error %#v", commandErr)
		}
		if !strings.Contains(commandErr.Error(), "tr-1") {
			t.Fatalf("expected task id in message, got %q", commandErr.Error())
		}
	}
}
