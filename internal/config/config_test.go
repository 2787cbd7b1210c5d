package config

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const validConfig = `
agent:
  command: codex --yolo exec
commands:
  next_task: bd ready --json | jq -r '.[0].id'
  task_show: bd show
  task_status: bd-status
  task_update_status: bd update
hooks:
  on_completed: notify-done
review_loop_limit: 3
`

func newTestService(files map[string]string) Service {
	return Service{
		readFile: func(path string) ([]byte, error) {
			content, ok := files[path]
			if !ok {
				return nil, os.ErrNotExist
			}
			return []byte(content), nil
		},
		getenv: func(key string) string {
			if key == "HOME" {
				return "/home/dev"
			}
			return ""
		},
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	service := newTestService(map[string]string{"/cfg/trudger.yml": validConfig})

	cfg, err := service.Load("/cfg/trudger.yml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Path != "/cfg/trudger.yml" {
		t.Fatalf("unexpected path %q", cfg.Path)
	}
	if cfg.ReviewLoopLimit != 3 {
		t.Fatalf("expected review loop limit 3, got %d", cfg.ReviewLoopLimit)
	}
	if cfg.SkipNotReadyLimit != DefaultSkipLimit {
		t.Fatalf("expected default skip limit, got %d", cfg.SkipNotReadyLimit)
	}
	if cfg.Notifications.Scope != ScopeTaskBoundaries {
		t.Fatalf("expected default scope, got %q", cfg.Notifications.Scope)
	}
	if cfg.Notifications.BusSubject != DefaultBusSubject {
		t.Fatalf("expected default bus subject, got %q", cfg.Notifications.BusSubject)
	}
	if !reflect.DeepEqual(cfg.Agent.ResumeArgs, []string{"resume", "--last"}) {
		t.Fatalf("unexpected resume args %#v", cfg.Agent.ResumeArgs)
	}
	if cfg.Agent.SolvePrompt != "/home/dev/.codex/prompts/trudge.md" {
		t.Fatalf("unexpected solve prompt %q", cfg.Agent.SolvePrompt)
	}
	if cfg.Agent.ReviewPrompt != "/home/dev/.codex/prompts/trudge_review.md" {
		t.Fatalf("unexpected review prompt %q", cfg.Agent.ReviewPrompt)
	}
	if cfg.Hooks.OnCompleted != "notify-done" || cfg.Hooks.OnRequiresHuman != "" {
		t.Fatalf("unexpected hooks %#v", cfg.Hooks)
	}
	if cfg.Commands.NextTask != "bd ready --json | jq -r '.[0].id'" {
		t.Fatalf("unexpected next task command %q", cfg.Commands.NextTask)
	}
}

func TestLoadUsesDefaultPathUnderHome(t *testing.T) {
	service := newTestService(map[string]string{"/home/dev/.config/trudger.yml": validConfig})

	cfg, err := service.Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Path != "/home/dev/.config/trudger.yml" {
		t.Fatalf("unexpected path %q", cfg.Path)
	}
}

func TestLoadOverrides(t *testing.T) {
	content := validConfig + `
skip_not_ready_limit: 9
log_path: ~/logs/trudger.jsonl
notifications:
  hook: notify-send
  scope: Run_Boundaries
  bus_url: nats://127.0.0.1:4222
  bus_subject: ops.trudger
`
	content = strings.Replace(content, "  command: codex --yolo exec\n", "  command: codex --yolo exec\n  resume_args: [\"resume\", \" --session\", \"\", \"abc\"]\n  solve_prompt: /prompts/solve.md\n", 1)
	service := newTestService(map[string]string{"/cfg/trudger.yml": content})

	cfg, err := service.Load("/cfg/trudger.yml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.SkipNotReadyLimit != 9 {
		t.Fatalf("expected skip limit 9, got %d", cfg.SkipNotReadyLimit)
	}
	if cfg.LogPath != filepath.Join("/home/dev", "logs/trudger.jsonl") {
		t.Fatalf("unexpected log path %q", cfg.LogPath)
	}
	if cfg.Notifications.Scope != ScopeRunBoundaries {
		t.Fatalf("expected normalized scope, got %q", cfg.Notifications.Scope)
	}
	if cfg.Notifications.BusURL != "nats://127.0.0.1:4222" || cfg.Notifications.BusSubject != "ops.trudger" {
		t.Fatalf("unexpected bus settings %#v", cfg.Notifications)
	}
	if !reflect.DeepEqual(cfg.Agent.ResumeArgs, []string{"resume", "--session", "abc"}) {
		t.Fatalf("unexpected resume args %#v", cfg.Agent.ResumeArgs)
	}
	if cfg.Agent.SolvePrompt != "/prompts/solve.md" {
		t.Fatalf("unexpected solve prompt %q", cfg.Agent.SolvePrompt)
	}
}

func TestLoadValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "missing review loop limit",
			content: strings.Replace(validConfig, "review_loop_limit: 3\n", "", 1),
			want:    "review_loop_limit in /cfg/trudger.yml is required",
		},
		{
			name:    "zero review loop limit",
			content: strings.Replace(validConfig, "review_loop_limit: 3", "review_loop_limit: 0", 1),
			want:    "review_loop_limit in /cfg/trudger.yml must be greater than 0",
		},
		{
			name:    "zero skip limit",
			content: validConfig + "skip_not_ready_limit: 0\n",
			want:    "skip_not_ready_limit in /cfg/trudger.yml must be greater than 0",
		},
		{
			name:    "missing next task",
			content: strings.Replace(validConfig, "  next_task: bd ready --json | jq -r '.[0].id'\n", "", 1),
			want:    "commands.next_task in /cfg/trudger.yml is required",
		},
		{
			name:    "missing agent command",
			content: strings.Replace(validConfig, "  command: codex --yolo exec\n", "  command: \"  \"\n", 1),
			want:    "agent.command in /cfg/trudger.yml is required",
		},
		{
			name:    "unknown scope",
			content: validConfig + "notifications:\n  scope: everything\n",
			want:    "notifications.scope in /cfg/trudger.yml",
		},
		{
			name:    "unknown field",
			content: validConfig + "review_limit: 4\n",
			want:    "cannot parse config file at /cfg/trudger.yml",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			service := newTestService(map[string]string{"/cfg/trudger.yml": tc.content})
			_, err := service.Load("/cfg/trudger.yml")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %q", tc.want, err.Error())
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	service := newTestService(nil)
	_, err := service.Load("/nope/trudger.yml")
	if err == nil || !strings.Contains(err.Error(), "config file not found at /nope/trudger.yml") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLoadReadError(t *testing.T) {
	service := newTestService(nil)
	service.readFile = func(string) ([]byte, error) { return nil, errors.New("permission denied") }

	_, err := service.Load("/cfg/trudger.yml")
	if err == nil || !strings.Contains(err.Error(), "permission denied") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLoadFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trudger.yml")
	if err := os.WriteFile(path, []byte(validConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := NewService().Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Commands.TaskShow != "bd show" {
		t.Fatalf("unexpected task show %q", cfg.Commands.TaskShow)
	}
}
