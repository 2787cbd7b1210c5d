package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultRelPath         = ".config/trudger.yml"
	DefaultSkipLimit       = 5
	DefaultBusSubject      = "trudger.notifications"
	defaultSolvePromptRel  = ".codex/prompts/trudge.md"
	defaultReviewPromptRel = ".codex/prompts/trudge_review.md"
)

// Notification scopes.
const (
	ScopeTaskBoundaries = "task_boundaries"
	ScopeRunBoundaries  = "run_boundaries"
	ScopeAllLogs        = "all_logs"
)

var defaultResumeArgs = []string{"resume", "--last"}

// Config is the validated configuration.
type Config struct {
	Path              string
	Agent             Agent
	Commands          Commands
	Hooks             Hooks
	Notifications     Notifications
	ReviewLoopLimit   int
	SkipNotReadyLimit int
	LogPath           string
}

type Agent struct {
	Command      string
	ResumeArgs   []string
	SolvePrompt  string
	ReviewPrompt string
}

type Commands struct {
	NextTask         string
	TaskShow         string
	TaskStatus       string
	TaskUpdateStatus string
}

type Hooks struct {
	OnCompleted     string
	OnRequiresHuman string
}

type Notifications struct {
	Hook       string
	Scope      string
	BusURL     string
	BusSubject string
}

type fileModel struct {
	Agent struct {
		Command      string    `yaml:"command"`
		ResumeArgs   *[]string `yaml:"resume_args"`
		SolvePrompt  string    `yaml:"solve_prompt"`
		ReviewPrompt string    `yaml:"review_prompt"`
	} `yaml:"agent"`
	Commands struct {
		NextTask         string `yaml:"next_task"`
		TaskShow         string `yaml:"task_show"`
		TaskStatus       string `yaml:"task_status"`
		TaskUpdateStatus string `yaml:"task_update_status"`
	} `yaml:"commands"`
	Hooks struct {
		OnCompleted     string `yaml:"on_completed"`
		OnRequiresHuman string `yaml:"on_requires_human"`
	} `yaml:"hooks"`
	Notifications struct {
		Hook       string `yaml:"hook"`
		Scope      string `yaml:"scope"`
		BusURL     string `yaml:"bus_url"`
		BusSubject string `yaml:"bus_subject"`
	} `yaml:"notifications"`
	ReviewLoopLimit   *int   `yaml:"review_loop_limit"`
	SkipNotReadyLimit *int   `yaml:"skip_not_ready_limit"`
	LogPath           string `yaml:"log_path"`
}

type Service struct {
	readFile func(string) ([]byte, error)
	getenv   func(string) string
}

func NewService() Service {
	return Service{readFile: os.ReadFile, getenv: os.Getenv}
}

// DefaultPath returns $HOME/.config/trudger.yml.
func (s Service) DefaultPath() string {
	home := strings.TrimSpace(s.getenv("HOME"))
	if home == "" {
		return filepath.Base(DefaultRelPath)
	}
	return filepath.Join(home, DefaultRelPath)
}

func (s Service) Load(path string) (Config, error) {
	if strings.TrimSpace(path) == "" {
		path = s.DefaultPath()
	}
	content, err := s.readFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config file not found at %s", path)
		}
		return Config{}, fmt.Errorf("cannot read config file at %s: %w", path, err)
	}

	var model fileModel
	decoder := yaml.NewDecoder(strings.NewReader(string(content)))
	decoder.KnownFields(true)
	if err := decoder.Decode(&model); err != nil {
		return Config{}, fmt.Errorf("cannot parse config file at %s: %w", path, err)
	}
	return s.resolve(path, model)
}

func (s Service) resolve(path string, model fileModel) (Config, error) {
	cfg := Config{
		Path: path,
		Agent: Agent{
			Command:      strings.TrimSpace(model.Agent.Command),
			SolvePrompt:  s.expandHome(model.Agent.SolvePrompt),
			ReviewPrompt: s.expandHome(model.Agent.ReviewPrompt),
		},
		Commands: Commands{
			NextTask:         strings.TrimSpace(model.Commands.NextTask),
			TaskShow:         strings.TrimSpace(model.Commands.TaskShow),
			TaskStatus:       strings.TrimSpace(model.Commands.TaskStatus),
			TaskUpdateStatus: strings.TrimSpace(model.Commands.TaskUpdateStatus),
		},
		Hooks: Hooks{
			OnCompleted:     strings.TrimSpace(model.Hooks.OnCompleted),
			OnRequiresHuman: strings.TrimSpace(model.Hooks.OnRequiresHuman),
		},
		Notifications: Notifications{
			Hook:       strings.TrimSpace(model.Notifications.Hook),
			BusURL:     strings.TrimSpace(model.Notifications.BusURL),
			BusSubject: strings.TrimSpace(model.Notifications.BusSubject),
		},
		LogPath: s.expandHome(model.LogPath),
	}

	required := []struct {
		field string
		value string
	}{
		{"agent.command", cfg.Agent.Command},
		{"commands.next_task", cfg.Commands.NextTask},
		{"commands.task_show", cfg.Commands.TaskShow},
		{"commands.task_status", cfg.Commands.TaskStatus},
		{"commands.task_update_status", cfg.Commands.TaskUpdateStatus},
	}
	for _, item := range required {
		if item.value == "" {
			return Config{}, fmt.Errorf("%s in %s is required", item.field, path)
		}
	}

	if model.Agent.ResumeArgs != nil {
		cfg.Agent.ResumeArgs = normalizeArgs(*model.Agent.ResumeArgs)
	} else {
		cfg.Agent.ResumeArgs = append([]string(nil), defaultResumeArgs...)
	}
	if cfg.Agent.SolvePrompt == "" {
		cfg.Agent.SolvePrompt = s.expandHome("~/" + defaultSolvePromptRel)
	}
	if cfg.Agent.ReviewPrompt == "" {
		cfg.Agent.ReviewPrompt = s.expandHome("~/" + defaultReviewPromptRel)
	}

	if model.ReviewLoopLimit == nil {
		return Config{}, fmt.Errorf("review_loop_limit in %s is required", path)
	}
	if *model.ReviewLoopLimit <= 0 {
		return Config{}, fmt.Errorf("review_loop_limit in %s must be greater than 0", path)
	}
	cfg.ReviewLoopLimit = *model.ReviewLoopLimit

	cfg.SkipNotReadyLimit = DefaultSkipLimit
	if model.SkipNotReadyLimit != nil {
		if *model.SkipNotReadyLimit <= 0 {
			return Config{}, fmt.Errorf("skip_not_ready_limit in %s must be greater than 0", path)
		}
		cfg.SkipNotReadyLimit = *model.SkipNotReadyLimit
	}

	scope, err := NormalizeScope(model.Notifications.Scope)
	if err != nil {
		return Config{}, fmt.Errorf("notifications.scope in %s: %w", path, err)
	}
	cfg.Notifications.Scope = scope
	if cfg.Notifications.BusSubject == "" {
		cfg.Notifications.BusSubject = DefaultBusSubject
	}
	return cfg, nil
}

// NormalizeScope maps an empty scope to task_boundaries and rejects unknown values.
func NormalizeScope(raw string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "":
		return ScopeTaskBoundaries, nil
	case ScopeTaskBoundaries, ScopeRunBoundaries, ScopeAllLogs:
		return value, nil
	}
	return "", fmt.Errorf("must be one of: %s, %s, %s", ScopeTaskBoundaries, ScopeRunBoundaries, ScopeAllLogs)
}

func (s Service) expandHome(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "~" || strings.HasPrefix(value, "~/") {
		home := strings.TrimSpace(s.getenv("HOME"))
		if home != "" {
			return filepath.Join(home, strings.TrimPrefix(value, "~"))
		}
	}
	return value
}

func normalizeArgs(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
