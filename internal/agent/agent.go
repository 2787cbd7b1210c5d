// Package agent invokes the external coding agent in solve and review mode.
package agent

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/lambdamechanic/trudger-sub000/internal/exec"
)

type Mode string

const (
	ModeSolve  Mode = "solve"
	ModeReview Mode = "review"
)

// Role returns the command role used for logs and errors.
func (m Mode) Role() string { return "agent_" + string(m) }

// Prompts holds the loaded prompt templates.
type Prompts struct {
	Solve  string
	Review string
}

// LoadPrompts reads both prompt files; a missing or empty file is an error.
func LoadPrompts(solvePath string, reviewPath string) (Prompts, error) {
	solve, err := readPrompt("solve", solvePath)
	if err != nil {
		return Prompts{}, err
	}
	review, err := readPrompt("review", reviewPath)
	if err != nil {
		return Prompts{}, err
	}
	return Prompts{Solve: solve, Review: review}, nil
}

func readPrompt(kind string, path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s prompt: %w", kind, err)
	}
	if strings.TrimSpace(string(content)) == "" {
		return "", fmt.Errorf("%s prompt at %s is empty", kind, path)
	}
	return string(content), nil
}

// RunError is an agent invocation that exited nonzero.
type RunError struct {
	Mode     Mode
	TaskID   string
	ExitCode int
}

func (e *RunError) Error() string {
	return fmt.Sprintf("agent %s for %s exited with code %d", e.Mode, e.TaskID, e.ExitCode)
}

type Invoker struct {
	runner     exec.Runner
	command    string
	resumeArgs []string
	prompts    Prompts
}

func NewInvoker(runner exec.Runner, command string, resumeArgs []string, prompts Prompts) *Invoker {
	return &Invoker{
		runner:     runner,
		command:    strings.TrimSpace(command),
		resumeArgs: append([]string(nil), resumeArgs...),
		prompts:    prompts,
	}
}

// Solve runs the agent on taskID. Later passes resume the previous session.
func (a *Invoker) Solve(ctx context.Context, taskID string, resume bool, env []string) error {
	return a.run(ctx, ModeSolve, taskID, resume, a.prompts.Solve, env)
}

// Review always resumes the session left by Solve.
func (a *Invoker) Review(ctx context.Context, taskID string, env []string) error {
	return a.run(ctx, ModeReview, taskID, true, a.prompts.Review, env)
}

func (a *Invoker) run(ctx context.Context, mode Mode, taskID string, resume bool, prompt string, env []string) error {
	var args []string
	if resume {
		args = append(args, a.resumeArgs...)
	}
	args = append(args, renderPrompt(prompt, taskID))

	result, err := a.runner.Run(ctx, exec.Command{
		Role:   mode.Role(),
		Script: a.command,
		Args:   args,
		Env:    env,
		Redact: []int{len(args) - 1},
	})
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return &RunError{Mode: mode, TaskID: taskID, ExitCode: result.ExitCode}
	}
	return nil
}

func renderPrompt(template string, taskID string) string {
	return strings.ReplaceAll(template, "{{task_id}}", taskID)
}
