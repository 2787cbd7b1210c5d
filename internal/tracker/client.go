package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/lambdamechanic/trudger-sub000/internal/exec"
)

// Command roles, also used as log and error labels.
const (
	RoleNextTask         = "next_task"
	RoleTaskShow         = "task_show"
	RoleTaskStatus       = "task_status"
	RoleTaskUpdateStatus = "task_update_status"
)

// ErrNoTask reports that the tracker has nothing selectable right now.
var ErrNoTask = errors.New("no task available")

// CommandError is a tracker command that ran and exited nonzero.
type CommandError struct {
	Role     string
	TaskID   TaskID
	ExitCode int
}

func (e *CommandError) Error() string {
	if e.TaskID != "" {
		return fmt.Sprintf("%s %s exited with code %d", e.Role, e.TaskID, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d", e.Role, e.ExitCode)
}

// Commands holds the configured tracker shell commands.
type Commands struct {
	NextTask         string
	TaskShow         string
	TaskStatus       string
	TaskUpdateStatus string
}

// Client talks to the tracker exclusively through configured commands.
type Client struct {
	runner   exec.Runner
	commands Commands
}

func New(runner exec.Runner, commands Commands) *Client {
	return &Client{runner: runner, commands: commands}
}

// NextTask asks the tracker for the next candidate. Exit code 1 and empty
// output both map to ErrNoTask; other failures are *CommandError or spawn
// errors; an unparseable id wraps ErrInvalidTaskID.
func (c *Client) NextTask(ctx context.Context, env []string) (TaskID, error) {
	result, err := c.runner.Run(ctx, exec.Command{
		Role:    RoleNextTask,
		Script:  c.commands.NextTask,
		Env:     env,
		Capture: true,
	})
	if err != nil {
		return "", err
	}
	switch result.ExitCode {
	case 0:
	case 1:
		return "", fmt.Errorf("%w: %s exited with code 1", ErrNoTask, RoleNextTask)
	default:
		return "", &CommandError{Role: RoleNextTask, ExitCode: result.ExitCode}
	}
	token := exec.FirstToken(result.Stdout)
	if token == "" {
		return "", fmt.Errorf("%w: %s returned no output", ErrNoTask, RoleNextTask)
	}
	return ParseTaskID(token)
}

// Show returns the tracker's rendered task detail.
func (c *Client) Show(ctx context.Context, id TaskID, env []string) (string, error) {
	result, err := c.runner.Run(ctx, exec.Command{
		Role:    RoleTaskShow,
		Script:  c.commands.TaskShow,
		Args:    []string{string(id)},
		Env:     env,
		Capture: true,
	})
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		return "", &CommandError{Role: RoleTaskShow, TaskID: id, ExitCode: result.ExitCode}
	}
	return result.Stdout, nil
}

// Status returns the parsed status and false when the command printed nothing.
func (c *Client) Status(ctx context.Context, id TaskID, env []string) (TaskStatus, bool, error) {
	result, err := c.runner.Run(ctx, exec.Command{
		Role:    RoleTaskStatus,
		Script:  c.commands.TaskStatus,
		Args:    []string{string(id)},
		Env:     env,
		Capture: true,
	})
	if err != nil {
		return TaskStatus{}, false, err
	}
	if result.ExitCode != 0 {
		return TaskStatus{}, false, &CommandError{Role: RoleTaskStatus, TaskID: id, ExitCode: result.ExitCode}
	}
	status, ok := ParseStatus(exec.FirstToken(result.Stdout))
	return status, ok, nil
}

// UpdateStatus runs "<task_update_status> <id> --status <status>".
func (c *Client) UpdateStatus(ctx context.Context, id TaskID, status TaskStatus, env []string) error {
	result, err := c.runner.Run(ctx, exec.Command{
		Role:    RoleTaskUpdateStatus,
		Script:  c.commands.TaskUpdateStatus,
		Args:    []string{string(id), "--status", status.String()},
		Env:     env,
		Capture: true,
	})
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return &CommandError{Role: RoleTaskUpdateStatus, TaskID: id, ExitCode: result.ExitCode}
	}
	return nil
}
