package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	osexec "os/exec"
	"strings"
	"time"
)

// Command describes one invocation of a configured shell command.
type Command struct {
	// Role names the command for logs and errors, e.g. "next_task" or "on_completed".
	Role string
	// Script is the configured shell text. Args are appended as positional parameters.
	Script string
	Args   []string
	// Env holds KEY=VALUE pairs added on top of the process environment.
	Env []string
	// Capture collects stdout into Result.Stdout instead of inheriting it.
	Capture bool
	// Redact lists argument indexes that are replaced when the command is echoed.
	Redact []int
}

type Result struct {
	ExitCode int
	Stdout   string
}

// Runner executes commands. A non-nil error means the process could not be
// started; a started process that exits nonzero is reported through ExitCode.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// ShellRunner runs commands through bash so configured scripts may use pipes
// and quoting.
type ShellRunner struct {
	Shell  string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
	// Echo receives "$ command" and outcome lines when set.
	Echo io.Writer
	now  func() time.Time
}

func NewShellRunner(echo io.Writer) *ShellRunner {
	return &ShellRunner{
		Shell:  "bash",
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Echo:   echo,
		now:    time.Now,
	}
}

func (r *ShellRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	if r == nil {
		return Result{}, errors.New("nil shell runner")
	}
	if strings.TrimSpace(cmd.Script) == "" {
		return Result{}, fmt.Errorf("%s: command is empty", cmd.Role)
	}
	if r.now == nil {
		r.now = time.Now
	}
	shell := r.Shell
	if shell == "" {
		shell = "bash"
	}

	start := r.now()
	printCommand(r.Echo, cmd)

	args := append([]string{"-c", cmd.Script + ` "$@"`, "trudger"}, cmd.Args...)
	// In-flight commands are never killed on interrupt; ctx only carries tracing data.
	process := osexec.Command(shell, args...)
	if strings.TrimSpace(r.Dir) != "" {
		process.Dir = r.Dir
	}
	process.Env = append(os.Environ(), cmd.Env...)
	process.Stdin = os.Stdin
	process.Stderr = r.Stderr

	var stdout bytes.Buffer
	if cmd.Capture {
		process.Stdout = &stdout
	} else {
		process.Stdout = r.Stdout
	}

	err := process.Run()
	elapsed := r.now().Sub(start)
	if err != nil {
		var exitErr *osexec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			if code < 0 {
				// Killed by a signal.
				code = 128
			}
			printOutcome(r.Echo, code, elapsed)
			return Result{ExitCode: code, Stdout: stdout.String()}, nil
		}
		printOutcome(r.Echo, -1, elapsed)
		return Result{}, fmt.Errorf("%s: start command: %w", cmd.Role, err)
	}
	printOutcome(r.Echo, 0, elapsed)
	return Result{ExitCode: 0, Stdout: stdout.String()}, nil
}

func printCommand(out io.Writer, cmd Command) {
	if out == nil {
		return
	}
	parts := append([]string{cmd.Script}, redactedArgs(cmd)...)
	fmt.Fprintln(out, "$ "+strings.Join(parts, " "))
}

func redactedArgs(cmd Command) []string {
	args := append([]string(nil), cmd.Args...)
	for _, index := range cmd.Redact {
		if index >= 0 && index < len(args) {
			args[index] = "<prompt redacted>"
		}
	}
	return args
}

func printOutcome(out io.Writer, exitCode int, elapsed time.Duration) {
	if out == nil {
		return
	}
	if exitCode < 0 {
		fmt.Fprintf(out, "failed to start (elapsed=%s)\n", formatElapsed(elapsed))
		return
	}
	status := "ok"
	if exitCode != 0 {
		status = "failed"
	}
	fmt.Fprintf(out, "%s (exit=%d, elapsed=%s)\n", status, exitCode, formatElapsed(elapsed))
}

func formatElapsed(elapsed time.Duration) string {
	if elapsed < time.Millisecond {
		return "0ms"
	}
	return elapsed.Round(time.Millisecond).String()
}

// FirstToken returns the first whitespace-delimited token of output.
func FirstToken(output string) string {
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
