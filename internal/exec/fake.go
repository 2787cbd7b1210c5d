package exec

import (
	"context"
	"fmt"
	"sync"
)

// FakeRunner is a scripted Runner for tests. Results are queued per role and
// consumed in order; the last queued result for a role repeats once the
// queue is down to one entry.
type FakeRunner struct {
	mu      sync.Mutex
	calls   []Command
	scripts map[string][]FakeResult
	// OnRun, when set, is invoked before each scripted result is returned.
	OnRun func(cmd Command)
}

type FakeResult struct {
	Result Result
	Err    error
}

func NewFakeRunner() *FakeRunner {
	return &FakeRunner{scripts: make(map[string][]FakeResult)}
}

// Script queues stdout results with exit code 0 for role.
func (f *FakeRunner) Script(role string, outputs ...string) *FakeRunner {
	for _, output := range outputs {
		f.ScriptResult(role, FakeResult{Result: Result{Stdout: output}})
	}
	return f
}

// ScriptExit queues an exit code with empty stdout for role.
func (f *FakeRunner) ScriptExit(role string, code int) *FakeRunner {
	return f.ScriptResult(role, FakeResult{Result: Result{ExitCode: code}})
}

func (f *FakeRunner) ScriptResult(role string, result FakeResult) *FakeRunner {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts[role] = append(f.scripts[role], result)
	return f
}

func (f *FakeRunner) Run(_ context.Context, cmd Command) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cloneCommand(cmd))
	queue, ok := f.scripts[cmd.Role]
	if !ok || len(queue) == 0 {
		f.mu.Unlock()
		return Result{}, fmt.Errorf("missing stub for command %s", cmd.Role)
	}
	next := queue[0]
	if len(queue) > 1 {
		f.scripts[cmd.Role] = queue[1:]
	}
	hook := f.OnRun
	f.mu.Unlock()

	if hook != nil {
		hook(cmd)
	}
	return next.Result, next.Err
}

func (f *FakeRunner) Calls() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.calls...)
}

// Roles returns the role of every recorded call in order.
func (f *FakeRunner) Roles() []string {
	calls := f.Calls()
	roles := make([]string, 0, len(calls))
	for _, call := range calls {
		roles = append(roles, call.Role)
	}
	return roles
}

// Count returns how many recorded calls used role.
func (f *FakeRunner) Count(role string) int {
	count := 0
	for _, call := range f.Calls() {
		if call.Role == role {
			count++
		}
	}
	return count
}

func cloneCommand(cmd Command) Command {
	cmd.Args = append([]string(nil), cmd.Args...)
	cmd.Env = append([]string(nil), cmd.Env...)
	cmd.Redact = append([]int(nil), cmd.Redact...)
	return cmd
}
