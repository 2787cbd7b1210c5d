package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lambdamechanic/trudger-sub000/internal/agent"
	"github.com/lambdamechanic/trudger-sub000/internal/config"
	"github.com/lambdamechanic/trudger-sub000/internal/exec"
	"github.com/lambdamechanic/trudger-sub000/internal/interrupt"
	"github.com/lambdamechanic/trudger-sub000/internal/logging"
	"github.com/lambdamechanic/trudger-sub000/internal/notify"
	"github.com/lambdamechanic/trudger-sub000/internal/runner"
	"github.com/lambdamechanic/trudger-sub000/internal/tracing"
	"github.com/lambdamechanic/trudger-sub000/internal/tracker"
	"github.com/lambdamechanic/trudger-sub000/internal/ui"
	"github.com/lambdamechanic/trudger-sub000/internal/version"
)

type exitFunc func(code int)

type mainDeps struct {
	config       config.Service
	getenv       func(string) string
	newRunner    func(echo io.Writer) exec.Runner
	newPublisher func(url string) (notify.Publisher, error)
	watch        func(ctx context.Context, flag *interrupt.Flag) func()
	now          func() time.Time
}

func defaultDeps() mainDeps {
	return mainDeps{
		config: config.NewService(),
		getenv: os.Getenv,
		newRunner: func(echo io.Writer) exec.Runner {
			return exec.NewShellRunner(echo)
		},
		newPublisher: notify.NewPublisher,
		watch: func(ctx context.Context, flag *interrupt.Flag) func() {
			return interrupt.Watch(ctx, flag)
		},
		now: time.Now,
	}
}

// taskList collects repeated -t flags as validated task ids.
type taskList []tracker.TaskID

func (l *taskList) String() string {
	parts := make([]string, 0, len(*l))
	for _, id := range *l {
		parts = append(parts, string(id))
	}
	return strings.Join(parts, ",")
}

func (l *taskList) Set(raw string) error {
	id, err := tracker.ParseTaskID(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	*l = append(*l, id)
	return nil
}

func main() {
	RunMain(os.Args[1:], os.Exit, os.Stdout, os.Stderr)
}

func RunMain(args []string, exit exitFunc, stdout io.Writer, stderr io.Writer) int {
	code := run(args, stdout, stderr, defaultDeps())
	if exit != nil {
		exit(code)
	}
	return code
}

func run(args []string, stdout io.Writer, stderr io.Writer, deps mainDeps) int {
	if version.IsVersionRequest(args) {
		version.Print(stdout)
		return runner.ExitOK
	}

	fs := flag.NewFlagSet(version.Name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Config file path (default ~/.config/trudger.yml)")
	skipLimit := fs.Int("skip-limit", 0, "Consecutive not-ready candidates before giving up (overrides skip_not_ready_limit)")
	verbose := fs.Bool("v", false, "Echo every command and log debug transitions")
	var manual taskList
	fs.Var(&manual, "t", "Task id to process before asking the tracker (repeatable)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return runner.ExitOK
		}
		return runner.ExitFatal
	}
	console := ui.NewConsole(stderr)
	if fs.NArg() > 0 {
		console.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
		return runner.ExitFatal
	}
	if *skipLimit < 0 {
		console.Errorf("-skip-limit must not be negative")
		return runner.ExitFatal
	}

	cfg, err := deps.config.Load(*configPath)
	if err != nil {
		console.Errorf("%v", err)
		return runner.ExitFatal
	}
	limit, err := runner.NewReviewLoopLimit(cfg.ReviewLoopLimit)
	if err != nil {
		console.Errorf("%v", err)
		return runner.ExitFatal
	}
	prompts, err := agent.LoadPrompts(cfg.Agent.SolvePrompt, cfg.Agent.ReviewPrompt)
	if err != nil {
		console.Errorf("%v", err)
		return runner.ExitFatal
	}
	scope, err := notify.ParseScope(cfg.Notifications.Scope)
	if err != nil {
		console.Errorf("%v", err)
		return runner.ExitFatal
	}
	skip := cfg.SkipNotReadyLimit
	if *skipLimit > 0 {
		skip = *skipLimit
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := tracing.Setup(ctx, deps.getenv)
	if err != nil {
		console.Warnf("tracing disabled: %v", err)
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		_ = shutdownTracing(flushCtx)
	}()

	level := "info"
	if *verbose {
		level = "debug"
	}
	startedAt := deps.now()
	logger, err := logging.OpenTransitionLog(cfg.LogPath, level, logging.LoggingSchemaFields{
		RunID: fmt.Sprintf("run-%d", startedAt.UnixNano()),
	})
	if err != nil {
		console.Errorf("%v", err)
		return runner.ExitFatal
	}
	defer logger.Close()

	var echo io.Writer
	if *verbose {
		echo = stderr
	}
	commands := deps.newRunner(echo)

	var bus notify.Publisher
	if cfg.Notifications.BusURL != "" {
		bus, err = deps.newPublisher(cfg.Notifications.BusURL)
		if err != nil {
			console.Warnf("notification bus disabled: %v", err)
			bus = nil
		}
	}
	dispatcher := notify.NewDispatcher(commands, notify.Options{
		Hook:       cfg.Notifications.Hook,
		Scope:      scope,
		Bus:        bus,
		BusSubject: cfg.Notifications.BusSubject,
		Logger:     logger,
		Warn:       func(message string) { console.Warnf("%s", message) },
	})
	defer dispatcher.Close()

	interrupted := &interrupt.Flag{}
	loop, err := runner.New(runner.Deps{
		Tracker: tracker.New(commands, tracker.Commands{
			NextTask:         cfg.Commands.NextTask,
			TaskShow:         cfg.Commands.TaskShow,
			TaskStatus:       cfg.Commands.TaskStatus,
			TaskUpdateStatus: cfg.Commands.TaskUpdateStatus,
		}),
		Agent:     agent.NewInvoker(commands, cfg.Agent.Command, cfg.Agent.ResumeArgs, prompts),
		Commands:  commands,
		Notifier:  dispatcher,
		Interrupt: interrupted,
		Logger:    logger,
		Reporter:  console,
	}, runner.Options{
		ReviewLoopLimit: limit,
		SkipLimit:       skip,
		Hooks: runner.Hooks{
			OnCompleted:     cfg.Hooks.OnCompleted,
			OnRequiresHuman: cfg.Hooks.OnRequiresHuman,
		},
	})
	if err != nil {
		console.Errorf("%v", err)
		return runner.ExitFatal
	}

	state := runner.NewRunState(cfg.Path, manual, startedAt)
	if scope.MirrorsLogs() {
		logger.SetMirror(loop.MirrorLog(state))
	}
	stopWatching := deps.watch(ctx, interrupted)
	defer stopWatching()

	quit := loop.Execute(ctx, state)
	report(console, quit, state)
	return quit.Code
}

func report(console *ui.Console, quit runner.Quit, state *runner.RunState) {
	switch quit.Code {
	case runner.ExitOK:
		console.Infof("%s", quit.Message)
	case runner.ExitInterrupted:
		console.Warnf("%s", quit.Message)
	default:
		console.Errorf("%s (%s)", quit.Message, quit.Reason)
	}
	if len(state.Completed) > 0 {
		console.Infof("completed: %s", joinTaskIDs(state.Completed))
	}
	if len(state.Escalated) > 0 {
		console.Infof("needs human: %s", joinTaskIDs(state.Escalated))
	}
}

func joinTaskIDs(ids []tracker.TaskID) string {
	list := taskList(ids)
	return list.String()
}
