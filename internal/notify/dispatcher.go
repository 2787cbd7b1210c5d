// Package notify fires the configured notification hook at run and task
// boundaries. Every failure is logged and swallowed.
package notify

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/lambdamechanic/trudger-sub000/internal/exec"
	"github.com/lambdamechanic/trudger-sub000/internal/logging"
)

const RoleNotification = "on_notification"

// Notification is one dispatch request.
type Notification struct {
	Event Event
	// Since is the run or task start; only *_end events report a duration.
	Since    time.Time
	TaskID   string
	TaskShow string
	// ExitCode is only reported for run_end.
	ExitCode int
	Message  string
	// Env is the shared command context environment.
	Env []string
}

type Logger interface {
	Log(level string, fields map[string]interface{}) error
}

type Options struct {
	Hook       string
	Scope      Scope
	Bus        Publisher
	BusSubject string
	Logger     Logger
	// Warn surfaces fail-open problems to the operator.
	Warn func(message string)
}

type Dispatcher struct {
	runner     exec.Runner
	hook       string
	scope      Scope
	bus        Publisher
	busSubject string
	logger     Logger
	warn       func(string)
	inFlight   atomic.Bool
	now        func() time.Time
	getwd      func() (string, error)
}

func NewDispatcher(runner exec.Runner, options Options) *Dispatcher {
	scope := options.Scope
	if scope == "" {
		scope = ScopeTaskBoundaries
	}
	return &Dispatcher{
		runner:     runner,
		hook:       options.Hook,
		scope:      scope,
		bus:        options.Bus,
		busSubject: options.BusSubject,
		logger:     options.Logger,
		warn:       options.Warn,
		now:        time.Now,
		getwd:      os.Getwd,
	}
}

func (d *Dispatcher) Scope() Scope {
	if d == nil {
		return ""
	}
	return d.scope
}

// Dispatch fires the hook for n when the scope allows it. A dispatch that
// starts while another is running is dropped.
func (d *Dispatcher) Dispatch(ctx context.Context, n Notification) {
	if d == nil || !d.scope.Allows(n.Event) {
		return
	}
	if d.hook == "" && d.bus == nil {
		return
	}
	if !d.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer d.inFlight.Store(false)

	payload := d.payload(n)
	raw, err := marshalPayload(payload)
	if err != nil {
		d.fail(n.Event, fmt.Errorf("encode payload: %w", err))
		return
	}

	if d.hook != "" {
		d.runHook(ctx, n, payload, raw)
	}
	if d.bus != nil {
		publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		err := d.bus.Publish(publishCtx, d.busSubject, raw)
		cancel()
		if err != nil {
			d.fail(n.Event, fmt.Errorf("publish to %s: %w", d.busSubject, err))
		}
	}
}

func (d *Dispatcher) runHook(ctx context.Context, n Notification, payload Payload, raw []byte) {
	payloadPath, err := writePayloadFile(raw)
	if err != nil {
		d.fail(n.Event, err)
		return
	}
	defer os.Remove(payloadPath)

	env := append(append([]string(nil), n.Env...), payload.env(payloadPath)...)
	result, err := d.runner.Run(ctx, exec.Command{
		Role:   RoleNotification,
		Script: d.hook,
		Env:    env,
	})
	if err != nil {
		d.fail(n.Event, err)
		return
	}
	if result.ExitCode != 0 {
		d.fail(n.Event, fmt.Errorf("%s exited with code %d", RoleNotification, result.ExitCode))
	}
}

func (d *Dispatcher) payload(n Notification) Payload {
	payload := Payload{
		Event:           n.Event,
		TaskID:          n.TaskID,
		TaskDescription: Summary(n.TaskShow),
		Message:         logging.Redact(n.Message),
	}
	if n.Event.isEnd() && !n.Since.IsZero() {
		elapsed := d.now().Sub(n.Since)
		if elapsed > 0 {
			payload.DurationMS = elapsed.Milliseconds()
		}
	}
	if folder, err := d.getwd(); err == nil {
		payload.Folder = folder
	}
	if n.Event == EventRunEnd {
		code := n.ExitCode
		payload.ExitCode = &code
	}
	if payload.Message == "" {
		payload.Message = defaultMessage(payload)
	}
	return payload
}

func defaultMessage(p Payload) string {
	if p.TaskID == "" {
		return string(p.Event)
	}
	return fmt.Sprintf("%s %s", p.Event, p.TaskID)
}

func (d *Dispatcher) fail(event Event, err error) {
	message := fmt.Sprintf("notification %s failed: %v", event, err)
	if d.logger != nil {
		_ = d.logger.Log("warn", map[string]interface{}{
			"event":              "notification_failed",
			"notification_event": string(event),
			"message":            message,
		})
	}
	if d.warn != nil {
		d.warn(message)
	}
}

func (d *Dispatcher) Close() error {
	if d == nil || d.bus == nil {
		return nil
	}
	return d.bus.Close()
}
