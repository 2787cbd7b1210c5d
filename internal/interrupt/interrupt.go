// Package interrupt holds the cooperative cancellation flag polled by the
// run loop between blocking steps.
package interrupt

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
)

// ExitCode is the process exit code used when a poll observes the flag.
const ExitCode = 130

type Flag struct {
	set atomic.Bool
}

func (f *Flag) Set() {
	if f == nil {
		return
	}
	f.set.Store(true)
}

func (f *Flag) Interrupted() bool {
	if f == nil {
		return false
	}
	return f.set.Load()
}

// stopSignals is replaced in tests.
var stopSignals = signal.Stop

// Watch sets flag when one of signals arrives (SIGINT and SIGTERM when none
// are given). Only the first signal is caught; a second one gets the default
// behavior so the operator can still kill a hung step. The returned stop
// function removes the handler.
func Watch(ctx context.Context, flag *Flag, signals ...os.Signal) func() {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	release := stopSignals
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			flag.Set()
			release(ch)
		case <-ctx.Done():
		case <-done:
		}
	}()
	stopped := atomic.Bool{}
	return func() {
		if !stopped.CompareAndSwap(false, true) {
			return
		}
		release(ch)
		close(done)
	}
}
