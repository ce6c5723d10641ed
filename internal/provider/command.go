// SPDX-License-Identifier: MIT
package provider

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/skaphos/lockkeeper/internal/model"
)

// Mode selects how a command submission blocks.
type Mode string

const (
	// ModeSync blocks the calling goroutine until the command has been
	// executed and its result applied.
	ModeSync Mode = "sync"
	// ModeAsync returns immediately; the result surfaces on a later Tick.
	ModeAsync Mode = "async"
)

// Operation identifies a source-control operation kind. Dispatch is a
// closed registration table keyed by Operation, not by free-form strings.
type Operation string

const (
	OpConnect      Operation = "connect"
	OpUpdateStatus Operation = "update_status"
	OpCheckOut     Operation = "check_out"
	OpCheckIn      Operation = "check_in"
	OpMarkForAdd   Operation = "mark_for_add"
	OpDelete       Operation = "delete"
	OpRevert       Operation = "revert"
	OpSync         Operation = "sync"
	OpHistory      Operation = "history"
	OpUnlock       Operation = "unlock"
	OpResolve      Operation = "resolve"
)

// Command pairs an immutable request with its mutable result accumulator.
// The request fields are set at creation and never change; result fields
// are written by exactly one worker goroutine and read after the
// processed flag flips.
type Command struct {
	// ID identifies the command in logs and queue bookkeeping.
	ID uuid.UUID
	// Op is the operation kind this command executes.
	Op Operation
	// Files are the repo-relative target paths.
	Files []string
	// Message is the commit message for check-in commands.
	Message string
	// Mode records how the command was submitted.
	Mode Mode
	// OnDone runs on the tick goroutine after the result is applied.
	OnDone func(*Command)

	executing atomic.Bool
	processed atomic.Bool
	cancelled atomic.Bool
	done      atomic.Bool

	mu     sync.Mutex
	ok     bool
	info   []string
	errs   []string
	deltas map[string]model.Delta
}

func newCommand(op Operation, files []string, mode Mode, onDone func(*Command)) *Command {
	return &Command{
		ID:     uuid.New(),
		Op:     op,
		Files:  append([]string(nil), files...),
		Mode:   mode,
		OnDone: onDone,
		deltas: make(map[string]model.Delta),
	}
}

// Cancel requests cooperative cancellation. A command mid-subprocess
// still runs to completion; its result is discarded at drain time.
func (c *Command) Cancel() { c.cancelled.Store(true) }

// Cancelled reports whether cancellation was requested.
func (c *Command) Cancelled() bool { return c.cancelled.Load() }

// Executing reports whether a worker is currently running the command.
func (c *Command) Executing() bool { return c.executing.Load() }

// Processed reports whether the worker has finished executing.
func (c *Command) Processed() bool { return c.processed.Load() }

// Done reports whether the result has been applied (or discarded) by a tick.
func (c *Command) Done() bool { return c.done.Load() }

// Succeeded reports the worker outcome. Meaningful only once Processed.
func (c *Command) Succeeded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ok
}

// Infof appends an informational message to the result.
func (c *Command) Infof(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.info = append(c.info, fmt.Sprintf(format, args...))
}

// Errorf appends a user-facing error message to the result.
func (c *Command) Errorf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, fmt.Sprintf(format, args...))
}

// InfoMessages returns the accumulated informational output.
func (c *Command) InfoMessages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.info...)
}

// ErrorMessages returns the accumulated error output.
func (c *Command) ErrorMessages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.errs...)
}

// AddDelta records a state delta to be applied when the command drains.
func (c *Command) AddDelta(path string, d model.Delta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deltas[path] = d
}

// AddDeltas records a batch of state deltas.
func (c *Command) AddDeltas(deltas map[string]model.Delta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for path, d := range deltas {
		c.deltas[path] = d
	}
}

// Deltas returns a copy of the recorded state deltas.
func (c *Command) Deltas() map[string]model.Delta {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]model.Delta, len(c.deltas))
	for path, d := range c.deltas {
		out[path] = d
	}
	return out
}

func (c *Command) setOK(ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ok = ok
}

func (c *Command) markDone() { c.done.Store(true) }
