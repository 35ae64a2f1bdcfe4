// Package queue serializes the commands sent to one board.
//
// At most one command is in flight at a time. Commands run in FIFO
// order, each through the retry policy and then the protocol codec.
package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"smoothie-happy/clients"
	"smoothie-happy/events"
	"smoothie-happy/protocol"
	"smoothie-happy/retry"
)

var (
	// ErrCancelled rejects commands dropped by Clear or AbortCurrent.
	// errors.Is(err, clients.ErrAborted) also matches.
	ErrCancelled = fmt.Errorf("command cancelled: %w", clients.ErrAborted)

	// ErrEmptyCommand is returned when enqueuing a blank line
	ErrEmptyCommand = errors.New("empty command line")
)

// DebugModeEntered is the value of a break command left unanswered
const DebugModeEntered = "debug mode entered"

// Status is the queue level state
type Status int

const (
	Idle Status = iota
	Processing
	Paused
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Processing:
		return "processing"
	case Paused:
		return "paused"
	}
	return "unknown"
}

// StateWriter receives the board flag changes observed while running commands
type StateWriter interface {
	protocol.StateWriter
	SetDebug(on bool)
	SetOnline(on bool)
}

// Config holds the queue collaborators and defaults
type Config struct {
	Address  string
	Sender   retry.Sender
	Codec    *protocol.Codec
	State    StateWriter     // may be nil
	Observer events.Observer // may be nil

	Timeout      time.Duration
	Policy       retry.Policy
	BreakTimeout time.Duration
}

// Queue is a per-board FIFO command queue
type Queue struct {
	cfg      Config
	observer events.Observer

	mu      sync.Mutex
	pending []*Command
	current *Command
	paused  bool
}

// New creates a new queue
func New(cfg Config) *Queue {
	return &Queue{
		cfg:      cfg,
		observer: events.Or(cfg.Observer),
	}
}

// Enqueue appends line to the queue without starting it. The line is
// sent trimmed but otherwise as given, file names keep their spacing.
func (q *Queue) Enqueue(line string, opts Options) (*Command, error) {
	line = strings.TrimSpace(line)
	name, args := protocol.ParseLine(line)
	if name == "" {
		return nil, ErrEmptyCommand
	}

	cmd := newCommand(uuid.NewString(), line, name, args, opts)

	q.mu.Lock()
	q.pending = append(q.pending, cmd)
	q.mu.Unlock()

	q.emitCommand(events.CommandEvent{Kind: events.CommandCreated, Command: cmd.Info()})
	return cmd, nil
}

// EnqueueAndProcess appends line and starts processing when possible.
func (q *Queue) EnqueueAndProcess(line string, opts Options) (*Command, error) {
	cmd, err := q.Enqueue(line, opts)
	if err != nil {
		return nil, err
	}
	q.Process()
	return cmd, nil
}

// Process starts the head command unless the queue is paused, busy or empty.
func (q *Queue) Process() {
	q.mu.Lock()
	if q.paused || q.current != nil || len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}

	cmd := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.current = cmd

	ctx, cancel := context.WithCancel(context.Background())
	cmd.setCancel(cancel)
	q.mu.Unlock()

	go q.run(ctx, cmd)
}

// Pause stops new commands from starting, the in-flight one finishes.
func (q *Queue) Pause() {
	q.mu.Lock()
	if q.paused {
		q.mu.Unlock()
		return
	}
	q.paused = true
	q.mu.Unlock()

	q.emitQueue(events.QueueEvent{Kind: events.QueuePaused})
}

// Resume clears the pause and processes the next command.
func (q *Queue) Resume() {
	q.mu.Lock()
	if !q.paused {
		q.mu.Unlock()
		return
	}
	q.paused = false
	q.mu.Unlock()

	q.emitQueue(events.QueueEvent{Kind: events.QueueResumed})
	q.Process()
}

// AbortCurrent rejects the in-flight command with ErrCancelled and
// cancels its request. The slot is released once the request unwinds.
// It reports whether a command was aborted.
func (q *Queue) AbortCurrent() bool {
	q.mu.Lock()
	cmd := q.current
	q.mu.Unlock()

	if cmd == nil || cmd.settled() {
		return false
	}

	q.reject(cmd, Result{}, ErrCancelled)
	cmd.abort()
	return true
}

// Cancel withdraws cmd and rejects it with ErrCancelled. A pending
// command never reaches the board, the in-flight one is aborted. It
// reports whether cmd was still unsettled.
func (q *Queue) Cancel(cmd *Command) bool {
	q.mu.Lock()
	for i, p := range q.pending {
		if p == cmd {
			q.pending = append(q.pending[:i:i], q.pending[i+1:]...)
			q.mu.Unlock()
			return q.reject(cmd, Result{}, ErrCancelled)
		}
	}
	current := q.current == cmd
	q.mu.Unlock()

	if !current || !q.reject(cmd, Result{}, ErrCancelled) {
		return false
	}
	cmd.abort()
	return true
}

// Clear aborts the in-flight command, rejects every pending command with
// ErrCancelled and lifts any pause. It returns the number of rejected
// pending commands.
func (q *Queue) Clear() int {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.paused = false
	q.mu.Unlock()

	q.AbortCurrent()

	cleared := make([]events.CommandInfo, 0, len(pending))
	for _, cmd := range pending {
		q.reject(cmd, Result{}, ErrCancelled)
		cleared = append(cleared, cmd.Info())
	}

	q.emitQueue(events.QueueEvent{Kind: events.QueueCleared, Cleared: cleared})
	return len(pending)
}

// Len returns the number of commands waiting to start
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Status returns the queue state. An aborted command still unwinding
// does not count as processing.
func (q *Queue) Status() Status {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case q.paused:
		return Paused
	case q.current != nil && !q.current.settled():
		return Processing
	}
	return Idle
}

// Pending returns snapshots of the commands waiting to start
func (q *Queue) Pending() []events.CommandInfo {
	q.mu.Lock()
	pending := append([]*Command(nil), q.pending...)
	q.mu.Unlock()

	infos := make([]events.CommandInfo, 0, len(pending))
	for _, cmd := range pending {
		infos = append(infos, cmd.Info())
	}
	return infos
}

// Current returns the in-flight command, or nil
func (q *Queue) Current() *Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// release frees the in-flight slot and moves on to the next command
func (q *Queue) release(cmd *Command) {
	q.mu.Lock()
	if q.current == cmd {
		q.current = nil
	}
	empty := len(q.pending) == 0
	q.mu.Unlock()

	cmd.abort()

	if empty {
		q.emitQueue(events.QueueEvent{Kind: events.QueueEmptied})
	}
	q.Process()
}

func (q *Queue) resolve(cmd *Command, res Result) {
	if !cmd.settle(res, nil) {
		return
	}
	q.emitCommand(events.CommandEvent{
		Kind:    events.CommandResolved,
		Command: cmd.Info(),
		Value:   res.Value,
		Text:    res.Text,
		Elapsed: res.Elapsed,
	})
}

func (q *Queue) reject(cmd *Command, res Result, err error) bool {
	if !cmd.settle(res, err) {
		return false
	}
	q.emitCommand(events.CommandEvent{
		Kind:    events.CommandErrored,
		Command: cmd.Info(),
		Text:    res.Text,
		Elapsed: res.Elapsed,
		Err:     err,
	})
	return true
}

func (q *Queue) emitCommand(e events.CommandEvent) {
	e.Address = q.cfg.Address
	e.Time = time.Now()
	q.observer.OnCommand(e)
}

func (q *Queue) emitQueue(e events.QueueEvent) {
	e.Address = q.cfg.Address
	e.Time = time.Now()
	if e.Kind != events.QueueCleared {
		e.Pending = q.Len()
	}
	q.observer.OnQueue(e)
}
