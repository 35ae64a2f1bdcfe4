package queue

import (
	"context"
	"sync"
	"time"

	"smoothie-happy/clients"
	"smoothie-happy/events"
)

// State is the lifecycle position of a command
type State int

const (
	StateCreated State = iota
	StateSent
	StateRetryWait
	StateResolved
	StateRejected
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSent:
		return "sent"
	case StateRetryWait:
		return "retry wait"
	case StateResolved:
		return "resolved"
	case StateRejected:
		return "rejected"
	}
	return "unknown"
}

// Options tunes a single command. Zero values fall back to the queue defaults.
type Options struct {
	Timeout      time.Duration
	MaxAttempts  int
	AttemptDelay time.Duration

	// Raw skips the command decoder, the value is the reply text.
	// Unsupported and alarm replies are still reported as errors.
	Raw bool

	OnProgress clients.ProgressFunc

	// Request replaces the default /command request. It is called once
	// per attempt with the effective timeout.
	Request func(timeout time.Duration) *clients.Request

	// Decode replaces reply classification and decoding entirely.
	Decode func(text string) (any, error)
}

// Result is the outcome of a command. Text and Elapsed are set whenever
// the board answered, even when decoding failed.
type Result struct {
	Value    any
	Text     string
	Elapsed  time.Duration
	Attempts int
}

// Command is a queued command line and the future of its result
type Command struct {
	ID      string
	Line    string
	Name    string
	Args    []string
	Options Options

	mu       sync.Mutex
	state    State
	attempts int
	cancel   context.CancelFunc

	once   sync.Once
	done   chan struct{}
	result Result
	err    error
}

func newCommand(id, line, name string, args []string, opts Options) *Command {
	return &Command{
		ID:      id,
		Line:    line,
		Name:    name,
		Args:    args,
		Options: opts,
		done:    make(chan struct{}),
	}
}

// State returns the current lifecycle state
func (c *Command) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the number of attempts made so far
func (c *Command) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// Done is closed once the command is resolved or rejected
func (c *Command) Done() <-chan struct{} {
	return c.done
}

// Wait blocks until the command settles or ctx is done. Giving up on
// ctx does not cancel the command.
func (c *Command) Wait(ctx context.Context) (Result, error) {
	select {
	case <-c.done:
		return c.result, c.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Info returns an event snapshot of the command
func (c *Command) Info() events.CommandInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return events.CommandInfo{
		ID:       c.ID,
		Line:     c.Line,
		Name:     c.Name,
		Args:     append([]string(nil), c.Args...),
		State:    c.state.String(),
		Attempts: c.attempts,
	}
}

func (c *Command) settled() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

func (c *Command) setState(s State, attempts int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = s
	if attempts > c.attempts {
		c.attempts = attempts
	}
}

// settle stores the outcome once, it reports whether this call won
func (c *Command) settle(res Result, err error) bool {
	won := false
	c.once.Do(func() {
		won = true

		c.mu.Lock()
		if err != nil {
			c.state = StateRejected
		} else {
			c.state = StateResolved
		}
		if res.Attempts == 0 {
			res.Attempts = c.attempts
		}
		c.mu.Unlock()

		c.result, c.err = res, err
		close(c.done)
	})
	return won
}

func (c *Command) setCancel(cancel context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancel = cancel
}

func (c *Command) abort() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
