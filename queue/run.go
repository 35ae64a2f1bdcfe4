package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	"smoothie-happy/clients"
	"smoothie-happy/events"
	"smoothie-happy/protocol"
	"smoothie-happy/retry"
)

// run drives cmd through the retry policy and the codec, then frees the slot
func (q *Queue) run(ctx context.Context, cmd *Command) {
	defer q.release(cmd)

	// the board never answers break, one short attempt is all it gets
	isBreak := cmd.Options.Request == nil && strings.EqualFold(cmd.Name, protocol.BreakCommand)

	timeout, policy := q.settings(cmd.Options)
	if isBreak {
		timeout = q.cfg.BreakTimeout
		policy.MaxAttempts = 1
	}

	newRequest := func() *clients.Request {
		var req *clients.Request
		if cmd.Options.Request != nil {
			req = cmd.Options.Request(timeout)
		} else {
			req = clients.CommandRequest(q.cfg.Address, cmd.Line, timeout)
		}
		if req.OnProgress == nil {
			req.OnProgress = cmd.Options.OnProgress
		}
		return req
	}

	hooks := retry.Hooks{
		Attempt: func(attempt int) {
			cmd.setState(StateSent, attempt)
			if isBreak {
				q.setDebug(true)
			}
			q.emitCommand(events.CommandEvent{Kind: events.CommandSending, Command: cmd.Info()})
		},
		BeforeRetry: func(attempt int, delay time.Duration, err error) {
			cmd.setState(StateRetryWait, attempt)
			q.emitCommand(events.CommandEvent{
				Kind:    events.CommandRetryScheduled,
				Command: cmd.Info(),
				Delay:   delay,
				Err:     err,
			})
		},
		RetryLimitExceeded: func(_ int, err error) {
			if isBreak {
				return
			}
			q.emitCommand(events.CommandEvent{
				Kind:    events.CommandRetryLimitExceeded,
				Command: cmd.Info(),
				Err:     err,
			})
		},
	}

	resp, attempts, err := retry.Send(ctx, q.cfg.Sender, newRequest, policy, hooks)
	if err != nil {
		if isBreak && errors.Is(err, clients.ErrTimeout) {
			q.resolve(cmd, Result{Value: DebugModeEntered, Attempts: attempts})
			return
		}
		q.observeFailure(err)
		q.reject(cmd, Result{Attempts: attempts}, err)
		return
	}

	q.setOnline(true)
	if !isBreak {
		q.setDebug(false)
	}

	res := Result{Text: resp.Text, Elapsed: resp.Elapsed, Attempts: attempts}
	if res.Value, err = q.decode(cmd, resp.Text); err != nil {
		q.reject(cmd, res, err)
		return
	}
	q.resolve(cmd, res)
}

// settings merges command options over the queue defaults
func (q *Queue) settings(opts Options) (time.Duration, retry.Policy) {
	timeout, policy := q.cfg.Timeout, q.cfg.Policy
	if opts.Timeout > 0 {
		timeout = opts.Timeout
	}
	if opts.MaxAttempts > 0 {
		policy.MaxAttempts = opts.MaxAttempts
	}
	if opts.AttemptDelay > 0 {
		policy.AttemptDelay = opts.AttemptDelay
	}
	return timeout, policy
}

func (q *Queue) decode(cmd *Command, text string) (any, error) {
	switch {
	case cmd.Options.Decode != nil:
		return cmd.Options.Decode(text)
	case cmd.Options.Raw:
		raw, err := q.cfg.Codec.DecodeRaw(cmd.Name, text, q.stateWriter())
		if err != nil {
			return nil, err
		}
		return raw, nil
	}
	return q.cfg.Codec.Decode(cmd.Name, text, cmd.Args, q.stateWriter())
}

// observeFailure updates the online flag from a transport failure.
// A rejected status still proves the board is reachable.
func (q *Queue) observeFailure(err error) {
	var netErr *clients.NetworkError
	switch {
	case errors.As(err, &netErr) && netErr.StatusCode != 0:
		q.setOnline(true)
	case errors.Is(err, clients.ErrNetwork), errors.Is(err, retry.ErrRetryLimitExceeded):
		q.setOnline(false)
	}
}

func (q *Queue) stateWriter() protocol.StateWriter {
	if q.cfg.State == nil {
		return nil
	}
	return q.cfg.State
}

func (q *Queue) setDebug(on bool) {
	if q.cfg.State != nil {
		q.cfg.State.SetDebug(on)
	}
}

func (q *Queue) setOnline(on bool) {
	if q.cfg.State != nil {
		q.cfg.State.SetOnline(on)
	}
}
