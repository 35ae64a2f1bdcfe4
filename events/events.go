// Package events describes the lifecycle notifications emitted while
// commands flow through a board queue. Observers receive value
// snapshots and never see live engine state.
package events

import (
	"time"

	"smoothie-happy/models"
)

// CommandKind identifies a command lifecycle step
type CommandKind int

const (
	CommandCreated CommandKind = iota
	CommandSending
	CommandResolved
	CommandErrored
	CommandRetryScheduled
	CommandRetryLimitExceeded
)

func (k CommandKind) String() string {
	switch k {
	case CommandCreated:
		return "created"
	case CommandSending:
		return "sending"
	case CommandResolved:
		return "resolved"
	case CommandErrored:
		return "errored"
	case CommandRetryScheduled:
		return "retry scheduled"
	case CommandRetryLimitExceeded:
		return "retry limit exceeded"
	}
	return "unknown"
}

// CommandInfo is a snapshot of a queued command
type CommandInfo struct {
	ID       string   `json:"id"`
	Line     string   `json:"line"`
	Name     string   `json:"name"`
	Args     []string `json:"args"`
	State    string   `json:"state"`
	Attempts int      `json:"attempts"`
}

// CommandEvent is emitted for every step of a command
type CommandEvent struct {
	Kind    CommandKind
	Address string
	Command CommandInfo
	Value   any           // decoded value, CommandResolved only
	Text    string        // raw reply, when one was received
	Elapsed time.Duration // duration of the answered attempt
	Delay   time.Duration // CommandRetryScheduled only
	Err     error
	Time    time.Time
}

// QueueKind identifies a queue level change
type QueueKind int

const (
	QueueEmptied QueueKind = iota
	QueuePaused
	QueueResumed
	QueueCleared
)

func (k QueueKind) String() string {
	switch k {
	case QueueEmptied:
		return "emptied"
	case QueuePaused:
		return "paused"
	case QueueResumed:
		return "resumed"
	case QueueCleared:
		return "cleared"
	}
	return "unknown"
}

// QueueEvent is emitted when the queue changes state
type QueueEvent struct {
	Kind    QueueKind
	Address string
	Pending int
	Cleared []CommandInfo // QueueCleared only
	Time    time.Time
}

// StateKind identifies a board flag transition
type StateKind int

const (
	AlarmEntered StateKind = iota
	AlarmCleared
	DebugEntered
	DebugLeft
	Online
	Offline
)

func (k StateKind) String() string {
	switch k {
	case AlarmEntered:
		return "alarm entered"
	case AlarmCleared:
		return "alarm cleared"
	case DebugEntered:
		return "debug entered"
	case DebugLeft:
		return "debug left"
	case Online:
		return "online"
	case Offline:
		return "offline"
	}
	return "unknown"
}

// StateEvent is emitted on every board flag transition, with the flags
// as they are after it.
type StateEvent struct {
	Kind    StateKind
	Address string
	Online  bool
	Alarm   bool
	Debug   bool
	Time    time.Time
}

// FileTreeEvent is emitted after the file tree cache changed below Path
type FileTreeEvent struct {
	Address string
	Path    string
	Entries []models.FileEntry // subtree below Path after the update
	Removed int
	Size    int64 // cached size of Path
	Time    time.Time
}

// Observer receives board notifications. Calls are made synchronously
// from engine goroutines, implementations must not block.
type Observer interface {
	OnCommand(CommandEvent)
	OnQueue(QueueEvent)
	OnState(StateEvent)
	OnFileTree(FileTreeEvent)
}

// Nop ignores every event
type Nop struct{}

func (Nop) OnCommand(CommandEvent)   {}
func (Nop) OnQueue(QueueEvent)       {}
func (Nop) OnState(StateEvent)       {}
func (Nop) OnFileTree(FileTreeEvent) {}

// Multi forwards every event to each observer in order
type Multi []Observer

func (m Multi) OnCommand(e CommandEvent) {
	for _, o := range m {
		o.OnCommand(e)
	}
}

func (m Multi) OnQueue(e QueueEvent) {
	for _, o := range m {
		o.OnQueue(e)
	}
}

func (m Multi) OnState(e StateEvent) {
	for _, o := range m {
		o.OnState(e)
	}
}

func (m Multi) OnFileTree(e FileTreeEvent) {
	for _, o := range m {
		o.OnFileTree(e)
	}
}

// Or returns o, or Nop when o is nil
func Or(o Observer) Observer {
	if o == nil {
		return Nop{}
	}
	return o
}
