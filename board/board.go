// Package board ties the transport, codec, command queue and file tree
// cache together for one Smoothieware board.
package board

import (
	"errors"
	"strings"
	"sync"
	"time"

	"smoothie-happy/clients"
	"smoothie-happy/decoders"
	"smoothie-happy/events"
	"smoothie-happy/filetree"
	"smoothie-happy/protocol"
	"smoothie-happy/queue"
	"smoothie-happy/retry"
)

// ErrInvalidAddress is returned when the board address is empty
var ErrInvalidAddress = errors.New("invalid board address")

// Settings holds the per board defaults
type Settings struct {
	Timeout      time.Duration
	MaxAttempts  int
	AttemptDelay time.Duration
	BreakTimeout time.Duration
}

// DefaultSettings returns the settings used when no option overrides them
func DefaultSettings() Settings {
	policy := retry.DefaultPolicy()
	return Settings{
		Timeout:      5 * time.Second,
		MaxAttempts:  policy.MaxAttempts,
		AttemptDelay: policy.AttemptDelay,
		BreakTimeout: 5 * time.Second,
	}
}

// State is a snapshot of the board flags
type State struct {
	Online bool `json:"online"`
	Alarm  bool `json:"alarm"`
	Debug  bool `json:"debug"`
}

// Board is a client for one board
type Board struct {
	address  string
	settings Settings
	observer events.Observer
	registry *protocol.Registry
	sender   retry.Sender
	codecOpt []protocol.Option

	codec *protocol.Codec
	queue *queue.Queue
	files *filetree.Cache

	mu    sync.RWMutex
	state State
}

// Option configures a Board
type Option func(*Board)

// WithSettings replaces every setting at once
func WithSettings(s Settings) Option {
	return func(b *Board) {
		b.settings = s
	}
}

// WithTimeout sets the default per attempt timeout
func WithTimeout(d time.Duration) Option {
	return func(b *Board) {
		b.settings.Timeout = d
	}
}

// WithMaxAttempts sets how many times a timed out command is sent
func WithMaxAttempts(n int) Option {
	return func(b *Board) {
		b.settings.MaxAttempts = n
	}
}

// WithAttemptDelay sets the wait between two attempts
func WithAttemptDelay(d time.Duration) Option {
	return func(b *Board) {
		b.settings.AttemptDelay = d
	}
}

// WithBreakTimeout sets how long the break command waits before the
// board is considered in debug mode
func WithBreakTimeout(d time.Duration) Option {
	return func(b *Board) {
		b.settings.BreakTimeout = d
	}
}

// WithObserver sets the lifecycle observer
func WithObserver(o events.Observer) Option {
	return func(b *Board) {
		b.observer = o
	}
}

// WithRegistry replaces the default decoder registry
func WithRegistry(r *protocol.Registry) Option {
	return func(b *Board) {
		b.registry = r
	}
}

// WithSender replaces the HTTP transport
func WithSender(s retry.Sender) Option {
	return func(b *Board) {
		b.sender = s
	}
}

// WithCodecOptions passes options to the protocol codec
func WithCodecOptions(opts ...protocol.Option) Option {
	return func(b *Board) {
		b.codecOpt = append(b.codecOpt, opts...)
	}
}

// NormalizeAddress strips the scheme and any trailing slash from address
//
//	" http://192.168.1.102/ " => "192.168.1.102"
func NormalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	address = strings.TrimPrefix(address, "http://")
	address = strings.TrimPrefix(address, "https://")
	return strings.TrimRight(address, "/")
}

// New creates a new board client for address
func New(address string, opts ...Option) (*Board, error) {
	address = NormalizeAddress(address)
	if address == "" {
		return nil, ErrInvalidAddress
	}

	b := &Board{
		address:  address,
		settings: DefaultSettings(),
	}
	for _, opt := range opts {
		opt(b)
	}

	b.observer = events.Or(b.observer)
	if b.registry == nil {
		b.registry = decoders.NewRegistry()
	}
	if b.sender == nil {
		b.sender = clients.NewTransport()
	}

	b.codec = protocol.NewCodec(b.registry, b.codecOpt...)
	b.queue = queue.New(queue.Config{
		Address:  address,
		Sender:   b.sender,
		Codec:    b.codec,
		State:    flags{b},
		Observer: b.observer,
		Timeout:  b.settings.Timeout,
		Policy: retry.Policy{
			MaxAttempts:  b.settings.MaxAttempts,
			AttemptDelay: b.settings.AttemptDelay,
		},
		BreakTimeout: b.settings.BreakTimeout,
	})
	b.files = filetree.New(address, lister{b}, b.observer)

	return b, nil
}

// Address returns the normalized board address
func (b *Board) Address() string {
	return b.address
}

// Settings returns the board settings
func (b *Board) Settings() Settings {
	return b.settings
}

// Codec returns the protocol codec
func (b *Board) Codec() *protocol.Codec {
	return b.codec
}

// Queue returns the command queue
func (b *Board) Queue() *queue.Queue {
	return b.queue
}

// Files returns the file tree cache. Its accessors return copies.
func (b *Board) Files() *filetree.Cache {
	return b.files
}

// State returns a snapshot of the board flags
func (b *Board) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// flags is the single writer of the board state, handed to the queue
// and through it to the codec
type flags struct {
	b *Board
}

func (f flags) SetAlarm(on bool) {
	f.b.transition(func(s *State) bool {
		changed := s.Alarm != on
		s.Alarm = on
		return changed
	}, pick(on, events.AlarmEntered, events.AlarmCleared))
}

func (f flags) SetDebug(on bool) {
	f.b.transition(func(s *State) bool {
		changed := s.Debug != on
		s.Debug = on
		return changed
	}, pick(on, events.DebugEntered, events.DebugLeft))
}

func (f flags) SetOnline(on bool) {
	f.b.transition(func(s *State) bool {
		changed := s.Online != on
		s.Online = on
		return changed
	}, pick(on, events.Online, events.Offline))
}

// transition applies update and emits kind when a flag actually changed
func (b *Board) transition(update func(*State) bool, kind events.StateKind) {
	b.mu.Lock()
	changed := update(&b.state)
	state := b.state
	b.mu.Unlock()

	if !changed {
		return
	}
	b.observer.OnState(events.StateEvent{
		Kind:    kind,
		Address: b.address,
		Online:  state.Online,
		Alarm:   state.Alarm,
		Debug:   state.Debug,
		Time:    time.Now(),
	})
}

func pick(on bool, yes, no events.StateKind) events.StateKind {
	if on {
		return yes
	}
	return no
}
