// Package protocol encodes board command lines and classifies and decodes
// the free-text replies.
//
// Request format:  <command> [arguments...]\n
//
// Replies have no framing or status field. Every reply first goes
// through a shared classification step (unsupported command, alarm
// markers), then through the decoder registered for the command.
package protocol

import (
	"strings"
)

const (
	// UnsupportedMarker starts the reply to a command the board does not know.
	UnsupportedMarker = "error:Unsupported command"

	// ClearAlarmCommand leaves the alarm/halt state.
	ClearAlarmCommand = "M999"

	// BreakCommand drops the board into its debug monitor; it never answers.
	BreakCommand = "break"
)

// alarmPrefixes are matched case-insensitively against the first reply line.
var alarmPrefixes = []string{"!!", "alarm", "error"}

// StateWriter receives alarm transitions observed in replies.
type StateWriter interface {
	SetAlarm(on bool)
}

// Codec encodes command lines and decodes replies.
type Codec struct {
	registry   *Registry
	clearAlarm string
	emptyAlarm map[string]bool
}

// Option configures a Codec.
type Option func(*Codec)

// WithClearAlarmCommand changes the command whose reply resets the alarm flag.
func WithClearAlarmCommand(name string) Option {
	return func(c *Codec) {
		c.clearAlarm = name
	}
}

// WithEmptyReplyAlarm replaces the list of commands for which an empty
// reply means the board is halted.
func WithEmptyReplyAlarm(names ...string) Option {
	return func(c *Codec) {
		c.emptyAlarm = make(map[string]bool, len(names))
		for _, name := range names {
			c.emptyAlarm[strings.ToLower(name)] = true
		}
	}
}

// NewCodec creates a codec decoding with the given registry.
func NewCodec(registry *Registry, opts ...Option) *Codec {
	c := &Codec{
		registry:   registry,
		clearAlarm: ClearAlarmCommand,
		// fire answers nothing at all while the machine is halted
		emptyAlarm: map[string]bool{"fire": true},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Registry returns the decoder registry.
func (c *Codec) Registry() *Registry {
	return c.registry
}

// ParseLine normalizes a command line and splits it into the command
// name and its arguments.
func ParseLine(line string) (name string, args []string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// Encode returns the wire form of a command.
func Encode(name string, args []string) string {
	if len(args) == 0 {
		return name + "\n"
	}
	return name + " " + strings.Join(args, " ") + "\n"
}

// Decode classifies text, then hands it to the decoder registered for
// the command. Alarm transitions are reported to state, which may be nil.
func (c *Codec) Decode(name, text string, args []string, state StateWriter) (any, error) {
	if err := c.Classify(name, text, state); err != nil {
		return nil, err
	}

	decode, decoderArgs, ok := c.registry.Lookup(name, args)
	if !ok {
		return nil, &UnimplementedCommandError{Command: name}
	}

	// decoders get their own copy, they are free to consume it
	value, err := decode(text, append([]string(nil), decoderArgs...))
	if err != nil {
		return nil, &ParseError{Command: name, Text: text, Err: err}
	}
	return value, nil
}

// DecodeRaw only classifies text and returns it untouched.
func (c *Codec) DecodeRaw(name, text string, state StateWriter) (string, error) {
	if err := c.Classify(name, text, state); err != nil {
		return "", err
	}
	return text, nil
}

// Classify applies the checks shared by every command.
func (c *Codec) Classify(name, text string, state StateWriter) error {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, UnsupportedMarker) {
		return &UnsupportedCommandError{Command: name, Text: text}
	}

	if c.isAlarm(name, trimmed) {
		if state != nil {
			state.SetAlarm(true)
		}
		return &AlarmError{Command: name, Text: trimmed}
	}

	if c.clearAlarm != "" && strings.EqualFold(name, c.clearAlarm) && state != nil {
		state.SetAlarm(false)
	}
	return nil
}

func (c *Codec) isAlarm(name, trimmed string) bool {
	if trimmed == "" {
		return c.emptyAlarm[strings.ToLower(name)]
	}

	first, _, _ := strings.Cut(trimmed, "\n")
	first = strings.ToLower(strings.TrimSpace(first))
	for _, prefix := range alarmPrefixes {
		if strings.HasPrefix(first, prefix) {
			return true
		}
	}
	return false
}
