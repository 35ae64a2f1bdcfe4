package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for response classification.
var (
	// ErrUnsupportedCommand indicates the board rejected the command outright.
	ErrUnsupportedCommand = errors.New("unsupported command")

	// ErrAlarm indicates the board reported a halt/alarm condition.
	ErrAlarm = errors.New("alarm detected")

	// ErrUnimplementedCommand indicates no decoder is registered for the command.
	ErrUnimplementedCommand = errors.New("unimplemented command")

	// ErrParse indicates a decoder could not make sense of the response.
	ErrParse = errors.New("parse error")
)

// UnsupportedCommandError is raised when the board does not know the command.
type UnsupportedCommandError struct {
	Command string
	Text    string
}

// Error implements the error interface.
func (e *UnsupportedCommandError) Error() string {
	return fmt.Sprintf("unsupported command '%s'", e.Command)
}

// Is makes errors.Is(err, ErrUnsupportedCommand) match.
func (e *UnsupportedCommandError) Is(target error) bool {
	return target == ErrUnsupportedCommand
}

// AlarmError is raised when the response carries an alarm marker.
type AlarmError struct {
	Command string
	Text    string
}

// Error implements the error interface.
func (e *AlarmError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("alarm detected on '%s': empty response", e.Command)
	}
	return fmt.Sprintf("alarm detected on '%s': %s", e.Command, e.Text)
}

// Is makes errors.Is(err, ErrAlarm) match.
func (e *AlarmError) Is(target error) bool {
	return target == ErrAlarm
}

// UnimplementedCommandError is raised when no decoder is registered.
type UnimplementedCommandError struct {
	Command string
}

// Error implements the error interface.
func (e *UnimplementedCommandError) Error() string {
	return fmt.Sprintf("command '%s' is not implemented", e.Command)
}

// Is makes errors.Is(err, ErrUnimplementedCommand) match.
func (e *UnimplementedCommandError) Is(target error) bool {
	return target == ErrUnimplementedCommand
}

// ParseError wraps an error raised by a decoder together with the
// offending response text.
type ParseError struct {
	Command string
	Text    string
	Err     error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot decode '%s' response: %v", e.Command, e.Err)
}

// Unwrap returns the decoder error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrParse) match.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}
