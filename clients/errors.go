package clients

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for transport outcomes
var (
	// ErrTimeout indicates an attempt did not complete within its timeout
	ErrTimeout = errors.New("request timed out")

	// ErrAborted indicates the caller cancelled the request
	ErrAborted = errors.New("request aborted")

	// ErrNetwork indicates any other transport failure, including a rejected status
	ErrNetwork = errors.New("network error")
)

// TimeoutError is returned when a single attempt exceeds its timeout
type TimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout of %v exceeded: %s", e.Timeout, e.URL)
}

// Is makes errors.Is(err, ErrTimeout) match
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// NetworkError is a non-timeout transport failure. StatusCode is set when
// the board answered with a status the request does not accept.
type NetworkError struct {
	URL        string
	StatusCode int
	Status     string
	Text       string
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("unexpected status %s from %s", e.Status, e.URL)
	}
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As support
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrNetwork) match
func (e *NetworkError) Is(target error) bool {
	return target == ErrNetwork
}
