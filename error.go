package carsense

import (
	"errors"
	"fmt"
	"time"
)

type unrecoverableError struct {
	error
}

func (e unrecoverableError) Error() string {
	if e.error == nil {
		return "unrecoverable error"
	}
	return e.error.Error()
}

func (e unrecoverableError) Unwrap() error {
	return e.error
}

// Unrecoverable wraps an error in `unrecoverableError` struct
func Unrecoverable(err error) error {
	return unrecoverableError{err}
}

// IsRecoverable checks if error is an instance of `unrecoverableError`
func IsRecoverable(err error) bool {
	if _, ok := err.(unrecoverableError); ok {
		return false
	}
	return true
}

var (
	ErrNilAdapter         = errors.New("adapter is nil")
	ErrDroppedResponse    = errors.New("adapter incoming channel full")
	ErrErrorChannelFull   = errors.New("error channel full")
	ErrResponseChanClosed = errors.New("response channel closed")
)

// TimeoutError means no response arrived within the call's budget.
type TimeoutError struct {
	Command string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timeout (%dms) waiting for response to %q", e.Timeout.Milliseconds(), e.Command)
}

func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// AdapterError is an explicit failure text from the ELM327 itself.
type AdapterError struct {
	Command string
	Text    string
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("adapter error for %q: %s", e.Command, e.Text)
}

// ParseError carries the original raw text so a bad reading can be
// diagnosed; it is never silently dropped.
type ParseError struct {
	Command string
	Raw     string
	Reason  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse response to %q: %s (raw: %q)", e.Command, e.Reason, e.Raw)
}
