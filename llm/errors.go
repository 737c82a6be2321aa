package llm

import (
	"errors"
)

// Error types for classifying generative endpoint failures.

// TransportError covers network failures, timeouts, and non-OK
// responses from the endpoint.
type TransportError struct {
	err error
}

func (e *TransportError) Error() string {
	return e.err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.err
}

// NewTransportError wraps an error as a transport failure.
func NewTransportError(err error) error {
	return &TransportError{err: err}
}

// MalformedError means the endpoint responded but its envelope did not
// contain the expected text content.
type MalformedError struct {
	err error
}

func (e *MalformedError) Error() string {
	return e.err.Error()
}

func (e *MalformedError) Unwrap() error {
	return e.err
}

// NewMalformedError wraps an error as a malformed-envelope failure.
func NewMalformedError(err error) error {
	return &MalformedError{err: err}
}

// IsTransport reports whether err is a transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsMalformed reports whether err is a malformed-envelope failure.
func IsMalformed(err error) bool {
	var me *MalformedError
	return errors.As(err, &me)
}
