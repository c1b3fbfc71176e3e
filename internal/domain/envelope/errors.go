package envelope

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrTransport is matched by every failure where no response was received.
	ErrTransport = errors.New("transport failure")

	// ErrTimeout is matched when the request deadline elapsed before a
	// response was fully received.
	ErrTimeout = errors.New("request timed out")

	// ErrHTTPStatus is matched when a response arrived with a non-2xx status.
	ErrHTTPStatus = errors.New("non-success status")
)

// TransportError describes a call that settled without a response.
type TransportError struct {
	// Path is the request path relative to the base origin.
	Path string
	// Timeout is the deadline that applied to the call.
	Timeout time.Duration
	// TimedOut is true when the deadline aborted the call.
	TimedOut bool
	// Cause is the error returned by the HTTP transport.
	Cause error
}

// Error returns the human-readable failure message.
func (e *TransportError) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("request timed out after %s", e.Timeout)
	}
	if e.Cause != nil && e.Cause.Error() != "" {
		return e.Cause.Error()
	}
	return "Network error"
}

// Unwrap returns the underlying transport error.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is supports errors.Is(err, ErrTransport) and, for deadline failures,
// errors.Is(err, ErrTimeout).
func (e *TransportError) Is(target error) bool {
	if target == ErrTransport {
		return true
	}
	return e.TimedOut && target == ErrTimeout
}

// StatusError describes a response received with a non-2xx status.
type StatusError struct {
	// Status is the HTTP status code.
	Status int
	// StatusLine is the status line, e.g. "403 Forbidden".
	StatusLine string
	// Body is the raw response text.
	Body string
}

// Error returns a description including the status line.
func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %s", e.StatusLine)
}

// Is supports errors.Is(err, ErrHTTPStatus).
func (e *StatusError) Is(target error) bool {
	return target == ErrHTTPStatus
}
