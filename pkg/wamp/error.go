package wamp

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrClosed is returned when calling on a closed session, and by calls
	// still pending when the connection goes away.
	ErrClosed = errors.New("wamp: session closed")

	// ErrProtocolViolation is returned when the router sends a message that
	// does not fit the current state.
	ErrProtocolViolation = errors.New("wamp: protocol violation")
)

// Error is an ERROR message returned by the router or callee for a call.
// It is handed to the caller as-is so the remote payload is not lost.
type Error struct {
	// URI is the error URI, e.g. "nl.itslanguage.recording.failed".
	URI string `json:"error"`

	Args    []any          `json:"args,omitempty"`
	Kwargs  map[string]any `json:"kwargs,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

func (e *Error) Error() string {
	if len(e.Args) > 0 {
		return fmt.Sprintf("wamp: %s: %v", e.URI, e.Args[0])
	}
	if len(e.Kwargs) > 0 {
		return fmt.Sprintf("wamp: %s: %v", e.URI, e.Kwargs)
	}
	return "wamp: " + e.URI
}

// AbortError is returned by Dial when the router answers HELLO with ABORT.
type AbortError struct {
	Reason  string
	Details map[string]any
}

func (e *AbortError) Error() string {
	if msg, ok := e.Details["message"].(string); ok && msg != "" {
		return fmt.Sprintf("wamp: session aborted: %s (%s)", e.Reason, msg)
	}
	return "wamp: session aborted: " + e.Reason
}

// AsError attempts to cast an error to *Error.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
