package itslanguage

import (
	"errors"
	"fmt"
	"strings"
)

// ErrReadyTimeout is returned by a recording stream when the recorder did not
// become ready within the configured ready timeout.
var ErrReadyTimeout = errors.New("itslanguage: timed out waiting for recorder to become ready")

// InvalidArgumentError reports a missing or unusable parameter.
type InvalidArgumentError struct {
	// Name is the parameter name, e.g. "challenge".
	Name string

	// Reason overrides the default "is required or invalid".
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is required or invalid"
	}
	return fmt.Sprintf("itslanguage: %q parameter %s", e.Name, reason)
}

// MissingFieldError reports an empty identifier field.
type MissingFieldError struct {
	// Field is the dotted field name, e.g. "challenge.organisationId".
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("itslanguage: %s field is required", e.Field)
}

// InvalidStateError reports a collaborator in the wrong state.
type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string {
	return "itslanguage: " + e.Message
}

// SessionConflictError is returned when a recording session is already in
// progress on the connection.
type SessionConflictError struct {
	// RecordingID of the session still in progress. It is empty while that
	// session has not been assigned an id yet.
	RecordingID string
}

func (e *SessionConflictError) Error() string {
	return fmt.Sprintf("itslanguage: session with recordingId %s still in progress", e.RecordingID)
}

// TransportError reports that the RPC channel cannot be used.
type TransportError struct {
	Message string
	Err     error
}

func (e *TransportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("itslanguage: %s: %v", e.Message, e.Err)
	}
	return "itslanguage: " + e.Message
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// FieldError is one entry of the "errors" list in an API error body.
type FieldError struct {
	Resource string `json:"resource"`
	Field    string `json:"field"`
	Code     string `json:"code"`
}

// APIError represents an ITSLanguage REST API error.
type APIError struct {
	// StatusCode is the HTTP status code.
	StatusCode int `json:"-"`

	// Message is the error message returned by the API.
	Message string `json:"message"`

	// Errors lists per-field validation failures.
	Errors []FieldError `json:"errors,omitempty"`

	// RequestID is the X-Request-Id sent with the failed request.
	RequestID string `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "itslanguage: %s (status=%d", e.Message, e.StatusCode)
	if e.RequestID != "" {
		fmt.Fprintf(&b, ", request=%s", e.RequestID)
	}
	b.WriteString(")")
	for _, fe := range e.Errors {
		fmt.Fprintf(&b, "; %s.%s %s", fe.Resource, fe.Field, fe.Code)
	}
	return b.String()
}

// IsNotFound returns true if the resource does not exist.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsUnauthorized returns true if the credentials were rejected.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsValidation returns true if the API rejected the request body.
func (e *APIError) IsValidation() bool {
	return e.StatusCode == 422 || len(e.Errors) > 0
}

// Retryable returns true if the request can be retried.
func (e *APIError) Retryable() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// AsAPIError extracts *APIError from an error.
//
// Example:
//
//	if e, ok := itslanguage.AsAPIError(err); ok && e.IsNotFound() {
//	    // Handle missing resource
//	}
func AsAPIError(err error) (*APIError, bool) {
	var e *APIError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
