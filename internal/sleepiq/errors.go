package sleepiq

import (
	"errors"
	"fmt"
)

// Sentinel errors. Typed errors below match these with errors.Is.
var (
	ErrInvalidCredentials = errors.New("sleepiq: invalid credentials")
	ErrNotAuthenticated   = errors.New("sleepiq: not authenticated")
	ErrConnection         = errors.New("sleepiq: connection error")
	ErrServer             = errors.New("sleepiq: server error")
	ErrUnexpectedResponse = errors.New("sleepiq: unexpected response")
	ErrMalformedResponse  = errors.New("sleepiq: malformed response")
	ErrInvalidArgument    = errors.New("sleepiq: invalid argument")
)

// ServerError is returned for HTTP statuses the client cannot recover from.
type ServerError struct {
	Status   int
	Endpoint string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("sleepiq: server error: HTTP %d from %s", e.Status, e.Endpoint)
}

func (e *ServerError) Is(target error) bool { return target == ErrServer }

// ConnectionError wraps a transport failure (timeout, DNS, reset...).
type ConnectionError struct {
	Endpoint string
	Timeout  bool
	Err      error
}

func (e *ConnectionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("sleepiq: timeout while calling %s: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("sleepiq: error while calling %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

func (e *ConnectionError) Unwrap() error { return e.Err }

// UnexpectedResponseError is returned when the server answers with something other than JSON.
// Body holds the raw response text for diagnostics.
type UnexpectedResponseError struct {
	Endpoint    string
	ContentType string
	Body        string
}

func (e *UnexpectedResponseError) Error() string {
	return fmt.Sprintf("sleepiq: unexpected response from %s (Content-Type %q): %s",
		e.Endpoint, e.ContentType, snippet(e.Body, 200))
}

func (e *UnexpectedResponseError) Is(target error) bool { return target == ErrUnexpectedResponse }

// MalformedResponseError is returned when a payload cannot be decoded into its record,
// either because a required field is missing (Field set) or the JSON itself is invalid (Err set).
type MalformedResponseError struct {
	Endpoint string
	Field    string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("sleepiq: malformed response from %s: missing field %q", e.Endpoint, e.Field)
	}
	return fmt.Sprintf("sleepiq: malformed response from %s: %v", e.Endpoint, e.Err)
}

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// notAuthenticated marks err as ErrNotAuthenticated while keeping the cause matchable.
func notAuthenticated(err error) error {
	if errors.Is(err, ErrNotAuthenticated) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNotAuthenticated, err)
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
