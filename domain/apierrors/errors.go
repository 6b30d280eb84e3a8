// Package apierrors defines the failure taxonomy surfaced to view layers:
// transport, protocol (status), decode and client-side validation failures.
package apierrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNetwork marks a call that never completed (connection refused, reset, DNS...).
	ErrNetwork = errors.New("network error")

	// ErrInvalidResponse marks a 2xx response whose body could not be decoded.
	ErrInvalidResponse = errors.New("invalid response")
)

// TransportError wraps the underlying cause of a failed round trip.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string { return ErrNetwork.Error() }

func (e *TransportError) Unwrap() []error { return []error{ErrNetwork, e.Cause} }

// NewTransportError builds a TransportError for op.
func NewTransportError(op string, cause error) *TransportError {
	return &TransportError{Op: op, Cause: cause}
}

// DecodeError wraps a body that did not match the expected shape.
type DecodeError struct {
	Op    string
	Cause error
}

func (e *DecodeError) Error() string { return ErrInvalidResponse.Error() }

func (e *DecodeError) Unwrap() []error { return []error{ErrInvalidResponse, e.Cause} }

// NewDecodeError builds a DecodeError for op.
func NewDecodeError(op string, cause error) *DecodeError {
	return &DecodeError{Op: op, Cause: cause}
}

// StatusError is a non-success HTTP response. Message is displayed verbatim.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string { return e.Message }

// NewStatusError extracts the display message from a failed response body.
func NewStatusError(statusCode int, body []byte) *StatusError {
	return &StatusError{StatusCode: statusCode, Message: DetailMessage(body)}
}

// DetailMessage returns the "detail" string of a {"detail": "..."} body, and
// the raw body text for anything else (plain text, HTML, non-string detail).
func DetailMessage(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(envelope.Detail, &detail); err == nil && detail != "" {
			return detail
		}
	}
	return string(body)
}

// ValidationError is a client-side precondition failure. It never reaches the network.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a client-side rejection.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var s *StatusError
	if errors.As(err, &s) {
		return s.StatusCode
	}
	return 0
}

// Message returns the text a view should display for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var s *StatusError
	if errors.As(err, &s) {
		return s.Message
	}
	switch {
	case errors.Is(err, ErrNetwork):
		return ErrNetwork.Error()
	case errors.Is(err, ErrInvalidResponse):
		return ErrInvalidResponse.Error()
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Error()
	}
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		return "request failed"
	}
	return msg
}
