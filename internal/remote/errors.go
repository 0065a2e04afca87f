package remote

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Messages surfaced to the user when the backend gives us nothing usable.
const (
	GenericServerMessage  = "The server could not process the request. Please try again."
	GenericNetworkMessage = "Could not reach the server. Check your connection and try again."
)

// NetworkError means the request never produced an HTTP response. There is
// no automatic retry; the user retries manually.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: network error: %v", e.Op, e.Err) }
func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is a non-2xx response, or a 2xx envelope with success=false.
// Message carries the backend's message verbatim when present.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server error (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
}

// MalformedResponseError is a body that is not parseable JSON, typically an
// HTML error page. The raw markup is never shown to the user.
type MalformedResponseError struct {
	StatusCode int
	Err        error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response (status %d): %v", e.StatusCode, e.Err)
}
func (e *MalformedResponseError) Unwrap() error { return e.Err }

// ValidationError enumerates client-side field failures. A draft or action
// that fails validation is blocked entirely; nothing is submitted.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, e.Fields[name]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewFieldError builds a single-field ValidationError.
func NewFieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// FromValidator converts validator/v10 output into the per-field form.
func FromValidator(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		case "email":
			fields[fe.Field()] = "must be a valid email address"
		case "gte":
			fields[fe.Field()] = "must not be negative"
		default:
			fields[fe.Field()] = fmt.Sprintf("failed %s check", fe.Tag())
		}
	}
	return &ValidationError{Fields: fields}
}

// UserMessage maps any error from this package to the string the UI shows.
// Failures must always reach the user; nothing is swallowed.
func UserMessage(err error) string {
	var srv *ServerError
	if errors.As(err, &srv) {
		if srv.Message != "" {
			return srv.Message
		}
		return GenericServerMessage
	}
	var mal *MalformedResponseError
	if errors.As(err, &mal) {
		return GenericServerMessage
	}
	var net *NetworkError
	if errors.As(err, &net) {
		return GenericNetworkMessage
	}
	var val *ValidationError
	if errors.As(err, &val) {
		return val.Error()
	}
	return err.Error()
}
