package api

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind is the coarse category of an adapter error.
type ErrorKind string

const (
	// ErrHTTP is a transport-level failure reaching the provider.
	ErrHTTP ErrorKind = "http"

	// ErrProvider means the provider responded with a structured error
	// envelope or a non-2xx status.
	ErrProvider ErrorKind = "provider"

	// ErrInvalid means the canonical request could not be translated for
	// this provider (e.g. an unsupported content-part type).
	ErrInvalid ErrorKind = "invalid_request"

	// ErrTimeout is an exceeded outbound HTTP deadline, distinct from
	// explicit caller cancellation.
	ErrTimeout ErrorKind = "timeout"

	// ErrInternal is the defensive catch-all for invariant violations,
	// e.g. a tool-call delta referencing an id that was never opened.
	ErrInternal ErrorKind = "internal"
)

// AdapterError is the structured error returned by adapters before a
// stream has begun. Once a stream has started, failures are event-encoded
// as StreamEvent errors instead; an adapter never returns a hard error
// after its first event.
type AdapterError struct {
	Kind    ErrorKind
	Code    string
	Message string
}

// Error implements the error interface.
func (e *AdapterError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s error: %s %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

// Event converts the error into its terminal stream-event form.
func (e *AdapterError) Event() StreamEvent {
	code := e.Code
	if code == "" {
		code = string(e.Kind)
	}
	return ErrorEvent(code, e.Message)
}

// HTTPError builds a transport-level adapter error.
func HTTPError(format string, args ...any) *AdapterError {
	return &AdapterError{Kind: ErrHTTP, Message: fmt.Sprintf(format, args...)}
}

// ProviderError builds an error from a provider error envelope or status.
func ProviderError(code, message string) *AdapterError {
	return &AdapterError{Kind: ErrProvider, Code: code, Message: message}
}

// InvalidError builds a request-translation error.
func InvalidError(format string, args ...any) *AdapterError {
	return &AdapterError{Kind: ErrInvalid, Message: fmt.Sprintf(format, args...)}
}

// TimeoutError builds a deadline-exceeded error.
func TimeoutError(message string) *AdapterError {
	return &AdapterError{Kind: ErrTimeout, Message: message}
}

// InternalError builds an invariant-violation error.
func InternalError(format string, args ...any) *AdapterError {
	return &AdapterError{Kind: ErrInternal, Message: fmt.Sprintf(format, args...)}
}

// FromContextError maps a context error onto the taxonomy: deadline
// exceeded becomes ErrTimeout, explicit cancellation stays distinct.
func FromContextError(err error) *AdapterError {
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError("request deadline exceeded")
	}
	return &AdapterError{Kind: ErrHTTP, Code: "cancelled", Message: "request was cancelled"}
}
