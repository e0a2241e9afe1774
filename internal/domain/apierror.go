package domain

import (
	"fmt"
	"log/slog"
	"net/http"
)

const (
	// StatusNetworkFailure is the status code given to failures that never
	// produced an HTTP response. It is a classification bucket, not a measured timeout.
	StatusNetworkFailure = http.StatusRequestTimeout

	// NetworkFailureMessage is the user message given to transport faults.
	NetworkFailureMessage = "Network Fail!"
)

// APIError is the normalized failure value produced for every failed call,
// whatever the failure class.
//
// An APIError is never mutated after construction: the With* methods return
// a modified copy. A handler may therefore keep or share the value freely.
type APIError struct {
	statusCode  int
	userMessage string
	logMessage  string
	cause       error
}

// NewAPIError creates an APIError for the given status code.
// The status code cannot be changed afterwards.
func NewAPIError(statusCode int) *APIError {
	return &APIError{statusCode: statusCode}
}

// NewNetworkError creates the APIError used for transport faults.
func NewNetworkError(cause error) *APIError {
	return NewAPIError(StatusNetworkFailure).
		WithUserMessage(NetworkFailureMessage).
		WithCause(cause)
}

// StatusCode returns the HTTP status code, or StatusNetworkFailure for transport faults.
func (e *APIError) StatusCode() int { return e.statusCode }

// UserMessage returns the human-facing message.
func (e *APIError) UserMessage() string { return e.userMessage }

// LogMessage returns the diagnostic message. Empty unless diagnostics were
// enabled or an error body parser contributed one.
func (e *APIError) LogMessage() string { return e.logMessage }

// Cause returns the captured transport fault. Nil for HTTP-status failures.
func (e *APIError) Cause() error { return e.cause }

// WithUserMessage returns a copy with the user message replaced.
func (e *APIError) WithUserMessage(msg string) *APIError {
	c := *e
	c.userMessage = msg
	return &c
}

// WithLogMessage returns a copy with the log message replaced.
func (e *APIError) WithLogMessage(msg string) *APIError {
	c := *e
	c.logMessage = msg
	return &c
}

// PrependLogMessage returns a copy whose log message starts with prefix,
// followed by a newline and the existing log message if there is one.
func (e *APIError) PrependLogMessage(prefix string) *APIError {
	c := *e
	if c.logMessage == "" {
		c.logMessage = prefix
	} else {
		c.logMessage = prefix + "\n" + c.logMessage
	}
	return &c
}

// WithCause returns a copy carrying the given transport fault.
func (e *APIError) WithCause(cause error) *APIError {
	c := *e
	c.cause = cause
	return &c
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.userMessage == "" {
		return fmt.Sprintf("api error %d", e.statusCode)
	}

	return fmt.Sprintf("api error %d: %s", e.statusCode, e.userMessage)
}

// Unwrap exposes the status-class sentinel and the cause for errors.Is/As support.
func (e *APIError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if sentinel := ClassifyStatus(e.statusCode); sentinel != nil {
		errs = append(errs, sentinel)
	}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

// LogValue implements slog.LogValuer.
func (e *APIError) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("status_code", e.statusCode),
		slog.String("user_message", e.userMessage),
	}
	if e.logMessage != "" {
		attrs = append(attrs, slog.String("log_message", e.logMessage))
	}
	if e.cause != nil {
		attrs = append(attrs, slog.String("cause", e.cause.Error()))
	}
	return slog.GroupValue(attrs...)
}

// UnhandledError is returned by blocking calls when no error handler
// consumed the APIError.
type UnhandledError struct {
	APIError *APIError
}

// NewUnhandledError wraps an APIError that no handler consumed.
func NewUnhandledError(apiErr *APIError) error {
	return &UnhandledError{APIError: apiErr}
}

// Error implements the error interface.
func (e *UnhandledError) Error() string {
	return "unhandled " + e.APIError.Error()
}

// Unwrap returns the APIError for errors.Is/As support.
func (e *UnhandledError) Unwrap() error {
	return e.APIError
}
