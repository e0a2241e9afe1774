// Package clients is the HTTP transport consumed by the dispatcher: an
// instrumented client plus the Call abstraction that turns a prepared request
// into either a decoded payload, a failed response, or a transport fault.
package clients

import "errors"

// Transport faults. They mean no usable HTTP response was obtained.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open.
	// This indicates the downstream service is unhealthy and requests are being blocked.
	ErrCircuitOpen = errors.New("circuit breaker open")

	// ErrMaxRetriesExceeded wraps the last fault after every attempt failed.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")

	// ErrNoConverter is returned when no converter accepts the response content type.
	ErrNoConverter = errors.New("no converter for content type")

	// ErrNoResponse is returned when a Doer reports neither a response nor an error.
	ErrNoResponse = errors.New("transport returned no response")
)
