package dispatch

import "errors"

var (
	// ErrNoTransport is returned by New when no transport is configured.
	ErrNoTransport = errors.New("dispatch: transport is required")

	// ErrInvalidBaseURL is returned by New for a malformed base URL.
	ErrInvalidBaseURL = errors.New("dispatch: invalid base URL")

	// ErrNoBaseURL is returned by NewRequest for a relative path when no
	// base URL is configured.
	ErrNoBaseURL = errors.New("dispatch: relative path without base URL")
)
