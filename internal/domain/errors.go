// Package domain contains the error values shared by the transport and the dispatcher.
// They are infrastructure-agnostic: callers match them with errors.Is/errors.As
// without knowing which transport produced the failure.
package domain

import (
	"errors"
	"net/http"
)

// Sentinel errors for use with errors.Is().
// Every APIError unwraps to the sentinel matching its status class.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a state conflict such as duplicate entry or version mismatch.
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates the remote side rejected the request as invalid.
	ErrValidation = errors.New("validation failed")

	// ErrForbidden indicates the caller is not allowed to perform the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable indicates the remote side or the network is unavailable.
	ErrUnavailable = errors.New("unavailable")
)

// ClassifyStatus maps an HTTP status code to its sentinel error.
// Returns nil for status codes that do not indicate a failure.
func ClassifyStatus(code int) error {
	switch {
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusConflict:
		return ErrConflict
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return ErrUnavailable
	case code >= http.StatusInternalServerError:
		return ErrUnavailable
	case code >= http.StatusBadRequest:
		// Unknown 4xx errors default to validation
		return ErrValidation
	default:
		return nil
	}
}

// IsNotFound checks if an error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict checks if an error is a conflict error.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation checks if an error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsForbidden checks if an error is a forbidden error.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// IsUnavailable checks if an error is an unavailable error.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
