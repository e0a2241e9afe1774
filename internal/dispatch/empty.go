package dispatch

import (
	"slices"

	"github.com/jsamuelsen/restcall/internal/adapters/clients"
)

// IsEmptyBodyError reports whether a response without payload should be
// treated as an error: it should unless its status code is in allowed.
// A response with a payload never is.
func IsEmptyBodyError[T any](resp *clients.Response[T], allowed ...int) bool {
	if resp.Body != nil {
		return false
	}
	return !slices.Contains(allowed, resp.StatusCode())
}
