package clients

import (
	"context"

	"github.com/google/uuid"
)

// HeaderRequestID is the header carrying the request ID downstream.
const HeaderRequestID = "X-Request-ID"

type requestIDKey struct{}

// ContextWithRequestID stores a request ID to be sent with outgoing requests.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the request ID stored in ctx, or a new one.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		return id
	}

	return NewRequestID()
}

// NewRequestID generates a random request ID.
func NewRequestID() string {
	return uuid.NewString()
}
