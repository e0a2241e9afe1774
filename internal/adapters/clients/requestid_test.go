package clients

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDFromContext(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "abc-123")
	assert.Equal(t, "abc-123", RequestIDFromContext(ctx))
}

func TestRequestIDFromContext_Generates(t *testing.T) {
	id := RequestIDFromContext(context.Background())

	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.NotEqual(t, id, RequestIDFromContext(context.Background()))
}

func TestRequestIDFromContext_EmptyValueGenerates(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "")
	assert.NotEmpty(t, RequestIDFromContext(ctx))
}
