package internal

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestRequestIDRoundTrip(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", GetRequestID(ctx))

	ctx = WithRequestID(ctx, "abc")
	assert.Equal(t, "abc", GetRequestID(ctx))
}

func TestNewRequestIDIsUUID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(a)
	assert.NoError(t, err)
}

func TestEnsureRequestID(t *testing.T) {
	incoming := uuid.NewString()
	ctx, id := EnsureRequestID(context.Background(), incoming)
	assert.Equal(t, incoming, id)
	assert.Equal(t, incoming, GetRequestID(ctx))

	for _, bad := range []string{"", "not-a-uuid", "<script>"} {
		ctx, id := EnsureRequestID(context.Background(), bad)
		assert.NotEqual(t, bad, id)
		assert.Equal(t, id, GetRequestID(ctx))
		_, err := uuid.Parse(id)
		assert.NoError(t, err)
	}
}
