package internal

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	RequestIDKey contextKey = "request_id"
)

// RequestIDHeader carries the request ID on HTTP requests and responses
const RequestIDHeader = "X-Request-ID"

// NewRequestID returns a fresh random request ID
func NewRequestID() string {
	return uuid.NewString()
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return "unknown"
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// EnsureRequestID returns ctx carrying candidate, or a new ID when candidate
// is not a valid UUID
func EnsureRequestID(ctx context.Context, candidate string) (context.Context, string) {
	if _, err := uuid.Parse(candidate); err != nil {
		candidate = NewRequestID()
	}
	return WithRequestID(ctx, candidate), candidate
}
