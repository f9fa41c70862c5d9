package shared

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// ContextKey is the key type for request-scoped values.
type ContextKey string

const (
	// OperatorIDContextKey carries the authenticated operator's ID.
	OperatorIDContextKey ContextKey = "operatorID"

	// TraceIDKey carries the request trace ID.
	TraceIDKey ContextKey = "traceID"

	// traceIDLength is the number of random bytes in a trace ID.
	traceIDLength = 16
)

// SetTraceID adds a fresh trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return context.WithValue(ctx, TraceIDKey, generateTraceID())
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// OperatorIDFromContext extracts the authenticated operator's ID, as
// placed there by the auth middleware.
func OperatorIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(OperatorIDContextKey).(int64)
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// generateTraceID creates a random hex trace ID. On the (practically
// impossible) failure of crypto/rand it falls back to a timestamp so the
// ID is still never empty or static.
func generateTraceID() string {
	b := make([]byte, traceIDLength)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("t-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
