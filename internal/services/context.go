package services

import "context"

type contextKey string

const (
	requestIDKey  contextKey = "request_id"
	databaseIDKey contextKey = "database_id"
)

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithDatabaseID annotates context with the target database identifier.
func WithDatabaseID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, databaseIDKey, id)
}

// DatabaseIDFromContext returns the target database identifier if present.
func DatabaseIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(databaseIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
