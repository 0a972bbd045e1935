package services

import "context"

type contextKey string

const (
	methodKey contextKey = "method"
	runIDKey  contextKey = "run_id"
)

// WithMethod annotates context with the acquisition method being attempted.
func WithMethod(ctx context.Context, method string) context.Context {
	if method == "" {
		return ctx
	}
	return context.WithValue(ctx, methodKey, method)
}

// MethodFromContext returns the acquisition method name if present.
func MethodFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(methodKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithRunID annotates context with the provisioning run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, runIDKey, id)
}

// RunIDFromContext extracts the provisioning run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
