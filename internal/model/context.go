package model

import "context"

type sessionCtxKey struct{}

// ContextWithSession stores the authenticated session ID in the request context.
func ContextWithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, id)
}

// SessionFromContext retrieves the authenticated session ID, or "".
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionCtxKey{}).(string)
	return id
}

type deviceCtxKey struct{}

// ContextWithDevice stores the browser device ID in context.
func ContextWithDevice(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deviceCtxKey{}, id)
}

// DeviceFromContext retrieves the browser device ID (empty string if not set).
func DeviceFromContext(ctx context.Context) string {
	id, _ := ctx.Value(deviceCtxKey{}).(string)
	return id
}

type basePathCtxKey struct{}

// ContextWithBasePath stores the base path prefix in context.
func ContextWithBasePath(ctx context.Context, basePath string) context.Context {
	return context.WithValue(ctx, basePathCtxKey{}, basePath)
}

// BasePathFromContext retrieves the base path from context (empty string if not set).
func BasePathFromContext(ctx context.Context) string {
	bp, _ := ctx.Value(basePathCtxKey{}).(string)
	return bp
}

type csrfCtxKey struct{}

// ContextWithCSRFToken stores the CSRF token in context.
func ContextWithCSRFToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, csrfCtxKey{}, token)
}

// CSRFTokenFromContext retrieves the CSRF token from context.
func CSRFTokenFromContext(ctx context.Context) string {
	t, _ := ctx.Value(csrfCtxKey{}).(string)
	return t
}
