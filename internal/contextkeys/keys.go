// Package contextkeys carries the caller authenticated by the JWT middleware
// through a request.
package contextkeys

import "context"

type contextKey struct{}

// Caller is the account behind a request.
type Caller struct {
	UserID string
	Email  string
	Role   string
}

// WithCaller returns a copy of ctx that carries c.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// CallerFrom returns the caller stored in ctx, if any.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(contextKey{}).(Caller)
	return c, ok && c.UserID != ""
}
