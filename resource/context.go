package resource

import "context"

// DefaultScope is the caller scope used when none is attached to the
// context. Unattributed calls (background jobs, system tasks) all share it.
const DefaultScope = "backend"

type scopeKey struct{}

// WithScope attaches the calling-user identity to the context. The scope
// discriminates cache entries of scope-sensitive resources.
func WithScope(ctx context.Context, scope string) context.Context {
	if scope == "" {
		return ctx
	}
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFrom returns the caller scope attached to the context, or
// DefaultScope if none is set.
func ScopeFrom(ctx context.Context) string {
	if scope, ok := ctx.Value(scopeKey{}).(string); ok && scope != "" {
		return scope
	}
	return DefaultScope
}
