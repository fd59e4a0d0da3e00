package cache

import "context"

type modeKey struct{}

type mode int

const (
	modeDefault mode = iota
	// modeRefresh skips the read path but rewrites the cache after
	// execution.
	modeRefresh
	// modeBypass ignores the cache in both directions.
	modeBypass
)

// WithRefresh marks the context so cached reads are skipped and the fresh
// result is written back.
func WithRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, modeKey{}, modeRefresh)
}

// WithBypass marks the context so the cache is ignored entirely: no read,
// no write.
func WithBypass(ctx context.Context) context.Context {
	return context.WithValue(ctx, modeKey{}, modeBypass)
}

func isRefresh(ctx context.Context) bool {
	m, _ := ctx.Value(modeKey{}).(mode)
	return m == modeRefresh
}

func isBypassed(ctx context.Context) bool {
	m, _ := ctx.Value(modeKey{}).(mode)
	return m == modeBypass
}
