package core

import "context"

type contextKey string

const ctxKeyUser contextKey = "acting_user"

// ContextWithUser attaches the acting user to ctx.
func ContextWithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

// UserFromContext returns the acting user stored in ctx.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKeyUser).(User)
	return u, ok
}
