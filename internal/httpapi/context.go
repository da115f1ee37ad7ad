package httpapi

import (
	"context"

	"github.com/jw6ventures/gcalsync/internal/store"
)

type contextKey string

const contextKeyUser contextKey = "user"

// withUser attaches the authenticated user to the request context.
func withUser(ctx context.Context, user *store.User) context.Context {
	return context.WithValue(ctx, contextKeyUser, user)
}

// userFromContext retrieves the user attached by requireSession.
func userFromContext(ctx context.Context) (*store.User, bool) {
	user, ok := ctx.Value(contextKeyUser).(*store.User)
	return user, ok
}
