package auth

import (
	"context"

	"github.com/dukerupert/homeroom/internal/model"
)

type contextKey struct{}

// AuthContext is the signed-in account attached to a request.
type AuthContext struct {
	AccountID string
	Session   *model.Session
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func AccountID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.AccountID
}

// Session returns the request's session, or nil when nobody is signed in.
func Session(ctx context.Context) *model.Session {
	ac, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return ac.Session
}
