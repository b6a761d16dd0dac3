package authz

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)

// AuthUser is the signed-in owner as resolved from the session cookie.
// Token is the backend bearer token; it never leaves the server.
type AuthUser struct {
	SessionID string
	Username  string
	Role      string
	Token     string
}

type userContextKey struct{}

func ContextWithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the AuthUser stored in ctx.
// It returns nil if ctx is nil, if no user is stored, or if the stored value has a different type.
func UserFromContext(ctx context.Context) *AuthUser {
	if ctx == nil {
		return nil
	}

	user, ok := ctx.Value(userContextKey{}).(*AuthUser)
	if !ok {
		return nil
	}

	return user
}

// HasRole reports whether user carries role, ignoring case.
func HasRole(user *AuthUser, role string) bool {
	return user != nil && strings.EqualFold(strings.TrimSpace(user.Role), role)
}

// RequireRole returns ErrUnauthenticated without a user and ErrForbidden
// when the user's role differs.
func RequireRole(ctx context.Context, role string) (*AuthUser, error) {
	user := UserFromContext(ctx)
	if user == nil {
		return nil, ErrUnauthenticated
	}
	if !HasRole(user, role) {
		return nil, ErrForbidden
	}
	return user, nil
}
