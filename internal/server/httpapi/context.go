package httpapi

import (
	"context"

	"github.com/anandakmagar/authguard/internal/server/models"
)

type ctxKey int

const identityKey ctxKey = iota

// Identity is the request-scoped authenticated identity. It exists only for
// the lifetime of one request and is never shared across requests.
type Identity struct {
	User *models.User
}

// WithIdentity returns a child context carrying the identity.
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFrom returns the identity attached to ctx, or nil when the request
// is unauthenticated.
func IdentityFrom(ctx context.Context) *Identity {
	ident, _ := ctx.Value(identityKey).(*Identity)
	return ident
}
