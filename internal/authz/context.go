package authz

import (
	"context"
	"net/http"

	"github.com/safesite/safesite-api/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller. It is threaded explicitly into every
// service operation that needs to know who is acting.
type Identity struct {
	UserID   string
	Username string
	Roles    []models.UserRole
}

// WithIdentity stores the caller identity on the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	identity.Roles = models.EnsureDefaultRole(models.NormalizeRoles(identity.Roles))
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromRequest extracts the caller identity placed by the JWT middleware.
func IdentityFromRequest(r *http.Request) (Identity, bool) {
	identity, ok := r.Context().Value(identityKey).(Identity)
	if !ok || identity.UserID == "" {
		return Identity{}, false
	}
	return identity, true
}
