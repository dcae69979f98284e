// Package identity provides request-scoped caller identity.
//
// The core never authenticates: every operation receives a resolved
// (tenantID, actorID) pair from the boundary (JWT middleware, worker loop,
// seed tool) through the context.
package identity

import (
	"context"
)

// Identity is the resolved caller of an operation.
type Identity struct {
	TenantID string
	ActorID  string
	Email    string
	Roles    []string
}

type identityKey struct{}

// WithIdentity adds Identity to context.
func WithIdentity(ctx context.Context, ident Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, &ident)
}

// Get returns Identity from context, or nil.
func Get(ctx context.Context) *Identity {
	if v, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return v
	}
	return nil
}

// GetTenantID returns tenant ID from context or empty string.
func GetTenantID(ctx context.Context) string {
	if ident := Get(ctx); ident != nil {
		return ident.TenantID
	}
	return ""
}

// GetActorID returns actor ID from context or empty string.
func GetActorID(ctx context.Context) string {
	if ident := Get(ctx); ident != nil {
		return ident.ActorID
	}
	return ""
}

// HasRole checks whether the identity carries a specific role.
func (i *Identity) HasRole(role string) bool {
	if i == nil {
		return false
	}
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasRole checks if the caller has a specific role.
func HasRole(ctx context.Context, role string) bool {
	return Get(ctx).HasRole(role)
}
