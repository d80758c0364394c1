// Package auth resolves the calling actor for every engagement operation.
//
// The HTTP layer verifies the bearer token, stores the resulting Actor in the
// request context and services read it back with RequireActor. Nothing here
// keeps global session state; verifiers and directories are injected.
package auth

import (
	"context"
	"strings"

	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
)

// Roles with operator privileges.
const (
	RoleAdmin   = "admin"
	RoleService = "service_role"
)

// Actor is an authenticated identity. It is immutable for the lifetime of a
// request.
type Actor struct {
	ID       string `json:"id"`
	Role     string `json:"role,omitempty"`
	Email    string `json:"email,omitempty"`
	Username string `json:"username,omitempty"`
}

// HasRole reports whether the actor holds any of roles.
func (a Actor) HasRole(roles ...string) bool {
	for _, role := range roles {
		if strings.EqualFold(a.Role, role) {
			return true
		}
	}
	return false
}

type actorKey struct{}

// WithActor returns a context carrying actor.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored in ctx, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.ID == "" {
		return Actor{}, false
	}
	return actor, true
}

// CurrentActorID returns the id of the calling actor.
func CurrentActorID(ctx context.Context) (string, bool) {
	actor, ok := ActorFromContext(ctx)
	return actor.ID, ok
}

// IsAuthenticated reports whether ctx carries a resolved actor.
func IsAuthenticated(ctx context.Context) bool {
	_, ok := ActorFromContext(ctx)
	return ok
}

// RequireActor returns the calling actor or ErrNotAuthenticated.
func RequireActor(ctx context.Context) (Actor, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return Actor{}, apperrors.ErrNotAuthenticated
	}
	return actor, nil
}
