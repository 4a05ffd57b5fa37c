// Package auth owns token issuance/verification, the request actor, and the
// role guard used by the role-separated route groups.
package auth

import (
	"context"

	"github.com/google/uuid"
)

// Roles. A user holds exactly one.
const (
	RoleAdmin  = "ADMIN"
	RoleDoctor = "DOCTOR"
)

// Actor identifies who is making the call. It is resolved once by the auth
// middleware and passed explicitly into every service operation so the core
// can be tested without a request pipeline.
type Actor struct {
	ID    uuid.UUID
	Email string
	Role  string
}

func (a Actor) IsAdmin() bool  { return a.Role == RoleAdmin }
func (a Actor) IsDoctor() bool { return a.Role == RoleDoctor }

// Zero reports whether the actor is unauthenticated.
func (a Actor) Zero() bool { return a.ID == uuid.Nil }

type contextKey string

const actorKey contextKey = "actor"

// WithActor returns a context carrying the actor.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// ActorFromContext returns the actor stored by the auth middleware, or the
// zero Actor when the request is unauthenticated.
func ActorFromContext(ctx context.Context) Actor {
	a, _ := ctx.Value(actorKey).(Actor)
	return a
}
