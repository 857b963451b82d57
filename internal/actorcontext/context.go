package actorcontext

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

const (
	RoleOperator           = "operator"
	RoleSPOC               = "spoc"
	RoleInsuranceCommittee = "insurance_committee"
	RoleSystem             = "system"
)

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID   snowflake.ID
	Username string
	Role     string
	// Hamlet scopes operators to one hamlet. Empty for other roles.
	Hamlet string
}

// ActorContextKey is the request context key for the authenticated actor.
type ActorContextKey struct{}

func WithActor(ctx context.Context, actor Actor) context.Context {
	actor.Username = strings.TrimSpace(actor.Username)
	actor.Role = strings.ToLower(strings.TrimSpace(actor.Role))
	actor.Hamlet = strings.TrimSpace(actor.Hamlet)
	return context.WithValue(ctx, ActorContextKey{}, actor)
}

// ActorFromContext returns the actor stored in ctx, if any.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(ActorContextKey{}).(Actor)
	if !ok || actor.Role == "" {
		return Actor{}, false
	}
	return actor, true
}

// System returns ctx carrying the internal system actor, used by seeding
// and other startup jobs.
func System(ctx context.Context) context.Context {
	return WithActor(ctx, Actor{Username: "system", Role: RoleSystem})
}

// Subject is the casbin subject for the actor.
func (a Actor) Subject() string {
	if a.Role == RoleSystem {
		return "system"
	}
	return "user:" + a.Username
}
