package authorization

import (
	"context"
	"strings"

	"github.com/smallbiznis/microgrid/internal/actorcontext"
)

// ScopedHamlet narrows a hamlet filter to the operator's own hamlet. Other
// roles get requested back unchanged.
func ScopedHamlet(ctx context.Context, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	actor, ok := actorcontext.ActorFromContext(ctx)
	if !ok {
		return "", ErrInvalidActor
	}
	if actor.Role != actorcontext.RoleOperator {
		return requested, nil
	}
	if requested == "" {
		return actor.Hamlet, nil
	}
	if !strings.EqualFold(requested, actor.Hamlet) {
		return "", ErrForbidden
	}
	return requested, nil
}
