package server

import (
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/microgrid/internal/actorcontext"
	obscontext "github.com/smallbiznis/microgrid/internal/observability/context"
)

// AuthRequired resolves the session cookie or bearer token to an actor
// and attaches it to the request context.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		user, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		ctx := actorcontext.WithActor(c.Request.Context(), actorcontext.Actor{
			Username: user.Username,
			Role:     user.Role,
			Hamlet:   user.HamletName(),
		})
		ctx = obscontext.WithActor(ctx, user.Role, user.Username)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
