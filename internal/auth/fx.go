package auth

import (
	"github.com/smallbiznis/microgrid/internal/auth/repository"
	"github.com/smallbiznis/microgrid/internal/auth/service"
	"github.com/smallbiznis/microgrid/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
	fx.Provide(session.NewManager),
)
