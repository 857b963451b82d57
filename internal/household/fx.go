package household

import (
	"github.com/smallbiznis/microgrid/internal/household/repository"
	"github.com/smallbiznis/microgrid/internal/household/service"
	"go.uber.org/fx"
)

var Module = fx.Module("household.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
