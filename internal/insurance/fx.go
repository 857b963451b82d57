package insurance

import (
	"github.com/smallbiznis/microgrid/internal/insurance/repository"
	"github.com/smallbiznis/microgrid/internal/insurance/service"
	"go.uber.org/fx"
)

var Module = fx.Module("insurance.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
