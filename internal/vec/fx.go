package vec

import (
	"github.com/smallbiznis/microgrid/internal/vec/repository"
	"github.com/smallbiznis/microgrid/internal/vec/service"
	"go.uber.org/fx"
)

var Module = fx.Module("vec.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
