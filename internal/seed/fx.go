package seed

import (
	"context"

	authdomain "github.com/smallbiznis/microgrid/internal/auth/domain"
	"github.com/smallbiznis/microgrid/internal/config"
	hhdomain "github.com/smallbiznis/microgrid/internal/household/domain"
	vecdomain "github.com/smallbiznis/microgrid/internal/vec/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	Auth       authdomain.Service
	Households hhdomain.Service
	VECs       vecdomain.Service
}

var Module = fx.Module("seed",
	fx.Invoke(func(p Params) error {
		log := p.Log.Named("seed")
		if !p.Cfg.SeedDemoData {
			log.Debug("demo data disabled")
			return nil
		}
		return Seeder{Auth: p.Auth, Households: p.Households, VECs: p.VECs, Log: log}.EnsureDemoData(context.Background())
	}),
)
