package billing

import (
	"github.com/smallbiznis/microgrid/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("billing",
	fx.Provide(NewTariffSource),
	fx.Provide(NewCalculator),
)

type holderSource struct {
	holder *config.TariffConfigHolder
}

// NewTariffSource reads the rate card from the hot-reloaded tariff config.
func NewTariffSource(holder *config.TariffConfigHolder) TariffSource {
	if holder == nil {
		return StaticTariff(DefaultTariff())
	}
	return holderSource{holder: holder}
}

func (s holderSource) Tariff() Tariff {
	cfg := s.holder.Get()
	return Tariff{
		PerUnit:     cfg.PerUnitRate(),
		FixedCharge: cfg.FixedChargeAmount(),
	}
}
