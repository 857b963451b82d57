package config

import (
	"errors"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// TariffConfig is the household rate card, read from tariff.yml.
type TariffConfig struct {
	PerUnit     string `mapstructure:"perUnit"`
	FixedCharge string `mapstructure:"fixedCharge"`
}

func DefaultTariffConfig() TariffConfig {
	return TariffConfig{
		PerUnit:     "10",
		FixedCharge: "100",
	}
}

func (t TariffConfig) PerUnitRate() decimal.Decimal {
	return decimal.RequireFromString(t.PerUnit)
}

func (t TariffConfig) FixedChargeAmount() decimal.Decimal {
	return decimal.RequireFromString(t.FixedCharge)
}

type TariffConfigHolder struct {
	current atomic.Value // holds TariffConfig
}

// NewTariffConfigHolder loads tariff.yml and keeps it current while the
// file changes. A missing file falls back to the default rate card.
func NewTariffConfigHolder(cfg Config, log *zap.Logger) (*TariffConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("tariff.config")

	v := viper.New()
	if cfg.TariffFilePath != "" {
		v.SetConfigFile(cfg.TariffFilePath)
	} else {
		v.SetConfigName("tariff")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/microgrid")
		v.AddConfigPath(filepath.Join(".", "config"))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MICROGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultTariffConfig()
	v.SetDefault("tariff.perUnit", defaults.PerUnit)
	v.SetDefault("tariff.fixedCharge", defaults.FixedCharge)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		fileLoaded = false
	}

	tariff, err := readTariff(v)
	if err != nil {
		return nil, err
	}

	holder := &TariffConfigHolder{}
	holder.current.Store(tariff)
	log.Info("tariff loaded",
		zap.String("per_unit", tariff.PerUnit),
		zap.String("fixed_charge", tariff.FixedCharge),
		zap.Bool("from_file", fileLoaded),
	)

	if fileLoaded {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := readTariff(v)
			if err != nil {
				log.Warn("invalid tariff ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("tariff reloaded",
				zap.String("file", e.Name),
				zap.String("per_unit", updated.PerUnit),
				zap.String("fixed_charge", updated.FixedCharge),
			)
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *TariffConfigHolder) Get() TariffConfig {
	return h.current.Load().(TariffConfig)
}

func readTariff(v *viper.Viper) (TariffConfig, error) {
	var cfg TariffConfig
	if err := v.UnmarshalKey("tariff", &cfg); err != nil {
		return TariffConfig{}, err
	}
	cfg.PerUnit = strings.TrimSpace(cfg.PerUnit)
	cfg.FixedCharge = strings.TrimSpace(cfg.FixedCharge)
	if err := validateTariff(cfg); err != nil {
		return TariffConfig{}, err
	}
	return cfg, nil
}

func validateTariff(cfg TariffConfig) error {
	perUnit, err := decimal.NewFromString(cfg.PerUnit)
	if err != nil {
		return errors.New("tariff.perUnit must be a number")
	}
	fixed, err := decimal.NewFromString(cfg.FixedCharge)
	if err != nil {
		return errors.New("tariff.fixedCharge must be a number")
	}
	if perUnit.IsNegative() || fixed.IsNegative() {
		return errors.New("tariff amounts cannot be negative")
	}
	return nil
}
