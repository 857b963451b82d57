package migration

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, log *zap.Logger) error {
		if err := RunMigrations(context.Background(), conn); err != nil {
			return err
		}
		log.Named("migrations").Info("schema up to date")
		return nil
	}),
)
