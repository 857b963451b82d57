package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/microgrid/internal/audit"
	"github.com/smallbiznis/microgrid/internal/auth"
	"github.com/smallbiznis/microgrid/internal/authorization"
	"github.com/smallbiznis/microgrid/internal/billing"
	"github.com/smallbiznis/microgrid/internal/bulkimport"
	"github.com/smallbiznis/microgrid/internal/clock"
	"github.com/smallbiznis/microgrid/internal/config"
	"github.com/smallbiznis/microgrid/internal/entitylock"
	"github.com/smallbiznis/microgrid/internal/export"
	"github.com/smallbiznis/microgrid/internal/household"
	"github.com/smallbiznis/microgrid/internal/insurance"
	"github.com/smallbiznis/microgrid/internal/migration"
	"github.com/smallbiznis/microgrid/internal/observability"
	"github.com/smallbiznis/microgrid/internal/seed"
	"github.com/smallbiznis/microgrid/internal/server"
	"github.com/smallbiznis/microgrid/internal/upload"
	"github.com/smallbiznis/microgrid/internal/vec"
	"github.com/smallbiznis/microgrid/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		entitylock.Module,

		// Access control
		audit.Module,
		authorization.Module,
		auth.Module,

		// Records
		billing.Module,
		household.Module,
		vec.Module,
		insurance.Module,
		bulkimport.Module,
		export.Module,
		upload.Module,

		// Schema first, then demo data, then traffic
		migration.Module,
		seed.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
