package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/internal/clock"
	"github.com/smallbiznis/ledgerly/internal/config"
	"github.com/smallbiznis/ledgerly/internal/migration"
	"github.com/smallbiznis/ledgerly/internal/observability"
	"github.com/smallbiznis/ledgerly/internal/seed"
	"github.com/smallbiznis/ledgerly/internal/server"
	"github.com/smallbiznis/ledgerly/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
		seed.Module,
	)
	app.Run()
}

func newSnowflakeNode(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
