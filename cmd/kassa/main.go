package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kassa/internal/logger"
	"github.com/smallbiznis/kassa/internal/migration"
	"github.com/smallbiznis/kassa/internal/server"
	"github.com/smallbiznis/kassa/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,

		// Checkout bridge: config, provider client, session manager,
		// shipping gateway, reconciler and the callback HTTP surface.
		server.Module,

		migration.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
