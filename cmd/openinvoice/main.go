package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/openinvoice/openinvoice/internal/config"
	"github.com/openinvoice/openinvoice/internal/logger"
	"github.com/openinvoice/openinvoice/internal/migration"
	"github.com/openinvoice/openinvoice/internal/server"
	"github.com/openinvoice/openinvoice/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		server.Module,
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
