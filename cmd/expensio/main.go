package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/expensio/internal/config"
	"github.com/smallbiznis/expensio/internal/logger"
	"github.com/smallbiznis/expensio/internal/migration"
	"github.com/smallbiznis/expensio/internal/observability"
	"github.com/smallbiznis/expensio/internal/server"
	"github.com/smallbiznis/expensio/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
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
