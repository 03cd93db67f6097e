package main

import (
	"os"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/netlift/netlift/internal/auditexport"
	"github.com/netlift/netlift/internal/baseline"
	"github.com/netlift/netlift/internal/client"
	"github.com/netlift/netlift/internal/clock"
	"github.com/netlift/netlift/internal/config"
	"github.com/netlift/netlift/internal/insights"
	"github.com/netlift/netlift/internal/ledger"
	"github.com/netlift/netlift/internal/migration"
	"github.com/netlift/netlift/internal/observability"
	"github.com/netlift/netlift/internal/ratelimit"
	"github.com/netlift/netlift/internal/server"
	"github.com/netlift/netlift/internal/settlement"
	"github.com/netlift/netlift/pkg/db"
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
		migration.Module,
		ratelimit.Module,

		// Domains
		client.Module,
		baseline.Module,
		ledger.Module,
		settlement.Module,
		insights.Module,
		auditexport.Module,

		server.Module,
	)
	app.Run()
}

// RegisterSnowflake builds the process-wide id generator. NODE_ID must be
// unique per instance when running more than one.
func RegisterSnowflake() *snowflake.Node {
	nodeID := int64(1)
	if raw := os.Getenv("NODE_ID"); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil {
			nodeID = parsed
		}
	}
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		panic(err)
	}
	return node
}
