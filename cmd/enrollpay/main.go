package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/enrollpay/internal/audit"
	"github.com/smallbiznis/enrollpay/internal/auth"
	"github.com/smallbiznis/enrollpay/internal/authorization"
	"github.com/smallbiznis/enrollpay/internal/clock"
	"github.com/smallbiznis/enrollpay/internal/config"
	"github.com/smallbiznis/enrollpay/internal/enrollment"
	"github.com/smallbiznis/enrollpay/internal/events"
	"github.com/smallbiznis/enrollpay/internal/migration"
	"github.com/smallbiznis/enrollpay/internal/observability"
	"github.com/smallbiznis/enrollpay/internal/payment"
	"github.com/smallbiznis/enrollpay/internal/pricing"
	"github.com/smallbiznis/enrollpay/internal/ratelimit"
	"github.com/smallbiznis/enrollpay/internal/receipt"
	"github.com/smallbiznis/enrollpay/internal/reference"
	"github.com/smallbiznis/enrollpay/internal/scheduler"
	"github.com/smallbiznis/enrollpay/internal/server"
	"github.com/smallbiznis/enrollpay/pkg/db"
	"go.uber.org/fx"
)

// Single binary: HTTP API plus the re-verify sweeper.
func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		ratelimit.Module,
		events.Module,

		// Functional Domains
		pricing.Module,
		reference.Module,
		enrollment.Module,
		payment.Module,
		auth.Module,
		authorization.Module,
		audit.Module,
		receipt.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
