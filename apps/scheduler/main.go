package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/enrollpay/internal/authorization"
	"github.com/smallbiznis/enrollpay/internal/clock"
	"github.com/smallbiznis/enrollpay/internal/config"
	"github.com/smallbiznis/enrollpay/internal/enrollment"
	"github.com/smallbiznis/enrollpay/internal/events"
	"github.com/smallbiznis/enrollpay/internal/observability"
	"github.com/smallbiznis/enrollpay/internal/payment"
	"github.com/smallbiznis/enrollpay/internal/pricing"
	"github.com/smallbiznis/enrollpay/internal/ratelimit"
	"github.com/smallbiznis/enrollpay/internal/reference"
	"github.com/smallbiznis/enrollpay/internal/scheduler"
	"github.com/smallbiznis/enrollpay/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,
		events.Module,

		// Domain services required by the re-verify sweeper
		pricing.Module,
		reference.Module,
		enrollment.Module,
		payment.Module,
		authorization.Module,

		// No server module!
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
