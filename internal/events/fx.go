package events

import (
	"context"

	"github.com/smallbiznis/enrollpay/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("events",
	fx.Provide(NewPublisher),
)

func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Publisher {
	if !cfg.RabbitMQ.Enabled() {
		log.Info("rabbitmq not configured, payment events are dropped")
		return NoopPublisher{}
	}

	publisher := NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.DialTimeout, log)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return publisher.Close()
		},
	})
	return publisher
}
